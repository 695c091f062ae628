package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rotomdex/rotomd/internal/config"
	"rotomdex/rotomd/internal/creds"
	"rotomdex/rotomd/internal/ratelimit"
	"rotomdex/rotomd/internal/registry"
	"rotomdex/rotomd/internal/scan"
	"rotomdex/rotomd/internal/server"
	"rotomdex/rotomd/internal/sessions"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	zerolog.TimeFieldFormat = time.RFC3339
	logger := log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()

	if err := run(cfg, &logger); err != nil {
		logger.Fatal().Err(err).Msg("rotomd exited")
	}
}

// run wires the stores and the HTTP surface. Bootstrap errors (data dir,
// credentials, registry) are fatal: without durable state there is nothing
// safe to serve.
func run(cfg config.Config, logger *zerolog.Logger) error {
	ctx := context.Background()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("data dir %s: %w", cfg.DataDir, err)
	}

	credStore, err := creds.Open(ctx, cfg.CredentialsPath(), cfg.NoticePath, logger)
	if err != nil {
		return err
	}
	reg, err := registry.Open(ctx, cfg.AppsPath())
	if err != nil {
		return err
	}
	icons, err := scan.LoadIconRules(cfg.IconRulesPath)
	if err != nil {
		return err
	}

	scanner := scan.New(reg, cfg.GithubToken, cfg.RenderAPIKey, cfg.RenderAPIURL, icons, logger)
	sessionStore := sessions.New()
	limiter := ratelimit.New(cfg.RateLimitPath())
	srv := server.New(cfg, logger, credStore, sessionStore, reg, scanner, limiter)

	sched := cron.New()
	if _, err := sched.AddFunc("@hourly", func() {
		if n := sessionStore.Sweep(); n > 0 {
			logger.Debug().Int("expired", n).Msg("session sweep")
		}
	}); err != nil {
		return err
	}
	if cfg.ScanCron != "" {
		if _, err := sched.AddFunc(cfg.ScanCron, func() {
			res := scanner.Scan(context.Background())
			if res.Error != "" {
				logger.Warn().Str("error", res.Error).Msg("scheduled scan failed")
			}
		}); err != nil {
			return fmt.Errorf("scan cron %q: %w", cfg.ScanCron, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info().
		Str("version", cfg.Version()).
		Msgf("rotomd listening on http://localhost:%d", cfg.Port)
	return http.ListenAndServe(addr, srv.Routes())
}
