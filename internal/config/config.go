package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
)

// Config carries every environment-driven knob. Constructed once in main and
// passed down explicitly; there is no package-level state.
type Config struct {
	Port        int
	DataDir     string
	NoticePath  string // plaintext first-boot credentials notice
	Production  bool   // enables Secure cookies
	BuildCommit string

	SessionSecret []byte // securecookie HMAC key; random per process if unset

	GithubToken  string
	RenderAPIKey string
	RenderAPIURL string // override for tests; default Render endpoint when empty

	ScanCron      string // cron expression for background scans; empty disables
	IconRulesPath string // optional YAML icon rules

	LogLevel zerolog.Level
}

// FromEnv reads ROTOMD_* variables, applying defaults where unset.
func FromEnv() Config {
	port := 3000
	if v := os.Getenv("ROTOMD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			port = p
		}
	}

	dataDir := os.Getenv("ROTOMD_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	level := zerolog.InfoLevel
	if v := os.Getenv("ROTOMD_LOG"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			level = l
		}
	}

	return Config{
		Port:          port,
		DataDir:       dataDir,
		NoticePath:    filepath.Join(filepath.Dir(dataDir), "credentials.txt"),
		Production:    os.Getenv("ROTOMD_ENV") == "production",
		BuildCommit:   os.Getenv("ROTOMD_BUILD_COMMIT"),
		SessionSecret: []byte(os.Getenv("ROTOMD_SESSION_SECRET")),
		GithubToken:   os.Getenv("ROTOMD_GITHUB_TOKEN"),
		RenderAPIKey:  os.Getenv("ROTOMD_RENDER_API_KEY"),
		RenderAPIURL:  os.Getenv("ROTOMD_RENDER_API_URL"),
		ScanCron:      os.Getenv("ROTOMD_SCAN_CRON"),
		IconRulesPath: os.Getenv("ROTOMD_ICON_RULES"),
		LogLevel:      level,
	}
}

// CredentialsPath is the durable credentials record inside the data dir.
func (c Config) CredentialsPath() string { return filepath.Join(c.DataDir, "credentials.json") }

// AppsPath is the persisted app registry inside the data dir.
func (c Config) AppsPath() string { return filepath.Join(c.DataDir, "apps.json") }

// RateLimitPath is the persisted login-throttle state inside the data dir.
func (c Config) RateLimitPath() string { return filepath.Join(c.DataDir, "ratelimit.json") }

// Version returns the short build identifier exposed by /api/version.
func (c Config) Version() string {
	if c.BuildCommit == "" {
		return "dev"
	}
	if len(c.BuildCommit) > 7 {
		return c.BuildCommit[:7]
	}
	return c.BuildCommit
}
