// Package scan refreshes the app registry from the Render service-list API.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"rotomdex/rotomd/internal/registry"
)

const (
	defaultBaseURL = "https://api.render.com"
	// One bounded page; services beyond the first 50 are dropped. The API's
	// cursor field is decoded but unused, matching the original behavior.
	pageLimit = 50

	requestTimeout = 10 * time.Second
)

// Result is the handler-facing outcome. Failures carry a message and an empty
// app list rather than an error value, since the route reports them as a JSON
// payload, not an HTTP error.
type Result struct {
	Success bool           `json:"success,omitempty"`
	Error   string         `json:"error,omitempty"`
	Apps    []registry.App `json:"apps"`
}

// Render's service list: a page of envelopes, each wrapping a service plus a
// pagination cursor.
type serviceEnvelope struct {
	Cursor  string   `json:"cursor"`
	Service *service `json:"service"`
}

type service struct {
	Name           string `json:"name"`
	Repo           string `json:"repo"`
	ServiceDetails struct {
		URL    string `json:"url"`
		Region string `json:"region"`
	} `json:"serviceDetails"`
}

type Scanner struct {
	httpc       *http.Client
	baseURL     string
	githubToken string
	renderKey   string
	reg         *registry.Store
	icons       *IconRules
	logger      *zerolog.Logger
}

// New builds a Scanner over reg. baseURL may be empty for the real endpoint.
func New(reg *registry.Store, githubToken, renderKey, baseURL string, icons *IconRules, logger *zerolog.Logger) *Scanner {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if icons == nil {
		icons = defaultIconRules()
	}
	return &Scanner{
		httpc:       &http.Client{Timeout: requestTimeout},
		baseURL:     baseURL,
		githubToken: githubToken,
		renderKey:   renderKey,
		reg:         reg,
		icons:       icons,
		logger:      logger,
	}
}

// Scan fetches the first page of services, filters entries without a public
// URL, maps the rest into app descriptors, and replaces the registry. The
// registry is only touched after a fully successful fetch and transform; any
// failure leaves the previous contents in place.
func (s *Scanner) Scan(ctx context.Context) Result {
	if s.githubToken == "" || s.renderKey == "" {
		return Result{Error: "API keys not configured", Apps: []registry.App{}}
	}

	envelopes, err := s.fetchServices(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("scan failed; registry left untouched")
		return Result{Error: err.Error(), Apps: []registry.App{}}
	}

	apps := make([]registry.App, 0, len(envelopes))
	for _, env := range envelopes {
		if env.Service == nil || env.Service.ServiceDetails.URL == "" {
			continue
		}
		svc := env.Service
		apps = append(apps, registry.App{
			Name:        svc.Name,
			Description: fmt.Sprintf("Deployed on Render (%s)", svc.ServiceDetails.Region),
			URL:         svc.ServiceDetails.URL,
			Repo:        svc.Repo,
			Icon:        s.icons.IconFor(svc.Name),
		})
	}

	if err := s.reg.Replace(ctx, apps, time.Now()); err != nil {
		s.logger.Error().Err(err).Msg("scan succeeded but registry write failed")
		return Result{Error: err.Error(), Apps: []registry.App{}}
	}
	s.logger.Info().Int("apps", len(apps)).Msg("registry refreshed from scan")
	return Result{Success: true, Apps: apps}
}

func (s *Scanner) fetchServices(ctx context.Context) ([]serviceEnvelope, error) {
	url := fmt.Sprintf("%s/v1/services?limit=%d", s.baseURL, pageLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.renderKey)
	req.Header.Set("Accept", "application/json")

	res, err := s.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("render: unexpected status %d", res.StatusCode)
	}
	var envelopes []serviceEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelopes); err != nil {
		return nil, fmt.Errorf("render: decode: %w", err)
	}
	return envelopes, nil
}
