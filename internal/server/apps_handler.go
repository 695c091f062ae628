package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"rotomdex/rotomd/pkg/httpx"
)

// handleApps returns the registry's app list (the bare list, matching the
// dashboard's fetch contract).
func (s *Server) handleApps(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, s.registry.Apps())
}

// handleStatus reports liveness plus a little host context for the header
// line of the dashboard.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	payload := map[string]any{
		"status":    "ONLINE",
		"user":      sess.Username,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if info, err := host.InfoWithContext(r.Context()); err == nil {
		payload["host"] = info.Hostname
		payload["uptimeSec"] = info.Uptime
	}
	httpx.WriteJSON(w, payload)
}

// handleScan runs the scan synchronously and reports its result. Scan
// failures are part of the payload, not HTTP errors; the registry keeps its
// previous contents in that case.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res := s.scanner.Scan(r.Context())
	s.metrics.observeScan(res.Success)
	httpx.WriteJSON(w, res)
}
