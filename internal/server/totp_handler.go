package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"rotomdex/rotomd/pkg/httpx"
)

// pendingTOTP holds an enrollment that has been generated but not yet
// confirmed with a valid code. Process-local, like the sessions themselves.
type pendingTOTP struct {
	mu     sync.Mutex
	secret string
	uri    string
}

// handleTOTPSetup starts enrollment: generates a secret and returns it with
// the otpauth URI. Nothing is persisted until the operator confirms.
func (s *Server) handleTOTPSetup(w http.ResponseWriter, r *http.Request) {
	if s.creds.Current().TOTPSecret != "" {
		httpx.WriteTypedError(w, http.StatusConflict, "totp.enabled", "TOTP is already enabled")
		return
	}
	sess, _ := sessionFromContext(r.Context())
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "ROTOMDEX",
		AccountName: sess.Username,
	})
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "could not generate TOTP secret")
		return
	}
	s.totp.mu.Lock()
	s.totp.secret = key.Secret()
	s.totp.uri = key.URL()
	s.totp.mu.Unlock()
	httpx.WriteJSON(w, map[string]string{"secret": key.Secret(), "otpauth": key.URL()})
}

// handleTOTPQR renders the pending enrollment URI as a QR PNG for scanning
// with an authenticator app.
func (s *Server) handleTOTPQR(w http.ResponseWriter, _ *http.Request) {
	s.totp.mu.Lock()
	uri := s.totp.uri
	s.totp.mu.Unlock()
	if uri == "" {
		httpx.WriteTypedError(w, http.StatusNotFound, "totp.no_pending", "No enrollment in progress")
		return
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "could not render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// handleTOTPConfirm verifies a code against the pending secret and, on
// success, persists it on the credential record, turning the second factor on
// for subsequent logins.
func (s *Server) handleTOTPConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing code")
		return
	}
	s.totp.mu.Lock()
	secret := s.totp.secret
	s.totp.mu.Unlock()
	if secret == "" {
		httpx.WriteTypedError(w, http.StatusBadRequest, "totp.no_pending", "No enrollment in progress")
		return
	}
	if !totp.Validate(body.Code, secret) {
		httpx.WriteTypedError(w, http.StatusUnauthorized, "totp.invalid", "Invalid code")
		return
	}
	if err := s.creds.SetTOTPSecret(r.Context(), secret); err != nil {
		s.logger.Error().Err(err).Msg("persisting TOTP secret failed")
		httpx.WriteError(w, http.StatusInternalServerError, "could not persist TOTP secret")
		return
	}
	s.totp.mu.Lock()
	s.totp.secret, s.totp.uri = "", ""
	s.totp.mu.Unlock()
	httpx.WriteJSON(w, map[string]any{"ok": true})
}
