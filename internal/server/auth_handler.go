package server

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"

	"rotomdex/rotomd/internal/auth/hash"
	"rotomdex/rotomd/internal/web"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTP     string `json:"totp"`
}

// handleLoginPage serves the login form, bouncing already-authenticated
// visitors back to the dashboard.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionFromRequest(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	web.ServeLogin(w)
}

// handleLogin accepts the form or JSON body and, on success, issues the
// session cookie. Every failure mode, bad username, bad password, missing
// TOTP code, throttled client, lands on the same redirect so nothing about
// the stored credentials leaks.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	fail := func() {
		http.Redirect(w, r, "/login?error=1", http.StatusFound)
	}

	if ok, _, _ := s.limiter.Allow("login:"+clientIP(r), loginAttemptLimit, loginAttemptWindow); !ok {
		s.logger.Warn().Str("ip", clientIP(r)).Msg("login throttled")
		fail()
		return
	}

	body, err := decodeLogin(r)
	if err != nil {
		fail()
		return
	}

	cred := s.creds.Current()
	// Both comparisons always run so a bad username costs the same as a bad
	// password.
	userOK := subtle.ConstantTimeCompare([]byte(body.Username), []byte(cred.Username)) == 1
	passOK := hash.Verify(cred.HashedPassword, body.Password)
	totpOK := cred.TOTPSecret == "" || totp.Validate(body.TOTP, cred.TOTPSecret)
	if !userOK || !passOK || !totpOK {
		fail()
		return
	}

	sess, err := s.sessions.Create(cred.Username)
	if err != nil {
		s.logger.Error().Err(err).Msg("session create failed")
		fail()
		return
	}
	if err := s.cookies.set(w, sess.ID); err != nil {
		s.logger.Error().Err(err).Msg("session cookie encode failed")
		s.sessions.Delete(sess.ID)
		fail()
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.cookies.read(r); ok {
		s.sessions.Delete(id)
	}
	s.cookies.clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func decodeLogin(r *http.Request) (loginRequest, error) {
	var body loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&body)
		return body, err
	}
	if err := r.ParseForm(); err != nil {
		return body, err
	}
	body.Username = r.PostFormValue("username")
	body.Password = r.PostFormValue("password")
	body.TOTP = r.PostFormValue("totp")
	return body, nil
}

// clientIP is the throttle key; chi's RealIP middleware has already folded
// X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
