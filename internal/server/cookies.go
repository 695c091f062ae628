package server

import (
	"net/http"

	"github.com/gorilla/securecookie"

	"rotomdex/rotomd/internal/sessions"
)

const sessionCookie = "rotom_session"

// cookieCodec seals the opaque session ID into the cookie value. The cookie
// carries no session state; the record lives server-side.
type cookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// newCookieCodec derives the codec from the configured secret. With no secret
// configured a random per-process key is used, which invalidates all cookies
// on restart.
func newCookieCodec(secret []byte, secure bool) *cookieCodec {
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	sc := securecookie.New(secret, nil)
	sc.MaxAge(int(sessions.TTL.Seconds()))
	return &cookieCodec{sc: sc, secure: secure}
}

func (c *cookieCodec) set(w http.ResponseWriter, sessionID string) error {
	val, err := c.sc.Encode(sessionCookie, sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessions.TTL.Seconds()),
	})
	return nil
}

func (c *cookieCodec) read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	var id string
	if err := c.sc.Decode(sessionCookie, ck.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (c *cookieCodec) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
