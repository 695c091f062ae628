package server

import (
	"context"
	"net/http"

	"rotomdex/rotomd/internal/sessions"
)

type ctxKey string

const ctxSession ctxKey = "session"

// sessionFromRequest resolves the cookie to a live server-side session.
func (s *Server) sessionFromRequest(r *http.Request) (sessions.Session, bool) {
	id, ok := s.cookies.read(r)
	if !ok {
		return sessions.Session{}, false
	}
	return s.sessions.Get(id)
}

// requireAuth gates protected routes. An anonymous or expired visitor is sent
// to the login page rather than given an error body.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSession, sess)))
	})
}

func sessionFromContext(ctx context.Context) (sessions.Session, bool) {
	sess, ok := ctx.Value(ctxSession).(sessions.Session)
	return sess, ok
}
