package server

import (
	"context"
	"net/http"
	"strings"

	"bookshelf/pkg/domain"
)

// loginPathPrefix is open to unauthenticated clients; everything else needs a session.
const loginPathPrefix = "/login"

type sessionContextKey struct{}

// SessionFromContext returns the session the access gate attached to the request.
func SessionFromContext(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(domain.Session)
	return sess, ok
}

func contextWithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// gate resolves the session cookie and redirects unauthenticated requests
// outside the login prefix to the login page before any handler runs.
func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessionFromRequest(r)
		r = r.WithContext(contextWithSession(r.Context(), sess))
		if sess.Authenticated || isLoginPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		s.audit(r, "access_gate", "redirected")
		http.Redirect(w, r, loginPathPrefix, http.StatusFound)
	})
}

func (s *Server) sessionFromRequest(r *http.Request) domain.Session {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return domain.Session{}
	}
	sess, ok := s.app.SessionFromToken(cookie.Value)
	if !ok {
		return domain.Session{}
	}
	return sess
}

func isLoginPath(path string) bool {
	return strings.HasPrefix(path, loginPathPrefix)
}
