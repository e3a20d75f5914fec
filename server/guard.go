package server

import (
	"context"
	"net/http"

	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/session"
)

type sessionKey struct{}

// guarded wraps a handler that needs a signed-in user. Requests without a
// live session are bounced to the login page with a notice; sessions in an
// Unknown state (restored from the store, never yet resolved) get one
// refresh against the API before the decision is made. Admin pages
// additionally require the admin role, anyone else is sent home.
func (s *Server) guarded(requireAdmin bool, fn func(http.ResponseWriter, *http.Request, *session.Session) error) http.Handler {
	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		sess, ok := s.session(r)
		if ok && sess.State() == session.Unknown {
			s.sessions.Refresh(r.Context(), sess)
		}

		if !ok || sess.State() != session.Authenticated {
			setFlash(w, flashError, "Please login to continue")
			http.Redirect(w, r, "/login", http.StatusSeeOther)

			return nil
		}

		if requireAdmin && !sess.User().Has(apiclient.RoleAdmin) {
			http.Redirect(w, r, "/", http.StatusSeeOther)

			return nil
		}

		r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess))

		return fn(w, r, sess)
	})
}

// session resolves the request's session, preferring one already attached
// to the request context by guarded over a fresh store lookup.
func (s *Server) session(r *http.Request) (*session.Session, bool) {
	if sess, ok := r.Context().Value(sessionKey{}).(*session.Session); ok {
		return sess, true
	}

	cookie, err := r.Cookie(s.conf.SessionCookie())
	if err != nil {
		return nil, false
	}

	return s.sessions.Get(r.Context(), cookie.Value)
}
