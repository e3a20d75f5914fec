package server

import (
	"errors"
	"net/http"

	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/session"
)

type loginData struct {
	Error    string
	Username string
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) error {
	if sess, ok := s.session(r); ok && sess.State() == session.Authenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)

		return nil
	}

	return s.render(w, r, http.StatusOK, "login", "Login", loginData{})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	username := r.PostFormValue("username")

	sess, err := s.sessions.SignIn(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		// rejected credentials belong on the form, not on an error page
		status := http.StatusBadGateway

		if errors.Is(err, session.ErrBadCredentials) {
			status = http.StatusUnauthorized
		}

		return s.render(w, r, status, "login", "Login", loginData{
			Error:    apiclient.Message(err),
			Username: username,
		})
	}

	s.setSessionCookie(w, sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)

	return nil
}

type registerData struct {
	Error    string
	Username string
	Email    string
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) error {
	return s.render(w, r, http.StatusOK, "register", "Register", registerData{})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	username := r.PostFormValue("username")
	email := r.PostFormValue("email")

	err := s.api.Register(r.Context(), username, email, r.PostFormValue("password"))
	if err != nil {
		return s.render(w, r, http.StatusBadRequest, "register", "Register", registerData{
			Error:    apiclient.Message(err),
			Username: username,
			Email:    email,
		})
	}

	setFlash(w, flashSuccess, "Account created, please login")
	http.Redirect(w, r, "/login", http.StatusSeeOther)

	return nil
}

type remindData struct {
	Error string
	Email string
	Sent  bool
}

func (s *Server) remindUsernameForm(w http.ResponseWriter, r *http.Request) error {
	return s.render(w, r, http.StatusOK, "remind", "Forgot Username", remindData{})
}

func (s *Server) remindUsername(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return Error{Code: http.StatusBadRequest, Err: err}
	}

	email := r.PostFormValue("email")

	if err := s.api.RemindUsername(r.Context(), email); err != nil {
		return s.render(w, r, http.StatusBadRequest, "remind", "Forgot Username", remindData{
			Error: apiclient.Message(err),
			Email: email,
		})
	}

	return s.render(w, r, http.StatusOK, "remind", "Forgot Username", remindData{Sent: true, Email: email})
}

func (s *Server) signout(w http.ResponseWriter, r *http.Request) error {
	if sess, ok := s.session(r); ok {
		s.sessions.SignOut(r.Context(), sess)
	}

	http.SetCookie(w, &http.Cookie{
		Name:   s.conf.SessionCookie(),
		Path:   "/",
		MaxAge: -1,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)

	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.conf.SessionCookie(),
		Value:    sess.ID(),
		Path:     "/",
		MaxAge:   int(s.conf.SessionTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
