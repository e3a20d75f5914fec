// Package server is the web front-end: it owns the route table, gates
// pages behind the session, and turns banking API data into rendered
// pages. All business logic lives behind the API; handlers here fetch,
// classify errors and render.
package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/config"
	"github.com/veltabank/bankweb/format"
	"github.com/veltabank/bankweb/frontend"
	"github.com/veltabank/bankweb/session"
	"vimagination.zapto.org/httpbuffer"

	_ "vimagination.zapto.org/httpbuffer/gzip"
)

type Server struct {
	conf     *config.Config
	api      *apiclient.Client
	sessions *session.Manager

	mux   *http.ServeMux
	pages map[string]*template.Template
}

func New(conf *config.Config, api *apiclient.Client, sessions *session.Manager) (*Server, error) {
	pages, err := parseTemplates(frontend.Templates())
	if err != nil {
		return nil, err
	}

	s := &Server{
		conf:     conf,
		api:      api,
		sessions: sessions,
		pages:    pages,
	}

	s.routes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	mux := http.NewServeMux()

	mux.Handle("GET /static/app.css", frontend.CSS)

	mux.Handle("GET /login", s.handle(s.loginForm))
	mux.Handle("POST /login", s.handle(s.login))
	mux.Handle("GET /register", s.handle(s.registerForm))
	mux.Handle("POST /register", s.handle(s.register))
	mux.Handle("GET /remind-username", s.handle(s.remindUsernameForm))
	mux.Handle("POST /remind-username", s.handle(s.remindUsername))
	mux.Handle("POST /signout", s.handle(s.signout))

	mux.Handle("GET /{$}", s.guarded(false, s.dashboard))
	mux.Handle("GET /accounts", s.guarded(false, s.accounts))
	mux.Handle("GET /accounts/create", s.guarded(false, s.createAccountForm))
	mux.Handle("POST /accounts/create", s.guarded(false, s.createAccount))
	mux.Handle("GET /transfers/internal", s.guarded(false, s.internalTransferForm))
	mux.Handle("POST /transfers/internal", s.guarded(false, s.internalTransfer))
	mux.Handle("GET /transfers/external", s.guarded(false, s.externalTransferForm))
	mux.Handle("POST /transfers/external", s.guarded(false, s.externalTransfer))
	mux.Handle("GET /statement", s.guarded(false, s.statement))
	mux.Handle("GET /statement/account", s.guarded(false, s.statementByAccount))
	mux.Handle("GET /profile", s.guarded(false, s.profile))
	mux.Handle("POST /profile/username", s.guarded(false, s.updateUsername))
	mux.Handle("POST /profile/password", s.guarded(false, s.updatePassword))
	mux.Handle("POST /profile/avatar", s.guarded(false, s.uploadAvatar))
	mux.Handle("GET /topup", s.guarded(false, s.topUpForm))
	mux.Handle("POST /topup", s.guarded(false, s.topUp))
	mux.Handle("GET /topup/success", s.guarded(false, s.topUpSuccess))
	mux.Handle("GET /topup/cancel", s.guarded(false, s.topUpCancel))
	mux.Handle("GET /billing/super-user", s.guarded(false, s.billingSuper))
	mux.Handle("POST /billing/super-user", s.guarded(false, s.purchaseSuper))
	mux.Handle("GET /status", s.guarded(false, s.systemStatus))
	mux.Handle("GET /analytics", s.guarded(false, s.analytics))

	mux.Handle("GET /admin", s.guarded(true, s.adminPanel))
	mux.Handle("GET /admin/users", s.guarded(true, s.adminUsers))
	mux.Handle("POST /admin/users/{id}/roles/super-user/grant", s.guarded(true, s.grantSuper))
	mux.Handle("POST /admin/users/{id}/roles/super-user/revoke", s.guarded(true, s.revokeSuper))
	mux.Handle("GET /admin/accounts", s.guarded(true, s.adminAccounts))
	mux.Handle("POST /admin/accounts/{id}/delete", s.guarded(true, s.deleteAccount))

	s.mux = mux
}

func (s *Server) handle(fn func(http.ResponseWriter, *http.Request) error) http.Handler {
	return httpbuffer.Handler{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := fn(w, r); err != nil {
				s.fail(w, r, err)
			}
		}),
	}
}

// fail is the single place failed requests land: cross-cutting API
// failures (401, 403) are handled here so every page behaves the same,
// anything else is surfaced as an error page with the best available
// message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var errc Error

	switch {
	case apiclient.IsAuthRequired(err):
		// the credential is dead; resolve the session again so it stops
		// reading as signed-in
		if sess, ok := s.session(r); ok {
			s.sessions.Refresh(r.Context(), sess)
		}

		setFlash(w, flashError, "Please login to continue")

		if r.URL.Path != "/login" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)

			return
		}

		s.errorPage(w, r, http.StatusUnauthorized, "Please login to continue")
	case apiclient.IsForbidden(err):
		setFlash(w, flashError, "Access denied")

		back := r.Referer()
		if back == "" {
			back = "/"
		}

		http.Redirect(w, r, back, http.StatusSeeOther)
	case errors.As(err, &errc):
		http.Error(w, errc.Err.Error(), errc.Code)
	default:
		s.errorPage(w, r, http.StatusBadGateway, apiclient.Message(err))
	}
}

// Error is an error that contains an HTTP error code.
type Error struct {
	Code int
	Err  error
}

func (e Error) Error() string {
	return e.Err.Error()
}

type pageData struct {
	Title string
	Path  string
	User  *apiclient.User
	Flash *Flash
	Data  any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) error {
	tmpl, ok := s.pages[name]
	if !ok {
		return fmt.Errorf("no such page template: %s", name)
	}

	var user *apiclient.User

	if sess, ok := s.session(r); ok {
		user = sess.User()
	}

	page := pageData{
		Title: title,
		Path:  r.URL.Path,
		User:  user,
		Flash: takeFlash(w, r),
		Data:  data,
	}

	var buf bytes.Buffer

	if err := tmpl.ExecuteTemplate(&buf, "layout", &page); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w) //nolint:errcheck

	return nil
}

type errorData struct {
	Message string
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	if err := s.render(w, r, status, "error", "Error", errorData{Message: message}); err != nil {
		http.Error(w, message, status)
	}
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	names, err := fs.Glob(fsys, "templates/pages/*.tmpl")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names))

	for _, name := range names {
		tmpl, err := template.New("layout.tmpl").Funcs(templateFuncs()).
			ParseFS(fsys, "templates/layout.tmpl", name)
		if err != nil {
			return nil, err
		}

		pages[strings.TrimSuffix(path.Base(name), ".tmpl")] = tmpl
	}

	return pages, nil
}

func templateFuncs() template.FuncMap {
	funcs := format.FuncMap()

	funcs["hasRole"] = func(roles []apiclient.Role, role string) bool {
		for _, r := range roles {
			if r == apiclient.Role(role) {
				return true
			}
		}

		return false
	}

	return funcs
}
