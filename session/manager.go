package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/veltabank/bankweb/apiclient"
)

// ErrBadCredentials is returned by SignIn when the API rejects the login;
// it is the message shown on the login form.
var ErrBadCredentials = errors.New("invalid username or password")

// Manager owns session lifecycle: it performs the sign-in, sign-out and
// refresh transitions against the banking API and keeps the Store current.
// It is injectable state owned by the server, not a package global, so
// tests can run several independent managers.
type Manager struct {
	api   *apiclient.Client
	store Store
	ttl   time.Duration
}

func NewManager(api *apiclient.Client, store Store, ttl time.Duration) *Manager {
	return &Manager{
		api:   api,
		store: store,
		ttl:   ttl,
	}
}

// SignIn submits credentials to the API and, on success, resolves the user
// behind the new credential and stores an Authenticated session. On
// failure no session is created and, for rejected credentials,
// ErrBadCredentials is returned for the caller to surface.
func (m *Manager) SignIn(ctx context.Context, username, password string) (*Session, error) {
	cred, err := m.api.Login(ctx, username, password)
	if err != nil {
		if apiclient.IsAuthRequired(err) {
			return nil, ErrBadCredentials
		}

		return nil, err
	}

	user, err := m.api.CurrentUser(ctx, cred)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		id:    uuid.NewString(),
		state: Authenticated,
		user:  user,
		cred:  cred,
	}

	if err := m.store.Put(ctx, sess, m.ttl); err != nil {
		return nil, err
	}

	return sess, nil
}

// SignOut clears the session locally and drops it from the store, then
// asks the API to invalidate the credential. The API call is best effort:
// a failure is logged, never fatal to the transition.
func (m *Manager) SignOut(ctx context.Context, sess *Session) {
	sess.tmu.Lock()
	defer sess.tmu.Unlock()

	cred := sess.Credential()

	sess.set(Anonymous, nil, nil)

	if err := m.store.Delete(ctx, sess.id); err != nil {
		slog.Warn("failed to delete session", "session", sess.id, "err", err)
	}

	if cred == nil {
		return
	}

	if err := m.api.SignOut(ctx, cred); err != nil {
		slog.Warn("signout request failed", "session", sess.id, "err", err)
	}
}

// Refresh re-derives the user from the session's credential. Success lands
// the session in Authenticated; any failure, including a stale credential,
// lands it in Anonymous. It never returns an error.
func (m *Manager) Refresh(ctx context.Context, sess *Session) {
	sess.tmu.Lock()
	defer sess.tmu.Unlock()

	user, err := m.api.CurrentUser(ctx, sess.Credential())
	if err != nil {
		sess.set(Anonymous, nil, sess.Credential())
	} else {
		sess.set(Authenticated, user, sess.Credential())
	}

	if err := m.store.Put(ctx, sess, m.ttl); err != nil {
		slog.Warn("failed to store session", "session", sess.id, "err", err)
	}
}

// SetCredential swaps the session's API credential, after the API rotates
// it (e.g. on a username change).
func (m *Manager) SetCredential(ctx context.Context, sess *Session, cred *apiclient.Credential) {
	sess.tmu.Lock()
	defer sess.tmu.Unlock()

	sess.mu.Lock()
	sess.cred = cred
	sess.mu.Unlock()

	if err := m.store.Put(ctx, sess, m.ttl); err != nil {
		slog.Warn("failed to store session", "session", sess.id, "err", err)
	}
}

// Get looks a session up by ID, returning false for unknown or expired
// sessions. Store failures are treated as a missing session so a broken
// session backend degrades to logged-out, not to an error page.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("session lookup failed", "session", id, "err", err)
		}

		return nil, false
	}

	return sess, true
}

// Put stores a session not created via SignIn (an Unknown session being
// adopted), with the manager's TTL.
func (m *Manager) Put(ctx context.Context, sess *Session) error {
	return m.store.Put(ctx, sess, m.ttl)
}
