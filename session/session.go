// Package session tracks who is logged in. Each browser gets one Session,
// looked up from a cookie, holding the credential for the banking API and
// the user record derived from it.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/veltabank/bankweb/apiclient"
)

// State is where a session is in its lifecycle.
type State uint8

const (
	// Unknown means the session's credential has not been validated yet;
	// no page may assume an authentication answer.
	Unknown State = iota

	// Authenticated means the credential was accepted and User is set.
	Authenticated

	// Anonymous means there is no valid credential.
	Anonymous
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Session is one browser's authentication state.
//
// Handlers run on concurrent goroutines, so unlike a single-threaded UI
// store the three transitions (sign-in, sign-out, refresh) must not
// interleave: the Manager serialises them with tmu, while mu guards field
// access so readers are never blocked behind a network call.
type Session struct {
	id string

	tmu sync.Mutex
	mu  sync.RWMutex

	state State
	user  *apiclient.User
	cred  *apiclient.Credential
}

// New creates a session for the given credential in the Unknown state; it
// must be resolved with Manager.Refresh before it answers anything.
func New(cred *apiclient.Credential) *Session {
	return &Session{
		id:    uuid.NewString(),
		state: Unknown,
		cred:  cred,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

// User returns the authenticated user, or nil. Non-nil if and only if
// State is Authenticated.
func (s *Session) User() *apiclient.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.user
}

// Credential returns the banking API credential for this session.
func (s *Session) Credential() *apiclient.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cred
}

func (s *Session) set(state State, user *apiclient.User, cred *apiclient.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.user = user
	s.cred = cred
}
