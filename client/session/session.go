// Package session keeps the signed-in user of a client between runs and
// attaches its token to outgoing API calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/usersvc"
)

type Session struct {
	Token string       `json:"token"`
	User  usersvc.User `json:"user"`
}

func (s Session) Valid() bool { return s.Token != "" }

// Store persists at most one Session.
type Store interface {
	Load() (Session, error)
	Save(s Session) error
	Clear() error
}

var (
	// ErrNoSession is returned by a Store holding nothing.
	ErrNoSession = errors.New("no session stored")
	// ErrLoggedOut means the session was discarded and the user has to log
	// in again.
	ErrLoggedOut = todokit.NewError(todokit.Auth, "Not logged in")
)

// Manager owns the session lifecycle: restore it with Init, replace it with
// Signup or Login, drop it with Logout or on any auth failure reported to
// Check.
type Manager struct {
	auth  authservice.Service
	store Store

	mtx     sync.RWMutex
	current Session
}

func NewManager(auth authservice.Service, store Store) *Manager {
	return &Manager{auth: auth, store: store}
}

// Init restores the persisted session and refreshes its user through the
// profile call. A token the server rejects is cleared and ErrLoggedOut is
// returned. Other failures keep the stored session.
func (m *Manager) Init(ctx context.Context) (Session, error) {
	s, err := m.store.Load()
	if errors.Is(err, ErrNoSession) || (err == nil && !s.Valid()) {
		return Session{}, ErrLoggedOut
	}
	if err != nil {
		if err := m.store.Clear(); err != nil {
			return Session{}, fmt.Errorf("session: clear unreadable session: %w", err)
		}
		return Session{}, ErrLoggedOut
	}

	m.set(s)

	user, err := m.auth.Profile(m.Context(ctx), s.User.ID)
	if err != nil {
		return s, m.Check(err)
	}

	s.User = user
	return s, m.save(s)
}

func (m *Manager) Signup(ctx context.Context, name, email, password string) (Session, error) {
	token, err := m.auth.Signup(ctx, name, email, password)
	if err != nil {
		return Session{}, err
	}
	return m.start(ctx, token)
}

func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	token, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return m.start(ctx, token)
}

// Logout forgets the session locally; tokens are not revoked server side.
func (m *Manager) Logout() error {
	m.set(Session{})
	return m.store.Clear()
}

// Current returns the active session, which is invalid when logged out.
func (m *Manager) Current() Session {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.current
}

// Context returns ctx carrying the session token for the HTTP clients.
func (m *Manager) Context(ctx context.Context) context.Context {
	s := m.Current()
	if !s.Valid() {
		return ctx
	}
	return context.WithValue(ctx, kitjwt.JWTContextKey, s.Token)
}

// Check passes err through, except that an auth failure ends the session
// and becomes ErrLoggedOut. A store that fails to clear is reported wrapped
// around ErrLoggedOut.
func (m *Manager) Check(err error) error {
	if err == nil || todokit.KindOf(err) != todokit.Auth {
		return err
	}
	if err := m.Logout(); err != nil {
		return fmt.Errorf("%w (clear session: %v)", ErrLoggedOut, err)
	}
	return ErrLoggedOut
}

func (m *Manager) start(ctx context.Context, token string) (Session, error) {
	s := Session{Token: token}
	m.set(s)

	user, err := m.auth.Profile(m.Context(ctx), "")
	if err != nil {
		m.set(Session{})
		return Session{}, m.Check(err)
	}

	s.User = user
	return s, m.save(s)
}

func (m *Manager) save(s Session) error {
	m.set(s)
	return m.store.Save(s)
}

func (m *Manager) set(s Session) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.current = s
}
