package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"directory-console/internal/apperr"
	"directory-console/internal/models"
	"directory-console/pkg/auth"
)

// Grant is what the backend hands out on a successful login.
type Grant struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

// Remote is the slice of the backend the session talks to directly.
type Remote interface {
	Login(ctx context.Context, username, password string) (*Grant, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Session is a snapshot of the current authentication state.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
	// ExpiresAt is zero when the access token carries no readable expiry.
	ExpiresAt time.Time
}

// Manager owns the token pair and the signed-in user. It is safe for
// concurrent use; at most one refresh call is in flight at any time.
type Manager struct {
	store  TokenStore
	remote Remote
	log    logrus.FieldLogger

	mu   sync.Mutex
	user *models.User

	refreshes singleflight.Group

	obsMu     sync.Mutex
	observers map[int]func()
	nextObs   int
}

func NewManager(store TokenStore, remote Remote, log logrus.FieldLogger) *Manager {
	return &Manager{
		store:     store,
		remote:    remote,
		log:       log.WithField("component", "session"),
		observers: make(map[int]func()),
	}
}

// Store exposes the underlying storage for preferences kept next to the tokens.
func (m *Manager) Store() TokenStore {
	return m.store
}

// Login authenticates and persists both tokens.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	grant, err := m.remote.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if grant.AccessToken == "" {
		return nil, apperr.New(apperr.KindServer, "login", 0, "login response carried no access token")
	}

	m.mu.Lock()
	err = m.store.Set(map[string]string{
		KeyToken:        grant.AccessToken,
		KeyRefreshToken: grant.RefreshToken,
	})
	if err == nil {
		user := grant.User
		m.user = &user
	}
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	m.log.WithField("username", grant.User.Username).Info("Signed in")
	s, _ := m.Current()
	return s, nil
}

// Logout revokes the refresh token on a best-effort basis and always clears
// the local session.
func (m *Manager) Logout(ctx context.Context) error {
	refreshToken, _ := m.store.Get(KeyRefreshToken)
	if refreshToken != "" {
		if err := m.remote.Logout(ctx, refreshToken); err != nil {
			m.log.WithError(err).Warn("Logout call failed, clearing local session anyway")
		}
	}
	return m.clear()
}

// AccessToken returns the stored access token, if any.
func (m *Manager) AccessToken() (string, bool) {
	token, err := m.store.Get(KeyToken)
	if err != nil {
		m.log.WithError(err).Warn("Could not read access token")
		return "", false
	}
	return token, token != ""
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share one call. Any failure ends the session.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	return m.sharedRefresh(ctx, "")
}

// RefreshIfStale refreshes only when the stored token is still the one a
// rejected request was sent with. If another caller already refreshed, the
// newer token is returned without a network call.
func (m *Manager) RefreshIfStale(ctx context.Context, sentWith string) (string, error) {
	if current, ok := m.AccessToken(); ok && current != sentWith {
		return current, nil
	}
	return m.sharedRefresh(ctx, sentWith)
}

func (m *Manager) sharedRefresh(ctx context.Context, sentWith string) (string, error) {
	ch := m.refreshes.DoChan("refresh", func() (interface{}, error) {
		if sentWith != "" {
			if current, ok := m.AccessToken(); ok && current != sentWith {
				return current, nil
			}
		}
		// The shared call must outlive any single waiter.
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	const op = "refresh"

	refreshToken, err := m.store.Get(KeyRefreshToken)
	if err != nil || refreshToken == "" {
		if err == nil {
			err = errors.New("no refresh token available")
		}
		m.Expire()
		return "", apperr.SessionExpired(op, err)
	}

	token, err := m.remote.Refresh(ctx, refreshToken)
	if err == nil && token == "" {
		err = errors.New("refresh response carried no token")
	}
	if err != nil {
		m.log.WithError(err).Warn("Token refresh failed")
		m.Expire()
		return "", apperr.SessionExpired(op, err)
	}

	m.mu.Lock()
	err = m.store.Set(map[string]string{KeyToken: token})
	m.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("save refreshed token: %w", err)
	}

	m.log.Debug("Access token refreshed")
	return token, nil
}

// Expire tears the session down after an unrecoverable auth failure and
// notifies every OnExpired observer.
func (m *Manager) Expire() {
	if err := m.clear(); err != nil {
		m.log.WithError(err).Error("Could not clear expired session")
	}

	m.obsMu.Lock()
	fns := make([]func(), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnExpired registers fn to run whenever the session expires. The returned
// function unregisters it.
func (m *Manager) OnExpired(fn func()) func() {
	m.obsMu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.obsMu.Lock()
			delete(m.observers, id)
			m.obsMu.Unlock()
		})
	}
}

func (m *Manager) SetUser(u models.User) {
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
}

func (m *Manager) User() (models.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

// Current returns the session, or false when nobody is signed in.
func (m *Manager) Current() (*Session, bool) {
	token, ok := m.AccessToken()
	if !ok {
		return nil, false
	}
	refreshToken, _ := m.store.Get(KeyRefreshToken)

	s := &Session{AccessToken: token, RefreshToken: refreshToken}
	if u, ok := m.User(); ok {
		s.User = &u
	}
	if exp, ok := auth.ExpiresAt(token); ok {
		s.ExpiresAt = exp
	}
	return s, true
}

func (m *Manager) clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	return m.store.Delete(KeyToken, KeyRefreshToken)
}
