package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/guardian/apiclient"
	"github.com/jonwraymond/guardian/observe"
	"github.com/jonwraymond/guardian/token"
	"github.com/jonwraymond/guardian/tokenstore"
)

var (
	// ErrInvalidConfig is returned by New for an unusable configuration.
	ErrInvalidConfig = errors.New("session: invalid config")

	// ErrSessionEnded is returned by UpdateUser when the session was signed
	// out or replaced while the request was in flight.
	ErrSessionEnded = errors.New("session: session ended during request")
)

// API is the part of the backend client the manager depends on.
// *apiclient.Client implements it.
type API interface {
	Login(ctx context.Context, creds apiclient.Credentials) (*apiclient.AuthResponse, error)
	Register(ctx context.Context, reg apiclient.Registration) (*apiclient.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*apiclient.User, error)
	UpdateCurrentUser(ctx context.Context, update apiclient.ProfileUpdate) (*apiclient.User, error)
	OnSessionExpired(fn func(ctx context.Context))
}

var _ API = (*apiclient.Client)(nil)

// Config configures a Manager.
type Config struct {
	// API talks to the backend. Required.
	API API

	// Store is the token store shared with the API client. Required.
	Store tokenstore.Store

	// Logger receives lifecycle events. Default: no-op.
	Logger observe.Logger
}

// Manager holds the session state machine.
//
// Contract:
//   - Concurrency: safe for concurrent use. Listeners are called outside the
//     state lock, one transition at a time, in transition order.
//   - Listeners must not call Login, SignUp, Logout, UpdateUser or Start
//     synchronously.
type Manager struct {
	api   API
	store tokenstore.Store
	log   observe.Logger

	mu       sync.Mutex
	state    State
	user     *apiclient.User
	username string
	version  uint64
	epoch    uint64 // bumped when a session starts or ends

	listeners map[uint64]func(Snapshot)
	nextID    uint64

	// notify serializes transitions, listener delivery and the storage
	// writes tied to them.
	notify sync.Mutex
}

// New creates a Manager in StateLoading and registers it for the client's
// session-expired notifications.
func New(cfg Config) (*Manager, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("%w: api is nil", ErrInvalidConfig)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, tokenstore.ErrNilStore)
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	m := &Manager{
		api:       cfg.API,
		store:     cfg.Store,
		log:       cfg.Logger,
		state:     StateLoading,
		listeners: make(map[uint64]func(Snapshot)),
	}
	cfg.API.OnSessionExpired(m.expired)
	return m, nil
}

// Start resolves the initial state. A stored access token is checked by
// fetching the profile; any failure resolves to StateUnauthenticated and is
// only logged. Without a stored token no request is made.
func (m *Manager) Start(ctx context.Context) State {
	access, ok, err := m.store.Get(ctx, tokenstore.KeyAccessToken)
	if err != nil {
		m.log.Warn(ctx, "reading stored session failed", observe.Err(err))
		return m.transition(StateUnauthenticated, nil, "").State
	}
	if !ok || access == "" {
		return m.transition(StateUnauthenticated, nil, "").State
	}

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.log.Info(ctx, "stored session not restored", observe.Err(err))
		return m.transition(StateUnauthenticated, nil, "").State
	}

	username, _, _ := m.store.Get(ctx, tokenstore.KeyUsername)
	if user.Username != "" {
		username = user.Username
	}
	m.log.Info(ctx, "session restored", observe.F("username", username))
	return m.transition(StateAuthenticated, user, username).State
}

// Login signs in with email and password. On failure the error is returned
// and an unresolved session becomes unauthenticated.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	resp, err := m.api.Login(ctx, apiclient.Credentials{Email: email, Password: password})
	if err != nil {
		m.log.Warn(ctx, "login failed", observe.Err(err))
		m.settleFailure()
		return err
	}
	m.signedIn(ctx, resp)
	return nil
}

// SignUp creates an account and signs in. The password confirmation is
// checked before any request is made.
func (m *Manager) SignUp(ctx context.Context, email, password, confirmation, userType string) error {
	reg := apiclient.Registration{
		Email:     email,
		Password1: password,
		Password2: confirmation,
		UserType:  userType,
	}
	if err := reg.Validate(); err != nil {
		m.settleFailure()
		return err
	}

	resp, err := m.api.Register(ctx, reg)
	if err != nil {
		m.log.Warn(ctx, "sign up failed", observe.Err(err))
		m.settleFailure()
		return err
	}
	m.signedIn(ctx, resp)
	return nil
}

func (m *Manager) signedIn(ctx context.Context, resp *apiclient.AuthResponse) {
	m.log.Info(ctx, "signed in", observe.F("username", resp.User.Username))

	m.notify.Lock()
	defer m.notify.Unlock()
	m.bumpEpoch()
	m.transitionLocked(StateAuthenticated, resp.User, resp.User.Username)
}

// settleFailure moves a loading session to unauthenticated and leaves a
// signed-in session alone.
func (m *Manager) settleFailure() {
	m.mu.Lock()
	loading := m.state == StateLoading
	m.mu.Unlock()
	if loading {
		m.transition(StateUnauthenticated, nil, "")
	}
}

// Logout ends the session. The backend is told on a best-effort basis; the
// stored session and the in-memory user are removed whatever it answers.
func (m *Manager) Logout(ctx context.Context) {
	if access, ok, err := m.store.Get(ctx, tokenstore.KeyAccessToken); err == nil && ok && access != "" {
		if err := m.api.Logout(ctx); err != nil {
			m.log.Warn(ctx, "logout request failed", observe.Err(err))
		}
	}

	m.notify.Lock()
	defer m.notify.Unlock()
	m.bumpEpoch()
	if err := tokenstore.Clear(ctx, m.store, tokenstore.SessionKeys...); err != nil {
		m.log.Error(ctx, "clearing stored session failed", observe.Err(err))
	}
	m.log.Info(ctx, "signed out")
	m.transitionLocked(StateUnauthenticated, nil, "")
}

// UpdateUser patches the profile. On success the new profile replaces the
// current one and is saved under tokenstore.KeyUser; on failure nothing
// changes. A response arriving after the session ended is discarded and
// ErrSessionEnded is returned.
func (m *Manager) UpdateUser(ctx context.Context, update apiclient.ProfileUpdate) (*apiclient.User, error) {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	user, err := m.api.UpdateCurrentUser(ctx, update)
	if err != nil {
		m.log.Warn(ctx, "profile update failed", observe.Err(err))
		return nil, err
	}

	m.notify.Lock()
	defer m.notify.Unlock()

	m.mu.Lock()
	current := m.epoch == epoch && m.state == StateAuthenticated
	username := m.username
	m.mu.Unlock()
	if !current {
		m.log.Info(ctx, "profile update discarded, session ended")
		return nil, ErrSessionEnded
	}

	if data, err := json.Marshal(user); err != nil {
		m.log.Error(ctx, "encoding profile snapshot failed", observe.Err(err))
	} else if err := m.store.Set(ctx, tokenstore.KeyUser, string(data)); err != nil {
		m.log.Error(ctx, "saving profile snapshot failed", observe.Err(err))
	}

	if user.Username != "" && user.Username != username {
		username = user.Username
		if err := m.store.Set(ctx, tokenstore.KeyUsername, username); err != nil {
			m.log.Error(ctx, "saving username failed", observe.Err(err))
		}
	}

	m.transitionLocked(StateAuthenticated, user, username)
	return user.Clone(), nil
}

// expired runs when the API client could not recover from a 401. The client
// already removed the tokens.
func (m *Manager) expired(ctx context.Context) {
	m.notify.Lock()
	defer m.notify.Unlock()
	m.bumpEpoch()
	if err := tokenstore.Clear(ctx, m.store, tokenstore.KeyUsername, tokenstore.KeyUser); err != nil {
		m.log.Error(ctx, "clearing stored session failed", observe.Err(err))
	}
	m.log.Info(ctx, "session expired")
	m.transitionLocked(StateUnauthenticated, nil, "")
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *apiclient.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Clone()
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		State:    m.state,
		User:     m.user.Clone(),
		Username: m.username,
		Version:  m.version,
	}
}

// TokenExpiry reports when the stored access token expires. ok is false when
// no token is stored or it carries no expiry.
func (m *Manager) TokenExpiry(ctx context.Context) (expiresAt time.Time, ok bool, err error) {
	access, found, err := m.store.Get(ctx, tokenstore.KeyAccessToken)
	if err != nil || !found || access == "" {
		return time.Time{}, false, err
	}
	claims, err := token.Inspect(access)
	if err != nil {
		return time.Time{}, false, err
	}
	return claims.ExpiresAt, !claims.ExpiresAt.IsZero(), nil
}

// Subscribe registers fn for every transition and returns a function that
// removes it.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Watch returns a channel carrying the current snapshot followed by every
// later one. A slow reader only sees the latest snapshot. The channel is
// closed when ctx is done.
func (m *Manager) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	push := func(s Snapshot) {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}

	m.notify.Lock()
	push(m.Snapshot())
	unsubscribe := m.Subscribe(push)
	m.notify.Unlock()

	go func() {
		<-ctx.Done()
		unsubscribe()
		m.notify.Lock()
		close(ch)
		m.notify.Unlock()
	}()
	return ch
}

// transition applies a new state and notifies listeners when anything
// changed.
func (m *Manager) transition(state State, user *apiclient.User, username string) Snapshot {
	m.notify.Lock()
	defer m.notify.Unlock()
	return m.transitionLocked(state, user, username)
}

// transitionLocked is transition for callers holding m.notify.
func (m *Manager) transitionLocked(state State, user *apiclient.User, username string) Snapshot {
	m.mu.Lock()
	if m.state == state && m.user == nil && user == nil && m.username == username {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		return snap
	}
	m.state = state
	m.user = user.Clone()
	m.username = username
	m.version++
	snap := m.snapshotLocked()

	listeners := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}

func (m *Manager) bumpEpoch() {
	m.mu.Lock()
	m.epoch++
	m.mu.Unlock()
}
