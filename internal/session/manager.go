// Package session wraps the backend's token refresh endpoint and holds the
// current browsing credentials. It is the identity subsystem the rest of the
// client observes: login, logout, and silent boot-time refresh all flow
// through the Manager and are announced to one registered listener.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aduboahen/juicekart/internal/backend"
	"github.com/aduboahen/juicekart/internal/state"
	"github.com/aduboahen/juicekart/pkg/config"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
	"github.com/aduboahen/juicekart/pkg/logger"
	"github.com/aduboahen/juicekart/pkg/types"
)

type refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*backend.RefreshResult, error)
}

type kvStore interface {
	GetValue(ctx context.Context, key string) (string, error)
	PutValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// Listener observes identity transitions. The identity transition handler
// registers itself here.
type Listener interface {
	OnLogin(ctx context.Context, userID string) error
	OnLogout(ctx context.Context) error
}

type persistedSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// Manager owns the current access credentials.
type Manager struct {
	mu       sync.Mutex
	current  persistedSession
	refresh  refresher
	store    kvStore
	leeway   time.Duration
	logger   *logger.Logger
	listener Listener
}

// NewManager builds a session manager backed by the refresh endpoint and the
// local state store.
func NewManager(refresh refresher, store kvStore, cfg config.SessionConfig, logg *logger.Logger) (*Manager, error) {
	if refresh == nil {
		return nil, errors.New("refresher is required")
	}
	if store == nil {
		return nil, errors.New("state store is required")
	}
	leeway := cfg.RefreshLeeway
	if leeway <= 0 {
		leeway = 30 * time.Second
	}
	return &Manager{
		refresh: refresh,
		store:   store,
		leeway:  leeway,
		logger:  logg,
	}, nil
}

// SetListener registers the identity transition observer.
func (m *Manager) SetListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = listener
}

// Token implements backend.TokenSource.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.AccessToken
}

// UserID returns the authenticated user id, empty when signed out.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.UserID
}

// Identity resolves the current identity: User when signed in, zero otherwise.
func (m *Manager) Identity() types.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.UserID == "" {
		return types.Identity{}
	}
	return types.User(m.current.UserID)
}

// Establish records a fresh login session and announces the transition.
func (m *Manager) Establish(ctx context.Context, accessToken, refreshToken, userID string) error {
	if strings.TrimSpace(accessToken) == "" || strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access token and user id are required")
	}

	m.mu.Lock()
	m.current = persistedSession{AccessToken: accessToken, RefreshToken: refreshToken, UserID: userID}
	listener := m.listener
	m.mu.Unlock()

	if err := m.persist(ctx); err != nil && m.logger != nil {
		m.logger.Warn(ctx, "failed to persist session: "+err.Error())
	}

	if listener != nil {
		return listener.OnLogin(ctx, userID)
	}
	return nil
}

// SignOut drops the session and announces the transition. Used for explicit
// logout and for the forced sign-out on 401.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.current = persistedSession{}
	listener := m.listener
	m.mu.Unlock()

	if err := m.store.DeleteValue(ctx, state.KeySession); err != nil && m.logger != nil {
		m.logger.Warn(ctx, "failed to drop persisted session: "+err.Error())
	}

	if listener != nil {
		return listener.OnLogout(ctx)
	}
	return nil
}

// SilentRefresh attempts to restore a session at application start. It loads
// the persisted refresh token and renews the access token when it is missing
// or about to expire. The resolved identity is returned; an unauthorized
// error means no session could be restored.
func (m *Manager) SilentRefresh(ctx context.Context) (types.Identity, error) {
	raw, err := m.store.GetValue(ctx, state.KeySession)
	if errors.Is(err, state.ErrKeyNotFound) {
		return types.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "no persisted session")
	}
	if err != nil {
		return types.Identity{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load persisted session")
	}

	var persisted persistedSession
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		_ = m.store.DeleteValue(ctx, state.KeySession)
		return types.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "malformed persisted session")
	}

	if !m.needsRefresh(persisted.AccessToken) && persisted.UserID != "" {
		m.mu.Lock()
		m.current = persisted
		m.mu.Unlock()
		return types.User(persisted.UserID), nil
	}

	result, err := m.refresh.RefreshToken(ctx, persisted.RefreshToken)
	if err != nil {
		m.mu.Lock()
		m.current = persistedSession{}
		m.mu.Unlock()
		_ = m.store.DeleteValue(ctx, state.KeySession)
		return types.Identity{}, err
	}

	refreshToken := result.RefreshToken
	if refreshToken == "" {
		refreshToken = persisted.RefreshToken
	}
	userID := result.UserID
	if userID == "" {
		userID = persisted.UserID
	}

	m.mu.Lock()
	m.current = persistedSession{AccessToken: result.AccessToken, RefreshToken: refreshToken, UserID: userID}
	m.mu.Unlock()

	if err := m.persist(ctx); err != nil && m.logger != nil {
		m.logger.Warn(ctx, "failed to persist refreshed session: "+err.Error())
	}

	return types.User(userID), nil
}

// needsRefresh reports whether the held access token is absent or expires
// within the configured leeway. Claims are read without signature
// verification; the backend remains the authority on token validity.
func (m *Manager) needsRefresh(accessToken string) bool {
	if strings.TrimSpace(accessToken) == "" {
		return true
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return true
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return true
	}
	return time.Until(expiry.Time) <= m.leeway
}

func (m *Manager) persist(ctx context.Context) error {
	m.mu.Lock()
	snapshot := m.current
	m.mu.Unlock()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return m.store.PutValue(ctx, state.KeySession, string(payload))
}
