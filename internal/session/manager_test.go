package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aduboahen/juicekart/internal/backend"
	"github.com/aduboahen/juicekart/internal/state"
	"github.com/aduboahen/juicekart/pkg/config"
	pkgerrors "github.com/aduboahen/juicekart/pkg/errors"
)

type stubRefresher struct {
	result *backend.RefreshResult
	err    error
	calls  int
}

func (s *stubRefresher) RefreshToken(ctx context.Context, refreshToken string) (*backend.RefreshResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type recordingListener struct {
	logins  []string
	logouts int
}

func (r *recordingListener) OnLogin(ctx context.Context, userID string) error {
	r.logins = append(r.logins, userID)
	return nil
}

func (r *recordingListener) OnLogout(ctx context.Context) error {
	r.logouts++
	return nil
}

func newTestManager(t *testing.T, refresh refresher) (*Manager, *state.Store) {
	t.Helper()
	store, err := state.OpenMemory(context.Background())
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	manager, err := NewManager(refresh, store, config.SessionConfig{RefreshLeeway: 30 * time.Second}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, store
}

func mintToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func persistSession(t *testing.T, store *state.Store, sess persistedSession) {
	t.Helper()
	payload, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	if err := store.PutValue(context.Background(), state.KeySession, string(payload)); err != nil {
		t.Fatalf("persist session: %v", err)
	}
}

func TestEstablishAnnouncesLoginAndPersists(t *testing.T) {
	manager, store := newTestManager(t, &stubRefresher{})
	listener := &recordingListener{}
	manager.SetListener(listener)

	token := mintToken(t, time.Hour)
	if err := manager.Establish(context.Background(), token, "refresh-1", "u1"); err != nil {
		t.Fatalf("establish: %v", err)
	}

	if manager.Token() != token {
		t.Fatalf("expected held token to match")
	}
	if manager.UserID() != "u1" {
		t.Fatalf("unexpected user id %q", manager.UserID())
	}
	if !manager.Identity().IsUser() {
		t.Fatalf("expected user identity")
	}
	if len(listener.logins) != 1 || listener.logins[0] != "u1" {
		t.Fatalf("expected one login event, got %+v", listener.logins)
	}

	if _, err := store.GetValue(context.Background(), state.KeySession); err != nil {
		t.Fatalf("expected persisted session: %v", err)
	}
}

func TestSignOutDropsSessionAndAnnouncesLogout(t *testing.T) {
	manager, store := newTestManager(t, &stubRefresher{})
	listener := &recordingListener{}
	manager.SetListener(listener)

	if err := manager.Establish(context.Background(), mintToken(t, time.Hour), "refresh-1", "u1"); err != nil {
		t.Fatalf("establish: %v", err)
	}
	if err := manager.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	if manager.Token() != "" || manager.UserID() != "" {
		t.Fatalf("expected cleared credentials")
	}
	if listener.logouts != 1 {
		t.Fatalf("expected one logout event, got %d", listener.logouts)
	}
	if _, err := store.GetValue(context.Background(), state.KeySession); err == nil {
		t.Fatalf("expected persisted session to be dropped")
	}
}

func TestSilentRefreshWithNoPersistedSession(t *testing.T) {
	refresh := &stubRefresher{}
	manager, _ := newTestManager(t, refresh)

	_, err := manager.SilentRefresh(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if refresh.calls != 0 {
		t.Fatalf("expected no refresh call, got %d", refresh.calls)
	}
}

func TestSilentRefreshReusesValidToken(t *testing.T) {
	refresh := &stubRefresher{}
	manager, store := newTestManager(t, refresh)
	persistSession(t, store, persistedSession{
		AccessToken:  mintToken(t, time.Hour),
		RefreshToken: "refresh-1",
		UserID:       "u1",
	})

	identity, err := manager.SilentRefresh(context.Background())
	if err != nil {
		t.Fatalf("silent refresh: %v", err)
	}
	if !identity.IsUser() || identity.UserID() != "u1" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if refresh.calls != 0 {
		t.Fatalf("valid token should not hit refresh endpoint, got %d calls", refresh.calls)
	}
}

func TestSilentRefreshRenewsExpiringToken(t *testing.T) {
	renewed := mintToken(t, time.Hour)
	refresh := &stubRefresher{result: &backend.RefreshResult{AccessToken: renewed, UserID: "u1"}}
	manager, store := newTestManager(t, refresh)
	persistSession(t, store, persistedSession{
		AccessToken:  mintToken(t, 5*time.Second),
		RefreshToken: "refresh-1",
		UserID:       "u1",
	})

	identity, err := manager.SilentRefresh(context.Background())
	if err != nil {
		t.Fatalf("silent refresh: %v", err)
	}
	if identity.UserID() != "u1" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if refresh.calls != 1 {
		t.Fatalf("expected one refresh call, got %d", refresh.calls)
	}
	if manager.Token() != renewed {
		t.Fatalf("expected renewed token to be held")
	}
}

func TestSilentRefreshFailureClearsSession(t *testing.T) {
	refresh := &stubRefresher{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh rejected")}
	manager, store := newTestManager(t, refresh)
	persistSession(t, store, persistedSession{
		AccessToken:  mintToken(t, time.Second),
		RefreshToken: "refresh-1",
		UserID:       "u1",
	})

	_, err := manager.SilentRefresh(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if manager.Token() != "" {
		t.Fatalf("expected cleared token after failed refresh")
	}
	if _, err := store.GetValue(context.Background(), state.KeySession); err == nil {
		t.Fatalf("expected persisted session to be dropped after failed refresh")
	}
}

func TestSilentRefreshDiscardsMalformedRecord(t *testing.T) {
	manager, store := newTestManager(t, &stubRefresher{})
	if err := store.PutValue(context.Background(), state.KeySession, "not-json"); err != nil {
		t.Fatalf("put value: %v", err)
	}

	_, err := manager.SilentRefresh(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := store.GetValue(context.Background(), state.KeySession); err == nil {
		t.Fatalf("expected malformed record to be deleted")
	}
}
