package ytlive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/pitchside-live/backend/config"
)

type memoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]oauth2.Token
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: map[string]oauth2.Token{}}
}

func (m *memoryTokenStore) UpsertOAuthToken(_ context.Context, channelKey, access, refresh string, expiry time.Time, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[channelKey] = oauth2.Token{AccessToken: access, RefreshToken: refresh, Expiry: expiry}
	return nil
}

func (m *memoryTokenStore) GetOAuthToken(_ context.Context, channelKey string) (string, string, time.Time, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok := m.tokens[channelKey]
	return tok.AccessToken, tok.RefreshToken, tok.Expiry, "", nil
}

type staticTokenSource struct {
	tok *oauth2.Token
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func testAuth(store TokenStore) *Auth {
	cfg := &config.Config{YTClientID: "id", YTClientSecret: "secret", YTScopes: "scope-a scope-b"}
	return NewAuth(cfg, store)
}

func TestStoredTokenMissingIsUnauthenticated(t *testing.T) {
	a := testAuth(newMemoryTokenStore())
	_, err := a.storedToken(context.Background(), "youtube:academy:none")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestStoredTokenPresent(t *testing.T) {
	store := newMemoryTokenStore()
	exp := time.Now().Add(time.Hour)
	_ = store.UpsertOAuthToken(context.Background(), "youtube:company", "at", "rt", exp, "")
	a := testAuth(store)
	tok, err := a.storedToken(context.Background(), "youtube:company")
	if err != nil {
		t.Fatalf("storedToken: %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" {
		t.Errorf("token = %+v", tok)
	}
}

func TestPersistingTokenSourceOnRotation(t *testing.T) {
	store := newMemoryTokenStore()
	rotated := &oauth2.Token{AccessToken: "new-access", RefreshToken: "new-refresh", Expiry: time.Now().Add(time.Hour)}
	ps := &persistingTokenSource{
		base:    &staticTokenSource{tok: rotated},
		store:   store,
		channel: "youtube:academy:a1",
		ctx:     context.Background(),
		last:    "old-access",
	}
	tok, err := ps.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "new-access" {
		t.Errorf("access = %q", tok.AccessToken)
	}
	access, refresh, _, _, _ := store.GetOAuthToken(context.Background(), "youtube:academy:a1")
	if access != "new-access" || refresh != "new-refresh" {
		t.Errorf("rotation not persisted: (%q, %q)", access, refresh)
	}

	// A second call with the same access token must not re-persist.
	_ = store.UpsertOAuthToken(context.Background(), "youtube:academy:a1", "sentinel", "", time.Time{}, "")
	if _, err := ps.Token(); err != nil {
		t.Fatalf("Token: %v", err)
	}
	access, _, _, _, _ = store.GetOAuthToken(context.Background(), "youtube:academy:a1")
	if access != "sentinel" {
		t.Errorf("unrotated token was re-persisted: %q", access)
	}
}

func TestAuthScopesParsing(t *testing.T) {
	cfg := &config.Config{YTClientID: "id", YTScopes: "a,b c"}
	a := NewAuth(cfg, newMemoryTokenStore())
	if len(a.oauth.Scopes) != 3 {
		t.Errorf("scopes = %v, want 3 entries", a.oauth.Scopes)
	}
}
