package ytlive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"
	"google.golang.org/api/option"

	"github.com/pitchside-live/backend/config"
)

// ErrUnauthenticated reports that no usable credential is stored for a channel.
// Callers should direct an operator through the OAuth connect flow.
var ErrUnauthenticated = errors.New("no stored credential for channel")

// TokenStore persists per-channel OAuth tokens. Implemented by db.TokenStoreAdapter.
type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, channelKey, accessToken, refreshToken string, expiry time.Time, scope string) error
	GetOAuthToken(ctx context.Context, channelKey string) (accessToken, refreshToken string, expiry time.Time, scope string, err error)
}

// Auth builds authorized platform clients per channel key. Rotated tokens are
// persisted through the TokenStore hook so every process sees fresh credentials.
type Auth struct {
	cfg   *config.Config
	store TokenStore
	oauth *oauth2.Config
}

// NewAuth constructs the credential provider from deployment config.
func NewAuth(cfg *config.Config, store TokenStore) *Auth {
	scopes := strings.Fields(strings.ReplaceAll(cfg.YTScopes, ",", " "))
	return &Auth{
		cfg:   cfg,
		store: store,
		oauth: &oauth2.Config{
			ClientID:     cfg.YTClientID,
			ClientSecret: cfg.YTClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.YTRedirectURI,
			Scopes:       scopes,
		},
	}
}

// AuthCodeURL returns the consent URL for connecting a channel.
func (a *Auth) AuthCodeURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an auth code for tokens and persists them under channelKey.
func (a *Auth) Exchange(ctx context.Context, channelKey, code string) (*oauth2.Token, error) {
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	if err := a.store.UpsertOAuthToken(ctx, channelKey, tok.AccessToken, tok.RefreshToken, tok.Expiry, strings.Join(a.oauth.Scopes, " ")); err != nil {
		return nil, fmt.Errorf("persist token for %s: %w", channelKey, err)
	}
	return tok, nil
}

// Refresh exchanges a refresh token for a fresh access token. Used by the
// centralized refresher; per-request refresh happens inside the token source.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	base := &oauth2.Token{RefreshToken: refreshToken}
	tok, err := a.oauth.TokenSource(ctx, base).Token()
	if err != nil {
		return nil, err
	}
	return tok, nil
}

// storedToken loads the persisted token for channelKey, or ErrUnauthenticated.
func (a *Auth) storedToken(ctx context.Context, channelKey string) (*oauth2.Token, error) {
	access, refresh, expiry, _, err := a.store.GetOAuthToken(ctx, channelKey)
	if err != nil {
		return nil, fmt.Errorf("load token for %s: %w", channelKey, err)
	}
	if access == "" && refresh == "" {
		return nil, fmt.Errorf("channel %s: %w", channelKey, ErrUnauthenticated)
	}
	return &oauth2.Token{AccessToken: access, RefreshToken: refresh, Expiry: expiry}, nil
}

// API returns a platform client authorized for the channel. The underlying
// token source refreshes transparently and persists every rotation.
func (a *Auth) API(ctx context.Context, channelKey string) (API, error) {
	tok, err := a.storedToken(ctx, channelKey)
	if err != nil {
		return nil, err
	}
	ts := &persistingTokenSource{
		base:    a.oauth.TokenSource(ctx, tok),
		store:   a.store,
		channel: channelKey,
		ctx:     ctx,
		last:    tok.AccessToken,
	}
	svc, err := yt.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(tok, ts)))
	if err != nil {
		return nil, fmt.Errorf("build platform service for %s: %w", channelKey, err)
	}
	return NewClient(svc), nil
}

// persistingTokenSource wraps a refreshing token source and upserts the merged
// token set whenever the access token rotates. This is the explicit
// on-rotation persistence hook of the credential-provider contract.
type persistingTokenSource struct {
	base    oauth2.TokenSource
	store   TokenStore
	channel string
	ctx     context.Context

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	rotated := tok.AccessToken != "" && tok.AccessToken != p.last
	if rotated {
		p.last = tok.AccessToken
	}
	p.mu.Unlock()
	if rotated {
		if err := p.store.UpsertOAuthToken(p.ctx, p.channel, tok.AccessToken, tok.RefreshToken, tok.Expiry, ""); err != nil {
			slog.Warn("rotated token persist failed", slog.String("channel", p.channel), slog.Any("err", err))
		}
	}
	return tok, nil
}
