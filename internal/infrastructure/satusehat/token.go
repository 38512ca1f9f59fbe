package satusehat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	stdsync "sync"
	"time"

	"github.com/klinik/backend/internal/domain/sync"
)

// tokenExpirySlack is subtracted from the advertised lifetime so a token is
// never used right at its expiry edge.
const tokenExpirySlack = 60 * time.Second

// tokenResponse is the OAuth2 token endpoint payload. The gateway serializes
// expires_in as a string, so it is parsed as json.Number.
type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

type accessToken struct {
	value     string
	expiresAt time.Time
}

func (t accessToken) valid(now time.Time) bool {
	return t.value != "" && now.Before(t.expiresAt)
}

// TokenSource caches the OAuth2 client-credentials token and refreshes it on
// demand. The HTTP call runs outside the lock; when two goroutines refresh
// concurrently both get a usable token and the last write wins the cache.
type TokenSource struct {
	config     *Config
	httpClient *http.Client

	mu      stdsync.RWMutex
	current accessToken

	now func() time.Time
}

// NewTokenSource creates a token source for the given configuration.
func NewTokenSource(config *Config, httpClient *http.Client) *TokenSource {
	return &TokenSource{
		config:     config,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns a token valid at call time, fetching a fresh one when the
// cached token is missing or expired.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current.valid(s.now()) {
		return current.value, nil
	}

	fresh, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.current = fresh
	s.mu.Unlock()
	return fresh.value, nil
}

func (s *TokenSource) fetch(ctx context.Context) (accessToken, error) {
	endpoint := s.config.AuthURL + "/accesstoken?grant_type=client_credentials"
	form := url.Values{}
	form.Set("client_id", s.config.ClientID)
	form.Set("client_secret", s.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return accessToken{}, fmt.Errorf("satusehat: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return accessToken{}, fmt.Errorf("%w: %v", sync.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return accessToken{}, fmt.Errorf("satusehat: failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return accessToken{}, fmt.Errorf("%w: token endpoint returned HTTP %d", sync.ErrAuthFailed, resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return accessToken{}, fmt.Errorf("%w: failed to parse token response: %v", sync.ErrAuthFailed, err)
	}
	if payload.AccessToken == "" {
		return accessToken{}, fmt.Errorf("%w: token endpoint returned no access token", sync.ErrAuthFailed)
	}

	lifetime, err := payload.ExpiresIn.Int64()
	if err != nil || lifetime <= 0 {
		lifetime = 3600
	}
	return accessToken{
		value:     payload.AccessToken,
		expiresAt: s.now().Add(time.Duration(lifetime)*time.Second - tokenExpirySlack),
	}, nil
}
