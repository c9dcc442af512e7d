package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// Errors for token source configuration
var (
	ErrTokenConfigMissingBaseURL = errors.New("messaging: base URL is required")
	ErrTokenConfigMissingClient  = errors.New("messaging: client credentials are required")
)

// OAuthTokenSourceConfig holds the client-credentials settings for the
// messaging provider's token endpoint.
type OAuthTokenSourceConfig struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	TimeoutSeconds int
}

// Validate validates the token source configuration
func (c *OAuthTokenSourceConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrTokenConfigMissingBaseURL
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrTokenConfigMissingClient
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// OAuthTokenSource implements tracking.TokenSource with a client-credentials
// grant. A failed refresh keeps the previous token in place, so in-flight
// sends degrade to a possibly stale credential instead of an empty one.
type OAuthTokenSource struct {
	config     *OAuthTokenSourceConfig
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewOAuthTokenSource creates a new OAuthTokenSource with the given configuration
func NewOAuthTokenSource(config *OAuthTokenSourceConfig) (*OAuthTokenSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &OAuthTokenSource{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Refresh exchanges the client credentials for a fresh access token
func (s *OAuthTokenSource) Refresh(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.config.ClientID)
	form.Set("client_secret", s.config.ClientSecret)

	endpoint := strings.TrimSuffix(s.config.BaseURL, "/") + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("messaging: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("messaging: token refresh: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("messaging: failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("messaging: token endpoint returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("messaging: failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return errors.New("messaging: token response missing access_token")
	}

	s.mu.Lock()
	s.token = payload.AccessToken
	s.mu.Unlock()
	return nil
}

// Token returns the most recently refreshed access token
func (s *OAuthTokenSource) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Ensure OAuthTokenSource implements tracking.TokenSource
var _ tracking.TokenSource = (*OAuthTokenSource)(nil)
