package commerce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// ErrCarrierEmptyTrackingURL indicates a lookup with no tracking URL
var ErrCarrierEmptyTrackingURL = errors.New("carrier: tracking URL is empty")

// CarrierClientConfig holds configuration for carrier tracking-page fetches
type CarrierClientConfig struct {
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// MaxPageSize caps the number of page bytes read
	MaxPageSize int64
}

// Validate validates the carrier configuration
func (c *CarrierClientConfig) Validate() error {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 1 << 20
	}
	return nil
}

// CarrierClient implements tracking.CarrierGateway by fetching the carrier's
// public tracking page. The carrier exposes no structured API, so the raw
// page text is returned for substring matching upstream.
type CarrierClient struct {
	config     *CarrierClientConfig
	httpClient *http.Client
}

// NewCarrierClient creates a new CarrierClient with the given configuration
func NewCarrierClient(config *CarrierClientConfig) (*CarrierClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &CarrierClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// TrackingPageText fetches the tracking page and returns its text content
func (c *CarrierClient) TrackingPageText(ctx context.Context, trackingURL string) (string, error) {
	if trackingURL == "" {
		return "", ErrCarrierEmptyTrackingURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackingURL, nil)
	if err != nil {
		return "", fmt.Errorf("carrier: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("carrier: fetch tracking page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxPageSize))
	if err != nil {
		return "", fmt.Errorf("carrier: failed to read tracking page: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("carrier: HTTP %d fetching tracking page", resp.StatusCode)
	}

	return string(body), nil
}

// Ensure CarrierClient implements tracking.CarrierGateway
var _ tracking.CarrierGateway = (*CarrierClient)(nil)
