package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// maxResponseSize is the maximum allowed response size from the platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// PlatformClient implements tracking.PlatformGateway against the commerce
// platform's order API.
type PlatformClient struct {
	config     *PlatformClientConfig
	httpClient *http.Client
}

// NewPlatformClient creates a new PlatformClient with the given configuration
func NewPlatformClient(config *PlatformClientConfig) (*PlatformClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &PlatformClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// platformOrder is the subset of the platform's order resource the relay reads.
// Custom fields land in Fields via the custom unmarshaller, keyed as returned.
type platformOrder struct {
	Fields       map[string]json.RawMessage
	Fulfillments []struct {
		TrackingURL string `json:"tracking_url"`
	}
}

func (o *platformOrder) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &o.Fields); err != nil {
		return err
	}
	if raw, ok := o.Fields["fulfillments"]; ok {
		if err := json.Unmarshal(raw, &o.Fulfillments); err != nil {
			return err
		}
	}
	return nil
}

// stringField returns the named top-level string field, or "" when absent
func (o *platformOrder) stringField(key string) string {
	raw, ok := o.Fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// OperationalStatusTag fetches the order's operational status field.
// An order without the field (or with an empty value) yields
// tracking.ErrStatusFieldMissing so the caller can treat it as "no
// transition yet" rather than a hard failure.
func (c *PlatformClient) OperationalStatusTag(ctx context.Context, externalOrderID string) (string, error) {
	order, err := c.fetchOrder(ctx, externalOrderID)
	if err != nil {
		return "", err
	}

	tag := order.stringField(c.config.StatusFieldKey)
	if tag == "" {
		return "", fmt.Errorf("%w: order %s has no %q field",
			tracking.ErrStatusFieldMissing, externalOrderID, c.config.StatusFieldKey)
	}
	return tag, nil
}

// BranchName fetches the supply-branch name for a pickup order.
// A missing branch field is not an error; the caller substitutes a label.
func (c *PlatformClient) BranchName(ctx context.Context, externalOrderID string) (string, error) {
	order, err := c.fetchOrder(ctx, externalOrderID)
	if err != nil {
		return "", err
	}
	return order.stringField(c.config.BranchFieldKey), nil
}

// FulfillmentTrackingURL fetches the first fulfillment's tracking URL.
// An unfulfilled order yields ("", nil).
func (c *PlatformClient) FulfillmentTrackingURL(ctx context.Context, externalOrderID string) (string, error) {
	order, err := c.fetchOrder(ctx, externalOrderID)
	if err != nil {
		return "", err
	}
	if len(order.Fulfillments) == 0 {
		return "", nil
	}
	return strings.TrimSpace(order.Fulfillments[0].TrackingURL), nil
}

// fetchOrder retrieves one order resource from the platform API
func (c *PlatformClient) fetchOrder(ctx context.Context, externalOrderID string) (*platformOrder, error) {
	endpoint := fmt.Sprintf("%s/orders/%s.json",
		strings.TrimSuffix(c.config.BaseURL, "/"), url.PathEscape(externalOrderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Access-Token", c.config.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracking.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("platform: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d for order %s",
			tracking.ErrPlatformUnavailable, resp.StatusCode, externalOrderID)
	}

	if c.config.NestedOrderPayload {
		var envelope struct {
			Order platformOrder `json:"order"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("platform: failed to parse response: %w", err)
		}
		return &envelope.Order, nil
	}

	var order platformOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("platform: failed to parse response: %w", err)
	}
	return &order, nil
}

// Ensure PlatformClient implements tracking.PlatformGateway
var _ tracking.PlatformGateway = (*PlatformClient)(nil)
