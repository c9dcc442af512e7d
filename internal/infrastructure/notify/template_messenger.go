package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// Errors for messenger configuration
var (
	ErrMessengerConfigMissingBaseURL   = errors.New("messaging: base URL is required")
	ErrMessengerConfigMissingTemplates = errors.New("messaging: template names are required")
)

// TemplateMessengerConfig holds configuration for customer template messages
type TemplateMessengerConfig struct {
	// BaseURL is the messaging provider's API base URL
	BaseURL string
	// PickupTemplate is the template sent when a pickup order reaches its branch
	PickupTemplate string
	// DeliveryTemplate is the template sent when a shipment is in transit
	DeliveryTemplate string
	// DefaultPhonePrefix is the country calling code applied to local numbers
	DefaultPhonePrefix string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the messenger configuration
func (c *TemplateMessengerConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrMessengerConfigMissingBaseURL
	}
	if c.PickupTemplate == "" || c.DeliveryTemplate == "" {
		return ErrMessengerConfigMissingTemplates
	}
	if c.DefaultPhonePrefix == "" {
		c.DefaultPhonePrefix = "+972"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// TemplateMessenger implements tracking.CustomerMessenger against the
// messaging provider's contact and template-send APIs. A send resolves the
// contact first (create-or-get by normalized phone), then fires the
// template. Orders whose phone cannot be normalized are skipped without
// error: a bad number is a permanent condition retries cannot fix.
type TemplateMessenger struct {
	config     *TemplateMessengerConfig
	tokens     tracking.TokenSource
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTemplateMessenger creates a new TemplateMessenger
func NewTemplateMessenger(config *TemplateMessengerConfig, tokens tracking.TokenSource, logger *zap.Logger) (*TemplateMessenger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &TemplateMessenger{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}, nil
}

// SendPickupUpdate tells the customer the order arrived at its branch
func (m *TemplateMessenger) SendPickupUpdate(ctx context.Context, order *tracking.Order, branchName string) error {
	return m.send(ctx, order, m.config.PickupTemplate, map[string]string{
		"first_name":   order.FirstName,
		"order_number": order.OrderNumber,
		"branch_name":  branchName,
	})
}

// SendDeliveryUpdate tells the customer the shipment is on its way
func (m *TemplateMessenger) SendDeliveryUpdate(ctx context.Context, order *tracking.Order) error {
	return m.send(ctx, order, m.config.DeliveryTemplate, map[string]string{
		"first_name":   order.FirstName,
		"order_number": order.OrderNumber,
		"tracking_url": order.TrackingURL,
	})
}

func (m *TemplateMessenger) send(ctx context.Context, order *tracking.Order, template string, params map[string]string) error {
	phone, err := NormalizePhone(order.Phone, m.config.DefaultPhonePrefix)
	if err != nil {
		m.logger.Debug("Skipping customer message, phone is unparseable",
			zap.String("order_number", order.OrderNumber),
			zap.String("raw_phone", order.Phone),
		)
		return nil
	}

	contactID, err := m.ensureContact(ctx, phone, order.CustomerName())
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"contact_id": contactID,
		"template":   template,
		"params":     params,
	})
	if err != nil {
		return fmt.Errorf("messaging: failed to encode send request: %w", err)
	}

	body, err := m.doRequest(ctx, http.MethodPost, "/messages/template", payload)
	if err != nil {
		return err
	}
	_ = body
	return nil
}

// ensureContact resolves a stable contact ID for the phone, creating the
// contact on the provider when it does not exist yet.
func (m *TemplateMessenger) ensureContact(ctx context.Context, phone, name string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"phone": phone,
		"name":  name,
	})
	if err != nil {
		return "", fmt.Errorf("messaging: failed to encode contact request: %w", err)
	}

	body, err := m.doRequest(ctx, http.MethodPost, "/contacts", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("messaging: failed to parse contact response: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("messaging: contact response missing id")
	}
	return resp.ID, nil
}

func (m *TemplateMessenger) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	endpoint := strings.TrimSuffix(m.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.tokens.Token())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tracking.ErrNotificationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("messaging: failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: messaging API returned HTTP %d", tracking.ErrNotificationFailed, resp.StatusCode)
	}
	return body, nil
}

// Ensure TemplateMessenger implements tracking.CustomerMessenger
var _ tracking.CustomerMessenger = (*TemplateMessenger)(nil)
