package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// maxResponseSize caps the bytes read from notification provider responses
const maxResponseSize = 1 << 20

// Errors for chat configuration
var (
	ErrChatConfigMissingBaseURL = errors.New("chat: base URL is required")
	ErrChatConfigMissingToken   = errors.New("chat: bot token is required")
	ErrChatConfigMissingChatID  = errors.New("chat: chat ID is required")
)

// ChatNotifierConfig holds configuration for the operations chat bot
type ChatNotifierConfig struct {
	// BaseURL is the bot API base URL
	BaseURL string
	// BotToken authenticates the bot
	BotToken string
	// ChatID is the operations channel the bot posts into
	ChatID string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Validate validates the chat configuration
func (c *ChatNotifierConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrChatConfigMissingBaseURL
	}
	if c.BotToken == "" {
		return ErrChatConfigMissingToken
	}
	if c.ChatID == "" {
		return ErrChatConfigMissingChatID
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// ChatNotifier implements tracking.OpsNotifier by posting messages to the
// operations channel through the chat provider's bot API.
type ChatNotifier struct {
	config     *ChatNotifierConfig
	httpClient *http.Client
}

// NewChatNotifier creates a new ChatNotifier with the given configuration
func NewChatNotifier(config *ChatNotifierConfig) (*ChatNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ChatNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Send posts a message to the operations channel
func (n *ChatNotifier) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": n.config.ChatID,
		"text":    message,
	})
	if err != nil {
		return fmt.Errorf("chat: failed to encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.config.BaseURL, n.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("chat: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrNotificationFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: chat API returned HTTP %d", tracking.ErrNotificationFailed, resp.StatusCode)
	}
	return nil
}

// Ensure ChatNotifier implements tracking.OpsNotifier
var _ tracking.OpsNotifier = (*ChatNotifier)(nil)
