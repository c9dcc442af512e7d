package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apptracking "github.com/ordertrack/backend/internal/application/tracking"
	"github.com/ordertrack/backend/internal/domain/tracking"
	"github.com/ordertrack/backend/internal/interfaces/http/dto"
)

const (
	// maxWebhookPayloadSize limits webhook payload to 1MB to prevent abuse
	maxWebhookPayloadSize = 1 << 20

	// signatureHeader carries the hex HMAC-SHA256 of the raw request body
	signatureHeader = "X-Webhook-Signature"
)

// WebhookHandler receives order webhooks from the commerce platform
type WebhookHandler struct {
	BaseHandler
	ingest *apptracking.IngestService
	secret string
	logger *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler. An empty secret disables
// signature verification; production configuration rejects that combination.
func NewWebhookHandler(ingest *apptracking.IngestService, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingest: ingest,
		secret: secret,
		logger: logger,
	}
}

// RegisterRoutes registers webhook routes on the API group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	webhooks.POST("/orders", h.HandleOrders)
}

// webhookEnvelope is the batch payload shape posted by the platform.
// A bare order object without the orders wrapper is also accepted.
type webhookEnvelope struct {
	Orders []tracking.WebhookOrder `json:"orders"`
}

// orderWebhookResponse acknowledges a processed webhook
type orderWebhookResponse struct {
	Received int                        `json:"received"`
	Orders   []apptracking.IngestResult `json:"orders"`
}

// HandleOrders handles POST /webhooks/orders
func (h *WebhookHandler) HandleOrders(c *gin.Context) {
	// Read the raw body first: the signature covers the exact bytes sent,
	// not a re-serialized form.
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.logger.Error("Failed to read webhook payload", zap.Error(err))
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(body) > maxWebhookPayloadSize {
		h.PayloadTooLarge(c, "Webhook payload exceeds maximum allowed size")
		return
	}

	if h.secret != "" {
		signature := c.GetHeader(signatureHeader)
		if signature == "" {
			h.logger.Warn("Webhook request missing signature header")
			h.ErrorWithCode(c, dto.ErrCodeSignatureInvalid, "Missing webhook signature")
			return
		}
		if !h.verifySignature(body, signature) {
			h.logger.Warn("Webhook signature mismatch")
			h.ErrorWithCode(c, dto.ErrCodeSignatureInvalid, "Invalid webhook signature")
			return
		}
	}

	orders, err := h.decodePayload(body)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Malformed webhook payload")
		return
	}
	if len(orders) == 0 {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, "Webhook payload contains no orders")
		return
	}

	results, err := h.ingest.Ingest(c.Request.Context(), orders)
	if err != nil {
		if errors.Is(err, tracking.ErrShippingInfoMissing) {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Created(c, orderWebhookResponse{
		Received: len(results),
		Orders:   results,
	})
}

// decodePayload accepts both the batch envelope and a single bare order
func (h *WebhookHandler) decodePayload(body []byte) ([]tracking.WebhookOrder, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Orders != nil {
		return envelope.Orders, nil
	}

	var single tracking.WebhookOrder
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	if single.ID == 0 {
		return nil, errors.New("payload is neither an orders batch nor an order")
	}
	return []tracking.WebhookOrder{single}, nil
}

// verifySignature checks the hex HMAC-SHA256 of the raw body
func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
