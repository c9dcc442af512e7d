package tracking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// IngestResult describes one order stored by the ingestion boundary
type IngestResult struct {
	OrderID     uuid.UUID               `json:"order_id"`
	OrderNumber string                  `json:"order_number"`
	Method      tracking.ShippingMethod `json:"shipping_method"`
}

// IngestService turns webhook payloads into persisted orders.
// Classification is pure and happens for every entry before anything is
// written, so a rejected payload never leaves a partial record behind.
type IngestService struct {
	orders  tracking.OrderRepository
	markers tracking.StatusMarkers
	logger  *zap.Logger
}

// NewIngestService creates a new IngestService
func NewIngestService(orders tracking.OrderRepository, markers tracking.StatusMarkers, logger *zap.Logger) *IngestService {
	return &IngestService{
		orders:  orders,
		markers: markers,
		logger:  logger,
	}
}

// Ingest classifies and stores a batch of webhook orders
func (s *IngestService) Ingest(ctx context.Context, payloads []tracking.WebhookOrder) ([]IngestResult, error) {
	orders := make([]*tracking.Order, 0, len(payloads))
	for _, payload := range payloads {
		method, trackingURL, err := tracking.Classify(payload, s.markers.Courier)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", payload.ID, err)
		}
		orders = append(orders, tracking.NewOrder(payload, method, trackingURL))
	}

	results := make([]IngestResult, 0, len(orders))
	for _, order := range orders {
		if err := s.orders.Create(ctx, order); err != nil {
			return nil, fmt.Errorf("store order %s: %w", order.OrderNumber, err)
		}
		s.logger.Info("Order ingested",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.String("shipping_method", order.Method.String()),
			zap.Bool("has_tracking_url", order.HasTrackingURL()),
		)
		results = append(results, IngestResult{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Method:      order.Method,
		})
	}

	return results, nil
}
