package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ordertrack/backend/internal/domain/tracking"
	"github.com/ordertrack/backend/internal/interfaces/http/dto"
	"github.com/ordertrack/backend/internal/interfaces/http/middleware"
)

// OrdersHandler exposes the open-order book for operations visibility
type OrdersHandler struct {
	BaseHandler
	orders tracking.OrderRepository
}

// NewOrdersHandler creates a new OrdersHandler
func NewOrdersHandler(orders tracking.OrderRepository) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

// RegisterRoutes registers order routes on the API group
func (h *OrdersHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.GET("", h.List)
	orders.GET("/:id", h.GetByID)
}

// OrderResponse represents a tracked order in API responses
type OrderResponse struct {
	ID               uuid.UUID       `json:"id"`
	ExternalID       string          `json:"external_id"`
	OrderNumber      string          `json:"order_number"`
	CustomerName     string          `json:"customer_name"`
	Phone            string          `json:"phone"`
	Items            []string        `json:"items"`
	Total            decimal.Decimal `json:"total"`
	ShippingMethod   string          `json:"shipping_method"`
	TrackingURL      string          `json:"tracking_url,omitempty"`
	CustomerNotified bool            `json:"customer_notified"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func toOrderResponse(o *tracking.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		ExternalID:       o.ExternalID,
		OrderNumber:      o.OrderNumber,
		CustomerName:     o.CustomerName(),
		Phone:            o.Phone,
		Items:            o.Items,
		Total:            o.Total,
		ShippingMethod:   o.Method.String(),
		TrackingURL:      o.TrackingURL,
		CustomerNotified: o.CustomerNotified,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

// List handles GET /orders. Every stored order is open by definition;
// completed orders are deleted by the reconciliation cycle.
func (h *OrdersHandler) List(c *gin.Context) {
	orders, err := h.orders.FindOpen(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, toOrderResponse(&orders[i]))
	}

	h.Success(c, responses)
}

// GetByID handles GET /orders/:id
func (h *OrdersHandler) GetByID(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	order, err := h.orders.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderResponse(order))
}
