package tracking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingMethod represents how an order is delivered to the customer
type ShippingMethod string

const (
	// MethodHomeDelivery indicates the order is shipped by courier to the customer's address
	MethodHomeDelivery ShippingMethod = "HOME_DELIVERY"
	// MethodBranchPickup indicates the order is delivered to a supply branch for pickup
	MethodBranchPickup ShippingMethod = "BRANCH_PICKUP"
)

// IsValid returns true if the shipping method is a known value
func (m ShippingMethod) IsValid() bool {
	switch m {
	case MethodHomeDelivery, MethodBranchPickup:
		return true
	default:
		return false
	}
}

// String returns the string representation of ShippingMethod
func (m ShippingMethod) String() string {
	return string(m)
}

// Order is the sole persisted aggregate of the relay. It is created by the
// webhook ingestion boundary, mutated only by the reconciliation cycle
// (customer-notified flag, lazy tracking URL fill), and deleted by the
// cycle when the order reaches its terminal status.
type Order struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	// Phone is kept as received from the platform; normalization to
	// international form happens at the messaging boundary.
	Phone string
	// Items holds the ordered item names in payload order.
	Items  []string
	Total  decimal.Decimal
	Method ShippingMethod
	// ExternalID is the order's identifier on the source platform.
	ExternalID string
	// OrderNumber is the human-readable order number from the platform.
	OrderNumber string
	// TrackingURL is empty until the platform assigns a fulfillment.
	TrackingURL string
	// CustomerNotified guards the at-most-once customer heads-up message
	// and gates the terminal transition. It never regresses to false.
	CustomerNotified bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder builds an Order from a classified webhook payload.
// The customer-notified flag always starts false.
func NewOrder(payload WebhookOrder, method ShippingMethod, trackingURL string) *Order {
	items := make([]string, 0, len(payload.LineItems))
	for _, item := range payload.LineItems {
		items = append(items, item.Name)
	}
	return &Order{
		ID:          uuid.New(),
		FirstName:   payload.BillingAddress.FirstName,
		LastName:    payload.BillingAddress.LastName,
		Phone:       payload.BillingAddress.Phone,
		Items:       items,
		Total:       payload.TotalPrice,
		Method:      method,
		ExternalID:  strconv.FormatInt(payload.ID, 10),
		OrderNumber: strconv.FormatInt(payload.OrderNumber, 10),
		TrackingURL: trackingURL,
	}
}

// HasTrackingURL reports whether the platform has assigned a fulfillment yet
func (o *Order) HasTrackingURL() bool {
	return strings.TrimSpace(o.TrackingURL) != ""
}

// CustomerName returns the customer's full name
func (o *Order) CustomerName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}

// Summary renders the human-readable order digest sent to the operations
// channel on the terminal transition.
func (o *Order) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s completed (%s)\n", o.OrderNumber, o.Method)
	fmt.Fprintf(&b, "Customer: %s, phone %s\n", o.CustomerName(), o.Phone)
	fmt.Fprintf(&b, "Items: %s\n", strings.Join(o.Items, ", "))
	if o.Total.IsPositive() {
		fmt.Fprintf(&b, "Total: %s\n", o.Total.StringFixed(2))
	}
	if o.HasTrackingURL() {
		fmt.Fprintf(&b, "Tracking: %s\n", o.TrackingURL)
	}
	return strings.TrimRight(b.String(), "\n")
}
