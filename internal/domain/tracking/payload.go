package tracking

import (
	"strings"

	"github.com/shopspring/decimal"
)

// WebhookOrder mirrors the order payload posted by the source commerce
// platform's webhook. Only the fields the relay consumes are mapped.
type WebhookOrder struct {
	ID             int64           `json:"id" binding:"required"`
	OrderNumber    int64           `json:"order_number"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	BillingAddress BillingAddress  `json:"billing_address"`
	ShippingLines  []ShippingLine  `json:"shipping_lines"`
	// ShippingTitle is set by payload variants that carry a single title
	// field instead of the shipping_lines array.
	ShippingTitle string        `json:"shipping_title,omitempty"`
	LineItems     []LineItem    `json:"line_items"`
	Fulfillments  []Fulfillment `json:"fulfillments"`
}

// BillingAddress carries the customer contact details of a webhook order
type BillingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// ShippingLine is one entry of the payload's shipping_lines array
type ShippingLine struct {
	Title string `json:"title"`
}

// LineItem is one purchased item of a webhook order
type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Fulfillment is a platform-recorded shipment, carrying a tracking URL
// once a carrier is assigned
type Fulfillment struct {
	TrackingURL string `json:"tracking_url"`
}

// shippingTitle returns the payload's declared shipping-line title: the
// first shipping line, or the single title field when the array is absent.
func (o WebhookOrder) shippingTitle() string {
	if len(o.ShippingLines) > 0 {
		return strings.TrimSpace(o.ShippingLines[0].Title)
	}
	return strings.TrimSpace(o.ShippingTitle)
}

// Classify derives the shipping method and the initial tracking reference
// from a raw webhook order. The courier marker is the substring that
// identifies home-courier shipping in the shipping-line title. An order
// with no shipping title at all is a hard input error and must be rejected
// by the ingestion boundary before anything is stored.
func Classify(o WebhookOrder, courierMarker string) (ShippingMethod, string, error) {
	title := o.shippingTitle()
	if title == "" {
		return "", "", ErrShippingInfoMissing
	}

	method := MethodBranchPickup
	if strings.Contains(title, courierMarker) {
		method = MethodHomeDelivery
	}

	trackingURL := ""
	if len(o.Fulfillments) > 0 {
		trackingURL = strings.TrimSpace(o.Fulfillments[0].TrackingURL)
	}

	return method, trackingURL, nil
}
