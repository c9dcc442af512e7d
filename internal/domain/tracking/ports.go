package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderRepository defines the persistence operations the relay needs.
// All mutations are single-document; the store keys on the order ID.
type OrderRepository interface {
	// Create persists a new order
	Create(ctx context.Context, order *Order) error

	// FindByID finds an order by ID, shared.ErrNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindOpen returns all orders still being reconciled
	FindOpen(ctx context.Context) ([]Order, error)

	// SetTrackingURL persists a lazily discovered tracking URL
	SetTrackingURL(ctx context.Context, id uuid.UUID, trackingURL string) error

	// ClaimCustomerNotify flips the customer-notified flag true only if it
	// is currently false, and reports whether this caller won the claim.
	// The conditional update keeps the heads-up message at-most-once even
	// across concurrent cycles.
	ClaimCustomerNotify(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete removes the order on terminal detection
	Delete(ctx context.Context, id uuid.UUID) error
}

// PlatformGateway queries the commerce platform for order state
type PlatformGateway interface {
	// OperationalStatusTag retrieves the platform-side custom status field
	// for branch-pickup orders. Returns ErrPlatformUnavailable on
	// transport/auth failure, ErrStatusFieldMissing when the record lacks
	// the field.
	OperationalStatusTag(ctx context.Context, externalOrderID string) (string, error)

	// BranchName retrieves the human-readable supply-branch label for
	// customer messaging. Absent is a valid outcome: ("", nil).
	BranchName(ctx context.Context, externalOrderID string) (string, error)

	// FulfillmentTrackingURL polls for the fulfillment tracking URL.
	// ("", nil) means not yet fulfilled, which is not an error.
	FulfillmentTrackingURL(ctx context.Context, externalOrderID string) (string, error)
}

// CarrierGateway resolves the rendered text of a public tracking page.
// The text is opaque: it is scanned for marker substrings only.
type CarrierGateway interface {
	TrackingPageText(ctx context.Context, trackingURL string) (string, error)
}

// OpsNotifier sends an alert message to the internal operations channel.
// Delivery is best-effort and must never abort a reconciliation cycle.
type OpsNotifier interface {
	Send(ctx context.Context, message string) error
}

// CustomerMessenger sends templated contact messages to the customer,
// selecting the template variant by shipping method. Implementations
// resolve a stable contact handle from the order's phone number first;
// orders whose phone cannot be parsed are skipped silently.
type CustomerMessenger interface {
	// SendPickupUpdate tells the customer the order arrived at its branch
	SendPickupUpdate(ctx context.Context, order *Order, branchName string) error

	// SendDeliveryUpdate tells the customer the shipment is on its way
	SendDeliveryUpdate(ctx context.Context, order *Order) error
}

// CycleLock serializes reconciliation cycles so that two timer fires can
// never walk the same orders concurrently.
type CycleLock interface {
	// Acquire tries to take the cycle lock for at most ttl. It returns
	// false without blocking when another cycle still holds it.
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)

	// Release frees the lock after the cycle finishes
	Release(ctx context.Context) error
}

// TokenSource provides the bearer credential for the messaging platform.
// Refresh is cheap and idempotent; a failed refresh keeps the previous
// (possibly stale) token so sends fail open instead of blocking the cycle.
type TokenSource interface {
	Refresh(ctx context.Context) error
	Token() string
}
