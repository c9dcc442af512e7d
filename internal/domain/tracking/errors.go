package tracking

import (
	"github.com/ordertrack/backend/internal/domain/shared"
)

// Domain errors for the tracking context
var (
	// ErrShippingInfoMissing indicates a webhook order without any
	// shipping-line title. The ingestion boundary rejects such payloads
	// without creating a record.
	ErrShippingInfoMissing = shared.NewDomainError("SHIPPING_INFO_MISSING", "Order payload carries no shipping line title")

	// ErrPlatformUnavailable indicates a transport, auth, or server error
	// from the commerce platform. The affected order is left untouched and
	// reconsidered on the next cycle.
	ErrPlatformUnavailable = shared.NewDomainError("PLATFORM_UNAVAILABLE", "Commerce platform request failed")

	// ErrStatusFieldMissing indicates the platform record lacks the
	// operational status field. Treated as "no transition", not fatal.
	ErrStatusFieldMissing = shared.NewDomainError("STATUS_FIELD_MISSING", "Platform record has no operational status field")

	// ErrNotificationFailed indicates a chat or messaging send failed.
	// Sends are best-effort: the error is logged and never propagated.
	ErrNotificationFailed = shared.NewDomainError("NOTIFICATION_FAILED", "Notification delivery failed")
)
