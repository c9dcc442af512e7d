package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// outcome classifies what a single-order reconciliation pass did
type outcome int

const (
	outcomeNone outcome = iota
	outcomeCustomerNotified
	outcomeCompleted
)

// CycleStats summarizes one reconciliation cycle
type CycleStats struct {
	Total             int
	CustomersNotified int
	Completed         int
	Failed            int
}

// ReconcilerConfig holds per-deployment reconciler settings
type ReconcilerConfig struct {
	// DefaultBranchLabel substitutes for a missing supply-branch name in
	// customer pickup messages.
	DefaultBranchLabel string
}

// Reconciler walks all open orders and drives the per-order status state
// machine: detect a transition, notify exactly once per transition, and
// retire the record on terminal state. Orders are processed concurrently
// and independently; one order's failure never blocks the others.
type Reconciler struct {
	orders   tracking.OrderRepository
	platform tracking.PlatformGateway
	carrier  tracking.CarrierGateway
	ops      tracking.OpsNotifier
	customer tracking.CustomerMessenger
	markers  tracking.StatusMarkers
	config   ReconcilerConfig
	logger   *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(
	orders tracking.OrderRepository,
	platform tracking.PlatformGateway,
	carrier tracking.CarrierGateway,
	ops tracking.OpsNotifier,
	customer tracking.CustomerMessenger,
	markers tracking.StatusMarkers,
	config ReconcilerConfig,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		orders:   orders,
		platform: platform,
		carrier:  carrier,
		ops:      ops,
		customer: customer,
		markers:  markers,
		config:   config,
		logger:   logger,
	}
}

// RunCycle executes one reconciliation pass over all open orders.
// A store failure while listing aborts the cycle; everything is retried on
// the next tick. Per-order failures are captured into the stats.
func (r *Reconciler) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{}

	orders, err := r.orders.FindOpen(ctx)
	if err != nil {
		return stats, fmt.Errorf("list open orders: %w", err)
	}
	stats.Total = len(orders)
	if len(orders) == 0 {
		return stats, nil
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range orders {
		order := orders[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := r.reconcileOrder(ctx, &order)

			mu.Lock()
			defer mu.Unlock()
			switch result {
			case outcomeCustomerNotified:
				stats.CustomersNotified++
			case outcomeCompleted:
				stats.Completed++
			}
			if err != nil {
				stats.Failed++
			}
		}()
	}
	wg.Wait()

	r.logger.Info("Reconciliation cycle finished",
		zap.Int("total", stats.Total),
		zap.Int("customers_notified", stats.CustomersNotified),
		zap.Int("completed", stats.Completed),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

// reconcileOrder dispatches one order to its shipping-method sub-flow
func (r *Reconciler) reconcileOrder(ctx context.Context, order *tracking.Order) (outcome, error) {
	var (
		result outcome
		err    error
	)

	switch order.Method {
	case tracking.MethodBranchPickup:
		result, err = r.reconcilePickup(ctx, order)
	case tracking.MethodHomeDelivery:
		result, err = r.reconcileDelivery(ctx, order, true)
	default:
		err = fmt.Errorf("order %s: unknown shipping method %q", order.ID, order.Method)
	}

	if err != nil {
		r.logger.Warn("Order reconciliation failed, will retry next cycle",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.String("shipping_method", order.Method.String()),
			zap.Error(err),
		)
	}
	return result, err
}

// reconcilePickup handles branch-pickup orders off the platform's
// operational status tag.
//
// The terminal transition is gated on the customer-notified flag: a cycle
// that sees a terminal tag before the heads-up went out takes no action
// and waits for the next cycle, so the customer ping is never skipped.
func (r *Reconciler) reconcilePickup(ctx context.Context, order *tracking.Order) (outcome, error) {
	tag, err := r.platform.OperationalStatusTag(ctx, order.ExternalID)
	if errors.Is(err, tracking.ErrStatusFieldMissing) {
		// No status field means no transition yet
		return outcomeNone, nil
	}
	if err != nil {
		return outcomeNone, err
	}

	switch {
	case r.markers.TagIsTerminal(tag) && order.CustomerNotified:
		return r.complete(ctx, order)

	case r.markers.TagIsArrival(tag) && !order.CustomerNotified:
		claimed, err := r.orders.ClaimCustomerNotify(ctx, order.ID)
		if err != nil {
			return outcomeNone, err
		}
		if !claimed {
			// Another cycle already owns this notification
			return outcomeNone, nil
		}

		branch, err := r.platform.BranchName(ctx, order.ExternalID)
		if err != nil {
			r.logger.Warn("Branch name lookup failed, using default label",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
			branch = ""
		}
		if branch == "" {
			branch = r.config.DefaultBranchLabel
		}

		if err := r.customer.SendPickupUpdate(ctx, order, branch); err != nil {
			r.logNotificationFailure(order, "pickup_update", err)
		}
		return outcomeCustomerNotified, nil
	}

	return outcomeNone, nil
}

// reconcileDelivery handles home-delivery orders off the carrier's public
// tracking page. When the tracking URL is still unknown, it is fetched from
// the platform once and the sub-flow re-evaluates the updated record a
// single time within the same cycle.
func (r *Reconciler) reconcileDelivery(ctx context.Context, order *tracking.Order, allowRefill bool) (outcome, error) {
	if !order.HasTrackingURL() {
		if !allowRefill {
			return outcomeNone, nil
		}
		trackingURL, err := r.platform.FulfillmentTrackingURL(ctx, order.ExternalID)
		if err != nil {
			return outcomeNone, err
		}
		if trackingURL == "" {
			// Not fulfilled yet; nothing to do until the next cycle
			return outcomeNone, nil
		}
		if err := r.orders.SetTrackingURL(ctx, order.ID, trackingURL); err != nil {
			return outcomeNone, err
		}
		order.TrackingURL = trackingURL
		return r.reconcileDelivery(ctx, order, false)
	}

	page, err := r.carrier.TrackingPageText(ctx, order.TrackingURL)
	if err != nil {
		return outcomeNone, err
	}

	switch {
	case r.markers.PageIsTerminal(page) && order.CustomerNotified:
		return r.complete(ctx, order)

	case r.markers.PageIsIntermediate(page) && !order.CustomerNotified:
		claimed, err := r.orders.ClaimCustomerNotify(ctx, order.ID)
		if err != nil {
			return outcomeNone, err
		}
		if !claimed {
			return outcomeNone, nil
		}
		if err := r.customer.SendDeliveryUpdate(ctx, order); err != nil {
			r.logNotificationFailure(order, "delivery_update", err)
		}
		return outcomeCustomerNotified, nil
	}

	return outcomeNone, nil
}

// complete performs the terminal transition: attempt the operations alert,
// then delete the record. The delete goes ahead even when the alert fails;
// the summary is preserved in the log so the alert stays recoverable.
func (r *Reconciler) complete(ctx context.Context, order *tracking.Order) (outcome, error) {
	summary := order.Summary()
	if err := r.ops.Send(ctx, summary); err != nil {
		r.logger.Error("Operations alert failed before cleanup",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.String("summary", summary),
			zap.Error(err),
		)
	}

	if err := r.orders.Delete(ctx, order.ID); err != nil {
		return outcomeNone, fmt.Errorf("delete completed order: %w", err)
	}

	r.logger.Info("Order completed and retired",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("shipping_method", order.Method.String()),
	)
	return outcomeCompleted, nil
}

func (r *Reconciler) logNotificationFailure(order *tracking.Order, template string, err error) {
	r.logger.Warn("Customer notification failed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("template", template),
		zap.Error(err),
	)
}
