// Package lifecycle implements the order state machine: draft is the
// initial status, paid and canceled are terminal, and every transition is
// applied through an optimistic compare-and-swap so that concurrent
// checkout and webhook handling for the same order cannot race.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// ErrNotFound reports an unknown order id. Distinct from a state conflict
// so callers can tell "order doesn't exist" from "transition refused".
var ErrNotFound = errors.New("order not found")

// ErrConflict reports that the order kept changing under us and the
// transition could not be applied within the retry budget.
var ErrConflict = errors.New("order was modified concurrently")

// StateConflictError reports a transition refused by the lifecycle rules.
// Inconsistent marks the one case that is never expected from a healthy
// provider: a payment confirmation arriving after a recorded cancellation.
type StateConflictError struct {
	OrderID      primitive.ObjectID
	Status       string
	Attempted    string
	Inconsistent bool
}

func (e StateConflictError) Error() string {
	return fmt.Sprintf("order %s is %s, cannot %s", e.OrderID.Hex(), e.Status, e.Attempted)
}

// Update describes the fields a transition writes. Zero-valued fields are
// left untouched by the store.
type Update struct {
	Status    string
	SessionID string
	Payload   *models.ReconciliationPayload
}

// OrderStore is the persistence contract the controller runs against.
// CompareAndSwap must apply the update only if the stored order still has
// the given version, bump the version, and report whether it matched.
type OrderStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Order, error)
	CompareAndSwap(ctx context.Context, id primitive.ObjectID, version int64, update Update) (bool, error)
	SetPrintStatus(ctx context.Context, printID primitive.ObjectID, status string) error
}

// casAttempts bounds the read-decide-write loop. One re-read is enough to
// absorb a single racing writer; anything beyond that is reported as a
// conflict.
const casAttempts = 2

// Controller applies lifecycle transitions to orders.
type Controller struct {
	store OrderStore
}

// NewController builds a Controller over the given store.
func NewController(store OrderStore) *Controller {
	return &Controller{store: store}
}

// AttachSession records the checkout session id on a draft order.
// Reapplying the same session id is a no-op success regardless of status.
// While the order is still draft a different id may replace the old one
// (a fresh checkout attempt); once finalized the transition is refused.
func (c *Controller) AttachSession(ctx context.Context, orderID primitive.ObjectID, sessionID string) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		order, err := c.store.Get(ctx, orderID)
		if err != nil {
			return err
		}

		if order.SessionID == sessionID {
			return nil
		}
		if order.Status != models.OrderStatusDraft {
			return StateConflictError{OrderID: orderID, Status: order.Status, Attempted: "attach checkout session"}
		}

		ok, err := c.store.CompareAndSwap(ctx, orderID, order.Version, Update{SessionID: sessionID})
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrConflict
}

// ConfirmPayment moves a draft order to paid and stores the provider's
// reconciliation payload. Idempotent: an already paid order has its
// payload refreshed (late-arriving totals) and the print mirror
// re-asserted, so a retry can finish a partially applied confirmation.
// A confirmation after a recorded cancellation is refused and flagged.
func (c *Controller) ConfirmPayment(ctx context.Context, orderID primitive.ObjectID, payload models.ReconciliationPayload) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		order, err := c.store.Get(ctx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case models.OrderStatusCanceled:
			return StateConflictError{
				OrderID:      orderID,
				Status:       order.Status,
				Attempted:    "confirm payment",
				Inconsistent: true,
			}

		case models.OrderStatusPaid:
			ok, err := c.store.CompareAndSwap(ctx, orderID, order.Version, Update{Payload: &payload})
			if err != nil {
				return err
			}
			if ok {
				// Re-assert the mirror: a retry lands here when the
				// print write failed after the status flip.
				return c.store.SetPrintStatus(ctx, order.PrintID, models.OrderStatusPaid)
			}

		default:
			ok, err := c.store.CompareAndSwap(ctx, orderID, order.Version, Update{
				Status:  models.OrderStatusPaid,
				Payload: &payload,
			})
			if err != nil {
				return err
			}
			if ok {
				return c.store.SetPrintStatus(ctx, order.PrintID, models.OrderStatusPaid)
			}
		}
	}
	return ErrConflict
}

// ExpireOrCancel moves a draft order to canceled. Refused once paid:
// payment wins over a later expiry signal. Already canceled is a no-op.
func (c *Controller) ExpireOrCancel(ctx context.Context, orderID primitive.ObjectID) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		order, err := c.store.Get(ctx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case models.OrderStatusPaid:
			return StateConflictError{OrderID: orderID, Status: order.Status, Attempted: "cancel"}

		case models.OrderStatusCanceled:
			return nil

		default:
			ok, err := c.store.CompareAndSwap(ctx, orderID, order.Version, Update{
				Status: models.OrderStatusCanceled,
			})
			if err != nil {
				return err
			}
			if ok {
				return c.store.SetPrintStatus(ctx, order.PrintID, models.OrderStatusCanceled)
			}
		}
	}
	return ErrConflict
}
