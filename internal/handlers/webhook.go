package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/lifecycle"
	"backend/internal/models"
	"backend/internal/payments"
)

// maxWebhookBody caps the raw payload size we are willing to read.
const maxWebhookBody = 1 << 20

// EventRecorder detects exact redelivery of a provider event. Forget
// releases a recorded id so a redelivery is treated as fresh again.
type EventRecorder interface {
	Record(ctx context.Context, event models.WebhookEvent) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// PaymentWebhook is the reconciliation adapter endpoint. Order of checks:
// signature, envelope decode, event classification, order resolution,
// redelivery detection, then the lifecycle transition. Nothing is mutated
// before the signature and correlation id check out. Responses are plain
// text per the provider's delivery contract.
func PaymentWebhook(store lifecycle.OrderStore, recorder EventRecorder, ctrl *lifecycle.Controller, secret string, tolerance time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /webhooks/payment"
		defer handlePanic(c, route)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.String(http.StatusBadRequest, "unreadable body")
			return
		}

		sig := c.GetHeader("Stripe-Signature")
		if err := payments.VerifySignature(body, sig, secret, time.Now(), tolerance); err != nil {
			log.Printf("[%s] %v", route, err)
			c.String(http.StatusBadRequest, "invalid signature")
			return
		}

		event, err := payments.ParseEvent(body)
		if err != nil {
			log.Printf("[%s] %v", route, err)
			c.String(http.StatusBadRequest, "malformed event")
			return
		}

		// Unrecognized event types are acknowledged, not failed: the
		// provider should not retry them.
		if event.Kind() == payments.KindUnrecognized {
			c.String(http.StatusOK, "ignored")
			return
		}

		orderID, err := primitive.ObjectIDFromHex(event.OrderHex())
		if err != nil {
			log.Printf("[%s] event %s has no usable order correlation id", route, event.ID)
			c.String(http.StatusBadRequest, "missing order correlation id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := store.Get(ctx, orderID); err != nil {
			if errors.Is(err, lifecycle.ErrNotFound) {
				log.Printf("[%s] event %s references unknown order %s", route, event.ID, orderID.Hex())
				c.String(http.StatusNotFound, "unknown order")
				return
			}
			c.String(http.StatusInternalServerError, "storage error")
			return
		}

		fresh, err := recorder.Record(ctx, models.WebhookEvent{
			EventID:    event.ID,
			Type:       event.Type,
			OrderID:    orderID,
			ReceivedAt: time.Now(),
		})
		if err != nil {
			c.String(http.StatusInternalServerError, "storage error")
			return
		}
		if !fresh {
			log.Printf("[%s] duplicate delivery of event %s, skipping", route, event.ID)
			c.String(http.StatusOK, "already processed")
			return
		}

		switch event.Kind() {
		case payments.KindSessionCompleted:
			err = ctrl.ConfirmPayment(ctx, orderID, event.ReconciliationPayload())
		case payments.KindSessionExpired:
			err = ctrl.ExpireOrCancel(ctx, orderID)
		}

		if err != nil {
			// Only a state-machine refusal is permanent; everything else
			// releases the event id so the provider's redelivery is
			// processed as fresh rather than skipped as a duplicate.
			var conflict lifecycle.StateConflictError
			switch {
			case errors.As(err, &conflict):
				if conflict.Inconsistent {
					log.Printf("[%s] INCONSISTENT event %s: %v", route, event.ID, err)
				} else {
					log.Printf("[%s] event %s refused: %v", route, event.ID, err)
				}
				c.String(http.StatusConflict, "order already finalized")
			case errors.Is(err, lifecycle.ErrConflict):
				releaseEvent(ctx, recorder, route, event.ID)
				c.String(http.StatusConflict, "order busy, retry")
			default:
				releaseEvent(ctx, recorder, route, event.ID)
				c.String(http.StatusInternalServerError, "processing error")
			}
			return
		}

		log.Printf("[%s] event %s applied to order %s", route, event.ID, orderID.Hex())
		c.String(http.StatusOK, "ok")
	}
}

func releaseEvent(ctx context.Context, recorder EventRecorder, route, eventID string) {
	if err := recorder.Forget(ctx, eventID); err != nil {
		log.Printf("[%s] could not release event %s for retry: %v", route, eventID, err)
	}
}
