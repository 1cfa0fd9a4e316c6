package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/lifecycle"
	"backend/internal/models"
	"backend/internal/payments"
)

const webhookSecret = "whsec_test"

// memOrderStore is an in-memory lifecycle.OrderStore for webhook tests.
// beforeSwap, when set, runs before each CompareAndSwap to simulate a
// racing writer; printErr fails the next SetPrintStatus once.
type memOrderStore struct {
	orders      map[primitive.ObjectID]models.Order
	prints      map[primitive.ObjectID]string
	beforeSwap  func(s *memOrderStore)
	printErr    error
	printWrites int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{
		orders: make(map[primitive.ObjectID]models.Order),
		prints: make(map[primitive.ObjectID]string),
	}
}

func (s *memOrderStore) addDraftOrder() models.Order {
	order := models.Order{
		ID:      primitive.NewObjectID(),
		PrintID: primitive.NewObjectID(),
		Status:  models.OrderStatusDraft,
	}
	s.orders[order.ID] = order
	s.prints[order.PrintID] = models.OrderStatusDraft
	return order
}

func (s *memOrderStore) Get(_ context.Context, id primitive.ObjectID) (models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, lifecycle.ErrNotFound
	}
	return order, nil
}

func (s *memOrderStore) CompareAndSwap(_ context.Context, id primitive.ObjectID, version int64, update lifecycle.Update) (bool, error) {
	if s.beforeSwap != nil {
		s.beforeSwap(s)
	}
	order, ok := s.orders[id]
	if !ok || order.Version != version {
		return false, nil
	}
	if update.Status != "" {
		order.Status = update.Status
	}
	if update.SessionID != "" {
		order.SessionID = update.SessionID
	}
	if update.Payload != nil {
		order.Payload = *update.Payload
	}
	order.Version++
	s.orders[id] = order
	return true, nil
}

func (s *memOrderStore) SetPrintStatus(_ context.Context, printID primitive.ObjectID, status string) error {
	if s.printErr != nil {
		err := s.printErr
		s.printErr = nil
		return err
	}
	s.prints[printID] = status
	s.printWrites++
	return nil
}

// memRecorder is an in-memory EventRecorder.
type memRecorder struct {
	seen map[string]bool
}

func newMemRecorder() *memRecorder {
	return &memRecorder{seen: make(map[string]bool)}
}

func (r *memRecorder) Record(_ context.Context, event models.WebhookEvent) (bool, error) {
	if r.seen[event.EventID] {
		return false, nil
	}
	r.seen[event.EventID] = true
	return true, nil
}

func (r *memRecorder) Forget(_ context.Context, eventID string) error {
	delete(r.seen, eventID)
	return nil
}

func completedEventJSON(eventID, orderHex string, totalCents int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"livemode": false,
		"data": {"object": {
			"id": "cs_1",
			"metadata": {"orderId": %q},
			"amount_total": %d,
			"customer_details": {"email": "buyer@example.com", "name": "Buyer One"},
			"payment_intent": "pi_1"
		}}
	}`, eventID, orderHex, totalCents))
}

func expiredEventJSON(eventID, orderHex string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.expired",
		"data": {"object": {"id": "cs_1", "metadata": {"orderId": %q}}}
	}`, eventID, orderHex))
}

func deliver(t *testing.T, handler gin.HandlerFunc, payload []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(payload))
	if sign {
		c.Request.Header.Set("Stripe-Signature", payments.SignPayload(payload, webhookSecret, time.Now()))
	}
	handler(c)
	return w
}

func newWebhookHandler(store *memOrderStore, recorder EventRecorder) gin.HandlerFunc {
	return PaymentWebhook(store, recorder, lifecycle.NewController(store), webhookSecret, payments.DefaultTolerance)
}

func TestWebhookRejectsUnsignedPayload(t *testing.T) {
	store := newMemOrderStore()
	order := store.addDraftOrder()
	handler := newWebhookHandler(store, newMemRecorder())

	w := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 800), false)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.orders[order.ID].Status != models.OrderStatusDraft {
		t.Fatal("unsigned payload must not mutate state")
	}
}

func TestWebhookCompletedMarksOrderPaid(t *testing.T) {
	store := newMemOrderStore()
	order := store.addDraftOrder()
	handler := newWebhookHandler(store, newMemRecorder())

	w := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 850), true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	got := store.orders[order.ID]
	if got.Status != models.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", got.Status)
	}
	if got.Payload.AmountTotal == nil || *got.Payload.AmountTotal != 8.50 {
		t.Fatalf("expected amountTotal 8.50, got %+v", got.Payload)
	}
	if store.prints[order.PrintID] != models.OrderStatusPaid {
		t.Fatal("expected print status to mirror paid")
	}
}

func TestWebhookExpiredThenCompleted(t *testing.T) {
	// Session expires first; a later completed event for the same order
	// must be refused without changing status.
	store := newMemOrderStore()
	order := store.addDraftOrder()
	handler := newWebhookHandler(store, newMemRecorder())

	w := deliver(t, handler, expiredEventJSON("evt_1", order.ID.Hex()), true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for expiry, got %d", w.Code)
	}
	if store.orders[order.ID].Status != models.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", store.orders[order.ID].Status)
	}

	w = deliver(t, handler, completedEventJSON("evt_2", order.ID.Hex(), 800), true)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for payment after cancellation, got %d", w.Code)
	}
	if store.orders[order.ID].Status != models.OrderStatusCanceled {
		t.Fatal("canceled order must not become paid")
	}
}

func TestWebhookPaidBeatsLaterExpiry(t *testing.T) {
	store := newMemOrderStore()
	order := store.addDraftOrder()
	handler := newWebhookHandler(store, newMemRecorder())

	deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 800), true)
	w := deliver(t, handler, expiredEventJSON("evt_2", order.ID.Hex()), true)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for expiry after payment, got %d", w.Code)
	}
	if store.orders[order.ID].Status != models.OrderStatusPaid {
		t.Fatal("paid order must stay paid")
	}
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	store := newMemOrderStore()
	order := store.addDraftOrder()
	handler := newWebhookHandler(store, newMemRecorder())

	first := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 850), true)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	second := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 850), true)
	if second.Code != http.StatusOK {
		t.Fatalf("duplicate delivery must be acknowledged, got %d", second.Code)
	}

	got := store.orders[order.ID]
	if got.Payload.AmountTotal == nil || *got.Payload.AmountTotal != 8.50 {
		t.Fatalf("amountTotal must be set once and stay stable, got %+v", got.Payload)
	}
	if got.Version != 1 {
		t.Fatalf("duplicate delivery must not write again, version=%d", got.Version)
	}
	if store.printWrites != 1 {
		t.Fatalf("print side effect fired %d times, want 1", store.printWrites)
	}
}

func TestWebhookRedeliveryAfterSustainedConflict(t *testing.T) {
	// The order keeps changing under the first delivery, so the transition
	// gives up. The event id must be released so the provider's redelivery
	// of the very same event can still mark the order paid.
	store := newMemOrderStore()
	order := store.addDraftOrder()
	recorder := newMemRecorder()
	handler := newWebhookHandler(store, recorder)

	store.beforeSwap = func(s *memOrderStore) {
		o := s.orders[order.ID]
		o.Version++
		s.orders[order.ID] = o
	}
	first := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 850), true)
	if first.Code != http.StatusConflict {
		t.Fatalf("expected 409 under sustained conflict, got %d: %s", first.Code, first.Body.String())
	}
	if recorder.seen["evt_1"] {
		t.Fatal("event id must be released after a retryable failure")
	}

	store.beforeSwap = nil
	second := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 850), true)
	if second.Code != http.StatusOK {
		t.Fatalf("expected redelivery to succeed, got %d: %s", second.Code, second.Body.String())
	}
	got := store.orders[order.ID]
	if got.Status != models.OrderStatusPaid {
		t.Fatalf("expected paid after redelivery, got %s", got.Status)
	}
	if got.Payload.AmountTotal == nil || *got.Payload.AmountTotal != 8.50 {
		t.Fatalf("expected amountTotal 8.50, got %+v", got.Payload)
	}
}

func TestWebhookRedeliveryRepairsPrintMirror(t *testing.T) {
	// The print write fails after the order already flipped to paid. The
	// delivery reports failure and releases the event id; the redelivery
	// finishes the job.
	store := newMemOrderStore()
	order := store.addDraftOrder()
	recorder := newMemRecorder()
	handler := newWebhookHandler(store, recorder)

	store.printErr = fmt.Errorf("write timeout")
	first := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 850), true)
	if first.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the print write fails, got %d", first.Code)
	}
	if recorder.seen["evt_1"] {
		t.Fatal("event id must be released after a storage failure")
	}

	second := deliver(t, handler, completedEventJSON("evt_1", order.ID.Hex(), 850), true)
	if second.Code != http.StatusOK {
		t.Fatalf("expected redelivery to succeed, got %d: %s", second.Code, second.Body.String())
	}
	if store.prints[order.PrintID] != models.OrderStatusPaid {
		t.Fatal("expected redelivery to repair the print mirror")
	}
}

func TestWebhookRefusedEventStaysRecorded(t *testing.T) {
	// A state-machine refusal is permanent: redelivering the same event
	// is acknowledged as a duplicate instead of re-running the transition.
	store := newMemOrderStore()
	order := store.addDraftOrder()
	recorder := newMemRecorder()
	handler := newWebhookHandler(store, recorder)

	deliver(t, handler, expiredEventJSON("evt_1", order.ID.Hex()), true)
	first := deliver(t, handler, completedEventJSON("evt_2", order.ID.Hex(), 800), true)
	if first.Code != http.StatusConflict {
		t.Fatalf("expected 409 for payment after cancellation, got %d", first.Code)
	}
	if !recorder.seen["evt_2"] {
		t.Fatal("permanently refused event must stay recorded")
	}

	second := deliver(t, handler, completedEventJSON("evt_2", order.ID.Hex(), 800), true)
	if second.Code != http.StatusOK || second.Body.String() != "already processed" {
		t.Fatalf("expected duplicate acknowledgement, got %d: %s", second.Code, second.Body.String())
	}
	if store.orders[order.ID].Status != models.OrderStatusCanceled {
		t.Fatal("canceled order must not become paid")
	}
}

func TestWebhookUnknownOrder(t *testing.T) {
	store := newMemOrderStore()
	recorder := newMemRecorder()
	handler := newWebhookHandler(store, recorder)

	w := deliver(t, handler, completedEventJSON("evt_1", primitive.NewObjectID().Hex(), 800), true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown order, got %d", w.Code)
	}
	// The event must not be burned: a retry after the order appears
	// should still be considered fresh.
	if recorder.seen["evt_1"] {
		t.Fatal("event id must not be recorded when the order is unknown")
	}
}

func TestWebhookIgnoresUnrecognizedEventTypes(t *testing.T) {
	store := newMemOrderStore()
	order := store.addDraftOrder()
	handler := newWebhookHandler(store, newMemRecorder())

	payload := []byte(fmt.Sprintf(`{"id":"evt_9","type":"invoice.paid","data":{"object":{"metadata":{"orderId":%q}}}}`, order.ID.Hex()))
	w := deliver(t, handler, payload, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unrecognized event type, got %d", w.Code)
	}
	if store.orders[order.ID].Status != models.OrderStatusDraft {
		t.Fatal("unrecognized event must not mutate state")
	}
}

func TestWebhookMissingCorrelationID(t *testing.T) {
	store := newMemOrderStore()
	handler := newWebhookHandler(store, newMemRecorder())

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	w := deliver(t, handler, payload, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing correlation id, got %d", w.Code)
	}
}
