package payments

import (
	"encoding/json"
	"fmt"

	"backend/internal/models"
)

// Provider event types the adapter acts on. Anything else is acknowledged
// and ignored.
const (
	eventSessionCompleted = "checkout.session.completed"
	eventSessionExpired   = "checkout.session.expired"
)

// EventKind classifies a provider event into the closed set of kinds the
// lifecycle controller understands.
type EventKind int

const (
	KindUnrecognized EventKind = iota
	KindSessionCompleted
	KindSessionExpired
)

type providerAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a *providerAddress) toModel() *models.Address {
	if a == nil {
		return nil
	}
	return &models.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// paymentIntentRef decodes a payment intent that arrives either expanded
// as an object or collapsed to its id string.
type paymentIntentRef struct {
	ID string
}

func (r *paymentIntentRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

// CheckoutSession is the provider's session object as delivered inside an
// event envelope. Amounts are in cents.
type CheckoutSession struct {
	ID           string            `json:"id"`
	Metadata     map[string]string `json:"metadata"`
	AmountTotal  *int64            `json:"amount_total"`
	TotalDetails *struct {
		AmountTax *int64 `json:"amount_tax"`
	} `json:"total_details"`
	CustomerDetails *struct {
		Email   string           `json:"email"`
		Name    string           `json:"name"`
		Address *providerAddress `json:"address"`
	} `json:"customer_details"`
	ShippingDetails *struct {
		Address *providerAddress `json:"address"`
	} `json:"shipping_details"`
	PaymentIntent paymentIntentRef `json:"payment_intent"`
}

// Event is one verified provider event.
type Event struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Livemode bool   `json:"livemode"`
	Session  CheckoutSession
}

// ParseEvent decodes a raw event envelope. The payload must already be
// signature-verified.
func ParseEvent(raw []byte) (Event, error) {
	var envelope struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Livemode bool   `json:"livemode"`
		Data     struct {
			Object CheckoutSession `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if envelope.ID == "" || envelope.Type == "" {
		return Event{}, fmt.Errorf("event envelope missing id or type")
	}
	return Event{
		ID:       envelope.ID,
		Type:     envelope.Type,
		Livemode: envelope.Livemode,
		Session:  envelope.Data.Object,
	}, nil
}

// Kind maps the provider's event type tag onto the closed kind set.
func (e Event) Kind() EventKind {
	switch e.Type {
	case eventSessionCompleted:
		return KindSessionCompleted
	case eventSessionExpired:
		return KindSessionExpired
	default:
		return KindUnrecognized
	}
}

// OrderHex returns the order correlation id embedded in the checkout
// session's metadata at creation time, or "" when absent.
func (e Event) OrderHex() string {
	return e.Session.Metadata["orderId"]
}

// ReconciliationPayload converts the session's provider-confirmed details
// into the payload stored on the order, translating cents to USD.
func (e Event) ReconciliationPayload() models.ReconciliationPayload {
	payload := models.ReconciliationPayload{
		Livemode:        e.Livemode,
		PaymentIntentID: e.Session.PaymentIntent.ID,
	}

	if e.Session.AmountTotal != nil {
		total := float64(*e.Session.AmountTotal) / 100
		payload.AmountTotal = &total
	}
	if e.Session.TotalDetails != nil && e.Session.TotalDetails.AmountTax != nil {
		tax := float64(*e.Session.TotalDetails.AmountTax) / 100
		payload.AmountTax = &tax
	}
	if e.Session.CustomerDetails != nil {
		payload.CustomerEmail = e.Session.CustomerDetails.Email
		payload.CustomerName = e.Session.CustomerDetails.Name
		payload.BillingAddress = e.Session.CustomerDetails.Address.toModel()
	}
	if e.Session.ShippingDetails != nil {
		payload.ShippingAddress = e.Session.ShippingDetails.Address.toModel()
	}
	return payload
}
