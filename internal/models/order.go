package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order lifecycle statuses. draft is initial; paid and canceled are
// terminal and never exited.
const (
	OrderStatusDraft    = "draft"
	OrderStatusPaid     = "paid"
	OrderStatusCanceled = "canceled"
)

// Address is a billing or shipping address as confirmed by the payment
// provider.
type Address struct {
	Line1      string `bson:"line1,omitempty" json:"line1,omitempty"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country,omitempty" json:"country,omitempty"`
}

// ReconciliationPayload holds the provider-confirmed amounts and contact
// details applied to an Order after payment. The provider's amountTotal is
// authoritative over the Print's locally computed total.
type ReconciliationPayload struct {
	Livemode        bool     `bson:"livemode" json:"livemode"`
	AmountTotal     *float64 `bson:"amountTotal,omitempty" json:"amountTotal,omitempty"`
	AmountTax       *float64 `bson:"amountTax,omitempty" json:"amountTax,omitempty"`
	CustomerEmail   string   `bson:"customerEmail,omitempty" json:"customerEmail,omitempty"`
	CustomerName    string   `bson:"customerName,omitempty" json:"customerName,omitempty"`
	PaymentIntentID string   `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	BillingAddress  *Address `bson:"billingAddress,omitempty" json:"billingAddress,omitempty"`
	ShippingAddress *Address `bson:"shippingAddress,omitempty" json:"shippingAddress,omitempty"`
}

// Order is the commercial transaction wrapping exactly one Print. The
// version field backs optimistic concurrency: every status write goes
// through a compare-and-swap on (_id, version).
type Order struct {
	ID        primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	PrintID   primitive.ObjectID    `bson:"printId" json:"printId"`
	Status    string                `bson:"status" json:"status"`
	SessionID string                `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	Version   int64                 `bson:"version" json:"-"`
	Payload   ReconciliationPayload `bson:"payload,omitempty" json:"payload"`
	CreatedAt time.Time             `bson:"createdAt" json:"createdAt"`
}

// Finalized reports whether the order is in a terminal state.
func (o Order) Finalized() bool {
	return o.Status == OrderStatusPaid || o.Status == OrderStatusCanceled
}
