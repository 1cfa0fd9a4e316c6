package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebhookEvent records one processed provider event. The eventId carries a
// unique index so an exact redelivery is detected on insert, before any
// lifecycle transition runs.
type WebhookEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID    string             `bson:"eventId" json:"eventId"`
	Type       string             `bson:"type" json:"type"`
	OrderID    primitive.ObjectID `bson:"orderId" json:"orderId"`
	ReceivedAt time.Time          `bson:"receivedAt" json:"receivedAt"`
}
