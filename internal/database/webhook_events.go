package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

// WebhookEventStore records processed provider events. The unique eventId
// index turns exact redelivery into a duplicate key error.
type WebhookEventStore struct {
	db *mongo.Database
}

// NewWebhookEventStore wraps the database for event dedupe.
func NewWebhookEventStore(db *mongo.Database) *WebhookEventStore {
	return &WebhookEventStore{db: db}
}

// Record stores the event and reports whether it was seen for the first
// time. A duplicate key error means the exact event was already processed.
func (s *WebhookEventStore) Record(ctx context.Context, event models.WebhookEvent) (bool, error) {
	_, err := s.db.Collection("webhook_events").InsertOne(ctx, event)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Forget removes a recorded event so a later redelivery is treated as
// fresh. Called after a transition failed for a transient reason.
func (s *WebhookEventStore) Forget(ctx context.Context, eventID string) error {
	_, err := s.db.Collection("webhook_events").DeleteOne(ctx, bson.M{"eventId": eventID})
	return err
}
