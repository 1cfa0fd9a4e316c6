package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/lifecycle"
	"backend/internal/models"
)

// OrderStore implements lifecycle.OrderStore on MongoDB. Status writes go
// through a conditional UpdateOne on (_id, version) so two actors racing
// on the same order cannot both win.
type OrderStore struct {
	db *mongo.Database
}

// NewOrderStore wraps the database for lifecycle use.
func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) Get(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	var order models.Order
	err := s.db.Collection("orders").FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, lifecycle.ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *OrderStore) CompareAndSwap(ctx context.Context, id primitive.ObjectID, version int64, update lifecycle.Update) (bool, error) {
	set := bson.M{}
	if update.Status != "" {
		set["status"] = update.Status
	}
	if update.SessionID != "" {
		set["sessionId"] = update.SessionID
	}
	if update.Payload != nil {
		set["payload"] = *update.Payload
	}

	res, err := s.db.Collection("orders").UpdateOne(
		ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$set": set,
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (s *OrderStore) SetPrintStatus(ctx context.Context, printID primitive.ObjectID, status string) error {
	_, err := s.db.Collection("prints").UpdateOne(
		ctx,
		bson.M{"_id": printID},
		bson.M{"$set": bson.M{"status": status}},
	)
	return err
}
