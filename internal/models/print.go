package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Print is a priced job snapshot, created once at quote-acceptance time.
// It is immutable afterwards except for the status field, which mirrors
// the owning Order's status.
type Print struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FileName  string             `bson:"fileName" json:"fileName"`
	FileRef   string             `bson:"fileRef,omitempty" json:"fileRef,omitempty"`
	Material  string             `bson:"material" json:"material"`
	Quality   string             `bson:"quality" json:"quality"`
	Color     string             `bson:"color" json:"color"`
	Scale     float64            `bson:"scale" json:"scale"`
	Qty       int                `bson:"qty" json:"qty"`
	GramsEach float64            `bson:"gramsEach" json:"gramsEach"`
	PriceEach float64            `bson:"priceEach" json:"priceEach"`
	BaseFee   float64            `bson:"baseFee" json:"baseFee"`
	Total     float64            `bson:"total" json:"total"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
