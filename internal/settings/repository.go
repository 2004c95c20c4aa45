package settings

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-backend/internal/models"
)

// singletonID keys the one-and-only settings document.
const singletonID = "availability"

type Repository interface {
	Init(ctx context.Context, defaults models.AvailabilitySettings) error
	Get(ctx context.Context) (models.AvailabilitySettings, error)
	Update(ctx context.Context, s models.AvailabilitySettings, now time.Time) (models.AvailabilitySettings, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// Init creates the settings document if it does not exist. The upsert makes
// startup idempotent; two racing processes cannot create duplicates because
// both target the same _id.
func (r *MongoRepository) Init(ctx context.Context, defaults models.AvailabilitySettings) error {
	defaults.ID = singletonID
	defaults.UpdatedAt = time.Now()

	filter := bson.M{"_id": singletonID}
	update := bson.M{"$setOnInsert": defaults}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoRepository) Get(ctx context.Context) (models.AvailabilitySettings, error) {
	var s models.AvailabilitySettings
	if err := r.col.FindOne(ctx, bson.M{"_id": singletonID}).Decode(&s); err != nil {
		return models.AvailabilitySettings{}, err
	}
	return s, nil
}

func (r *MongoRepository) Update(ctx context.Context, s models.AvailabilitySettings, now time.Time) (models.AvailabilitySettings, error) {
	s.ID = singletonID
	s.UpdatedAt = now

	opts := options.FindOneAndReplace().SetReturnDocument(options.After).SetUpsert(true)
	var updated models.AvailabilitySettings
	if err := r.col.FindOneAndReplace(ctx, bson.M{"_id": singletonID}, s, opts).Decode(&updated); err != nil {
		return models.AvailabilitySettings{}, err
	}
	return updated, nil
}
