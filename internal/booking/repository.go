package booking

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-backend/internal/models"
)

// ErrDuplicateSlot is returned by Insert when the storage-layer uniqueness
// constraint over active (date, time) pairs rejects the write. It is the
// authoritative double-booking guard; the service treats it exactly like a
// pre-check conflict.
var ErrDuplicateSlot = errors.New("slot already booked")

// ErrNoAppointment is returned by lookups when no record matches.
var ErrNoAppointment = errors.New("appointment not found")

type ListFilter struct {
	Status string
	Date   string
}

type Repository interface {
	Insert(ctx context.Context, appt models.Appointment) error
	FindOverlapping(ctx context.Context, start, end time.Time, statuses []string) (*models.Appointment, error)
	CountByDay(ctx context.Context, dayStart, dayEnd time.Time, statuses []string) (int64, error)
	BookedTimes(ctx context.Context, date string, statuses []string) ([]string, error)
	GetByID(ctx context.Context, id string) (models.Appointment, error)
	Replace(ctx context.Context, appt models.Appointment) (models.Appointment, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Appointment, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, appt models.Appointment) error {
	_, err := r.col.InsertOne(ctx, appt)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlot
		}
		return err
	}
	return nil
}

func (r *MongoRepository) FindOverlapping(ctx context.Context, start, end time.Time, statuses []string) (*models.Appointment, error) {
	// Half-open ranges: [start,end) overlaps [s,e) iff s < end && e > start.
	filter := bson.M{
		"status":    bson.M{"$in": statuses},
		"startTime": bson.M{"$lt": end},
		"endTime":   bson.M{"$gt": start},
	}

	var appt models.Appointment
	err := r.col.FindOne(ctx, filter).Decode(&appt)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *MongoRepository) CountByDay(ctx context.Context, dayStart, dayEnd time.Time, statuses []string) (int64, error) {
	filter := bson.M{
		"status":    bson.M{"$in": statuses},
		"startTime": bson.M{"$gte": dayStart, "$lt": dayEnd},
	}
	return r.col.CountDocuments(ctx, filter)
}

func (r *MongoRepository) BookedTimes(ctx context.Context, date string, statuses []string) ([]string, error) {
	filter := bson.M{
		"date":   date,
		"status": bson.M{"$in": statuses},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "time", Value: 1}}).
		SetProjection(bson.M{"time": 1})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	times := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Time string `bson:"time"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		if doc.Time != "" {
			times = append(times, doc.Time)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return times, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (models.Appointment, error) {
	var appt models.Appointment
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&appt); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Appointment{}, ErrNoAppointment
		}
		return models.Appointment{}, err
	}
	return appt, nil
}

func (r *MongoRepository) Replace(ctx context.Context, appt models.Appointment) (models.Appointment, error) {
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var updated models.Appointment
	if err := r.col.FindOneAndReplace(ctx, bson.M{"_id": appt.ID}, appt, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Appointment{}, ErrNoAppointment
		}
		return models.Appointment{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNoAppointment
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]models.Appointment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "startTime", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, r.filterToBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Appointment, 0)
	for cursor.Next(ctx) {
		var appt models.Appointment
		if err := cursor.Decode(&appt); err != nil {
			return nil, err
		}
		items = append(items, appt)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.col.CountDocuments(ctx, r.filterToBSON(filter))
}

func (r *MongoRepository) filterToBSON(filter ListFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Date != "" {
		query["date"] = filter.Date
	}
	return query
}
