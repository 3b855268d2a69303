package mongo

import (
	"context"
	"errors"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const availabilityCollectionName = "trainer_availability"

type mongoAvailabilityRepository struct {
	collection *mongo.Collection
}

// NewMongoAvailabilityRepository creates a new trainer slot repository.
func NewMongoAvailabilityRepository(db *mongo.Database) repository.AvailabilityRepository {
	return &mongoAvailabilityRepository{
		collection: db.Collection(availabilityCollectionName),
	}
}

func (r *mongoAvailabilityRepository) Create(ctx context.Context, slot *domain.TrainerAvailabilitySlot) (primitive.ObjectID, error) {
	if slot.TrainerID == primitive.NilObjectID || !slot.Window().Valid() {
		return primitive.NilObjectID, errors.New("slot requires trainerId and a non-empty window")
	}
	slot.ID = primitive.NewObjectID()
	slot.Date = domain.DayStart(slot.Date)
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted slot ID")
	}
	return insertedID, nil
}

func (r *mongoAvailabilityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error) {
	var slot domain.TrainerAvailabilitySlot
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func (r *mongoAvailabilityRepository) ListByTrainerAndDate(ctx context.Context, trainerID primitive.ObjectID, date time.Time) ([]domain.TrainerAvailabilitySlot, error) {
	filter := bson.M{"trainerId": trainerID, "date": domain.DayStart(date)}
	findOptions := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	slots := []domain.TrainerAvailabilitySlot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// ClaimCovering flips isAvailable on the earliest covering slot in a single
// FindOneAndUpdate, so two claimants can never both win the same slot.
func (r *mongoAvailabilityRepository) ClaimCovering(ctx context.Context, trainerID primitive.ObjectID, date time.Time, window domain.Interval, claimant primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"isAvailable": false,
		"bookedBy":    claimant,
		"bookedAt":    now,
		"updatedAt":   now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "startTime", Value: 1}}).
		SetReturnDocument(options.After)

	var slot domain.TrainerAvailabilitySlot
	err := r.collection.FindOneAndUpdate(ctx, coveringSlotFilter(trainerID, date, window), update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func coveringSlotFilter(trainerID primitive.ObjectID, date time.Time, window domain.Interval) bson.M {
	return bson.M{
		"trainerId":   trainerID,
		"date":        domain.DayStart(date),
		"isAvailable": true,
		"startTime":   bson.M{"$lte": window.Start},
		"endTime":     bson.M{"$gte": window.End},
	}
}

func (r *mongoAvailabilityRepository) Release(ctx context.Context, slotID primitive.ObjectID) error {
	filter := bson.M{"_id": slotID, "isAvailable": false}
	update := bson.M{
		"$set":   bson.M{"isAvailable": true, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"bookedBy": "", "bookedAt": ""},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": slotID})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// EnsureAvailabilityIndexes creates necessary indexes for the slots collection.
func EnsureAvailabilityIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "trainerId", Value: 1},
				{Key: "date", Value: 1},
				{Key: "isAvailable", Value: 1},
				{Key: "startTime", Value: 1},
			},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		slog.WarnContext(ctx, "failed to create indexes", "collection", collection.Name(), "error", err)
	}
}
