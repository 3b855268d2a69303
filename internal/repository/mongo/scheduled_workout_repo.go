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

const scheduledWorkoutCollectionName = "scheduled_workouts"

type mongoScheduledWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoScheduledWorkoutRepository creates a new repository for plan entries.
func NewMongoScheduledWorkoutRepository(db *mongo.Database) repository.ScheduledWorkoutRepository {
	return &mongoScheduledWorkoutRepository{
		collection: db.Collection(scheduledWorkoutCollectionName),
	}
}

// CreateMany inserts all entries with one ordered InsertMany. A duplicate
// (plan, day, sequence) surfaces as repository.ErrConflict.
func (r *mongoScheduledWorkoutRepository) CreateMany(ctx context.Context, workouts []*domain.ScheduledWorkout) error {
	if len(workouts) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(workouts))
	for _, w := range workouts {
		if w.PlanID == primitive.NilObjectID || w.WorkoutID == primitive.NilObjectID {
			return errors.New("scheduled workout requires planId and workoutId")
		}
		w.ID = primitive.NewObjectID()
		w.CreatedAt = now
		w.UpdatedAt = now
		docs = append(docs, w)
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *mongoScheduledWorkoutRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ScheduledWorkout, error) {
	return r.find(ctx, bson.M{"planId": planID})
}

func (r *mongoScheduledWorkoutRepository) ListByPlans(ctx context.Context, planIDs []primitive.ObjectID) ([]domain.ScheduledWorkout, error) {
	if len(planIDs) == 0 {
		return []domain.ScheduledWorkout{}, nil
	}
	return r.find(ctx, bson.M{"planId": bson.M{"$in": planIDs}})
}

// ListByIDsForMember only returns entries that belong to the member's plans.
func (r *mongoScheduledWorkoutRepository) ListByIDsForMember(ctx context.Context, ids []primitive.ObjectID, memberID primitive.ObjectID) ([]domain.ScheduledWorkout, error) {
	if len(ids) == 0 {
		return []domain.ScheduledWorkout{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}, "memberId": memberID})
}

func (r *mongoScheduledWorkoutRepository) find(ctx context.Context, filter bson.M) ([]domain.ScheduledWorkout, error) {
	findOptions := options.Find().SetSort(bson.D{
		{Key: "planId", Value: 1},
		{Key: "dayNumber", Value: 1},
		{Key: "sequenceOrder", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	workouts := []domain.ScheduledWorkout{}
	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// UpdateCompletion writes the completion fields of one entry.
func (r *mongoScheduledWorkoutRepository) UpdateCompletion(ctx context.Context, w *domain.ScheduledWorkout) error {
	w.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"completed": w.Completed,
		"notes":     w.Notes,
		"updatedAt": w.UpdatedAt,
	}
	unset := bson.M{}
	setOrUnset(set, unset, "completedAt", w.CompletedAt)
	setOrUnset(set, unset, "actualStart", w.ActualStart)
	setOrUnset(set, unset, "actualEnd", w.ActualEnd)

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": w.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func setOrUnset(set, unset bson.M, key string, t *time.Time) {
	if t != nil {
		set[key] = *t
		return
	}
	unset[key] = ""
}

// EnsureScheduledWorkoutIndexes creates necessary indexes, including the
// unique (plan, day, sequence) key.
func EnsureScheduledWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "planId", Value: 1},
				{Key: "dayNumber", Value: 1},
				{Key: "sequenceOrder", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "memberId", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		slog.WarnContext(ctx, "failed to create indexes", "collection", collection.Name(), "error", err)
	}
}
