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

const (
	planCollectionName         = "workout_plans"
	scheduleLockCollectionName = "schedule_locks"
)

type mongoWorkoutPlanRepository struct {
	collection *mongo.Collection
	locks      *mongo.Collection // One document per member or trainer, bumped inside booking transactions
}

// NewMongoWorkoutPlanRepository creates a new plan repository.
func NewMongoWorkoutPlanRepository(db *mongo.Database) repository.WorkoutPlanRepository {
	return &mongoWorkoutPlanRepository{
		collection: db.Collection(planCollectionName),
		locks:      db.Collection(scheduleLockCollectionName),
	}
}

func (r *mongoWorkoutPlanRepository) Create(ctx context.Context, plan *domain.WorkoutPlan) (primitive.ObjectID, error) {
	if plan.MemberID == primitive.NilObjectID || plan.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("plan requires memberId and trainerId")
	}
	if plan.Kind == "" {
		return primitive.NilObjectID, errors.New("plan kind is required")
	}

	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	if plan.Status == "" {
		plan.Status = domain.PlanActive
	}

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

func (r *mongoWorkoutPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlan, error) {
	var plan domain.WorkoutPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *mongoWorkoutPlanRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.WorkoutPlan, error) {
	return r.findNewestFirst(ctx, bson.M{"memberId": memberID})
}

func (r *mongoWorkoutPlanRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.WorkoutPlan, error) {
	return r.findNewestFirst(ctx, bson.M{"trainerId": trainerID})
}

func (r *mongoWorkoutPlanRepository) findNewestFirst(ctx context.Context, filter bson.M) ([]domain.WorkoutPlan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.WorkoutPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *mongoWorkoutPlanRepository) FindOverlappingSessions(ctx context.Context, memberID primitive.ObjectID, window domain.Interval) ([]domain.WorkoutPlan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})

	cursor, err := r.collection.Find(ctx, overlappingSessionsFilter(memberID, window), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.WorkoutPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// overlappingSessionsFilter encodes start < window.End && end > window.Start,
// so sessions that merely touch the window do not match.
func overlappingSessionsFilter(memberID primitive.ObjectID, window domain.Interval) bson.M {
	return bson.M{
		"memberId":  memberID,
		"kind":      domain.PlanKindSession,
		"status":    bson.M{"$ne": domain.PlanCancelled},
		"startTime": bson.M{"$lt": window.End},
		"endTime":   bson.M{"$gt": window.Start},
	}
}

func (r *mongoWorkoutPlanRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.PlanStatus) error {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// LockSchedule writes the owner's lock document. Two transactions changing
// the same member's (or trainer's) schedule both write it, so one of them aborts with a write conflict
// and is retried after the other commits.
func (r *mongoWorkoutPlanRepository) LockSchedule(ctx context.Context, ownerID primitive.ObjectID) error {
	filter := bson.M{"_id": ownerID}
	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.locks.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// EnsureWorkoutPlanIndexes creates necessary indexes for the plans collection.
func EnsureWorkoutPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "memberId", Value: 1},
				{Key: "kind", Value: 1},
				{Key: "status", Value: 1},
				{Key: "startTime", Value: 1},
			},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// At most one plan per request.
			Keys:    bson.D{{Key: "requestId", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"requestId": bson.M{"$exists": true}}),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		slog.WarnContext(ctx, "failed to create indexes", "collection", collection.Name(), "error", err)
	}
}
