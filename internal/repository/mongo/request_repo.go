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

const requestCollectionName = "schedule_requests"

type mongoScheduleRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoScheduleRequestRepository creates a new request repository.
func NewMongoScheduleRequestRepository(db *mongo.Database) repository.ScheduleRequestRepository {
	return &mongoScheduleRequestRepository{
		collection: db.Collection(requestCollectionName),
	}
}

func (r *mongoScheduleRequestRepository) Create(ctx context.Context, req *domain.ScheduleRequest) (primitive.ObjectID, error) {
	if req.MemberID == primitive.NilObjectID || req.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("request requires memberId and trainerId")
	}
	req.ID = primitive.NewObjectID()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	req.UpdatedAt = req.RequestedAt

	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted request ID")
	}
	return insertedID, nil
}

func (r *mongoScheduleRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduleRequest, error) {
	var req domain.ScheduleRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListPendingByTrainer returns the trainer's pending requests, oldest first.
func (r *mongoScheduleRequestRepository) ListPendingByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.ScheduleRequest, error) {
	filter := bson.M{"trainerId": trainerID, "status": domain.RequestPending}
	findOptions := options.Find().SetSort(bson.D{{Key: "requestedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := []domain.ScheduleRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateStatus is a compare-and-set on the status; a consumed request never matches.
func (r *mongoScheduleRequestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.RequestStatus) error {
	filter := unconsumedFilter(id, from)
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	return r.conditionalUpdate(ctx, id, filter, update)
}

func (r *mongoScheduleRequestRepository) MarkConsumed(ctx context.Context, id, planID primitive.ObjectID) error {
	filter := unconsumedFilter(id, domain.RequestApproved)
	update := bson.M{"$set": bson.M{"planId": planID, "updatedAt": time.Now().UTC()}}
	return r.conditionalUpdate(ctx, id, filter, update)
}

func (r *mongoScheduleRequestRepository) conditionalUpdate(ctx context.Context, id primitive.ObjectID, filter, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}
	// Tell a missing request apart from one that moved on.
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func unconsumedFilter(id primitive.ObjectID, status domain.RequestStatus) bson.M {
	return bson.M{
		"_id":    id,
		"status": status,
		"planId": bson.M{"$exists": false},
	}
}

// EnsureScheduleRequestIndexes creates necessary indexes for the requests collection.
func EnsureScheduleRequestIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "status", Value: 1}, {Key: "requestedAt", Value: 1}},
			Options: options.Index(),
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
