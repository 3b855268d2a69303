package memory

import (
	"context"
	"errors"
	"sort"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type requestRepository struct {
	s *Store
}

// NewScheduleRequestRepository creates a request store backed by the store.
func NewScheduleRequestRepository(s *Store) repository.ScheduleRequestRepository {
	return &requestRepository{s: s}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.ScheduleRequest) (primitive.ObjectID, error) {
	if req.MemberID == primitive.NilObjectID || req.TrainerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("request requires memberId and trainerId")
	}
	defer r.s.write(ctx)()

	req.ID = primitive.NewObjectID()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = r.s.now()
	}
	req.UpdatedAt = req.RequestedAt
	r.s.requests[req.ID] = *req
	return req.ID, nil
}

func (r *requestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduleRequest, error) {
	defer r.s.read(ctx)()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r *requestRepository) ListPendingByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.ScheduleRequest, error) {
	defer r.s.read(ctx)()

	pending := []domain.ScheduleRequest{}
	for _, req := range r.s.requests {
		if req.TrainerID == trainerID && req.Status == domain.RequestPending {
			pending = append(pending, req)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].RequestedAt.Before(pending[j].RequestedAt)
	})
	return pending, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.RequestStatus) error {
	defer r.s.write(ctx)()

	req, ok := r.s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != from || req.Consumed() {
		return repository.ErrConflict
	}
	req.Status = to
	req.UpdatedAt = r.s.now()
	r.s.requests[id] = req
	return nil
}

func (r *requestRepository) MarkConsumed(ctx context.Context, id, planID primitive.ObjectID) error {
	defer r.s.write(ctx)()

	req, ok := r.s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != domain.RequestApproved || req.Consumed() {
		return repository.ErrConflict
	}
	req.PlanID = &planID
	req.UpdatedAt = r.s.now()
	r.s.requests[id] = req
	return nil
}
