package memory

import (
	"context"
	"errors"
	"sort"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type planRepository struct {
	s *Store
}

// NewWorkoutPlanRepository creates a plan store backed by the store.
func NewWorkoutPlanRepository(s *Store) repository.WorkoutPlanRepository {
	return &planRepository{s: s}
}

func (r *planRepository) Create(ctx context.Context, plan *domain.WorkoutPlan) (primitive.ObjectID, error) {
	if plan.MemberID == primitive.NilObjectID || plan.TrainerID == primitive.NilObjectID || plan.Name == "" {
		return primitive.NilObjectID, errors.New("plan requires memberId, trainerId, and name")
	}
	defer r.s.write(ctx)()

	plan.ID = primitive.NewObjectID()
	now := r.s.now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	r.s.plans[plan.ID] = *plan
	return plan.ID, nil
}

func (r *planRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlan, error) {
	defer r.s.read(ctx)()

	p, ok := r.s.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *planRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.WorkoutPlan, error) {
	return r.list(ctx, func(p domain.WorkoutPlan) bool { return p.MemberID == memberID })
}

func (r *planRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.WorkoutPlan, error) {
	return r.list(ctx, func(p domain.WorkoutPlan) bool { return p.TrainerID == trainerID })
}

func (r *planRepository) list(ctx context.Context, keep func(domain.WorkoutPlan) bool) ([]domain.WorkoutPlan, error) {
	defer r.s.read(ctx)()

	plans := []domain.WorkoutPlan{}
	for _, p := range r.s.plans {
		if keep(p) {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].CreatedAt.After(plans[j].CreatedAt)
		}
		return plans[i].ID.Hex() > plans[j].ID.Hex()
	})
	return plans, nil
}

func (r *planRepository) FindOverlappingSessions(ctx context.Context, memberID primitive.ObjectID, window domain.Interval) ([]domain.WorkoutPlan, error) {
	defer r.s.read(ctx)()

	conflicts := []domain.WorkoutPlan{}
	for _, p := range r.s.plans {
		if p.MemberID != memberID || p.Kind != domain.PlanKindSession || p.Status == domain.PlanCancelled {
			continue
		}
		if p.Window().Overlaps(window) {
			conflicts = append(conflicts, p)
		}
	}
	return conflicts, nil
}

func (r *planRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.PlanStatus) error {
	defer r.s.write(ctx)()

	p, ok := r.s.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Status != from {
		return repository.ErrConflict
	}
	p.Status = to
	p.UpdatedAt = r.s.now()
	r.s.plans[id] = p
	return nil
}

// LockSchedule is a no-op: every unit of work already holds the store lock.
func (r *planRepository) LockSchedule(ctx context.Context, ownerID primitive.ObjectID) error {
	return nil
}
