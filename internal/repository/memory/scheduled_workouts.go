package memory

import (
	"context"
	"errors"
	"sort"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type scheduledWorkoutRepository struct {
	s *Store
}

// NewScheduledWorkoutRepository creates a scheduled-workout store backed by the store.
func NewScheduledWorkoutRepository(s *Store) repository.ScheduledWorkoutRepository {
	return &scheduledWorkoutRepository{s: s}
}

type slotKey struct {
	plan     primitive.ObjectID
	day, seq int
}

// CreateMany enforces the (plan, day, sequence) unique key like the Mongo index does.
func (r *scheduledWorkoutRepository) CreateMany(ctx context.Context, workouts []*domain.ScheduledWorkout) error {
	defer r.s.write(ctx)()

	taken := make(map[slotKey]bool)
	for _, sw := range r.s.scheduled {
		taken[slotKey{sw.PlanID, sw.DayNumber, sw.SequenceOrder}] = true
	}
	for _, sw := range workouts {
		if sw.PlanID == primitive.NilObjectID || sw.WorkoutID == primitive.NilObjectID {
			return errors.New("scheduled workout requires planId and workoutId")
		}
		k := slotKey{sw.PlanID, sw.DayNumber, sw.SequenceOrder}
		if taken[k] {
			return repository.ErrConflict
		}
		taken[k] = true
	}

	now := r.s.now()
	for _, sw := range workouts {
		sw.ID = primitive.NewObjectID()
		sw.CreatedAt = now
		sw.UpdatedAt = now
		r.s.scheduled[sw.ID] = *sw
	}
	return nil
}

func (r *scheduledWorkoutRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ScheduledWorkout, error) {
	return r.ListByPlans(ctx, []primitive.ObjectID{planID})
}

func (r *scheduledWorkoutRepository) ListByPlans(ctx context.Context, planIDs []primitive.ObjectID) ([]domain.ScheduledWorkout, error) {
	defer r.s.read(ctx)()

	want := make(map[primitive.ObjectID]bool, len(planIDs))
	for _, id := range planIDs {
		want[id] = true
	}
	list := []domain.ScheduledWorkout{}
	for _, sw := range r.s.scheduled {
		if want[sw.PlanID] {
			list = append(list, sw)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.PlanID != b.PlanID {
			return a.PlanID.Hex() < b.PlanID.Hex()
		}
		if a.DayNumber != b.DayNumber {
			return a.DayNumber < b.DayNumber
		}
		return a.SequenceOrder < b.SequenceOrder
	})
	return list, nil
}

func (r *scheduledWorkoutRepository) ListByIDsForMember(ctx context.Context, ids []primitive.ObjectID, memberID primitive.ObjectID) ([]domain.ScheduledWorkout, error) {
	defer r.s.read(ctx)()

	list := []domain.ScheduledWorkout{}
	for _, id := range ids {
		if sw, ok := r.s.scheduled[id]; ok && sw.MemberID == memberID {
			list = append(list, sw)
		}
	}
	return list, nil
}

func (r *scheduledWorkoutRepository) UpdateCompletion(ctx context.Context, workout *domain.ScheduledWorkout) error {
	defer r.s.write(ctx)()

	sw, ok := r.s.scheduled[workout.ID]
	if !ok {
		return repository.ErrNotFound
	}
	sw.Completed = workout.Completed
	sw.CompletedAt = workout.CompletedAt
	sw.ActualStart = workout.ActualStart
	sw.ActualEnd = workout.ActualEnd
	sw.Notes = workout.Notes
	sw.UpdatedAt = r.s.now()
	r.s.scheduled[sw.ID] = sw
	return nil
}
