package repository

import (
	"alcyxob/gym-scheduler/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrConflict     = RepositoryError("conflict")      // A conditional write matched nothing or a unique key was violated
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Transactor runs fn as one atomic unit of work. Repository calls made with
// the ctx handed to fn take part in the unit of work; if fn returns an error
// (or ctx is cancelled) nothing it wrote becomes visible. Nested calls join
// the outer unit of work.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository is the member/trainer directory.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	ListTrainers(ctx context.Context, activeOnly bool, specialization string) ([]domain.User, error)
}

// WorkoutRepository is the read-mostly workout catalog.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Workout, error) // Unknown ids are simply absent from the result
	List(ctx context.Context, filter domain.WorkoutFilter) ([]domain.Workout, error)
}

// ScheduleRequestRepository stores member requests.
type ScheduleRequestRepository interface {
	Create(ctx context.Context, req *domain.ScheduleRequest) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduleRequest, error)
	ListPendingByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.ScheduleRequest, error) // Oldest first
	// UpdateStatus moves the request from `from` to `to` only if it is still in
	// `from` and not consumed; otherwise ErrConflict (or ErrNotFound).
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.RequestStatus) error
	// MarkConsumed links the built plan; only an approved, unconsumed request matches.
	MarkConsumed(ctx context.Context, id, planID primitive.ObjectID) error
}

// WorkoutPlanRepository stores plans (programs and booked sessions).
type WorkoutPlanRepository interface {
	Create(ctx context.Context, plan *domain.WorkoutPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPlan, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.WorkoutPlan, error)   // Newest first
	ListByTrainer(ctx context.Context, trainerID primitive.ObjectID) ([]domain.WorkoutPlan, error) // Newest first
	// FindOverlappingSessions returns the member's non-cancelled session plans
	// whose window overlaps the given half-open window.
	FindOverlappingSessions(ctx context.Context, memberID primitive.ObjectID, window domain.Interval) ([]domain.WorkoutPlan, error)
	// UpdateStatus is a conditional write: it only matches while the plan is in `from`.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to domain.PlanStatus) error
	// LockSchedule serializes concurrent units of work that change the
	// schedule of the same member or trainer.
	LockSchedule(ctx context.Context, ownerID primitive.ObjectID) error
}

// ScheduledWorkoutRepository stores the per-day entries of plans.
type ScheduledWorkoutRepository interface {
	CreateMany(ctx context.Context, workouts []*domain.ScheduledWorkout) error // Assigns IDs in place
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ScheduledWorkout, error)          // Ordered by day, then sequence
	ListByPlans(ctx context.Context, planIDs []primitive.ObjectID) ([]domain.ScheduledWorkout, error)     // Ordered by plan, day, sequence
	ListByIDsForMember(ctx context.Context, ids []primitive.ObjectID, memberID primitive.ObjectID) ([]domain.ScheduledWorkout, error)
	UpdateCompletion(ctx context.Context, workout *domain.ScheduledWorkout) error
}

// AvailabilityRepository stores trainer slots. Claim and release are single
// conditional writes so that one slot never has two claimants.
type AvailabilityRepository interface {
	Create(ctx context.Context, slot *domain.TrainerAvailabilitySlot) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error)
	ListByTrainerAndDate(ctx context.Context, trainerID primitive.ObjectID, date time.Time) ([]domain.TrainerAvailabilitySlot, error) // Ordered by start
	// ClaimCovering claims one available slot of the trainer on date whose
	// window contains `window`. ErrNotFound when no available slot matches.
	ClaimCovering(ctx context.Context, trainerID primitive.ObjectID, date time.Time, window domain.Interval, claimant primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error)
	// Release makes a claimed slot available again. ErrConflict if it was not claimed.
	Release(ctx context.Context, slotID primitive.ObjectID) error
}
