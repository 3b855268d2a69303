// Package memory is an in-process implementation of the repository
// interfaces. It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"alcyxob/gym-scheduler/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

// Store holds every collection. Units of work are serialized by one lock and
// roll back by restoring a snapshot taken when they began.
type Store struct {
	mu sync.RWMutex

	users     map[primitive.ObjectID]domain.User
	workouts  map[primitive.ObjectID]domain.Workout
	requests  map[primitive.ObjectID]domain.ScheduleRequest
	plans     map[primitive.ObjectID]domain.WorkoutPlan
	scheduled map[primitive.ObjectID]domain.ScheduledWorkout
	slots     map[primitive.ObjectID]domain.TrainerAvailabilitySlot

	now func() time.Time
}

type snapshot struct {
	users     map[primitive.ObjectID]domain.User
	workouts  map[primitive.ObjectID]domain.Workout
	requests  map[primitive.ObjectID]domain.ScheduleRequest
	plans     map[primitive.ObjectID]domain.WorkoutPlan
	scheduled map[primitive.ObjectID]domain.ScheduledWorkout
	slots     map[primitive.ObjectID]domain.TrainerAvailabilitySlot
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[primitive.ObjectID]domain.User),
		workouts:  make(map[primitive.ObjectID]domain.Workout),
		requests:  make(map[primitive.ObjectID]domain.ScheduleRequest),
		plans:     make(map[primitive.ObjectID]domain.WorkoutPlan),
		scheduled: make(map[primitive.ObjectID]domain.ScheduledWorkout),
		slots:     make(map[primitive.ObjectID]domain.TrainerAvailabilitySlot),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithinTransaction implements repository.Transactor.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.restore(snap)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	// A caller that gave up while we were working gets no partial commit.
	if err := ctx.Err(); err != nil {
		return err
	}
	committed = true
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// read and write take the store lock unless the caller already holds it
// through WithinTransaction.
func (s *Store) read(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		users:     maps.Clone(s.users),
		workouts:  maps.Clone(s.workouts),
		requests:  maps.Clone(s.requests),
		plans:     maps.Clone(s.plans),
		scheduled: maps.Clone(s.scheduled),
		slots:     maps.Clone(s.slots),
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.workouts = snap.workouts
	s.requests = snap.requests
	s.plans = snap.plans
	s.scheduled = snap.scheduled
	s.slots = snap.slots
}
