package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type availabilityRepository struct {
	s *Store
}

// NewAvailabilityRepository creates a slot store backed by the store.
func NewAvailabilityRepository(s *Store) repository.AvailabilityRepository {
	return &availabilityRepository{s: s}
}

func (r *availabilityRepository) Create(ctx context.Context, slot *domain.TrainerAvailabilitySlot) (primitive.ObjectID, error) {
	if slot.TrainerID == primitive.NilObjectID || !slot.Window().Valid() {
		return primitive.NilObjectID, errors.New("slot requires trainerId and a non-empty window")
	}
	defer r.s.write(ctx)()

	slot.ID = primitive.NewObjectID()
	slot.Date = domain.DayStart(slot.Date)
	now := r.s.now()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	r.s.slots[slot.ID] = *slot
	return slot.ID, nil
}

func (r *availabilityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error) {
	defer r.s.read(ctx)()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &slot, nil
}

func (r *availabilityRepository) ListByTrainerAndDate(ctx context.Context, trainerID primitive.ObjectID, date time.Time) ([]domain.TrainerAvailabilitySlot, error) {
	defer r.s.read(ctx)()

	day := domain.DayStart(date)
	slots := []domain.TrainerAvailabilitySlot{}
	for _, slot := range r.s.slots {
		if slot.TrainerID == trainerID && slot.Date.Equal(day) {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime.Before(slots[j].StartTime) })
	return slots, nil
}

func (r *availabilityRepository) ClaimCovering(ctx context.Context, trainerID primitive.ObjectID, date time.Time, window domain.Interval, claimant primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error) {
	defer r.s.write(ctx)()

	day := domain.DayStart(date)
	var match *domain.TrainerAvailabilitySlot
	for _, slot := range r.s.slots {
		if slot.TrainerID != trainerID || !slot.Date.Equal(day) || !slot.IsAvailable {
			continue
		}
		if !slot.Window().Contains(window) {
			continue
		}
		// Prefer the earliest-starting slot so the choice is deterministic.
		if match == nil || slot.StartTime.Before(match.StartTime) {
			s := slot
			match = &s
		}
	}
	if match == nil {
		return nil, repository.ErrNotFound
	}

	now := r.s.now()
	match.IsAvailable = false
	match.BookedBy = &claimant
	match.BookedAt = &now
	match.UpdatedAt = now
	r.s.slots[match.ID] = *match
	return match, nil
}

func (r *availabilityRepository) Release(ctx context.Context, slotID primitive.ObjectID) error {
	defer r.s.write(ctx)()

	slot, ok := r.s.slots[slotID]
	if !ok {
		return repository.ErrNotFound
	}
	if slot.IsAvailable {
		return repository.ErrConflict
	}
	slot.IsAvailable = true
	slot.BookedBy = nil
	slot.BookedAt = nil
	slot.UpdatedAt = r.s.now()
	r.s.slots[slotID] = slot
	return nil
}
