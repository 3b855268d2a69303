package service

import (
	"context"
	"errors"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AvailabilityLedger owns trainer slots. Slots change state only through
// TryClaim and Release.
type AvailabilityLedger interface {
	// TryClaim claims one available slot of the trainer on date that fully
	// contains window. ErrSlotUnavailable when none can be claimed.
	TryClaim(ctx context.Context, trainerID primitive.ObjectID, date time.Time, window domain.Interval, claimant primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error)
	Release(ctx context.Context, slotID primitive.ObjectID) error
	// OfferSlot publishes a new available slot for a trainer.
	OfferSlot(ctx context.Context, trainerID primitive.ObjectID, date time.Time, window domain.Interval) (*domain.TrainerAvailabilitySlot, error)
	ListSlots(ctx context.Context, trainerID primitive.ObjectID, date time.Time) ([]domain.TrainerAvailabilitySlot, error)
}

type availabilityLedger struct {
	repos Repositories
}

// NewAvailabilityLedger creates the ledger.
func NewAvailabilityLedger(repos Repositories) AvailabilityLedger {
	return &availabilityLedger{repos: repos}
}

func (l *availabilityLedger) TryClaim(ctx context.Context, trainerID primitive.ObjectID, date time.Time, window domain.Interval, claimant primitive.ObjectID) (*domain.TrainerAvailabilitySlot, error) {
	if !window.Valid() {
		return nil, invalid("slot window must have start before end")
	}
	slot, err := l.repos.Slots.ClaimCovering(ctx, trainerID, date, window, claimant)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSlotUnavailable
		}
		return nil, persistence(err)
	}
	return slot, nil
}

func (l *availabilityLedger) Release(ctx context.Context, slotID primitive.ObjectID) error {
	err := l.repos.Slots.Release(ctx, slotID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrSlotNotFound
	case errors.Is(err, repository.ErrConflict):
		// Already available; releasing twice is harmless.
		return nil
	default:
		return persistence(err)
	}
}

func (l *availabilityLedger) OfferSlot(ctx context.Context, trainerID primitive.ObjectID, date time.Time, window domain.Interval) (slot *domain.TrainerAvailabilitySlot, err error) {
	ctx, span := startSpan(ctx, "OfferSlot")
	defer func() { endSpan(span, err) }()

	if !window.WithinDay(date) {
		return nil, invalid("slot window must have start before end and lie within %s", domain.DayStart(date).Format(time.DateOnly))
	}
	if _, err := loadTrainer(ctx, l.repos.Users, trainerID); err != nil {
		return nil, err
	}

	slot = &domain.TrainerAvailabilitySlot{
		TrainerID:   trainerID,
		Date:        domain.DayStart(date),
		StartTime:   window.Start.UTC(),
		EndTime:     window.End.UTC(),
		IsAvailable: true,
	}
	err = l.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := l.repos.Plans.LockSchedule(ctx, trainerID); err != nil {
			return persistence(err)
		}
		existing, err := l.repos.Slots.ListByTrainerAndDate(ctx, trainerID, date)
		if err != nil {
			return persistence(err)
		}
		for i := range existing {
			if existing[i].Window().Overlaps(window) {
				return ErrSlotOverlap
			}
		}
		if _, err := l.repos.Slots.Create(ctx, slot); err != nil {
			return persistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}

	slog.InfoContext(ctx, "trainer slot offered", "trainer_id", trainerID.Hex(), "slot_id", slot.ID.Hex(),
		"start", slot.StartTime, "end", slot.EndTime)
	return slot, nil
}

func (l *availabilityLedger) ListSlots(ctx context.Context, trainerID primitive.ObjectID, date time.Time) ([]domain.TrainerAvailabilitySlot, error) {
	slots, err := l.repos.Slots.ListByTrainerAndDate(ctx, trainerID, date)
	if err != nil {
		return nil, persistence(err)
	}
	return slots, nil
}

// hasCoveringSlot reports whether the trainer offers any slot, claimed or
// not, that contains window on date.
func hasCoveringSlot(slots []domain.TrainerAvailabilitySlot, window domain.Interval) bool {
	for i := range slots {
		if slots[i].Window().Contains(window) {
			return true
		}
	}
	return false
}
