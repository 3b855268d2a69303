package service

import (
	"context"
	"errors"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/events"
	"alcyxob/gym-scheduler/internal/repository"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EntityKind string

const (
	EntityRequest EntityKind = "request"
	EntityPlan    EntityKind = "plan"
)

// EntityRef names the entity whose status changes. When OwnerID is set the
// entity must belong to that member or trainer, otherwise it is reported
// as not found.
type EntityRef struct {
	Kind    EntityKind
	ID      primitive.ObjectID
	OwnerID *primitive.ObjectID
}

// CompletionUpdate marks one scheduled workout. Setting Completed to false
// on a completed workout only takes effect with Correction.
type CompletionUpdate struct {
	ScheduledWorkoutID primitive.ObjectID `validate:"required"`
	Completed          bool
	Notes              string `validate:"max=1000"`
	ActualStart        *time.Time
	ActualEnd          *time.Time
	Correction         bool
}

// StatusController is the only place where request and plan statuses and
// completion flags change.
type StatusController interface {
	UpdateStatus(ctx context.Context, ref EntityRef, newStatus string) error
	// UpdateCompletion applies the items that target workouts of the
	// member's plans and returns how many rows changed. Other ids are
	// skipped. The batch commits as a whole.
	UpdateCompletion(ctx context.Context, memberID primitive.ObjectID, items []CompletionUpdate) (int, error)
}

type statusController struct {
	repos     Repositories
	ledger    AvailabilityLedger
	publisher events.EventPublisher
	opts      Options
}

// NewStatusController creates the status controller.
func NewStatusController(repos Repositories, ledger AvailabilityLedger, publisher events.EventPublisher, opts Options) StatusController {
	return &statusController{repos: repos, ledger: ledger, publisher: publisherOrNoop(publisher), opts: opts}
}

func (c *statusController) UpdateStatus(ctx context.Context, ref EntityRef, newStatus string) (err error) {
	ctx, span := startSpan(ctx, "UpdateStatus")
	defer func() { endSpan(span, err) }()

	switch ref.Kind {
	case EntityRequest:
		to, ok := domain.ParseRequestStatus(newStatus)
		if !ok {
			return invalid("unknown request status %q", newStatus)
		}
		return c.updateRequestStatus(ctx, ref, to)
	case EntityPlan:
		to, ok := domain.ParsePlanStatus(newStatus)
		if !ok {
			return invalid("unknown plan status %q", newStatus)
		}
		return c.updatePlanStatus(ctx, ref, to)
	default:
		return invalid("unknown entity kind %q", ref.Kind)
	}
}

func (c *statusController) updateRequestStatus(ctx context.Context, ref EntityRef, to domain.RequestStatus) error {
	var from domain.RequestStatus
	err := c.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		req, err := c.repos.Requests.GetByID(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRequestNotFound
			}
			return persistence(err)
		}
		if ref.OwnerID != nil && req.MemberID != *ref.OwnerID && req.TrainerID != *ref.OwnerID {
			return ErrRequestNotFound
		}
		// A request that produced a plan is closed for good.
		if req.Consumed() || !req.Status.CanTransition(to) {
			return ErrInvalidTransition
		}
		from = req.Status

		if err := c.repos.Requests.UpdateStatus(ctx, req.ID, from, to); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrInvalidTransition
			}
			return persistence(err)
		}
		return nil
	})
	if err != nil {
		return persistence(err)
	}

	slog.InfoContext(ctx, "request status changed", "request_id", ref.ID.Hex(), "from", from, "to", to)
	if perr := c.publisher.PublishRequestStatusChanged(ctx, ref.ID, from, to); perr != nil {
		slog.WarnContext(ctx, "request status event not published", "request_id", ref.ID.Hex(), "error", perr)
	}
	return nil
}

func (c *statusController) updatePlanStatus(ctx context.Context, ref EntityRef, to domain.PlanStatus) error {
	var plan *domain.WorkoutPlan
	var from domain.PlanStatus
	released := false
	err := c.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		plan, err = c.repos.Plans.GetByID(ctx, ref.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPlanNotFound
			}
			return persistence(err)
		}
		if ref.OwnerID != nil && !plan.OwnedBy(*ref.OwnerID) {
			return ErrPlanNotFound
		}
		if !plan.Status.CanTransition(to) {
			return ErrInvalidTransition
		}
		from = plan.Status

		if err := c.repos.Plans.UpdateStatus(ctx, plan.ID, from, to); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrInvalidTransition
			}
			return persistence(err)
		}
		plan.Status = to

		// A cancelled session gives its slot back to the trainer.
		if to == domain.PlanCancelled && plan.Kind == domain.PlanKindSession && plan.SlotID != nil {
			if err := c.ledger.Release(ctx, *plan.SlotID); err != nil && !errors.Is(err, ErrSlotNotFound) {
				return err
			}
			released = true
		}
		return nil
	})
	if err != nil {
		return persistence(err)
	}

	slog.InfoContext(ctx, "plan status changed", "plan_id", plan.ID.Hex(), "from", from, "to", to)
	if perr := c.publisher.PublishPlanStatusChanged(ctx, plan, from); perr != nil {
		slog.WarnContext(ctx, "plan status event not published", "plan_id", plan.ID.Hex(), "error", perr)
	}
	if released {
		if perr := c.publisher.PublishSlotReleased(ctx, *plan.SlotID); perr != nil {
			slog.WarnContext(ctx, "slot released event not published", "slot_id", plan.SlotID.Hex(), "error", perr)
		}
	}
	return nil
}

type completionBatch struct {
	Items []CompletionUpdate `validate:"dive"`
}

func (c *statusController) UpdateCompletion(ctx context.Context, memberID primitive.ObjectID, items []CompletionUpdate) (updated int, err error) {
	ctx, span := startSpan(ctx, "UpdateCompletion")
	defer func() { endSpan(span, err) }()

	if memberID == primitive.NilObjectID {
		return 0, invalid("memberId is required")
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := validateStruct(completionBatch{Items: items}); err != nil {
		return 0, err
	}
	for _, item := range items {
		if item.ActualStart != nil && item.ActualEnd != nil && !item.ActualStart.Before(*item.ActualEnd) {
			return 0, invalid("actualStart must be before actualEnd for workout %s", item.ScheduledWorkoutID.Hex())
		}
	}

	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ScheduledWorkoutID)
	}

	err = c.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		updated = 0
		owned, err := c.repos.Scheduled.ListByIDsForMember(ctx, ids, memberID)
		if err != nil {
			return persistence(err)
		}
		rows := make(map[primitive.ObjectID]*domain.ScheduledWorkout, len(owned))
		for i := range owned {
			rows[owned[i].ID] = &owned[i]
		}

		changed := make(map[primitive.ObjectID]bool, len(owned))
		now := c.opts.now()
		for _, item := range items {
			row, ok := rows[item.ScheduledWorkoutID]
			if !ok {
				continue
			}
			if applyCompletion(row, item, now) {
				changed[row.ID] = true
			}
		}

		// Write in id order of the request so the batch is deterministic.
		for _, id := range ids {
			if !changed[id] {
				continue
			}
			delete(changed, id)
			row := rows[id]
			if row.ActualStart != nil && row.ActualEnd != nil && !row.ActualStart.Before(*row.ActualEnd) {
				return invalid("actualStart must be before actualEnd for workout %s", id.Hex())
			}
			if err := c.repos.Scheduled.UpdateCompletion(ctx, row); err != nil {
				return persistence(err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, persistence(err)
	}

	slog.InfoContext(ctx, "workout completion updated",
		"member_id", memberID.Hex(), "requested", len(items), "updated", updated)
	return updated, nil
}

// applyCompletion mutates row according to item and reports whether
// anything changed.
func applyCompletion(row *domain.ScheduledWorkout, item CompletionUpdate, now time.Time) bool {
	before := *row

	switch {
	case item.Completed && !row.Completed:
		row.Completed = true
		row.CompletedAt = &now
	case !item.Completed && row.Completed && item.Correction:
		row.Completed = false
		row.CompletedAt = nil
		row.ActualStart = nil
		row.ActualEnd = nil
	}

	if item.ActualStart != nil {
		t := item.ActualStart.UTC()
		row.ActualStart = &t
	}
	if item.ActualEnd != nil {
		t := item.ActualEnd.UTC()
		row.ActualEnd = &t
	}
	if item.Notes != "" {
		row.Notes = item.Notes
	}

	return row.Completed != before.Completed ||
		row.Notes != before.Notes ||
		!sameTime(row.ActualStart, before.ActualStart) ||
		!sameTime(row.ActualEnd, before.ActualEnd)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
