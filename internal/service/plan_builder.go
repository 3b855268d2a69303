package service

import (
	"context"
	"errors"
	"fmt"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/events"
	"alcyxob/gym-scheduler/internal/repository"
	"log/slog"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlannedWorkout is one entry of a day, in the order it should be done.
type PlannedWorkout struct {
	WorkoutID       primitive.ObjectID  `validate:"required"`
	DurationMinutes int                 `validate:"gte=0"` // 0 takes the catalog duration
	RestMinutes     int                 `validate:"gte=0"`
	TrainerID       *primitive.ObjectID // Defaults to the plan's trainer
	Notes           string              `validate:"max=1000"`
}

// DayWorkouts lists the workouts of one plan day (1-based).
type DayWorkouts struct {
	DayNumber int              `validate:"gte=1"`
	Workouts  []PlannedWorkout `validate:"dive"`
}

// BuildPlanInput describes the plan to materialize from a request.
type BuildPlanInput struct {
	RequestID primitive.ObjectID  `validate:"required"`
	TrainerID *primitive.ObjectID // When set, the request must be addressed to this trainer
	PlanName  string              `validate:"required,max=200"`
	Window    domain.Interval
	Notes     string        `validate:"max=2000"`
	Days      []DayWorkouts `validate:"dive"`
}

// PlanBuilder turns a schedule request into a multi-day plan.
type PlanBuilder interface {
	// BuildPlan requires an Approved request (unless approval is not
	// required by policy) and consumes it.
	BuildPlan(ctx context.Context, in BuildPlanInput) (primitive.ObjectID, error)
	// ApproveAndBuildPlan approves a Pending request and builds its plan in
	// one unit of work. An already Approved request is built as is.
	ApproveAndBuildPlan(ctx context.Context, in BuildPlanInput) (primitive.ObjectID, error)
}

type planBuilder struct {
	repos     Repositories
	publisher events.EventPublisher
	opts      Options
}

// NewPlanBuilder creates the plan builder.
func NewPlanBuilder(repos Repositories, publisher events.EventPublisher, opts Options) PlanBuilder {
	return &planBuilder{repos: repos, publisher: publisherOrNoop(publisher), opts: opts}
}

func (b *planBuilder) BuildPlan(ctx context.Context, in BuildPlanInput) (primitive.ObjectID, error) {
	return b.build(ctx, in, !b.opts.BuildRequiresApproval, "BuildPlan")
}

func (b *planBuilder) ApproveAndBuildPlan(ctx context.Context, in BuildPlanInput) (primitive.ObjectID, error) {
	return b.build(ctx, in, true, "ApproveAndBuildPlan")
}

func (b *planBuilder) build(ctx context.Context, in BuildPlanInput, approvePending bool, op string) (planID primitive.ObjectID, err error) {
	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	// 1. Validate the shape of the plan before touching the store
	if err := b.validate(in); err != nil {
		return primitive.NilObjectID, err
	}
	catalog, err := loadCatalog(ctx, b.repos.Workouts, plannedWorkoutIDs(in.Days))
	if err != nil {
		return primitive.NilObjectID, err
	}
	for _, id := range assignedTrainerIDs(in.Days) {
		if _, err := loadTrainer(ctx, b.repos.Users, id); err != nil {
			return primitive.NilObjectID, err
		}
	}

	// 2. One unit of work: request gate, plan row, entries, consume request
	var plan *domain.WorkoutPlan
	var entries []*domain.ScheduledWorkout
	approved := false
	err = b.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		req, err := b.repos.Requests.GetByID(ctx, in.RequestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRequestNotFound
			}
			return persistence(err)
		}
		if in.TrainerID != nil && req.TrainerID != *in.TrainerID {
			return ErrRequestNotFound
		}
		if req.Consumed() {
			return ErrRequestNotApprovable
		}

		switch req.Status {
		case domain.RequestApproved:
		case domain.RequestPending:
			if !approvePending {
				return ErrRequestNotApprovable
			}
			if err := b.repos.Requests.UpdateStatus(ctx, req.ID, domain.RequestPending, domain.RequestApproved); err != nil {
				return requestGateError(err)
			}
			approved = true
		default:
			return ErrRequestNotApprovable
		}

		plan = &domain.WorkoutPlan{
			Kind:      domain.PlanKindProgram,
			MemberID:  req.MemberID,
			TrainerID: req.TrainerID,
			RequestID: &req.ID,
			Name:      in.PlanName,
			Notes:     in.Notes,
			StartTime: in.Window.Start.UTC(),
			EndTime:   in.Window.End.UTC(),
			Status:    domain.PlanActive,
		}
		if _, err := b.repos.Plans.Create(ctx, plan); err != nil {
			return persistence(err)
		}

		entries = scheduleDays(plan, in.Days, catalog)
		if err := b.repos.Scheduled.CreateMany(ctx, entries); err != nil {
			return persistence(err)
		}

		if err := b.repos.Requests.MarkConsumed(ctx, req.ID, plan.ID); err != nil {
			return requestGateError(err)
		}
		return nil
	})
	if err != nil {
		return primitive.NilObjectID, persistence(err)
	}

	slog.InfoContext(ctx, "workout plan built",
		"plan_id", plan.ID.Hex(), "request_id", in.RequestID.Hex(), "member_id", plan.MemberID.Hex(),
		"days", len(in.Days), "workouts", len(entries))

	if approved {
		if perr := b.publisher.PublishRequestStatusChanged(ctx, in.RequestID, domain.RequestPending, domain.RequestApproved); perr != nil {
			slog.WarnContext(ctx, "request status event not published", "request_id", in.RequestID.Hex(), "error", perr)
		}
	}
	if perr := b.publisher.PublishPlanCreated(ctx, plan, len(entries)); perr != nil {
		slog.WarnContext(ctx, "plan created event not published", "plan_id", plan.ID.Hex(), "error", perr)
	}
	return plan.ID, nil
}

// requestGateError maps a lost conditional write on the request. Another
// unit of work changed or consumed it first.
func requestGateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrRequestNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrRequestNotApprovable
	default:
		return persistence(err)
	}
}

func (b *planBuilder) validate(in BuildPlanInput) error {
	if len(in.Days) == 0 {
		return ErrEmptyPlan
	}
	for _, day := range in.Days {
		if len(day.Workouts) == 0 {
			return invalidDay(day.DayNumber)
		}
	}
	if err := validateStruct(in); err != nil {
		return err
	}
	if !in.Window.Valid() {
		return invalid("plan window must have start before end")
	}

	span := in.Window.SpanDays()
	if b.opts.MaxPlanDays > 0 && span > b.opts.MaxPlanDays {
		return invalid("plan spans %d days, at most %d allowed", span, b.opts.MaxPlanDays)
	}
	seen := make(map[int]bool, len(in.Days))
	for _, day := range in.Days {
		if day.DayNumber > span {
			return invalid("day %d is outside the plan's %d days", day.DayNumber, span)
		}
		if seen[day.DayNumber] {
			return invalid("day %d is listed more than once", day.DayNumber)
		}
		seen[day.DayNumber] = true
	}
	return nil
}

func invalidDay(day int) error {
	return fmt.Errorf("%w: day %d has no workouts", ErrEmptyPlan, day)
}

func plannedWorkoutIDs(days []DayWorkouts) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for _, day := range days {
		for _, w := range day.Workouts {
			ids = append(ids, w.WorkoutID)
		}
	}
	return ids
}

// assignedTrainerIDs returns the distinct per-workout trainer overrides.
func assignedTrainerIDs(days []DayWorkouts) []primitive.ObjectID {
	var ids []primitive.ObjectID
	seen := make(map[primitive.ObjectID]bool)
	for _, day := range days {
		for _, w := range day.Workouts {
			if w.TrainerID == nil || seen[*w.TrainerID] {
				continue
			}
			seen[*w.TrainerID] = true
			ids = append(ids, *w.TrainerID)
		}
	}
	return ids
}

// scheduleDays lays out the entries day by day. Within a day the caller's
// order is kept and sequenceOrder is the 1-based position.
func scheduleDays(plan *domain.WorkoutPlan, days []DayWorkouts, catalog map[primitive.ObjectID]domain.Workout) []*domain.ScheduledWorkout {
	ordered := make([]DayWorkouts, len(days))
	copy(ordered, days)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DayNumber < ordered[j].DayNumber })

	var entries []*domain.ScheduledWorkout
	for _, day := range ordered {
		for pos, w := range day.Workouts {
			duration := w.DurationMinutes
			if duration == 0 {
				duration = catalog[w.WorkoutID].DurationMinutes
			}
			trainerID := w.TrainerID
			if trainerID == nil {
				t := plan.TrainerID
				trainerID = &t
			}
			entries = append(entries, &domain.ScheduledWorkout{
				PlanID:          plan.ID,
				MemberID:        plan.MemberID,
				WorkoutID:       w.WorkoutID,
				TrainerID:       trainerID,
				DayNumber:       day.DayNumber,
				SequenceOrder:   pos + 1,
				DurationMinutes: duration,
				RestMinutes:     w.RestMinutes,
				Notes:           w.Notes,
			})
		}
	}
	return entries
}
