package service

import (
	"context"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/events"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultSessionName = "Training session"

// BookSlotInput is a direct booking of a trainer's time.
type BookSlotInput struct {
	MemberID   primitive.ObjectID `validate:"required"`
	TrainerID  primitive.ObjectID `validate:"required"`
	Date       time.Time          `validate:"required"`
	Window     domain.Interval
	WorkoutIDs []primitive.ObjectID // Done in this order; may be empty
	PlanName   string               `validate:"max=200"`
	Notes      string               `validate:"max=2000"`
}

// BookingResult is the outcome of BookSlot. Rejections (conflicts, missing
// slots, unknown workouts) are reported here with Success=false and Reason
// set to the matching sentinel; they are not returned as errors.
type BookingResult struct {
	Success bool
	Message string
	PlanID  primitive.ObjectID
	SlotID  primitive.ObjectID
	Reason  error
}

// SlotBookingEngine books trainer slots for members.
type SlotBookingEngine interface {
	// BookSlot checks the member's calendar, claims a covering trainer slot
	// and creates the session plan with its workouts, all or nothing. The
	// error is non-nil only for infrastructure failures.
	BookSlot(ctx context.Context, in BookSlotInput) (BookingResult, error)
}

type bookingService struct {
	repos     Repositories
	ledger    AvailabilityLedger
	publisher events.EventPublisher
}

// NewBookingService creates the booking engine on top of the ledger.
func NewBookingService(repos Repositories, ledger AvailabilityLedger, publisher events.EventPublisher) SlotBookingEngine {
	return &bookingService{repos: repos, ledger: ledger, publisher: publisherOrNoop(publisher)}
}

func (s *bookingService) BookSlot(ctx context.Context, in BookSlotInput) (result BookingResult, err error) {
	ctx, span := startSpan(ctx, "BookSlot")
	defer func() { endSpan(span, err) }()

	plan, slot, workoutCount, err := s.book(ctx, in)
	if err != nil {
		if KindOf(err) != KindPersistence {
			slog.InfoContext(ctx, "booking rejected",
				"member_id", in.MemberID.Hex(), "trainer_id", in.TrainerID.Hex(), "reason", err.Error())
			return BookingResult{Message: err.Error(), Reason: err}, nil
		}
		slog.ErrorContext(ctx, "booking failed", "member_id", in.MemberID.Hex(), "error", err)
		return BookingResult{Message: "booking could not be saved, please try again", Reason: ErrPersistence}, err
	}

	slog.InfoContext(ctx, "slot booked",
		"plan_id", plan.ID.Hex(), "slot_id", slot.ID.Hex(), "member_id", in.MemberID.Hex(), "trainer_id", in.TrainerID.Hex())
	if perr := s.publisher.PublishPlanCreated(ctx, plan, workoutCount); perr != nil {
		slog.WarnContext(ctx, "plan created event not published", "plan_id", plan.ID.Hex(), "error", perr)
	}
	if perr := s.publisher.PublishSlotBooked(ctx, slot, plan.ID); perr != nil {
		slog.WarnContext(ctx, "slot booked event not published", "slot_id", slot.ID.Hex(), "error", perr)
	}

	return BookingResult{
		Success: true,
		Message: "Session booked successfully.",
		PlanID:  plan.ID,
		SlotID:  slot.ID,
	}, nil
}

func (s *bookingService) book(ctx context.Context, in BookSlotInput) (*domain.WorkoutPlan, *domain.TrainerAvailabilitySlot, int, error) {
	// 1. Validate input and references
	if err := validateStruct(in); err != nil {
		return nil, nil, 0, err
	}
	if !in.Window.WithinDay(in.Date) {
		return nil, nil, 0, invalid("booking window must have start before end and lie within %s",
			domain.DayStart(in.Date).Format(time.DateOnly))
	}
	if _, err := loadMember(ctx, s.repos.Users, in.MemberID); err != nil {
		return nil, nil, 0, err
	}
	trainer, err := loadTrainer(ctx, s.repos.Users, in.TrainerID)
	if err != nil {
		return nil, nil, 0, err
	}
	catalog, err := loadCatalog(ctx, s.repos.Workouts, in.WorkoutIDs)
	if err != nil {
		return nil, nil, 0, err
	}

	window := domain.Interval{Start: in.Window.Start.UTC(), End: in.Window.End.UTC()}
	var plan *domain.WorkoutPlan
	var slot *domain.TrainerAvailabilitySlot
	var entries []*domain.ScheduledWorkout

	// 2. Conflict check, claim and creation form one unit of work
	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repos.Plans.LockSchedule(ctx, in.MemberID); err != nil {
			return persistence(err)
		}

		overlapping, err := s.repos.Plans.FindOverlappingSessions(ctx, in.MemberID, window)
		if err != nil {
			return persistence(err)
		}
		if len(overlapping) > 0 {
			return ErrConflictingBooking
		}

		offered, err := s.ledger.ListSlots(ctx, in.TrainerID, in.Date)
		if err != nil {
			return err
		}
		if !hasCoveringSlot(offered, window) {
			return ErrNoAvailableSlot
		}
		slot, err = s.ledger.TryClaim(ctx, in.TrainerID, in.Date, window, in.MemberID)
		if err != nil {
			return err
		}

		name := in.PlanName
		if name == "" {
			name = defaultSessionName + " with " + trainer.Name
		}
		plan = &domain.WorkoutPlan{
			Kind:      domain.PlanKindSession,
			MemberID:  in.MemberID,
			TrainerID: in.TrainerID,
			SlotID:    &slot.ID,
			Name:      name,
			Notes:     in.Notes,
			StartTime: window.Start,
			EndTime:   window.End,
			Status:    domain.PlanActive,
		}
		if _, err := s.repos.Plans.Create(ctx, plan); err != nil {
			return persistence(err)
		}

		entries = sessionWorkouts(plan, in.WorkoutIDs, catalog)
		if err := s.repos.Scheduled.CreateMany(ctx, entries); err != nil {
			return persistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, 0, persistence(err)
	}
	return plan, slot, len(entries), nil
}

// sessionWorkouts puts every workout on day 1 in the requested order.
func sessionWorkouts(plan *domain.WorkoutPlan, ids []primitive.ObjectID, catalog map[primitive.ObjectID]domain.Workout) []*domain.ScheduledWorkout {
	entries := make([]*domain.ScheduledWorkout, 0, len(ids))
	for i, id := range ids {
		trainerID := plan.TrainerID
		entries = append(entries, &domain.ScheduledWorkout{
			PlanID:          plan.ID,
			MemberID:        plan.MemberID,
			WorkoutID:       id,
			TrainerID:       &trainerID,
			DayNumber:       1,
			SequenceOrder:   i + 1,
			DurationMinutes: catalog[id].DurationMinutes,
		})
	}
	return entries
}
