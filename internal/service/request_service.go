package service

import (
	"context"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/events"
	"alcyxob/gym-scheduler/internal/repository"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmitRequestInput is a member's training profile for a new plan.
type SubmitRequestInput struct {
	MemberID          primitive.ObjectID `validate:"required"`
	TrainerID         primitive.ObjectID `validate:"required"`
	Age               int                `validate:"gt=0,lte=120"`
	Gender            string             `validate:"max=32"`
	HeightCm          *float64           `validate:"omitempty,gt=0"`
	WeightKg          float64            `validate:"gt=0"`
	Goal              string             `validate:"max=500"`
	FitnessLevel      string             `validate:"max=64"`
	TrainingType      string             `validate:"max=64"`
	StartDate         time.Time          `validate:"required"`
	EndDate           time.Time          `validate:"required"`
	MedicalConditions string             `validate:"max=2000"`
	Notes             string             `validate:"max=2000"`
}

// RequestIntake accepts member requests; they start out Pending.
type RequestIntake interface {
	Submit(ctx context.Context, in SubmitRequestInput) (primitive.ObjectID, error)
}

type requestService struct {
	users     repository.UserRepository
	requests  repository.ScheduleRequestRepository
	publisher events.EventPublisher
	opts      Options
}

// NewRequestService creates the intake service.
func NewRequestService(repos Repositories, publisher events.EventPublisher, opts Options) RequestIntake {
	return &requestService{
		users:     repos.Users,
		requests:  repos.Requests,
		publisher: publisherOrNoop(publisher),
		opts:      opts,
	}
}

// Submit validates and stores a request. It is a single insert, so it runs
// outside a unit of work.
func (s *requestService) Submit(ctx context.Context, in SubmitRequestInput) (id primitive.ObjectID, err error) {
	ctx, span := startSpan(ctx, "SubmitRequest")
	defer func() { endSpan(span, err) }()

	// 1. Validate input
	if err := validateStruct(in); err != nil {
		return primitive.NilObjectID, err
	}
	if !in.StartDate.Before(in.EndDate) {
		return primitive.NilObjectID, invalid("startDate must be before endDate")
	}

	// 2. Both parties must exist with the right role
	if _, err := loadMember(ctx, s.users, in.MemberID); err != nil {
		return primitive.NilObjectID, err
	}
	if _, err := loadTrainer(ctx, s.users, in.TrainerID); err != nil {
		return primitive.NilObjectID, err
	}

	// 3. Persist as Pending
	req := &domain.ScheduleRequest{
		MemberID:          in.MemberID,
		TrainerID:         in.TrainerID,
		Age:               in.Age,
		Gender:            in.Gender,
		HeightCm:          in.HeightCm,
		WeightKg:          in.WeightKg,
		Goal:              in.Goal,
		FitnessLevel:      in.FitnessLevel,
		TrainingType:      in.TrainingType,
		StartDate:         in.StartDate.UTC(),
		EndDate:           in.EndDate.UTC(),
		MedicalConditions: in.MedicalConditions,
		Notes:             in.Notes,
		RequestedAt:       s.opts.now(),
		Status:            domain.RequestPending,
	}
	id, err = s.requests.Create(ctx, req)
	if err != nil {
		return primitive.NilObjectID, persistence(err)
	}

	slog.InfoContext(ctx, "schedule request submitted",
		"request_id", id.Hex(), "member_id", in.MemberID.Hex(), "trainer_id", in.TrainerID.Hex())
	if perr := s.publisher.PublishRequestSubmitted(ctx, req); perr != nil {
		slog.WarnContext(ctx, "request submitted event not published", "request_id", id.Hex(), "error", perr)
	}
	return id, nil
}
