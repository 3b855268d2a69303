package service

import (
	"context"
	"errors"
	"fmt"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/events"
	"alcyxob/gym-scheduler/internal/repository"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("alcyxob/gym-scheduler/internal/service")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Repositories bundles the stores the scheduling services work against.
// Tx must span every other repository.
type Repositories struct {
	Tx        repository.Transactor
	Users     repository.UserRepository
	Workouts  repository.WorkoutRepository
	Requests  repository.ScheduleRequestRepository
	Plans     repository.WorkoutPlanRepository
	Scheduled repository.ScheduledWorkoutRepository
	Slots     repository.AvailabilityRepository
}

// Options holds scheduling policy.
type Options struct {
	BuildRequiresApproval bool
	MaxPlanDays           int
	Now                   func() time.Time
}

// DefaultOptions returns the policy used when nothing is configured.
func DefaultOptions() Options {
	return Options{BuildRequiresApproval: true, MaxPlanDays: 366}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func publisherOrNoop(p events.EventPublisher) events.EventPublisher {
	if p == nil {
		return events.NoopPublisher{}
	}
	return p
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "scheduling."+name)
}

// endSpan records err on the span unless it is an expected business outcome.
func endSpan(span trace.Span, err error) {
	if err != nil && KindOf(err) == KindPersistence {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// validateStruct runs the struct tags and turns failures into ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalid("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return invalid("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt", "gte":
		return field + " must be greater than " + orEqual(fe.Tag()) + fe.Param()
	case "lte", "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " failed " + fe.Tag()
	}
}

func orEqual(tag string) string {
	if tag == "gte" {
		return "or equal to "
	}
	return ""
}

// loadMember fetches a user and checks the member role.
func loadMember(ctx context.Context, users repository.UserRepository, id primitive.ObjectID) (*domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, persistence(err)
	}
	if !user.IsMember() {
		return nil, ErrMemberNotFound
	}
	return user, nil
}

// loadTrainer fetches a user and checks the trainer role.
func loadTrainer(ctx context.Context, users repository.UserRepository, id primitive.ObjectID) (*domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainerNotFound
		}
		return nil, persistence(err)
	}
	if !user.IsTrainer() {
		return nil, ErrTrainerNotFound
	}
	return user, nil
}

// loadCatalog resolves every id against the catalog; any unknown id fails
// the whole lookup with ErrUnknownWorkout.
func loadCatalog(ctx context.Context, workouts repository.WorkoutRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Workout, error) {
	catalog := make(map[primitive.ObjectID]domain.Workout, len(ids))
	if len(ids) == 0 {
		return catalog, nil
	}
	unique := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found, err := workouts.GetByIDs(ctx, unique)
	if err != nil {
		return nil, persistence(err)
	}
	for _, w := range found {
		catalog[w.ID] = w
	}
	for _, id := range unique {
		if _, ok := catalog[id]; !ok {
			return nil, invalidWorkout(id)
		}
	}
	return catalog, nil
}

func invalidWorkout(id primitive.ObjectID) error {
	return fmt.Errorf("%w: %s", ErrUnknownWorkout, id.Hex())
}
