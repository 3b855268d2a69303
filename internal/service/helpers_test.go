package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/events"
	"alcyxob/gym-scheduler/internal/repository"
	"alcyxob/gym-scheduler/internal/repository/memory"
	"alcyxob/gym-scheduler/internal/service"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInjected = errors.New("injected store failure")

// testClock advances one minute per reading so orderings by time are stable.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type recordedEvent struct {
	Type string
	ID   primitive.ObjectID
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) record(eventType string, id primitive.ObjectID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, ID: id})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) PublishRequestSubmitted(_ context.Context, req *domain.ScheduleRequest) error {
	return p.record(events.RequestSubmitted, req.ID)
}

func (p *recordingPublisher) PublishRequestStatusChanged(_ context.Context, id primitive.ObjectID, _, _ domain.RequestStatus) error {
	return p.record(events.RequestStatusChanged, id)
}

func (p *recordingPublisher) PublishPlanCreated(_ context.Context, plan *domain.WorkoutPlan, _ int) error {
	return p.record(events.PlanCreated, plan.ID)
}

func (p *recordingPublisher) PublishPlanStatusChanged(_ context.Context, plan *domain.WorkoutPlan, _ domain.PlanStatus) error {
	return p.record(events.PlanStatusChanged, plan.ID)
}

func (p *recordingPublisher) PublishSlotBooked(_ context.Context, slot *domain.TrainerAvailabilitySlot, _ primitive.ObjectID) error {
	return p.record(events.SlotBooked, slot.ID)
}

func (p *recordingPublisher) PublishSlotReleased(_ context.Context, id primitive.ObjectID) error {
	return p.record(events.SlotReleased, id)
}

// failingScheduled stores the first `after` entries of a batch, then fails.
type failingScheduled struct {
	repository.ScheduledWorkoutRepository
	after int
}

func (f *failingScheduled) CreateMany(ctx context.Context, workouts []*domain.ScheduledWorkout) error {
	n := f.after
	if n > len(workouts) {
		n = len(workouts)
	}
	if err := f.ScheduledWorkoutRepository.CreateMany(ctx, workouts[:n]); err != nil {
		return err
	}
	return errInjected
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memory.Store
	repos     service.Repositories
	opts      service.Options
	publisher *recordingPublisher

	intake  service.RequestIntake
	ledger  service.AvailabilityLedger
	builder service.PlanBuilder
	booking service.SlotBookingEngine
	status  service.StatusController
	query   service.QueryFacade

	member7, member8 primitive.ObjectID
	trainer3         primitive.ObjectID
	squat, run, yoga primitive.ObjectID
}

type fixtureOption func(*fixture)

func withOptions(fn func(*service.Options)) fixtureOption {
	return func(f *fixture) { fn(&f.opts) }
}

func withScheduledFailingAfter(n int) fixtureOption {
	return func(f *fixture) {
		f.repos.Scheduled = &failingScheduled{ScheduledWorkoutRepository: f.repos.Scheduled, after: n}
	}
}

func newFixture(t *testing.T, options ...fixtureOption) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		repos: service.Repositories{
			Tx:        store,
			Users:     memory.NewUserRepository(store),
			Workouts:  memory.NewWorkoutRepository(store),
			Requests:  memory.NewScheduleRequestRepository(store),
			Plans:     memory.NewWorkoutPlanRepository(store),
			Scheduled: memory.NewScheduledWorkoutRepository(store),
			Slots:     memory.NewAvailabilityRepository(store),
		},
		opts:      service.DefaultOptions(),
		publisher: &recordingPublisher{},
	}
	f.opts.Now = clock.Now
	for _, o := range options {
		o(f)
	}

	f.intake = service.NewRequestService(f.repos, f.publisher, f.opts)
	f.ledger = service.NewAvailabilityLedger(f.repos)
	f.builder = service.NewPlanBuilder(f.repos, f.publisher, f.opts)
	f.booking = service.NewBookingService(f.repos, f.ledger, f.publisher)
	f.status = service.NewStatusController(f.repos, f.ledger, f.publisher, f.opts)
	f.query = service.NewQueryService(f.repos, nil, time.Minute)

	f.member7 = f.addUser("Member Seven", domain.RoleMember, "")
	f.member8 = f.addUser("Member Eight", domain.RoleMember, "")
	f.trainer3 = f.addUser("Trainer Three", domain.RoleTrainer, "Strength")
	f.squat = f.addWorkout("Back Squat", "Strength", 30)
	f.run = f.addWorkout("Interval Run", "Cardio", 20)
	f.yoga = f.addWorkout("Vinyasa Flow", "Flexibility", 45)
	return f
}

func (f *fixture) addUser(name string, role domain.Role, specialization string) primitive.ObjectID {
	f.t.Helper()
	id, err := f.repos.Users.Create(f.ctx, &domain.User{
		Name:           name,
		Email:          name + "@example.com",
		Role:           role,
		Specialization: specialization,
		Active:         true,
	})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) addWorkout(name, category string, minutes int) primitive.ObjectID {
	f.t.Helper()
	id, err := f.repos.Workouts.Create(f.ctx, &domain.Workout{
		Name:            name,
		Category:        category,
		DurationMinutes: minutes,
		Difficulty:      "Intermediate",
	})
	require.NoError(f.t, err)
	return id
}

// at returns 2024-02-05 at the given hour and minute, UTC.
func at(hour, minute int) time.Time {
	return time.Date(2024, 2, 5, hour, minute, 0, 0, time.UTC)
}

func window(startHour, startMin, endHour, endMin int) domain.Interval {
	return domain.Interval{Start: at(startHour, startMin), End: at(endHour, endMin)}
}

func (f *fixture) offer(trainer primitive.ObjectID, w domain.Interval) primitive.ObjectID {
	f.t.Helper()
	slot, err := f.ledger.OfferSlot(f.ctx, trainer, w.Start, w)
	require.NoError(f.t, err)
	return slot.ID
}

func (f *fixture) submit(member primitive.ObjectID) primitive.ObjectID {
	f.t.Helper()
	id, err := f.intake.Submit(f.ctx, service.SubmitRequestInput{
		MemberID:  member,
		TrainerID: f.trainer3,
		Age:       30,
		WeightKg:  72.5,
		Goal:      "Build strength",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) approve(requestID primitive.ObjectID) {
	f.t.Helper()
	require.NoError(f.t, f.status.UpdateStatus(f.ctx, service.EntityRef{Kind: service.EntityRequest, ID: requestID}, "approved"))
}

// twoDayPlan is Scenario A's plan: three workouts on day 1, two on day 2.
func (f *fixture) twoDayPlan(requestID primitive.ObjectID) service.BuildPlanInput {
	return service.BuildPlanInput{
		RequestID: requestID,
		PlanName:  "Starter block",
		Window: domain.Interval{
			Start: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		Days: []service.DayWorkouts{
			{DayNumber: 1, Workouts: []service.PlannedWorkout{{WorkoutID: f.squat}, {WorkoutID: f.run}, {WorkoutID: f.yoga}}},
			{DayNumber: 2, Workouts: []service.PlannedWorkout{{WorkoutID: f.run, DurationMinutes: 35}, {WorkoutID: f.squat, RestMinutes: 2}}},
		},
	}
}

func (f *fixture) book(member primitive.ObjectID, w domain.Interval, workouts ...primitive.ObjectID) service.BookingResult {
	f.t.Helper()
	res, err := f.booking.BookSlot(f.ctx, service.BookSlotInput{
		MemberID:   member,
		TrainerID:  f.trainer3,
		Date:       w.Start,
		Window:     w,
		WorkoutIDs: workouts,
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) plans(member primitive.ObjectID) []domain.WorkoutPlan {
	f.t.Helper()
	plans, err := f.repos.Plans.ListByMember(f.ctx, member)
	require.NoError(f.t, err)
	return plans
}

func (f *fixture) slot(id primitive.ObjectID) *domain.TrainerAvailabilitySlot {
	f.t.Helper()
	slot, err := f.repos.Slots.GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return slot
}
