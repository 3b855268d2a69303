package service

import (
	"context"
	"errors"
	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/repository"
	"alcyxob/gym-scheduler/internal/storage"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Read models ---

type PendingRequest struct {
	domain.ScheduleRequest
	MemberName string
}

type ScheduledWorkoutView struct {
	domain.ScheduledWorkout
	WorkoutName     string
	Description     string
	Category        string
	Difficulty      string
	EquipmentNeeded string
	ImageURL        string // Presigned, empty when the workout has no image
	TrainerName     string
}

type PlanDay struct {
	DayNumber            int
	Date                 time.Time // Calendar day (UTC midnight) of this plan day
	TotalDurationMinutes int
	AllCompleted         bool // False for a day without workouts
	Workouts             []ScheduledWorkoutView
}

type PlanDetail struct {
	Plan              domain.WorkoutPlan
	MemberName        string
	TrainerName       string
	Days              []PlanDay
	TotalWorkouts     int
	CompletedWorkouts int
}

type PlanSummary struct {
	Plan           domain.WorkoutPlan
	WorkoutCount   int
	CompletedCount int
}

// QueryFacade serves read-only projections.
type QueryFacade interface {
	ListPendingRequests(ctx context.Context, trainerID primitive.ObjectID) ([]PendingRequest, error)
	// GetPlan returns the plan if viewerID is its member or trainer.
	GetPlan(ctx context.Context, viewerID, planID primitive.ObjectID) (*PlanDetail, error)
	GetDailyWorkouts(ctx context.Context, viewerID, planID primitive.ObjectID, day int) (*PlanDay, error)
	ListPlans(ctx context.Context, role domain.Role, userID primitive.ObjectID) ([]PlanSummary, error)
	ListWorkouts(ctx context.Context, filter domain.WorkoutFilter) ([]domain.Workout, error)
	ListTrainers(ctx context.Context, activeOnly bool, specialization string) ([]domain.User, error)
}

type queryService struct {
	repos     Repositories
	images    storage.ImageStore
	urlExpiry time.Duration
}

// NewQueryService creates the read side. images may be nil.
func NewQueryService(repos Repositories, images storage.ImageStore, urlExpiry time.Duration) QueryFacade {
	if images == nil {
		images = storage.NoopImageStore{}
	}
	return &queryService{repos: repos, images: images, urlExpiry: urlExpiry}
}

func (q *queryService) ListPendingRequests(ctx context.Context, trainerID primitive.ObjectID) ([]PendingRequest, error) {
	requests, err := q.repos.Requests.ListPendingByTrainer(ctx, trainerID)
	if err != nil {
		return nil, persistence(err)
	}
	names := q.nameCache()
	pending := make([]PendingRequest, 0, len(requests))
	for _, req := range requests {
		pending = append(pending, PendingRequest{ScheduleRequest: req, MemberName: names(ctx, req.MemberID)})
	}
	return pending, nil
}

func (q *queryService) GetPlan(ctx context.Context, viewerID, planID primitive.ObjectID) (detail *PlanDetail, err error) {
	ctx, span := startSpan(ctx, "GetPlan")
	defer func() { endSpan(span, err) }()

	plan, err := q.ownedPlan(ctx, viewerID, planID)
	if err != nil {
		return nil, err
	}
	rows, err := q.repos.Scheduled.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, persistence(err)
	}
	views, err := q.views(ctx, rows)
	if err != nil {
		return nil, err
	}

	names := q.nameCache()
	detail = &PlanDetail{
		Plan:        *plan,
		MemberName:  names(ctx, plan.MemberID),
		TrainerName: names(ctx, plan.TrainerID),
		Days:        groupByDay(plan, views),
	}
	for _, v := range views {
		detail.TotalWorkouts++
		if v.Completed {
			detail.CompletedWorkouts++
		}
	}
	return detail, nil
}

func (q *queryService) GetDailyWorkouts(ctx context.Context, viewerID, planID primitive.ObjectID, day int) (*PlanDay, error) {
	plan, err := q.ownedPlan(ctx, viewerID, planID)
	if err != nil {
		return nil, err
	}
	if day < 1 || day > plan.SpanDays() {
		return nil, invalid("day %d is outside the plan's %d days", day, plan.SpanDays())
	}

	rows, err := q.repos.Scheduled.ListByPlan(ctx, plan.ID)
	if err != nil {
		return nil, persistence(err)
	}
	dayRows := rows[:0:0]
	for _, r := range rows {
		if r.DayNumber == day {
			dayRows = append(dayRows, r)
		}
	}
	views, err := q.views(ctx, dayRows)
	if err != nil {
		return nil, err
	}
	pd := newPlanDay(plan, day, views)
	return &pd, nil
}

func (q *queryService) ListPlans(ctx context.Context, role domain.Role, userID primitive.ObjectID) ([]PlanSummary, error) {
	var plans []domain.WorkoutPlan
	var err error
	switch role {
	case domain.RoleMember:
		plans, err = q.repos.Plans.ListByMember(ctx, userID)
	case domain.RoleTrainer:
		plans, err = q.repos.Plans.ListByTrainer(ctx, userID)
	default:
		return nil, invalid("unknown role %q", role)
	}
	if err != nil {
		return nil, persistence(err)
	}

	ids := make([]primitive.ObjectID, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	rows, err := q.repos.Scheduled.ListByPlans(ctx, ids)
	if err != nil {
		return nil, persistence(err)
	}
	total := make(map[primitive.ObjectID]int, len(plans))
	done := make(map[primitive.ObjectID]int, len(plans))
	for _, r := range rows {
		total[r.PlanID]++
		if r.Completed {
			done[r.PlanID]++
		}
	}

	summaries := make([]PlanSummary, 0, len(plans))
	for _, p := range plans {
		summaries = append(summaries, PlanSummary{Plan: p, WorkoutCount: total[p.ID], CompletedCount: done[p.ID]})
	}
	return summaries, nil
}

func (q *queryService) ListWorkouts(ctx context.Context, filter domain.WorkoutFilter) ([]domain.Workout, error) {
	if filter.MaxDurationMinutes < 0 {
		return nil, invalid("maxDuration must not be negative")
	}
	workouts, err := q.repos.Workouts.List(ctx, filter)
	if err != nil {
		return nil, persistence(err)
	}
	return workouts, nil
}

func (q *queryService) ListTrainers(ctx context.Context, activeOnly bool, specialization string) ([]domain.User, error) {
	trainers, err := q.repos.Users.ListTrainers(ctx, activeOnly, specialization)
	if err != nil {
		return nil, persistence(err)
	}
	return trainers, nil
}

// ownedPlan hides plans the viewer does not take part in.
func (q *queryService) ownedPlan(ctx context.Context, viewerID, planID primitive.ObjectID) (*domain.WorkoutPlan, error) {
	plan, err := q.repos.Plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, persistence(err)
	}
	if !plan.OwnedBy(viewerID) {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// views joins rows with catalog details, image URLs and trainer names.
func (q *queryService) views(ctx context.Context, rows []domain.ScheduledWorkout) ([]ScheduledWorkoutView, error) {
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.WorkoutID)
	}
	found, err := q.repos.Workouts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, persistence(err)
	}
	catalog := make(map[primitive.ObjectID]domain.Workout, len(found))
	for _, w := range found {
		catalog[w.ID] = w
	}

	names := q.nameCache()
	urls := make(map[primitive.ObjectID]string)
	views := make([]ScheduledWorkoutView, 0, len(rows))
	for _, r := range rows {
		w := catalog[r.WorkoutID]
		v := ScheduledWorkoutView{
			ScheduledWorkout: r,
			WorkoutName:      w.Name,
			Description:      w.Description,
			Category:         w.Category,
			Difficulty:       w.Difficulty,
			EquipmentNeeded:  w.EquipmentNeeded,
		}
		if w.ImageKey != "" {
			url, ok := urls[w.ID]
			if !ok {
				url, err = q.images.PresignedImageURL(ctx, w.ImageKey, q.urlExpiry)
				if err != nil {
					slog.WarnContext(ctx, "workout image URL unavailable", "workout_id", w.ID.Hex(), "error", err)
					url = ""
				}
				urls[w.ID] = url
			}
			v.ImageURL = url
		}
		if r.TrainerID != nil {
			v.TrainerName = names(ctx, *r.TrainerID)
		}
		views = append(views, v)
	}
	return views, nil
}

// nameCache looks names up once per user. Missing users yield "".
func (q *queryService) nameCache() func(context.Context, primitive.ObjectID) string {
	cache := make(map[primitive.ObjectID]string)
	return func(ctx context.Context, id primitive.ObjectID) string {
		if name, ok := cache[id]; ok {
			return name
		}
		name := ""
		if user, err := q.repos.Users.GetByID(ctx, id); err == nil {
			name = user.Name
		} else if !errors.Is(err, repository.ErrNotFound) {
			slog.WarnContext(ctx, "user name lookup failed", "user_id", id.Hex(), "error", err)
		}
		cache[id] = name
		return name
	}
}

// groupByDay expects views ordered by day, then sequence.
func groupByDay(plan *domain.WorkoutPlan, views []ScheduledWorkoutView) []PlanDay {
	days := []PlanDay{}
	for start := 0; start < len(views); {
		end := start
		for end < len(views) && views[end].DayNumber == views[start].DayNumber {
			end++
		}
		days = append(days, newPlanDay(plan, views[start].DayNumber, views[start:end]))
		start = end
	}
	return days
}

func newPlanDay(plan *domain.WorkoutPlan, day int, views []ScheduledWorkoutView) PlanDay {
	pd := PlanDay{
		DayNumber:    day,
		Date:         domain.DayStart(plan.StartTime).AddDate(0, 0, day-1),
		AllCompleted: len(views) > 0,
		Workouts:     views,
	}
	for _, v := range views {
		pd.TotalDurationMinutes += v.DurationMinutes
		if !v.Completed {
			pd.AllCompleted = false
		}
	}
	if pd.Workouts == nil {
		pd.Workouts = []ScheduledWorkoutView{}
	}
	return pd
}
