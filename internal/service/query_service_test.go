package service_test

import (
	"context"
	"testing"
	"time"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/service"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeImages struct {
	calls int
}

func (f *fakeImages) PresignedImageURL(_ context.Context, key string, expires time.Duration) (string, error) {
	f.calls++
	return "https://images.test/" + key + "?expires=" + expires.String(), nil
}

func TestGetPlan_GroupsByDay(t *testing.T) {
	f := newFixture(t)
	planID, rows := builtPlan(t, f)

	_, err := f.status.UpdateCompletion(f.ctx, f.member7, []service.CompletionUpdate{
		{ScheduledWorkoutID: rows[3].ID, Completed: true},
		{ScheduledWorkoutID: rows[4].ID, Completed: true},
	})
	require.NoError(t, err)

	detail, err := f.query.GetPlan(f.ctx, f.member7, planID)
	require.NoError(t, err)
	require.Equal(t, "Member Seven", detail.MemberName)
	require.Equal(t, "Trainer Three", detail.TrainerName)
	require.Equal(t, 5, detail.TotalWorkouts)
	require.Equal(t, 2, detail.CompletedWorkouts)
	require.Len(t, detail.Days, 2)

	day1 := detail.Days[0]
	require.Equal(t, 1, day1.DayNumber)
	require.True(t, day1.Date.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 95, day1.TotalDurationMinutes)
	require.False(t, day1.AllCompleted)
	require.Equal(t, []string{"Back Squat", "Interval Run", "Vinyasa Flow"},
		[]string{day1.Workouts[0].WorkoutName, day1.Workouts[1].WorkoutName, day1.Workouts[2].WorkoutName})
	require.Equal(t, "Trainer Three", day1.Workouts[0].TrainerName)
	require.Equal(t, "Strength", day1.Workouts[0].Category)

	day2 := detail.Days[1]
	require.Equal(t, 65, day2.TotalDurationMinutes)
	require.True(t, day2.AllCompleted)
	require.Equal(t, 2, day2.Workouts[1].SequenceOrder)

	// The trainer sees the same plan.
	_, err = f.query.GetPlan(f.ctx, f.trainer3, planID)
	require.NoError(t, err)

	_, err = f.query.GetPlan(f.ctx, f.member8, planID)
	require.ErrorIs(t, err, service.ErrPlanNotFound)
}

func TestGetDailyWorkouts(t *testing.T) {
	f := newFixture(t)
	planID, _ := builtPlan(t, f)

	day, err := f.query.GetDailyWorkouts(f.ctx, f.member7, planID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, day.DayNumber)
	require.Len(t, day.Workouts, 2)
	require.Equal(t, "Interval Run", day.Workouts[0].WorkoutName)
	require.Equal(t, 35, day.Workouts[0].DurationMinutes)

	_, err = f.query.GetDailyWorkouts(f.ctx, f.member7, planID, 3)
	require.ErrorIs(t, err, service.ErrValidation)
	_, err = f.query.GetDailyWorkouts(f.ctx, f.member7, planID, 0)
	require.ErrorIs(t, err, service.ErrValidation)
	_, err = f.query.GetDailyWorkouts(f.ctx, f.member8, planID, 1)
	require.ErrorIs(t, err, service.ErrPlanNotFound)
}

func TestGetPlan_PresignsImagesOncePerWorkout(t *testing.T) {
	f := newFixture(t)
	images := &fakeImages{}
	query := service.NewQueryService(f.repos, images, 5*time.Minute)

	deadlift, err := f.repos.Workouts.Create(f.ctx, &domain.Workout{
		Name:            "Deadlift",
		Category:        "Strength",
		DurationMinutes: 25,
		ImageKey:        "catalog/deadlift.png",
	})
	require.NoError(t, err)

	requestID := f.submit(f.member7)
	input := f.twoDayPlan(requestID)
	input.Days = []service.DayWorkouts{
		{DayNumber: 1, Workouts: []service.PlannedWorkout{{WorkoutID: deadlift}, {WorkoutID: f.squat}}},
		{DayNumber: 2, Workouts: []service.PlannedWorkout{{WorkoutID: deadlift}}},
	}
	planID, err := f.builder.ApproveAndBuildPlan(f.ctx, input)
	require.NoError(t, err)

	detail, err := query.GetPlan(f.ctx, f.member7, planID)
	require.NoError(t, err)
	require.Equal(t, "https://images.test/catalog/deadlift.png?expires=5m0s", detail.Days[0].Workouts[0].ImageURL)
	require.Empty(t, detail.Days[0].Workouts[1].ImageURL)
	require.Equal(t, detail.Days[0].Workouts[0].ImageURL, detail.Days[1].Workouts[0].ImageURL)
	require.Equal(t, 1, images.calls)
}

func TestListPlans(t *testing.T) {
	f := newFixture(t)
	planID, rows := builtPlan(t, f)
	_, err := f.status.UpdateCompletion(f.ctx, f.member7, []service.CompletionUpdate{{ScheduledWorkoutID: rows[0].ID, Completed: true}})
	require.NoError(t, err)

	mine, err := f.query.ListPlans(f.ctx, domain.RoleMember, f.member7)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, planID, mine[0].Plan.ID)
	require.Equal(t, 5, mine[0].WorkoutCount)
	require.Equal(t, 1, mine[0].CompletedCount)

	theirs, err := f.query.ListPlans(f.ctx, domain.RoleTrainer, f.trainer3)
	require.NoError(t, err)
	require.Len(t, theirs, 1)

	none, err := f.query.ListPlans(f.ctx, domain.RoleMember, f.member8)
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = f.query.ListPlans(f.ctx, domain.Role("admin"), f.member7)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestListPendingRequests_OldestFirst(t *testing.T) {
	f := newFixture(t)
	first := f.submit(f.member8)
	second := f.submit(f.member7)
	approvedID := f.submit(f.member7)
	f.approve(approvedID)

	pending, err := f.query.ListPendingRequests(f.ctx, f.trainer3)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first, pending[0].ID)
	require.Equal(t, "Member Eight", pending[0].MemberName)
	require.Equal(t, second, pending[1].ID)
	require.Equal(t, "Member Seven", pending[1].MemberName)

	other, err := f.query.ListPendingRequests(f.ctx, primitive.NewObjectID())
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestListWorkouts(t *testing.T) {
	f := newFixture(t)

	all, err := f.query.ListWorkouts(f.ctx, domain.WorkoutFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	strength, err := f.query.ListWorkouts(f.ctx, domain.WorkoutFilter{Category: "strength"})
	require.NoError(t, err)
	require.Len(t, strength, 1)
	require.Equal(t, f.squat, strength[0].ID)

	short, err := f.query.ListWorkouts(f.ctx, domain.WorkoutFilter{MaxDurationMinutes: 30})
	require.NoError(t, err)
	require.Len(t, short, 2)

	_, err = f.query.ListWorkouts(f.ctx, domain.WorkoutFilter{MaxDurationMinutes: -1})
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestListTrainers(t *testing.T) {
	f := newFixture(t)
	f.addUser("Trainer Yoga", domain.RoleTrainer, "Yoga")

	trainers, err := f.query.ListTrainers(f.ctx, true, "")
	require.NoError(t, err)
	require.Len(t, trainers, 2)
	require.Equal(t, "Trainer Three", trainers[0].Name)

	yoga, err := f.query.ListTrainers(f.ctx, true, "yo")
	require.NoError(t, err)
	require.Len(t, yoga, 1)
	require.Equal(t, "Trainer Yoga", yoga[0].Name)
}
