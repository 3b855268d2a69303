package service_test

import (
	"context"
	"sync"
	"testing"

	"alcyxob/gym-scheduler/internal/domain"
	"alcyxob/gym-scheduler/internal/events"
	"alcyxob/gym-scheduler/internal/service"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBookSlot_Success(t *testing.T) {
	f := newFixture(t)
	slotID := f.offer(f.trainer3, window(9, 0, 11, 0))

	res := f.book(f.member7, window(9, 0, 10, 0), f.squat, f.run)
	require.True(t, res.Success, res.Message)
	require.NoError(t, res.Reason)
	require.Equal(t, slotID, res.SlotID)

	plan, err := f.repos.Plans.GetByID(f.ctx, res.PlanID)
	require.NoError(t, err)
	require.Equal(t, domain.PlanKindSession, plan.Kind)
	require.Equal(t, slotID, *plan.SlotID)
	require.True(t, plan.StartTime.Equal(at(9, 0)))
	require.True(t, plan.EndTime.Equal(at(10, 0)))
	require.Equal(t, "Training session with Trainer Three", plan.Name)

	rows, err := f.repos.Scheduled.ListByPlan(f.ctx, res.PlanID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, f.squat, rows[0].WorkoutID)
	require.Equal(t, 1, rows[0].SequenceOrder)
	require.Equal(t, f.run, rows[1].WorkoutID)
	require.Equal(t, 2, rows[1].SequenceOrder)

	slot := f.slot(slotID)
	require.False(t, slot.IsAvailable)
	require.Equal(t, f.member7, *slot.BookedBy)

	require.Equal(t, []string{events.PlanCreated, events.SlotBooked}, f.publisher.types())
}

func TestBookSlot_ScenarioB_MemberConflict(t *testing.T) {
	f := newFixture(t)
	f.offer(f.trainer3, window(9, 0, 11, 0))
	f.offer(f.trainer3, window(11, 0, 12, 0))

	first := f.book(f.member7, window(9, 0, 10, 0), f.squat)
	require.True(t, first.Success)

	second := f.book(f.member7, window(9, 30, 10, 30), f.run)
	require.False(t, second.Success)
	require.ErrorIs(t, second.Reason, service.ErrConflictingBooking)
	require.Equal(t, service.KindConflict, service.KindOf(second.Reason))
	require.Len(t, f.plans(f.member7), 1)
}

func TestBookSlot_BackToBackIsNotAConflict(t *testing.T) {
	f := newFixture(t)
	f.offer(f.trainer3, window(9, 0, 10, 0))
	f.offer(f.trainer3, window(10, 0, 11, 0))

	require.True(t, f.book(f.member7, window(9, 0, 10, 0)).Success)
	require.True(t, f.book(f.member7, window(10, 0, 11, 0)).Success)
	require.Len(t, f.plans(f.member7), 2)
}

func TestBookSlot_ScenarioC_ConcurrentClaims(t *testing.T) {
	f := newFixture(t)
	slotID := f.offer(f.trainer3, window(9, 0, 11, 0))

	members := []primitive.ObjectID{f.member7, f.member8}
	results := make([]service.BookingResult, len(members))
	errs := make([]error, len(members))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, member := range members {
		wg.Add(1)
		go func(i int, member primitive.ObjectID) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.booking.BookSlot(context.Background(), service.BookSlotInput{
				MemberID:   member,
				TrainerID:  f.trainer3,
				Date:       at(0, 0),
				Window:     window(9, 0, 10, 0),
				WorkoutIDs: []primitive.ObjectID{f.squat},
			})
		}(i, member)
	}
	close(start)
	wg.Wait()

	successes := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Success {
			successes++
			continue
		}
		require.ErrorIs(t, results[i].Reason, service.ErrSlotUnavailable)
	}
	require.Equal(t, 1, successes)

	slot := f.slot(slotID)
	require.False(t, slot.IsAvailable)
	require.Len(t, append(f.plans(f.member7), f.plans(f.member8)...), 1)
}

func TestBookSlot_ManyConcurrentMembers(t *testing.T) {
	f := newFixture(t)
	f.offer(f.trainer3, window(9, 0, 10, 0))

	const n = 12
	members := make([]primitive.ObjectID, n)
	for i := range members {
		members[i] = f.addUser("Racer", domain.RoleMember, "")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for _, member := range members {
		wg.Add(1)
		go func(member primitive.ObjectID) {
			defer wg.Done()
			res, err := f.booking.BookSlot(context.Background(), service.BookSlotInput{
				MemberID:  member,
				TrainerID: f.trainer3,
				Date:      at(0, 0),
				Window:    window(9, 0, 10, 0),
			})
			if err != nil {
				t.Error(err)
				return
			}
			if res.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(member)
	}
	wg.Wait()
	require.Equal(t, 1, successes)
}

func TestBookSlot_NoAvailableSlot(t *testing.T) {
	f := newFixture(t)

	res := f.book(f.member7, window(9, 0, 10, 0))
	require.ErrorIs(t, res.Reason, service.ErrNoAvailableSlot)

	// A slot that only partly covers the window does not count.
	f.offer(f.trainer3, window(9, 30, 11, 0))
	res = f.book(f.member7, window(9, 0, 10, 0))
	require.False(t, res.Success)
	require.ErrorIs(t, res.Reason, service.ErrNoAvailableSlot)
	require.Empty(t, f.plans(f.member7))
}

func TestBookSlot_UnknownWorkoutClaimsNothing(t *testing.T) {
	f := newFixture(t)
	slotID := f.offer(f.trainer3, window(9, 0, 11, 0))

	res := f.book(f.member7, window(9, 0, 10, 0), f.squat, primitive.NewObjectID())
	require.False(t, res.Success)
	require.ErrorIs(t, res.Reason, service.ErrUnknownWorkout)

	require.True(t, f.slot(slotID).IsAvailable)
	require.Empty(t, f.plans(f.member7))
}

func TestBookSlot_InvalidInput(t *testing.T) {
	f := newFixture(t)
	f.offer(f.trainer3, window(9, 0, 11, 0))

	cases := []struct {
		name string
		in   service.BookSlotInput
		want error
	}{
		{
			name: "window not on date",
			in:   service.BookSlotInput{MemberID: f.member7, TrainerID: f.trainer3, Date: at(0, 0).AddDate(0, 0, 1), Window: window(9, 0, 10, 0)},
			want: service.ErrValidation,
		},
		{
			name: "empty window",
			in:   service.BookSlotInput{MemberID: f.member7, TrainerID: f.trainer3, Date: at(0, 0), Window: window(9, 0, 9, 0)},
			want: service.ErrValidation,
		},
		{
			name: "unknown member",
			in:   service.BookSlotInput{MemberID: primitive.NewObjectID(), TrainerID: f.trainer3, Date: at(0, 0), Window: window(9, 0, 10, 0)},
			want: service.ErrMemberNotFound,
		},
		{
			name: "trainer is a member",
			in:   service.BookSlotInput{MemberID: f.member7, TrainerID: f.member8, Date: at(0, 0), Window: window(9, 0, 10, 0)},
			want: service.ErrTrainerNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.booking.BookSlot(f.ctx, tc.in)
			require.NoError(t, err)
			require.False(t, res.Success)
			require.ErrorIs(t, res.Reason, tc.want)
			require.NotEmpty(t, res.Message)
		})
	}
}

func TestBookSlot_AllOrNothing(t *testing.T) {
	f := newFixture(t, withScheduledFailingAfter(1))
	slotID := f.offer(f.trainer3, window(9, 0, 11, 0))

	res, err := f.booking.BookSlot(f.ctx, service.BookSlotInput{
		MemberID:   f.member7,
		TrainerID:  f.trainer3,
		Date:       at(0, 0),
		Window:     window(9, 0, 10, 0),
		WorkoutIDs: []primitive.ObjectID{f.squat, f.run, f.yoga},
	})
	require.ErrorIs(t, err, errInjected)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Reason, service.ErrPersistence)

	require.True(t, f.slot(slotID).IsAvailable)
	require.Nil(t, f.slot(slotID).BookedBy)
	require.Empty(t, f.plans(f.member7))
	require.Empty(t, f.publisher.types())
}

func TestBookSlot_CancelledContextWritesNothing(t *testing.T) {
	f := newFixture(t)
	slotID := f.offer(f.trainer3, window(9, 0, 11, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.booking.BookSlot(ctx, service.BookSlotInput{
		MemberID:  f.member7,
		TrainerID: f.trainer3,
		Date:      at(0, 0),
		Window:    window(9, 0, 10, 0),
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, res.Success)
	require.True(t, f.slot(slotID).IsAvailable)
	require.Empty(t, f.plans(f.member7))
}

func TestBookSlot_CancelReleasesSlot(t *testing.T) {
	f := newFixture(t)
	slotID := f.offer(f.trainer3, window(9, 0, 11, 0))

	first := f.book(f.member7, window(9, 0, 10, 0))
	require.True(t, first.Success)

	owner := f.member7
	err := f.status.UpdateStatus(f.ctx, service.EntityRef{Kind: service.EntityPlan, ID: first.PlanID, OwnerID: &owner}, "cancelled")
	require.NoError(t, err)
	require.True(t, f.slot(slotID).IsAvailable)

	// Cancelled sessions neither block the member nor hold the slot.
	second := f.book(f.member7, window(9, 30, 10, 30))
	require.True(t, second.Success, second.Message)
	require.Contains(t, f.publisher.types(), events.SlotReleased)
}
