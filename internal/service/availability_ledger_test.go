package service_test

import (
	"sync"
	"testing"

	"alcyxob/gym-scheduler/internal/service"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOfferSlot(t *testing.T) {
	f := newFixture(t)

	f.offer(f.trainer3, window(9, 0, 11, 0))
	// Touching slots are fine.
	f.offer(f.trainer3, window(11, 0, 12, 0))

	_, err := f.ledger.OfferSlot(f.ctx, f.trainer3, at(0, 0), window(10, 30, 11, 30))
	require.ErrorIs(t, err, service.ErrSlotOverlap)

	_, err = f.ledger.OfferSlot(f.ctx, f.trainer3, at(0, 0).AddDate(0, 0, 1), window(13, 0, 14, 0))
	require.ErrorIs(t, err, service.ErrValidation)

	_, err = f.ledger.OfferSlot(f.ctx, f.member7, at(0, 0), window(13, 0, 14, 0))
	require.ErrorIs(t, err, service.ErrTrainerNotFound)

	slots, err := f.ledger.ListSlots(f.ctx, f.trainer3, at(15, 0))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.True(t, slots[0].StartTime.Equal(at(9, 0)))
	require.True(t, slots[1].StartTime.Equal(at(11, 0)))
	for _, s := range slots {
		require.True(t, s.IsAvailable)
		require.Nil(t, s.BookedBy)
	}
}

func TestTryClaimAndRelease(t *testing.T) {
	f := newFixture(t)
	slotID := f.offer(f.trainer3, window(9, 0, 11, 0))

	slot, err := f.ledger.TryClaim(f.ctx, f.trainer3, at(0, 0), window(9, 30, 10, 30), f.member7)
	require.NoError(t, err)
	require.Equal(t, slotID, slot.ID)
	require.False(t, slot.IsAvailable)
	require.Equal(t, f.member7, *slot.BookedBy)

	_, err = f.ledger.TryClaim(f.ctx, f.trainer3, at(0, 0), window(9, 30, 10, 30), f.member8)
	require.ErrorIs(t, err, service.ErrSlotUnavailable)

	require.NoError(t, f.ledger.Release(f.ctx, slotID))
	require.True(t, f.slot(slotID).IsAvailable)
	require.NoError(t, f.ledger.Release(f.ctx, slotID))

	err = f.ledger.Release(f.ctx, primitive.NewObjectID())
	require.ErrorIs(t, err, service.ErrSlotNotFound)
}

func TestTryClaim_Linearizable(t *testing.T) {
	f := newFixture(t)
	f.offer(f.trainer3, window(9, 0, 11, 0))

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.TryClaim(f.ctx, f.trainer3, at(0, 0), window(9, 0, 10, 0), primitive.NewObjectID())
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}
