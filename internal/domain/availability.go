package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainerAvailabilitySlot is a window a trainer offers for booking.
// IsAvailable == false exactly when BookedBy is set.
type TrainerAvailabilitySlot struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TrainerID   primitive.ObjectID  `bson:"trainerId" json:"trainerId"`
	Date        time.Time           `bson:"date" json:"date"` // Midnight UTC of the slot's day
	StartTime   time.Time           `bson:"startTime" json:"startTime"`
	EndTime     time.Time           `bson:"endTime" json:"endTime"`
	IsAvailable bool                `bson:"isAvailable" json:"isAvailable"`
	BookedBy    *primitive.ObjectID `bson:"bookedBy,omitempty" json:"bookedBy,omitempty"`
	BookedAt    *time.Time          `bson:"bookedAt,omitempty" json:"bookedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Window returns the slot's half-open time window.
func (s *TrainerAvailabilitySlot) Window() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

// Claimed reports whether the slot is held by a member.
func (s *TrainerAvailabilitySlot) Claimed() bool {
	return !s.IsAvailable
}
