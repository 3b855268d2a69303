package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduledWorkout is one workout occurrence inside a plan.
// (PlanID, DayNumber, SequenceOrder) is unique.
type ScheduledWorkout struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PlanID          primitive.ObjectID  `bson:"planId" json:"planId"`
	MemberID        primitive.ObjectID  `bson:"memberId" json:"memberId"` // Denormalized for ownership checks
	WorkoutID       primitive.ObjectID  `bson:"workoutId" json:"workoutId"`
	TrainerID       *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	DayNumber       int                 `bson:"dayNumber" json:"dayNumber"`         // 1-based, relative to plan start
	SequenceOrder   int                 `bson:"sequenceOrder" json:"sequenceOrder"` // 1-based position within the day
	DurationMinutes int                 `bson:"durationMinutes" json:"durationMinutes"`
	RestMinutes     int                 `bson:"restMinutes" json:"restMinutes"`
	Completed       bool                `bson:"completed" json:"completed"`
	CompletedAt     *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	ActualStart     *time.Time          `bson:"actualStart,omitempty" json:"actualStart,omitempty"`
	ActualEnd       *time.Time          `bson:"actualEnd,omitempty" json:"actualEnd,omitempty"`
	Notes           string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}
