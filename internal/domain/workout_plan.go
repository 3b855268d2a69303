// internal/domain/workout_plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanKind distinguishes the two ways a plan comes into existence.
type PlanKind string

const (
	PlanKindProgram PlanKind = "program" // Multi-day plan built from an approved request
	PlanKindSession PlanKind = "session" // Direct booking of a trainer slot
)

// WorkoutPlan (a.k.a. schedule) is a committed training program for one
// member/trainer pair. Plans are never deleted, only cancelled.
type WorkoutPlan struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Kind      PlanKind            `bson:"kind" json:"kind"`
	MemberID  primitive.ObjectID  `bson:"memberId" json:"memberId"`
	TrainerID primitive.ObjectID  `bson:"trainerId" json:"trainerId"`
	RequestID *primitive.ObjectID `bson:"requestId,omitempty" json:"requestId,omitempty"` // Originating request (program plans)
	SlotID    *primitive.ObjectID `bson:"slotId,omitempty" json:"slotId,omitempty"`       // Claimed availability slot (session plans)
	Name      string              `bson:"name" json:"name"`
	Notes     string              `bson:"notes,omitempty" json:"notes,omitempty"`
	StartTime time.Time           `bson:"startTime" json:"startTime"` // Window is [StartTime, EndTime)
	EndTime   time.Time           `bson:"endTime" json:"endTime"`
	Status    PlanStatus          `bson:"status" json:"status"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Window returns the plan's half-open time window.
func (p *WorkoutPlan) Window() Interval {
	return Interval{Start: p.StartTime, End: p.EndTime}
}

// SpanDays is the number of calendar days (1-based day numbers) the plan covers.
func (p *WorkoutPlan) SpanDays() int {
	return p.Window().SpanDays()
}

// OwnedBy reports whether userID is the plan's member or trainer.
func (p *WorkoutPlan) OwnedBy(userID primitive.ObjectID) bool {
	return p.MemberID == userID || p.TrainerID == userID
}
