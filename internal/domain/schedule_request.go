package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleRequest is a member's submitted profile asking a trainer for a plan.
type ScheduleRequest struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MemberID          primitive.ObjectID  `bson:"memberId" json:"memberId"`
	TrainerID         primitive.ObjectID  `bson:"trainerId" json:"trainerId"`
	Age               int                 `bson:"age" json:"age"`
	Gender            string              `bson:"gender,omitempty" json:"gender,omitempty"`
	HeightCm          *float64            `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	WeightKg          float64             `bson:"weightKg" json:"weightKg"`
	Goal              string              `bson:"goal,omitempty" json:"goal,omitempty"`
	FitnessLevel      string              `bson:"fitnessLevel,omitempty" json:"fitnessLevel,omitempty"`
	TrainingType      string              `bson:"trainingType,omitempty" json:"trainingType,omitempty"`
	StartDate         time.Time           `bson:"startDate" json:"startDate"`
	EndDate           time.Time           `bson:"endDate" json:"endDate"`
	MedicalConditions string              `bson:"medicalConditions,omitempty" json:"medicalConditions,omitempty"`
	Notes             string              `bson:"notes,omitempty" json:"notes,omitempty"`
	RequestedAt       time.Time           `bson:"requestedAt" json:"requestedAt"`
	Status            RequestStatus       `bson:"status" json:"status"`
	PlanID            *primitive.ObjectID `bson:"planId,omitempty" json:"planId,omitempty"` // Set once a plan was built; the request is then closed
	UpdatedAt         time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Consumed reports whether a plan has already been built from the request.
func (r *ScheduleRequest) Consumed() bool {
	return r.PlanID != nil && *r.PlanID != primitive.NilObjectID
}

// Immutable reports whether the request can no longer change status.
func (r *ScheduleRequest) Immutable() bool {
	return r.Consumed() || r.Status.Terminal()
}
