package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workout is a catalog entry. The scheduler only references it; catalog
// maintenance belongs to the admin tooling.
type Workout struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Category        string             `bson:"category" json:"category"`     // Strength, Cardio, Flexibility, ...
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	Difficulty      string             `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	EquipmentNeeded string             `bson:"equipmentNeeded,omitempty" json:"equipmentNeeded,omitempty"`
	ImageKey        string             `bson:"imageKey,omitempty" json:"-"` // Object key of the optional image in S3
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// WorkoutFilter narrows catalog listings. Zero values mean "no filter".
type WorkoutFilter struct {
	Category           string
	Difficulty         string
	MaxDurationMinutes int
}
