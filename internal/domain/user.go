package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleTrainer Role = "trainer"
	RoleMember  Role = "member"
)

// User represents an entry of the member/trainer directory.
// Identity (credentials, MFA, tokens) lives with the identity provider; the
// scheduler only needs existence checks and display names.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Role      Role               `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Trainer-specific ---
	Specialization string `bson:"specialization,omitempty" json:"specialization,omitempty"` // e.g., "Strength", "Yoga"
	Active         bool   `bson:"active" json:"active"`                                     // Inactive trainers are hidden from listings
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsMember() bool {
	return u.Role == RoleMember
}
