package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultPreferredRole = "MERN Stack Developer"

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"password,omitempty" json:"-"`
	GoogleID      string             `bson:"googleId,omitempty" json:"googleId,omitempty"`
	PreferredRole string             `bson:"preferredRole" json:"preferredRole"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func NewUser(name, email string) *User {
	now := time.Now().UTC()
	return &User{
		Name:          name,
		Email:         email,
		PreferredRole: DefaultPreferredRole,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AuthResponse is what register, login and profile endpoints return.
type AuthResponse struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	PreferredRole string `json:"preferredRole"`
	Token         string `json:"token"`
}
