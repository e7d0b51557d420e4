package domain

import (
	"strconv"
	"time"

	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
)

// User is an account. IDs are assigned by the database in insertion order.
type User struct {
	sharedDomain.EventRecorder

	ID           int64
	Email        Email
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates an unsaved user.
func NewUser(email Email, passwordHash string, now time.Time) *User {
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
}

// AggregateID is the user ID as used in events.
func (u *User) AggregateID() string {
	return strconv.FormatInt(u.ID, 10)
}

// RecordRegistered raises UserRegistered once the user has an ID.
func (u *User) RecordRegistered() {
	u.AddDomainEvent(NewUserRegistered(u))
}
