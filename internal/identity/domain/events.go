package domain

import (
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
)

const (
	AggregateType = "user"

	RoutingKeyUserRegistered = "identity.user.registered"
)

// UserRegistered is emitted when a new account is stored.
type UserRegistered struct {
	sharedDomain.BaseEvent
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

func NewUserRegistered(u *User) *UserRegistered {
	return &UserRegistered{
		BaseEvent: sharedDomain.NewBaseEvent(u.AggregateID(), AggregateType, RoutingKeyUserRegistered),
		UserID:    u.ID,
		Email:     u.Email.String(),
	}
}
