package domain

import "context"

// UserRepository defines the interface for user persistence. Finders
// return nil, nil when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email Email) (*User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	CountUpTo(ctx context.Context, id int64) (int64, error)
	ListWithoutSubscription(ctx context.Context, limit int) ([]int64, error)
}
