package persistence

import (
	"context"
	"fmt"

	"github.com/sledgehq/sledge/internal/identity/domain"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
)

// UserRepository implements domain.UserRepository on either supported
// driver.
type UserRepository struct {
	conn database.Connection
}

// NewUserRepository creates a user repository.
func NewUserRepository(conn database.Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create inserts the user and sets its ID. A taken email is a conflict.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?) RETURNING id`,
		user.Email.String(), user.PasswordHash, user.CreatedAt.UTC(),
	).Scan(&user.ID)
	if database.IsUniqueViolation(err) {
		return sharedDomain.Conflict("create user", 0, fmt.Sprintf("email %s already registered", user.Email))
	}
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, `id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	return r.findOne(ctx, `email = ?`, email.String())
}

func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

// CountUpTo counts users with id <= id. Backfilled registration orders
// are derived from it.
func (r *UserRepository) CountUpTo(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE id <= ?`, id).Scan(&n)
	return n, err
}

func (r *UserRepository) ListWithoutSubscription(ctx context.Context, limit int) ([]int64, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT u.id FROM users u
		LEFT JOIN subscriptions s ON s.user_id = u.id
		WHERE s.id IS NULL
		ORDER BY u.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var (
		user  domain.User
		email string
	)
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&user.ID, &email, &user.PasswordHash, &user.CreatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Email, err = domain.NewEmail(email)
	if err != nil {
		return nil, fmt.Errorf("user %d: stored %w", user.ID, err)
	}
	return &user, nil
}
