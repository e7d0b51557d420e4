package persistence

import (
	"context"
	"time"

	"github.com/sledgehq/sledge/internal/billing/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
)

// CounterRepository implements domain.RegistrationCounterRepository on
// either supported driver.
type CounterRepository struct {
	conn database.Connection
	now  func() time.Time
}

// NewCounterRepository creates a counter repository.
func NewCounterRepository(conn database.Connection) *CounterRepository {
	return &CounterRepository{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the first counter row by id, or nil when the table is empty.
func (r *CounterRepository) Get(ctx context.Context) (*domain.RegistrationCounter, error) {
	var c domain.RegistrationCounter
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT id, current_count, updated_at FROM registration_counter ORDER BY id LIMIT 1`,
	).Scan(&c.ID, &c.CurrentCount, &c.UpdatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CounterRepository) Init(ctx context.Context, id int64) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`INSERT INTO registration_counter (id, current_count, updated_at) VALUES (?, 0, ?)`,
		id, r.now())
	return err
}

// Increment is a single UPDATE ... RETURNING so the database serialises
// concurrent callers on the row.
func (r *CounterRepository) Increment(ctx context.Context, id int64) (int64, error) {
	var next int64
	err := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`UPDATE registration_counter
		 SET current_count = current_count + 1, updated_at = ?
		 WHERE id = ?
		 RETURNING current_count`,
		r.now(), id,
	).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}
