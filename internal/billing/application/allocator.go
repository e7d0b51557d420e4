package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sledgehq/sledge/internal/billing/domain"
	sharedDomain "github.com/sledgehq/sledge/internal/shared/domain"
	"github.com/sledgehq/sledge/internal/shared/infrastructure/database"
	"github.com/sledgehq/sledge/pkg/observability"
)

// ErrCounterUnavailable means the counter row could neither be read nor
// created.
var ErrCounterUnavailable = errors.New("registration counter unavailable")

const opAllocate = "allocate registration order"

// OrderAllocator hands out registration orders.
type OrderAllocator interface {
	NextRegistrationOrder(ctx context.Context) (int64, error)
}

// Allocator issues strictly increasing registration orders from the
// single counter row. It holds no locks; the database serialises the
// increment.
type Allocator struct {
	counters domain.RegistrationCounterRepository
	logger   *slog.Logger
	metrics  observability.Metrics
}

// NewAllocator creates an Allocator. logger and metrics may be nil.
func NewAllocator(counters domain.RegistrationCounterRepository, logger *slog.Logger, metrics observability.Metrics) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Allocator{counters: counters, logger: logger, metrics: metrics}
}

// NextRegistrationOrder returns the next order, creating the counter row
// on first use. Every failure is an internal error.
func (a *Allocator) NextRegistrationOrder(ctx context.Context) (int64, error) {
	return observability.TimeOperationResult(a.logger, a.metrics, "allocate_registration_order", func() (int64, error) {
		counter, err := a.ensureCounter(ctx)
		if err != nil {
			return 0, err
		}

		order, err := a.counters.Increment(ctx, counter.ID)
		if err != nil {
			return 0, sharedDomain.Internal(opAllocate, 0, err)
		}

		a.metrics.Counter(observability.MetricRegistrationOrdersAllocated, 1)
		a.logger.InfoContext(ctx, "registration order allocated", "registration_order", order)
		return order, nil
	})
}

func (a *Allocator) ensureCounter(ctx context.Context) (*domain.RegistrationCounter, error) {
	counter, err := a.counters.Get(ctx)
	if err != nil {
		return nil, sharedDomain.Internal(opAllocate, 0, err)
	}
	if counter != nil {
		return counter, nil
	}

	// Another caller may create the row between our read and insert.
	if err := a.counters.Init(ctx, domain.RegistrationCounterID); err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, sharedDomain.Internal(opAllocate, 0, err)
		}
		a.logger.DebugContext(ctx, "registration counter created concurrently")
	}

	counter, err = a.counters.Get(ctx)
	if err != nil {
		return nil, sharedDomain.Internal(opAllocate, 0, err)
	}
	if counter == nil {
		return nil, sharedDomain.Internal(opAllocate, 0, ErrCounterUnavailable)
	}
	return counter, nil
}
