package database

import (
	"context"
	"errors"
	"sync"
)

// ErrNoTransaction is returned by Commit and Rollback outside Begin.
var ErrNoTransaction = errors.New("no transaction in context")

type txKey struct{}

// TxInfo is the transaction carried in a context and whether the unit of
// work that placed it there is responsible for finishing it.
type TxInfo struct {
	Tx    Transaction
	Owned bool

	hooks *commitHooks
}

// commitHooks is shared by every unit joined to one transaction.
type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

func (h *commitHooks) add(fn func(context.Context)) {
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *commitHooks) take() []func(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fns := h.fns
	h.fns = nil
	return fns
}

// WithTx stores transaction info in the context.
func WithTx(ctx context.Context, tx Transaction, owned bool) context.Context {
	return context.WithValue(ctx, txKey{}, TxInfo{Tx: tx, Owned: owned, hooks: &commitHooks{}})
}

// AfterCommit defers fn until the transaction in ctx commits. It is
// dropped on rollback. Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	info, ok := TxInfoFromContext(ctx)
	if !ok || info.hooks == nil {
		fn(ctx)
		return
	}
	info.hooks.add(fn)
}

// TxInfoFromContext extracts transaction info from the context.
func TxInfoFromContext(ctx context.Context) (TxInfo, bool) {
	info, ok := ctx.Value(txKey{}).(TxInfo)
	if !ok || info.Tx == nil {
		return TxInfo{}, false
	}
	return info, true
}

// ExecutorFromContext returns the transaction in ctx, or conn when there is none.
func ExecutorFromContext(ctx context.Context, conn Connection) Executor {
	if info, ok := TxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return conn
}

// UnitOfWork implements application.UnitOfWork on top of a Connection.
// Begin inside an existing unit joins it; only the outermost unit commits.
type UnitOfWork struct {
	conn Connection
}

// NewUnitOfWork creates a UnitOfWork.
func NewUnitOfWork(conn Connection) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Begin starts or joins a transaction.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if info, ok := TxInfoFromContext(ctx); ok {
		info.Owned = false
		return context.WithValue(ctx, txKey{}, info), nil
	}

	tx, err := u.conn.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return WithTx(ctx, tx, true), nil
}

// Commit commits the transaction if this unit owns it, then runs the
// hooks registered with AfterCommit outside the transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if !info.Owned {
		return nil
	}
	if err := info.Tx.Commit(ctx); err != nil {
		if info.hooks != nil {
			info.hooks.take()
		}
		return err
	}
	if info.hooks != nil {
		outside := context.WithValue(ctx, txKey{}, TxInfo{})
		for _, fn := range info.hooks.take() {
			fn(outside)
		}
	}
	return nil
}

// Rollback rolls back the transaction if this unit owns it.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	info, ok := TxInfoFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if !info.Owned {
		return nil
	}
	if info.hooks != nil {
		info.hooks.take()
	}
	return info.Tx.Rollback(ctx)
}
