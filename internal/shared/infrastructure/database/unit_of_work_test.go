package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	Executor
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeConn struct {
	Executor
	tx *fakeTx
}

func (c *fakeConn) BeginTx(context.Context) (Transaction, error) { return c.tx, nil }
func (c *fakeConn) Close() error                                 { return nil }
func (c *fakeConn) Ping(context.Context) error                   { return nil }
func (c *fakeConn) Driver() Driver                               { return DriverSQLite }

func TestAfterCommit_RunsImmediatelyWithoutTransaction(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(context.Context) { ran = true })
	assert.True(t, ran)
}

func TestUnitOfWork_AfterCommitRunsOnlyAfterOuterCommit(t *testing.T) {
	tx := &fakeTx{}
	uow := NewUnitOfWork(&fakeConn{tx: tx})

	outer, err := uow.Begin(context.Background())
	require.NoError(t, err)
	inner, err := uow.Begin(outer)
	require.NoError(t, err)

	var committedWhenRun bool
	var inTxWhenRun bool
	calls := 0
	AfterCommit(inner, func(ctx context.Context) {
		calls++
		committedWhenRun = tx.committed
		_, inTxWhenRun = TxInfoFromContext(ctx)
	})

	require.NoError(t, uow.Commit(inner))
	assert.Zero(t, calls, "joined unit must not fire hooks")

	require.NoError(t, uow.Commit(outer))
	assert.Equal(t, 1, calls)
	assert.True(t, committedWhenRun)
	assert.False(t, inTxWhenRun)
}

func TestUnitOfWork_AfterCommitDroppedOnRollback(t *testing.T) {
	tx := &fakeTx{}
	uow := NewUnitOfWork(&fakeConn{tx: tx})

	ctx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	ran := false
	AfterCommit(ctx, func(context.Context) { ran = true })
	require.NoError(t, uow.Rollback(ctx))

	assert.True(t, tx.rolledBack)
	assert.False(t, ran)
}

func TestUnitOfWork_AfterCommitDroppedOnFailedCommit(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("serialization failure")}
	uow := NewUnitOfWork(&fakeConn{tx: tx})

	ctx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	ran := false
	AfterCommit(ctx, func(context.Context) { ran = true })

	assert.Error(t, uow.Commit(ctx))
	assert.False(t, ran)
}
