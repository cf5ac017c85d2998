package yieldledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/id"
	"github.com/xraph/yieldledger/oracle"
	"github.com/xraph/yieldledger/position"
)

// txn is the working state of one mutating operation. It holds clones of the
// stored rows; nothing reaches the store until the operation returns nil and
// the rows actually changed.
type txn struct {
	ctx  context.Context
	l    *Ledger
	key  position.Key
	book *position.Book

	idx       *uint256.Int
	committed []func(ctx context.Context)
	logAttrs  []any
	logMsg    string
}

// mutate loads the rows for (tenant, account, token), runs fn against them
// under the (tenant, token) lock, and commits once.
func (l *Ledger) mutate(ctx context.Context, op, account, token string, fn func(tx *txn) error) error {
	key, err := accountKey(ctx, account, token)
	if err != nil {
		return err
	}

	unlock := l.locks.lock(key.Aggregate().String())
	emits, err := l.mutateLocked(ctx, key, fn)
	unlock()

	if err != nil {
		l.plugins.EmitOperationFailed(ctx, op, key, err)
		return err
	}
	for _, emit := range emits {
		emit(ctx)
	}
	return nil
}

func (l *Ledger) mutateLocked(ctx context.Context, key position.Key, fn func(tx *txn) error) ([]func(context.Context), error) {
	account, err := l.store.GetAccount(ctx, key)
	if errors.Is(err, ErrAccountNotFound) {
		account = position.NewAccount(key)
	} else if err != nil {
		return nil, fmt.Errorf("load account %s: %w", key, err)
	}
	aggregate, err := l.store.GetAggregate(ctx, key.Aggregate())
	if errors.Is(err, ErrAggregateNotFound) {
		aggregate = position.NewAggregate(key.Aggregate())
	} else if err != nil {
		return nil, fmt.Errorf("load aggregate %s: %w", key.Aggregate(), err)
	}

	book, err := position.NewBook(account.Clone(), aggregate.Clone())
	if err != nil {
		return nil, err
	}
	tx := &txn{ctx: ctx, l: l, key: key, book: book}
	if err := fn(tx); err != nil {
		return nil, err
	}

	if book.Account.Equal(account) && book.Aggregate.Equal(aggregate) {
		return nil, nil
	}
	book.Account.Touch()
	book.Aggregate.Touch()
	if err := l.store.Commit(ctx, book.Account, book.Aggregate); err != nil {
		return nil, fmt.Errorf("commit %s: %w", key, err)
	}

	if tx.logMsg != "" {
		attrs := append([]any{
			"tenant_id", key.TenantID,
			"account", key.Account,
			"token", key.Token,
		}, tx.logAttrs...)
		l.logger.Debug(tx.logMsg, attrs...)
	}
	return tx.committed, nil
}

// index reads the oracle once per operation.
func (tx *txn) index() (*uint256.Int, error) {
	if tx.idx != nil {
		return tx.idx, nil
	}
	idx, err := oracle.Read(tx.ctx, tx.l.oracle, tx.key.Token)
	if err != nil {
		return nil, fmt.Errorf("read index for %s: %w", tx.key.Token, err)
	}
	tx.idx = idx
	return idx, nil
}

// settle is the yield prelude: observe fresh yield and spend it on debt.
func (tx *txn) settle() error {
	index, err := tx.index()
	if err != nil {
		return err
	}
	tracked, applied, err := tx.book.Settle(index)
	if err != nil {
		return err
	}
	if tracked.IsZero() {
		return nil
	}

	e := &event.YieldApplied{
		Meta:      tx.meta(id.PrefixYield),
		Index:     index,
		Tracked:   tracked,
		Applied:   applied,
		DebtAfter: new(uint256.Int).Set(tx.book.Account.Debt),
	}
	tx.onCommit(func(ctx context.Context) { tx.l.plugins.EmitYieldApplied(ctx, e) })
	tx.log("yield applied", "tracked", fixedpoint.Format(tracked), "applied", fixedpoint.Format(applied))
	return nil
}

func (tx *txn) meta(prefix id.Prefix) event.Meta {
	return event.NewMeta(prefix, tx.key.TenantID, tx.key.Account, tx.key.Token)
}

// onCommit queues fn to run after a successful commit.
func (tx *txn) onCommit(fn func(ctx context.Context)) {
	tx.committed = append(tx.committed, fn)
}

// log records the debug line written after commit. Later calls win the
// message and append their attributes.
func (tx *txn) log(msg string, attrs ...any) {
	tx.logMsg = msg
	tx.logAttrs = append(tx.logAttrs, attrs...)
}
