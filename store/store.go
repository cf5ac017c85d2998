// Package store defines the persistence contract for ledger balances.
package store

import (
	"context"

	"github.com/xraph/yieldledger/position"
)

// Store persists account and aggregate rows.
//
// Get methods return copies; mutating them has no effect until Commit.
// Missing rows yield yieldledger.ErrAccountNotFound or
// yieldledger.ErrAggregateNotFound.
type Store interface {
	// Balance methods
	GetAccount(ctx context.Context, key position.Key) (*position.Account, error)
	GetAggregate(ctx context.Context, key position.Key) (*position.Aggregate, error)
	ListAccounts(ctx context.Context, aggregate position.Key, opts position.ListOpts) ([]*position.Account, error)

	// Commit upserts the aggregate and, when non-nil, the account in one
	// atomic step. Either both rows are written or neither is.
	Commit(ctx context.Context, account *position.Account, aggregate *position.Aggregate) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
