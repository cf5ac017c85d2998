package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/yieldledger"
	"github.com/xraph/yieldledger/position"
	ledgerstore "github.com/xraph/yieldledger/store"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("yieldledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("yieldledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Balance Store ====================

func (s *Store) GetAccount(ctx context.Context, key position.Key) (*position.Account, error) {
	m := new(balanceModel)
	err := s.sdb.NewSelect(m).
		Where("balance_key = ?", key.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, yieldledger.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) GetAggregate(ctx context.Context, key position.Key) (*position.Aggregate, error) {
	m := new(balanceModel)
	err := s.sdb.NewSelect(m).
		Where("balance_key = ?", key.Aggregate().String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, yieldledger.ErrAggregateNotFound
		}
		return nil, err
	}
	return fromAggregateModel(m)
}

func (s *Store) ListAccounts(ctx context.Context, aggregate position.Key, opts position.ListOpts) ([]*position.Account, error) {
	var models []balanceModel
	q := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", aggregate.TenantID).
		Where("token = ?", aggregate.Token).
		Where("account <> ''")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("account ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*position.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// Commit writes both rows in a single INSERT ... ON CONFLICT statement.
func (s *Store) Commit(ctx context.Context, account *position.Account, aggregate *position.Aggregate) error {
	models := make([]balanceModel, 0, 2)
	if account != nil {
		models = append(models, toAccountModel(account))
	}
	models = append(models, toAggregateModel(aggregate))

	_, err := s.sdb.NewInsert(&models).
		OnConflict("(balance_key) DO UPDATE").
		Set("collateral_shares = EXCLUDED.collateral_shares").
		Set("collateral = EXCLUDED.collateral").
		Set("debt = EXCLUDED.debt").
		Set("yield = EXCLUDED.yield").
		Set("yield_observed = EXCLUDED.yield_observed").
		Set("revenue_shares = EXCLUDED.revenue_shares").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("yieldledger/sqlite: commit %s: %w", aggregate.Key(), err)
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
