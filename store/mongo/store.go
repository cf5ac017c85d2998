package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/yieldledger"
	"github.com/xraph/yieldledger/position"
	ledgerstore "github.com/xraph/yieldledger/store"
)

// Collection name constants.
const (
	colBalances = "yieldledger_balances"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Commit runs in a multi-document transaction, so the server must be a
// replica set or sharded cluster.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("yieldledger/mongo: migrate %s indexes: %w", col, err)
		}
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
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, yieldledger.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(&m)
}

func (s *Store) GetAggregate(ctx context.Context, key position.Key) (*position.Aggregate, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key.Aggregate().String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, yieldledger.ErrAggregateNotFound
		}
		return nil, err
	}
	return fromAggregateModel(&m)
}

func (s *Store) ListAccounts(ctx context.Context, aggregate position.Key, opts position.ListOpts) ([]*position.Account, error) {
	var models []balanceModel
	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"tenant_id": aggregate.TenantID,
			"token":     aggregate.Token,
			"account":   bson.M{"$ne": ""},
		}).
		Sort(bson.D{{Key: "account", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

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

// Commit upserts both documents inside one session transaction.
func (s *Store) Commit(ctx context.Context, account *position.Account, aggregate *position.Aggregate) error {
	models := make([]balanceModel, 0, 2)
	if account != nil {
		models = append(models, toAccountModel(account))
	}
	models = append(models, toAggregateModel(aggregate))

	col := s.mdb.Collection(colBalances)
	sess, err := col.Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("yieldledger/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		for i := range models {
			m := &models[i]
			_, err := col.UpdateOne(ctx,
				bson.M{"_id": m.BalanceKey},
				bson.M{
					"$set": bson.M{
						"tenant_id":         m.TenantID,
						"token":             m.Token,
						"account":           m.Account,
						"collateral_shares": m.CollateralShares,
						"collateral":        m.Collateral,
						"debt":              m.Debt,
						"yield":             m.Yield,
						"yield_observed":    m.YieldObserved,
						"revenue_shares":    m.RevenueShares,
						"updated_at":        m.UpdatedAt,
					},
					"$setOnInsert": bson.M{"created_at": m.CreatedAt},
				},
				options.UpdateOne().SetUpsert(true),
			)
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("yieldledger/mongo: commit %s: %w", aggregate.Key(), err)
	}
	return nil
}

// ==================== Helpers ====================

// migrationIndexes returns the index definitions for all ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colBalances: {
			{
				Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "token", Value: 1}, {Key: "account", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
