// Package memory provides an in-process Store backed by maps. It is used in
// tests and by hosts that keep balances elsewhere.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/yieldledger"
	"github.com/xraph/yieldledger/position"
	"github.com/xraph/yieldledger/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	accounts   map[string]*position.Account
	aggregates map[string]*position.Aggregate
	closed     bool
}

func New() *Store {
	return &Store{
		accounts:   make(map[string]*position.Account),
		aggregates: make(map[string]*position.Aggregate),
	}
}

func (s *Store) GetAccount(_ context.Context, key position.Key) (*position.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, yieldledger.ErrStoreClosed
	}
	if a, ok := s.accounts[key.String()]; ok {
		return a.Clone(), nil
	}
	return nil, yieldledger.ErrAccountNotFound
}

func (s *Store) GetAggregate(_ context.Context, key position.Key) (*position.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, yieldledger.ErrStoreClosed
	}
	if g, ok := s.aggregates[key.Aggregate().String()]; ok {
		return g.Clone(), nil
	}
	return nil, yieldledger.ErrAggregateNotFound
}

func (s *Store) ListAccounts(_ context.Context, aggregate position.Key, opts position.ListOpts) ([]*position.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, yieldledger.ErrStoreClosed
	}

	result := make([]*position.Account, 0)
	for _, a := range s.accounts {
		if a.TenantID == aggregate.TenantID && a.Token == aggregate.Token {
			result = append(result, a.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) Commit(_ context.Context, account *position.Account, aggregate *position.Aggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return yieldledger.ErrStoreClosed
	}
	if account != nil {
		s.accounts[account.Key().String()] = account.Clone()
	}
	s.aggregates[aggregate.Key().String()] = aggregate.Clone()
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return yieldledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
