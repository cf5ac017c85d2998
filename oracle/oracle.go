// Package oracle defines the index source the ledger converts shares with.
//
// An index is a RAY-scaled, monotonically non-decreasing conversion factor per
// yield-bearing token. It starts at 1.0 (fixedpoint.Scale) and only grows.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/fixedpoint"
)

var (
	// ErrInvalidIndex is returned when an oracle reports an index below 1.0.
	ErrInvalidIndex = errors.New("oracle: invalid index")

	// ErrUnknownToken is returned by Static for tokens it has no index for.
	ErrUnknownToken = errors.New("oracle: unknown token")
)

// Oracle supplies the current interest index for a token.
type Oracle interface {
	CurrentIndex(ctx context.Context, token string) (*uint256.Int, error)
}

// Func adapts a plain function to an Oracle.
type Func func(ctx context.Context, token string) (*uint256.Int, error)

// CurrentIndex implements Oracle.
func (f Func) CurrentIndex(ctx context.Context, token string) (*uint256.Int, error) {
	return f(ctx, token)
}

// Validate checks the index floor. A value below 1.0 is a collaborator fault
// and is never clamped.
func Validate(token string, index *uint256.Int) error {
	if index == nil {
		return fmt.Errorf("%w: %s: no index", ErrInvalidIndex, token)
	}
	if index.Lt(fixedpoint.Scale) {
		return fmt.Errorf("%w: %s: %s below 1.0", ErrInvalidIndex, token, fixedpoint.Format(index))
	}
	return nil
}

// Read fetches and validates the index for token. It returns a private copy.
func Read(ctx context.Context, o Oracle, token string) (*uint256.Int, error) {
	index, err := o.CurrentIndex(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := Validate(token, index); err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(index), nil
}

// ──────────────────────────────────────────────────
// Static
// ──────────────────────────────────────────────────

// Static is an in-memory oracle whose indexes are set explicitly.
type Static struct {
	mu      sync.RWMutex
	indexes map[string]*uint256.Int
}

// NewStatic creates an empty Static oracle.
func NewStatic() *Static {
	return &Static{indexes: make(map[string]*uint256.Int)}
}

// Set stores a copy of index for token. It does not validate; Read does. A
// nil index makes the token report ErrInvalidIndex.
func (s *Static) Set(token string, index *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index != nil {
		index = new(uint256.Int).Set(index)
	}
	s.indexes[token] = index
}

// SetRatio stores index = num/den for token, e.g. SetRatio("t", 3, 2) is 1.5.
func (s *Static) SetRatio(token string, num, den uint64) {
	index := new(uint256.Int).Mul(uint256.NewInt(num), fixedpoint.Scale)
	index.Div(index, uint256.NewInt(den))
	s.Set(token, index)
}

// CurrentIndex implements Oracle.
func (s *Static) CurrentIndex(_ context.Context, token string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index, ok := s.indexes[token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: %s: no index", ErrInvalidIndex, token)
	}
	return new(uint256.Int).Set(index), nil
}

// ──────────────────────────────────────────────────
// Guard
// ──────────────────────────────────────────────────

// Guard wraps an oracle and rejects an index lower than the highest one it has
// already served for the same token.
type Guard struct {
	next Oracle

	mu   sync.Mutex
	high map[string]uint256.Int
}

// NewGuard wraps next.
func NewGuard(next Oracle) *Guard {
	return &Guard{next: next, high: make(map[string]uint256.Int)}
}

// CurrentIndex implements Oracle.
func (g *Guard) CurrentIndex(ctx context.Context, token string) (*uint256.Int, error) {
	index, err := g.next.CurrentIndex(ctx, token)
	if err != nil {
		return nil, err
	}
	if index == nil {
		return nil, fmt.Errorf("%w: %s: no index", ErrInvalidIndex, token)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.high[token]; ok && index.Lt(&prev) {
		return nil, fmt.Errorf("%w: %s: regressed from %s to %s",
			ErrInvalidIndex, token, fixedpoint.Format(&prev), fixedpoint.Format(index))
	}
	g.high[token] = *index
	return index, nil
}
