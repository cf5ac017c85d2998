package yieldledger

import (
	"github.com/xraph/yieldledger/position"
	"github.com/xraph/yieldledger/types"
)

// Re-export common types so callers don't have to import the sub-packages.

// TokenAmount is re-exported from types package.
type TokenAmount = types.TokenAmount

// Entity is re-exported from types package.
type Entity = types.Entity

// Account is re-exported from position package.
type Account = position.Account

// Aggregate is re-exported from position package.
type Aggregate = position.Aggregate

// Key is re-exported from position package.
type Key = position.Key

// ListOpts is re-exported from position package.
type ListOpts = position.ListOpts

var (
	// Amount wraps a scaled value as a TokenAmount.
	Amount = types.Amount
	// Raw lifts whole tokens into a TokenAmount.
	Raw = types.Raw
)
