package yieldledger

import (
	"errors"
	"fmt"

	"github.com/xraph/yieldledger/fee"
	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/oracle"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput  = errors.New("yieldledger: invalid input")
	ErrMissingTenant = errors.New("yieldledger: no tenant in context")

	// Row errors
	ErrAccountNotFound   = errors.New("yieldledger: account not found")
	ErrAggregateNotFound = errors.New("yieldledger: aggregate not found")

	// Business rule errors
	ErrRepayAdvanceToWithdraw = errors.New("yieldledger: repay advance to withdraw")
	ErrNoRevenueToClaim       = errors.New("yieldledger: no revenue to claim")

	// Audit errors
	ErrAggregateDrift = errors.New("yieldledger: aggregate does not match account rows")

	// Store errors
	ErrStoreClosed     = errors.New("yieldledger: store is closed")
	ErrMigrationFailed = errors.New("yieldledger: migration failed")
)

// Errors raised by the math, oracle and fee layers, re-exported so callers
// only need this package for errors.Is checks.
var (
	ErrOverflow          = fixedpoint.ErrOverflow
	ErrDivisionByZero    = fixedpoint.ErrDivisionByZero
	ErrInvalidIndex      = oracle.ErrInvalidIndex
	ErrZeroCollateral    = fee.ErrZeroCollateral
	ErrFeeExceedsAdvance = fee.ErrFeeExceedsAdvance
)

// ValidationError represents a validation failure with details.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("yieldledger: validation failed for %s: %s", e.Field, e.Message)
}

// Is reports ErrInvalidInput as a match.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsNotFound returns true if the error is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAggregateNotFound)
}

// IsBusinessRule returns true for expected, caller-recoverable rejections.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrRepayAdvanceToWithdraw) ||
		errors.Is(err, ErrNoRevenueToClaim) ||
		errors.Is(err, ErrFeeExceedsAdvance)
}

// IsArithmetic returns true if the error came from checked fixed-point math.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrOverflow) ||
		errors.Is(err, ErrDivisionByZero)
}
