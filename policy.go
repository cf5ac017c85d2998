package yieldledger

import "fmt"

// DebtPolicy decides how the origination fee relates to recorded debt.
type DebtPolicy int

const (
	// DebtGrossAdvance records the requested advance as debt and withholds
	// the fee from the amount disbursed.
	DebtGrossAdvance DebtPolicy = iota
	// DebtAdvancePlusFee records advance + fee as debt and disburses the full
	// requested advance.
	DebtAdvancePlusFee
)

func (p DebtPolicy) String() string {
	switch p {
	case DebtGrossAdvance:
		return "gross_advance"
	case DebtAdvancePlusFee:
		return "advance_plus_fee"
	default:
		return fmt.Sprintf("DebtPolicy(%d)", int(p))
	}
}

// ParseDebtPolicy parses the String form. Empty means the default.
func ParseDebtPolicy(s string) (DebtPolicy, error) {
	switch s {
	case "", "gross_advance":
		return DebtGrossAdvance, nil
	case "advance_plus_fee":
		return DebtAdvancePlusFee, nil
	}
	return 0, ValidationError{Field: "debt_policy", Message: fmt.Sprintf("unknown policy %q", s)}
}

// ResidualPolicy decides what happens to share value above cost basis when
// collateral is withdrawn.
type ResidualPolicy int

const (
	// ResidualDiscard drops the residual; only cost basis is released.
	ResidualDiscard ResidualPolicy = iota
	// ResidualToRevenue moves the residual shares into the tenant's revenue pool.
	ResidualToRevenue
)

func (p ResidualPolicy) String() string {
	switch p {
	case ResidualDiscard:
		return "discard"
	case ResidualToRevenue:
		return "to_revenue"
	default:
		return fmt.Sprintf("ResidualPolicy(%d)", int(p))
	}
}

// ParseResidualPolicy parses the String form. Empty means the default.
func ParseResidualPolicy(s string) (ResidualPolicy, error) {
	switch s {
	case "", "discard":
		return ResidualDiscard, nil
	case "to_revenue":
		return ResidualToRevenue, nil
	}
	return 0, ValidationError{Field: "residual_policy", Message: fmt.Sprintf("unknown policy %q", s)}
}

// RevenueClaimMode decides what ClaimRevenue returns.
type RevenueClaimMode int

const (
	// ClaimShares returns the share count.
	ClaimShares RevenueClaimMode = iota
	// ClaimValue returns the shares' value at the current index, rounded down.
	ClaimValue
)

func (m RevenueClaimMode) String() string {
	switch m {
	case ClaimShares:
		return "shares"
	case ClaimValue:
		return "value"
	default:
		return fmt.Sprintf("RevenueClaimMode(%d)", int(m))
	}
}

// ParseRevenueClaimMode parses the String form. Empty means the default.
func ParseRevenueClaimMode(s string) (RevenueClaimMode, error) {
	switch s {
	case "", "shares":
		return ClaimShares, nil
	case "value":
		return ClaimValue, nil
	}
	return 0, ValidationError{Field: "revenue_claim_mode", Message: fmt.Sprintf("unknown mode %q", s)}
}
