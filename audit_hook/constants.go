package audithook

// Action constants for audit events.
const (
	// Advance actions
	ActionAdvanceIssued = "advance.issued"
	ActionAdvanceRepaid = "advance.repaid"

	// Yield actions
	ActionYieldApplied = "yield.applied"

	// Collateral actions
	ActionCollateralWithdrawn = "collateral.withdrawn"

	// Revenue actions
	ActionRevenueClaimed = "revenue.claimed"

	// Failures
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceAccount   = "account"
	ResourceAggregate = "aggregate"
)

// Category constants for audit events.
const (
	CategoryCredit     = "credit"
	CategoryYield      = "yield"
	CategoryCollateral = "collateral"
	CategoryRevenue    = "revenue"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
