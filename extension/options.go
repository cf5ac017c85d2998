package extension

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/yieldledger"
	"github.com/xraph/yieldledger/oracle"
	"github.com/xraph/yieldledger/plugin"
	"github.com/xraph/yieldledger/store"
)

// Option configures the yieldledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithOracle sets the index oracle. It is required.
func WithOracle(o oracle.Oracle) Option {
	return func(e *Extension) {
		e.oracle = o
	}
}

// WithLedgerOption passes a yieldledger.Option through to the underlying engine.
func WithLedgerOption(opt yieldledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, yieldledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithDebtPolicy sets the debt policy by name.
func WithDebtPolicy(name string) Option {
	return func(e *Extension) { e.config.DebtPolicy = name }
}

// WithResidualPolicy sets the residual policy by name.
func WithResidualPolicy(name string) Option {
	return func(e *Extension) { e.config.ResidualPolicy = name }
}

// WithRevenueClaimMode sets the revenue claim mode by name.
func WithRevenueClaimMode(name string) Option {
	return func(e *Extension) { e.config.RevenueClaimMode = name }
}

// WithFeeBasePercent sets the flat part of the advance fee.
func WithFeeBasePercent(p uint64) Option {
	return func(e *Extension) { e.config.FeeBasePercent = &p }
}

// WithKafka enables event publishing to brokers.
func WithKafka(brokers []string, topic string) Option {
	return func(e *Extension) {
		e.config.KafkaBrokers = brokers
		e.config.KafkaTopic = topic
	}
}

// WithMetrics enables the metrics plugin on reg. A nil reg uses the
// Prometheus default registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Extension) {
		e.config.EnableMetrics = true
		e.registerer = reg
	}
}
