// Package extension provides the Forge extension adapter for yieldledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.yieldledger" or
// "yieldledger" keys.
package extension

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/yieldledger"
	"github.com/xraph/yieldledger/fee"
	"github.com/xraph/yieldledger/kafkahook"
	"github.com/xraph/yieldledger/observability"
	"github.com/xraph/yieldledger/oracle"
	"github.com/xraph/yieldledger/store"
	"github.com/xraph/yieldledger/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "yieldledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Self-repaying advances against yield-bearing collateral"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *yieldledger.Ledger
	store      store.Store
	oracle     oracle.Oracle
	registerer prometheus.Registerer
	ledgerOpts []yieldledger.Option
}

// New creates a new yieldledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *yieldledger.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.oracle == nil {
		return errors.New("yieldledger: an index oracle is required; use WithOracle")
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	e.engine = yieldledger.New(e.store, e.oracle, opts...)

	return vessel.Provide(fapp.Container(), func() (*yieldledger.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("yieldledger: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("yieldledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs yieldledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]yieldledger.Option, error) {
	opts := make([]yieldledger.Option, 0, len(e.ledgerOpts)+6)

	debt, err := yieldledger.ParseDebtPolicy(e.config.DebtPolicy)
	if err != nil {
		return nil, err
	}
	residual, err := yieldledger.ParseResidualPolicy(e.config.ResidualPolicy)
	if err != nil {
		return nil, err
	}
	claim, err := yieldledger.ParseRevenueClaimMode(e.config.RevenueClaimMode)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		yieldledger.WithDebtPolicy(debt),
		yieldledger.WithResidualPolicy(residual),
		yieldledger.WithRevenueClaimMode(claim),
	)

	if e.config.FeeBasePercent != nil {
		opts = append(opts, yieldledger.WithFeeSchedule(fee.Schedule{BasePercent: *e.config.FeeBasePercent}))
	}

	if e.config.DisableMigrate {
		opts = append(opts, yieldledger.WithoutMigrate())
	}

	if len(e.config.KafkaBrokers) > 0 {
		w := kafkahook.NewWriter(e.config.KafkaBrokers, e.config.KafkaTopic)
		opts = append(opts, yieldledger.WithPlugin(kafkahook.New(w)))
	}

	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(e.registerer)
		opts = append(opts, yieldledger.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("yieldledger: configuration is required but not found in config files; " +
				"ensure 'extensions.yieldledger' or 'yieldledger' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("yieldledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("debt_policy", e.config.DebtPolicy),
		forge.F("residual_policy", e.config.ResidualPolicy),
		forge.F("revenue_claim_mode", e.config.RevenueClaimMode),
		forge.F("fee_base_percent", *e.config.FeeBasePercent),
		forge.F("kafka_brokers", e.config.KafkaBrokers),
		forge.F("enable_metrics", e.config.EnableMetrics),
	)

	return nil
}

// configKeys are the config file keys tried in order, namespaced first.
var configKeys = []string{"extensions.yieldledger", "yieldledger"}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	cfg, key, ok := loadConfigFile(
		func(key string) bool { return cm.IsSet(key) },
		func(key string, cfg *Config) error { return cm.Bind(key, cfg) },
		func(key string, err error) {
			e.Logger().Warn("yieldledger: failed to bind config",
				forge.F("key", key),
				forge.F("error", err),
			)
		},
	)
	if ok {
		e.Logger().Debug("yieldledger: loaded config from file", forge.F("key", key))
	}
	return cfg, ok
}

// loadConfigFile binds the first configKeys entry that is set and binds
// cleanly. Bind failures are reported to onBindError and the next key is tried.
func loadConfigFile(isSet func(string) bool, bind func(string, *Config) error, onBindError func(string, error)) (Config, string, bool) {
	for _, key := range configKeys {
		if !isSet(key) {
			continue
		}
		var cfg Config
		if err := bind(key, &cfg); err != nil {
			onBindError(key, err)
			continue
		}
		return cfg, key, true
	}
	return Config{}, "", false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.DebtPolicy == "" {
		cfg.DebtPolicy = defaults.DebtPolicy
	}
	if cfg.ResidualPolicy == "" {
		cfg.ResidualPolicy = defaults.ResidualPolicy
	}
	if cfg.RevenueClaimMode == "" {
		cfg.RevenueClaimMode = defaults.RevenueClaimMode
	}
	if cfg.FeeBasePercent == nil {
		cfg.FeeBasePercent = defaults.FeeBasePercent
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = defaults.KafkaTopic
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.DebtPolicy == "" {
		yamlConfig.DebtPolicy = programmaticConfig.DebtPolicy
	}
	if yamlConfig.ResidualPolicy == "" {
		yamlConfig.ResidualPolicy = programmaticConfig.ResidualPolicy
	}
	if yamlConfig.RevenueClaimMode == "" {
		yamlConfig.RevenueClaimMode = programmaticConfig.RevenueClaimMode
	}
	if yamlConfig.KafkaTopic == "" {
		yamlConfig.KafkaTopic = programmaticConfig.KafkaTopic
	}
	if len(yamlConfig.KafkaBrokers) == 0 {
		yamlConfig.KafkaBrokers = programmaticConfig.KafkaBrokers
	}
	if yamlConfig.FeeBasePercent == nil {
		yamlConfig.FeeBasePercent = programmaticConfig.FeeBasePercent
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
