package extension

// Config holds the yieldledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.yieldledger" or "yieldledger" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DebtPolicy is "gross_advance" (default) or "advance_plus_fee".
	DebtPolicy string `json:"debt_policy" mapstructure:"debt_policy" yaml:"debt_policy"`

	// ResidualPolicy is "discard" (default) or "to_revenue".
	ResidualPolicy string `json:"residual_policy" mapstructure:"residual_policy" yaml:"residual_policy"`

	// RevenueClaimMode is "shares" (default) or "value".
	RevenueClaimMode string `json:"revenue_claim_mode" mapstructure:"revenue_claim_mode" yaml:"revenue_claim_mode"`

	// FeeBasePercent is the flat part of the advance fee (default: 10).
	// Nil means the default; zero is a valid schedule.
	FeeBasePercent *uint64 `json:"fee_base_percent" mapstructure:"fee_base_percent" yaml:"fee_base_percent"`

	// KafkaBrokers enables the Kafka event hook when non-empty.
	KafkaBrokers []string `json:"kafka_brokers" mapstructure:"kafka_brokers" yaml:"kafka_brokers"`

	// KafkaTopic is the topic events are published to (default: "yieldledger.events").
	KafkaTopic string `json:"kafka_topic" mapstructure:"kafka_topic" yaml:"kafka_topic"`

	// EnableMetrics registers the Prometheus metrics plugin.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	base := uint64(10)
	return Config{
		DebtPolicy:       "gross_advance",
		ResidualPolicy:   "discard",
		RevenueClaimMode: "shares",
		FeeBasePercent:   &base,
		KafkaTopic:       "yieldledger.events",
	}
}
