package extension

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/yieldledger"
	"github.com/xraph/yieldledger/oracle"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{ResidualPolicy: "to_revenue"})

	assert.Equal(t, "gross_advance", cfg.DebtPolicy)
	assert.Equal(t, "to_revenue", cfg.ResidualPolicy)
	assert.Equal(t, "shares", cfg.RevenueClaimMode)
	require.NotNil(t, cfg.FeeBasePercent)
	assert.Equal(t, uint64(10), *cfg.FeeBasePercent)
	assert.Equal(t, "yieldledger.events", cfg.KafkaTopic)
}

func TestMergeKeepsExplicitZeroFee(t *testing.T) {
	zero := uint64(0)
	cfg := mergeWithDefaults(Config{FeeBasePercent: &zero})
	assert.Equal(t, uint64(0), *cfg.FeeBasePercent)
}

func TestMergeConfigurationsYAMLWins(t *testing.T) {
	five := uint64(5)
	yamlCfg := Config{DebtPolicy: "advance_plus_fee"}
	prog := Config{
		DebtPolicy:       "gross_advance",
		RevenueClaimMode: "value",
		FeeBasePercent:   &five,
		DisableMigrate:   true,
	}

	cfg := mergeConfigurations(yamlCfg, prog)
	assert.Equal(t, "advance_plus_fee", cfg.DebtPolicy)
	assert.Equal(t, "value", cfg.RevenueClaimMode)
	assert.Equal(t, "discard", cfg.ResidualPolicy)
	assert.Equal(t, uint64(5), *cfg.FeeBasePercent)
	assert.True(t, cfg.DisableMigrate)
}

func TestLoadConfigFileReportsBindError(t *testing.T) {
	decodeErr := errors.New("enable_metrics: cannot decode string into bool")
	set := map[string]bool{"extensions.yieldledger": true, "yieldledger": true}
	bind := func(key string, cfg *Config) error {
		if key == "extensions.yieldledger" {
			return decodeErr
		}
		cfg.DebtPolicy = "advance_plus_fee"
		return nil
	}

	failed := map[string]error{}
	cfg, key, ok := loadConfigFile(
		func(key string) bool { return set[key] },
		bind,
		func(key string, err error) { failed[key] = err },
	)

	require.True(t, ok)
	assert.Equal(t, "yieldledger", key)
	assert.Equal(t, "advance_plus_fee", cfg.DebtPolicy)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed["extensions.yieldledger"], decodeErr)
}

func TestLoadConfigFileUnset(t *testing.T) {
	_, _, ok := loadConfigFile(
		func(string) bool { return false },
		func(string, *Config) error { t.Fatal("bind called for unset key"); return nil },
		func(string, error) { t.Fatal("unexpected bind error") },
	)
	assert.False(t, ok)
}

func TestBuildLedgerOptsRejectsUnknownPolicy(t *testing.T) {
	e := New(WithOracle(oracle.NewStatic()), WithDebtPolicy("forgive"))
	e.config = mergeWithDefaults(e.config)

	_, err := e.buildLedgerOpts()
	require.Error(t, err)
	assert.ErrorIs(t, err, yieldledger.ErrInvalidInput)
}

func TestBuildLedgerOptsWiresPlugins(t *testing.T) {
	e := New(
		WithOracle(oracle.NewStatic()),
		WithKafka([]string{"localhost:9092"}, ""),
		WithMetrics(prometheus.NewRegistry()),
		WithDisableMigrate(),
	)
	e.config = mergeWithDefaults(e.config)

	opts, err := e.buildLedgerOpts()
	require.NoError(t, err)

	l := yieldledger.New(nil, oracle.NewStatic(), opts...)
	assert.Equal(t, 2, l.Plugins().Count())
	names := make([]string, 0, 2)
	for _, p := range l.Plugins().List() {
		names = append(names, p.Name())
	}
	assert.ElementsMatch(t, []string{"kafka-hook", "observability-metrics"}, names)
}
