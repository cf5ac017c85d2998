package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/position"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook lists are cached per interface at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	onInit                []OnInit
	onShutdown            []OnShutdown
	onAdvanceIssued       []OnAdvanceIssued
	onYieldApplied        []OnYieldApplied
	onAdvanceRepaid       []OnAdvanceRepaid
	onCollateralWithdrawn []OnCollateralWithdrawn
	onRevenueClaimed      []OnRevenueClaimed
	onOperationFailed     []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	var hooks []string
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		hooks = append(hooks, "OnInit")
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		hooks = append(hooks, "OnShutdown")
	}
	if v, ok := p.(OnAdvanceIssued); ok {
		r.onAdvanceIssued = append(r.onAdvanceIssued, v)
		hooks = append(hooks, "OnAdvanceIssued")
	}
	if v, ok := p.(OnYieldApplied); ok {
		r.onYieldApplied = append(r.onYieldApplied, v)
		hooks = append(hooks, "OnYieldApplied")
	}
	if v, ok := p.(OnAdvanceRepaid); ok {
		r.onAdvanceRepaid = append(r.onAdvanceRepaid, v)
		hooks = append(hooks, "OnAdvanceRepaid")
	}
	if v, ok := p.(OnCollateralWithdrawn); ok {
		r.onCollateralWithdrawn = append(r.onCollateralWithdrawn, v)
		hooks = append(hooks, "OnCollateralWithdrawn")
	}
	if v, ok := p.(OnRevenueClaimed); ok {
		r.onRevenueClaimed = append(r.onRevenueClaimed, v)
		hooks = append(hooks, "OnRevenueClaimed")
	}
	if v, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, v)
		hooks = append(hooks, "OnOperationFailed")
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	emit(ctx, r, "OnInit", plugins, func(p OnInit) error { return p.OnInit(ctx, ledger) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	emit(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitAdvanceIssued emits an advance issued event.
func (r *Registry) EmitAdvanceIssued(ctx context.Context, e *event.AdvanceIssued) {
	r.mu.RLock()
	plugins := r.onAdvanceIssued
	r.mu.RUnlock()

	emit(ctx, r, "OnAdvanceIssued", plugins, func(p OnAdvanceIssued) error { return p.OnAdvanceIssued(ctx, e) })
}

// EmitYieldApplied emits a yield applied event.
func (r *Registry) EmitYieldApplied(ctx context.Context, e *event.YieldApplied) {
	r.mu.RLock()
	plugins := r.onYieldApplied
	r.mu.RUnlock()

	emit(ctx, r, "OnYieldApplied", plugins, func(p OnYieldApplied) error { return p.OnYieldApplied(ctx, e) })
}

// EmitAdvanceRepaid emits an advance repaid event.
func (r *Registry) EmitAdvanceRepaid(ctx context.Context, e *event.AdvanceRepaid) {
	r.mu.RLock()
	plugins := r.onAdvanceRepaid
	r.mu.RUnlock()

	emit(ctx, r, "OnAdvanceRepaid", plugins, func(p OnAdvanceRepaid) error { return p.OnAdvanceRepaid(ctx, e) })
}

// EmitCollateralWithdrawn emits a collateral withdrawn event.
func (r *Registry) EmitCollateralWithdrawn(ctx context.Context, e *event.CollateralWithdrawn) {
	r.mu.RLock()
	plugins := r.onCollateralWithdrawn
	r.mu.RUnlock()

	emit(ctx, r, "OnCollateralWithdrawn", plugins, func(p OnCollateralWithdrawn) error {
		return p.OnCollateralWithdrawn(ctx, e)
	})
}

// EmitRevenueClaimed emits a revenue claimed event.
func (r *Registry) EmitRevenueClaimed(ctx context.Context, e *event.RevenueClaimed) {
	r.mu.RLock()
	plugins := r.onRevenueClaimed
	r.mu.RUnlock()

	emit(ctx, r, "OnRevenueClaimed", plugins, func(p OnRevenueClaimed) error { return p.OnRevenueClaimed(ctx, e) })
}

// EmitOperationFailed reports a failed operation.
func (r *Registry) EmitOperationFailed(ctx context.Context, op string, key position.Key, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationFailed
	r.mu.RUnlock()

	emit(ctx, r, "OnOperationFailed", plugins, func(p OnOperationFailed) error {
		return p.OnOperationFailed(ctx, op, key, opErr)
	})
}

func emit[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, call func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return call(p)
		}); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// A slow plugin must never stall a ledger operation.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
