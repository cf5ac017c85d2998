// Package kafkahook publishes committed ledger events to a Kafka topic.
//
// Messages are JSON, keyed by tenant/token/account so that every event of an
// account lands on the same partition in commit order.
package kafkahook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/holiman/uint256"
	"github.com/segmentio/kafka-go"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/plugin"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "yieldledger.events"

var (
	_ plugin.Plugin                = (*Hook)(nil)
	_ plugin.OnShutdown            = (*Hook)(nil)
	_ plugin.OnAdvanceIssued       = (*Hook)(nil)
	_ plugin.OnYieldApplied        = (*Hook)(nil)
	_ plugin.OnAdvanceRepaid       = (*Hook)(nil)
	_ plugin.OnCollateralWithdrawn = (*Hook)(nil)
	_ plugin.OnRevenueClaimed      = (*Hook)(nil)
)

// Writer is the subset of *kafka.Writer the hook uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON body of a published event. Amounts are decimal
// strings in token units.
type Message struct {
	ID         string            `json:"id"`
	Kind       event.Kind        `json:"kind"`
	TenantID   string            `json:"tenant_id"`
	Account    string            `json:"account,omitempty"`
	Token      string            `json:"token"`
	OccurredAt time.Time         `json:"occurred_at"`
	Amounts    map[string]string `json:"amounts"`
	Flags      map[string]bool   `json:"flags,omitempty"`
}

// Hook is a plugin that writes every event it receives to Kafka.
type Hook struct {
	w      Writer
	logger *slog.Logger
}

// Option configures a Hook.
type Option func(*Hook)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hook) { h.logger = l }
}

// New wraps an existing writer.
func New(w Writer, opts ...Option) *Hook {
	h := &Hook{w: w, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewWriter builds a *kafka.Writer for brokers and topic, balancing by key.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// Name implements plugin.Plugin.
func (h *Hook) Name() string { return "kafka-hook" }

// OnShutdown implements plugin.OnShutdown and closes the writer.
func (h *Hook) OnShutdown(_ context.Context) error {
	return h.w.Close()
}

// OnAdvanceIssued implements plugin.OnAdvanceIssued.
func (h *Hook) OnAdvanceIssued(ctx context.Context, e *event.AdvanceIssued) error {
	return h.publish(ctx, e, map[string]*uint256.Int{
		"index":             e.Index,
		"collateral":        e.Collateral,
		"advance":           e.Advance,
		"fee":               e.Fee,
		"advance_with_fee":  e.AdvanceWithFee,
		"debt":              e.Debt,
		"net":               e.Net,
		"collateral_shares": e.CollateralShares,
		"revenue_shares":    e.RevenueShares,
	}, nil)
}

// OnYieldApplied implements plugin.OnYieldApplied.
func (h *Hook) OnYieldApplied(ctx context.Context, e *event.YieldApplied) error {
	return h.publish(ctx, e, map[string]*uint256.Int{
		"index":      e.Index,
		"tracked":    e.Tracked,
		"applied":    e.Applied,
		"debt_after": e.DebtAfter,
	}, nil)
}

// OnAdvanceRepaid implements plugin.OnAdvanceRepaid.
func (h *Hook) OnAdvanceRepaid(ctx context.Context, e *event.AdvanceRepaid) error {
	return h.publish(ctx, e, map[string]*uint256.Int{
		"amount":     e.Amount,
		"debt_after": e.DebtAfter,
	}, nil)
}

// OnCollateralWithdrawn implements plugin.OnCollateralWithdrawn.
func (h *Hook) OnCollateralWithdrawn(ctx context.Context, e *event.CollateralWithdrawn) error {
	return h.publish(ctx, e, map[string]*uint256.Int{
		"index":           e.Index,
		"collateral":      e.Collateral,
		"shares":          e.Shares,
		"residual_shares": e.ResidualShares,
	}, map[string]bool{"residual_to_revenue": e.ResidualToRevenue})
}

// OnRevenueClaimed implements plugin.OnRevenueClaimed.
func (h *Hook) OnRevenueClaimed(ctx context.Context, e *event.RevenueClaimed) error {
	return h.publish(ctx, e, map[string]*uint256.Int{
		"index":  e.Index,
		"shares": e.Shares,
		"amount": e.Amount,
	}, map[string]bool{"as_value": e.AsValue})
}

// Key returns the partition key for an event.
func Key(e event.Event) []byte {
	m := e.EventMeta()
	return []byte(m.TenantID + "/" + m.Token + "/" + m.Account)
}

func (h *Hook) publish(ctx context.Context, e event.Event, amounts map[string]*uint256.Int, flags map[string]bool) error {
	meta := e.EventMeta()
	msg := Message{
		ID:         meta.ID.String(),
		Kind:       e.Kind(),
		TenantID:   meta.TenantID,
		Account:    meta.Account,
		Token:      meta.Token,
		OccurredAt: meta.OccurredAt,
		Amounts:    make(map[string]string, len(amounts)),
		Flags:      flags,
	}
	for k, v := range amounts {
		if v != nil {
			msg.Amounts[k] = fixedpoint.Format(v)
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafkahook: marshal %s: %w", e.Kind(), err)
	}

	err = h.w.WriteMessages(ctx, kafka.Message{
		Key:   Key(e),
		Value: data,
		Time:  meta.OccurredAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind())},
		},
	})
	if err != nil {
		return fmt.Errorf("kafkahook: publish %s %s: %w", e.Kind(), msg.ID, err)
	}
	h.logger.Debug("kafkahook: event published", "kind", e.Kind(), "id", msg.ID)
	return nil
}
