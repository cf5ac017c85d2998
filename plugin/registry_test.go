package plugin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/id"
	"github.com/xraph/yieldledger/position"
)

type recorder struct {
	name string
	mu   sync.Mutex
	got  []string
	fail bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) record(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *recorder) OnAdvanceIssued(_ context.Context, e *event.AdvanceIssued) error {
	return r.record("advance:" + e.Account)
}

func (r *recorder) OnOperationFailed(_ context.Context, op string, _ position.Key, _ error) error {
	return r.record("failed:" + op)
}

type slow struct{}

func (slow) Name() string { return "slow" }
func (slow) OnShutdown(context.Context) error {
	time.Sleep(200 * time.Millisecond)
	return nil
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&recorder{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recorder{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 || r.Get("a") == nil || r.Get("b") != nil {
		t.Errorf("unexpected registry contents: %v", r.List())
	}
}

func TestEmitDispatchesToImplementers(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{name: "rec"}
	if err := r.Register(rec); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(slow{}); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	r.EmitAdvanceIssued(ctx, &event.AdvanceIssued{Meta: event.NewMeta(id.PrefixAdvance, "t1", "alice", "ayUSD")})
	r.EmitOperationFailed(ctx, "GetAdvance", position.Key{}, errors.New("x"))
	r.EmitRevenueClaimed(ctx, &event.RevenueClaimed{})

	want := []string{"advance:alice", "failed:GetAdvance"}
	if strings.Join(rec.got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", rec.got, want)
	}
}

func TestPluginErrorsAreLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry().WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := r.Register(&recorder{name: "bad", fail: true}); err != nil {
		t.Fatal(err)
	}

	r.EmitAdvanceIssued(context.Background(), &event.AdvanceIssued{})
	if !strings.Contains(buf.String(), "plugin OnAdvanceIssued failed") {
		t.Errorf("expected warning in log, got %q", buf.String())
	}
}

func TestSlowPluginTimesOut(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry().
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))).
		WithTimeout(10 * time.Millisecond)
	if err := r.Register(slow{}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	r.EmitShutdown(context.Background())
	if time.Since(start) > 150*time.Millisecond {
		t.Errorf("EmitShutdown blocked for %s", time.Since(start))
	}
	if !strings.Contains(buf.String(), "plugin timeout: slow") {
		t.Errorf("expected timeout warning, got %q", buf.String())
	}
}
