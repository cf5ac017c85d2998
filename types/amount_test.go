package types

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/fixedpoint"
)

func TestTokenAmountDisplay(t *testing.T) {
	tests := []struct {
		name    string
		amount  TokenAmount
		display string
	}{
		{"whole", Raw("ayUSD", 14), "14 ayUSD"},
		{"fraction", Amount("ayUSD", fixedpoint.MustParse("14500000000000000000000000000")), "14.5 ayUSD"},
		{"smallest unit", Amount("t", uint256.NewInt(1)), "0.000000000000000000000000001 t"},
		{"nil value", Amount("t", nil), "0 t"},
		{"zero struct", TokenAmount{Token: "t"}, "0 t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.amount.String(); got != tt.display {
				t.Errorf("String: got %s, want %s", got, tt.display)
			}
		})
	}
}

func TestTokenAmountArithmetic(t *testing.T) {
	sum, err := Raw("t", 100).Add(Raw("t", 20))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !sum.Equal(Raw("t", 120)) {
		t.Errorf("Add: got %s", sum)
	}

	diff, err := sum.Sub(Raw("t", 120))
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !diff.IsZero() {
		t.Errorf("Sub: got %s, want zero", diff)
	}

	if _, err := Raw("t", 1).Sub(Raw("t", 2)); err == nil {
		t.Error("expected underflow error")
	}
	if _, err := Raw("a", 1).Add(Raw("b", 1)); err == nil {
		t.Error("expected token mismatch error")
	}
}

func TestAmountCopiesValue(t *testing.T) {
	v := uint256.NewInt(7)
	a := Amount("t", v)
	v.SetUint64(0)
	if a.Value.Uint64() != 7 {
		t.Errorf("Amount aliased its input: got %d", a.Value.Uint64())
	}
}

func TestTokenAmountJSON(t *testing.T) {
	a := Amount("ayUSD", fixedpoint.MustParse("14500000000000000000000000000"))
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal map: %v", err)
	}
	if result["value"] != "14500000000000000000000000000" {
		t.Errorf("value: got %v", result["value"])
	}
	if result["display"] != "14.5" {
		t.Errorf("display: got %v", result["display"])
	}

	var back TokenAmount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(a) {
		t.Errorf("round trip: got %s, want %s", back, a)
	}
}

func TestEntityTouch(t *testing.T) {
	var zero Entity
	if !zero.IsZero() {
		t.Error("zero entity should report IsZero")
	}
	e := NewEntity()
	before := e.UpdatedAt
	e.Touch()
	if e.UpdatedAt.Before(before) {
		t.Error("Touch moved UpdatedAt backwards")
	}
	if e.IsZero() {
		t.Error("stamped entity reported IsZero")
	}
}
