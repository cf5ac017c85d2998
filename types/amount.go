package types

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/xraph/yieldledger/fixedpoint"
)

// TokenAmount is a RAY-scaled quantity of a yield-bearing token.
// All arithmetic is integer-only and checked.
//
// Examples:
//   - Amount("ayUSD", fixedpoint.MustParse("14000000000000000000000000000")) = 14 ayUSD
//   - Raw("ayUSD", 14) = 14 ayUSD
type TokenAmount struct {
	Token string
	Value *uint256.Int
}

// Amount wraps an already-scaled value. A nil value is treated as zero.
func Amount(token string, v *uint256.Int) TokenAmount {
	if v == nil {
		v = fixedpoint.Zero()
	}
	return TokenAmount{Token: token, Value: new(uint256.Int).Set(v)}
}

// Raw lifts a whole-token amount into a TokenAmount.
func Raw(token string, units uint64) TokenAmount {
	v, _ := fixedpoint.ToFixed(uint256.NewInt(units)) // uint64 * 1e27 always fits
	return TokenAmount{Token: token, Value: v}
}

// Add adds two amounts of the same token.
func (a TokenAmount) Add(other TokenAmount) (TokenAmount, error) {
	if err := a.sameToken(other); err != nil {
		return TokenAmount{}, err
	}
	v, err := fixedpoint.Add(a.value(), other.value())
	if err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{Token: a.Token, Value: v}, nil
}

// Sub subtracts other. Going below zero fails with fixedpoint.ErrOverflow.
func (a TokenAmount) Sub(other TokenAmount) (TokenAmount, error) {
	if err := a.sameToken(other); err != nil {
		return TokenAmount{}, err
	}
	v, err := fixedpoint.Sub(a.value(), other.value())
	if err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{Token: a.Token, Value: v}, nil
}

// IsZero returns true if the amount is zero.
func (a TokenAmount) IsZero() bool { return a.value().IsZero() }

// Equal returns true if both amounts match in token and value.
func (a TokenAmount) Equal(other TokenAmount) bool {
	return a.Token == other.Token && a.value().Eq(other.value())
}

// Decimal returns the human-readable value.
func (a TokenAmount) Decimal() decimal.Decimal { return fixedpoint.ToDecimal(a.value()) }

// String renders "14.5 ayUSD".
func (a TokenAmount) String() string {
	return a.Decimal().String() + " " + a.Token
}

// MarshalJSON implements json.Marshaler. The scaled value is emitted as a
// base-10 string so no precision is lost in JavaScript consumers.
func (a TokenAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Token   string `json:"token"`
		Value   string `json:"value"`
		Display string `json:"display"`
	}{
		Token:   a.Token,
		Value:   a.value().Dec(),
		Display: a.Decimal().String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Display is ignored.
func (a *TokenAmount) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token string `json:"token"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := fixedpoint.Parse(raw.Value)
	if err != nil {
		return err
	}
	a.Token, a.Value = raw.Token, v
	return nil
}

func (a TokenAmount) value() *uint256.Int {
	if a.Value == nil {
		return fixedpoint.Zero()
	}
	return a.Value
}

func (a TokenAmount) sameToken(other TokenAmount) error {
	if a.Token != other.Token {
		return fmt.Errorf("types: token mismatch: %s != %s", a.Token, other.Token)
	}
	return nil
}
