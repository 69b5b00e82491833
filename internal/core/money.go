// Package core holds the categorizer, the ingestion normalizer and the
// monthly aggregator, plus the value types they share.
//
// This file contains amount parsing and formatting.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ParseAmount converts a signed decimal string to cents.
//
// It accepts an optional sign, an optional leading "$", comma thousands
// separators, and accounting parentheses for negatives. Fractional digits
// past the cent must be zero; amounts are never rounded.
//
// Examples:
//
//	ParseAmount("-45.00")    -> -4500, nil
//	ParseAmount("1,234.5")   -> 123450, nil
//	ParseAmount("(12.00)")   -> -1200, nil
//	ParseAmount("12.340")    -> 1234, nil
//	ParseAmount("12.345")    -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	switch {
	case strings.HasPrefix(s, "-"):
		if neg {
			return Money{}, ErrInvalidAmount
		}
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return Money{}, ErrInvalidAmount
	}
	if intPart == "" && fracPart == "" {
		return Money{}, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || !allDigits(fracPart) {
		return Money{}, ErrInvalidAmount
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv >= maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}

	if len(fracPart) > 2 {
		if strings.TrimRight(fracPart[2:], "0") != "" {
			return Money{}, ErrInvalidAmount
		}
		fracPart = fracPart[:2]
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
		}
	}
	cents := iv*100 + frac
	if neg {
		cents = -cents
	}
	return Money{Cents: cents}, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NewMoney builds a Money from a float, rounding to the nearest cent.
func NewMoney(v float64) Money {
	return Money{Cents: int64(math.Round(v * 100))}
}

// Float64 returns the amount in currency units. Use Cents for arithmetic.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON encodes m as a bare JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return &ValidationError{Field: "amount", Err: ErrMissingField}
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
		}
		raw = s
	}
	v, err := ParseNumber(raw)
	if err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	*m = v
	return nil
}

// ParseNumber is ParseAmount extended to JSON exponent forms such as 1.5e2.
// An exponent form must still name a whole number of cents.
func ParseNumber(s string) (Money, error) {
	if v, err := ParseAmount(s); err == nil || !strings.ContainsAny(s, "eE") {
		return v, err
	}
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return Money{}, ErrInvalidAmount
	}
	r.Mul(r, big.NewRat(100, 1))
	if !r.IsInt() || !r.Num().IsInt64() {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: r.Num().Int64()}, nil
}
