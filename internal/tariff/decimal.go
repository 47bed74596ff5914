package tariff

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// precision is wide enough that money sums over a year of tiered kWh never round.
const precision = 34

// Decimal is an immutable decimal value; every operation returns a new value.
type Decimal struct {
	value apd.Decimal
}

func ctx() *apd.Context {
	c := apd.BaseContext.WithPrecision(precision)
	c.Rounding = apd.RoundHalfUp
	return c
}

func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	return Decimal{value: d}, nil
}

// NewDecimalFromFloat converts through the shortest decimal representation of f,
// so 0.1 becomes exactly 0.1 rather than its binary expansion.
func NewDecimalFromFloat(f float64) Decimal {
	d, err := NewDecimal(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return Decimal{}
	}
	return d
}

func NewDecimalFromInt64(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

func (d Decimal) String() string {
	return d.value.Text('f')
}

func (d Decimal) IsZero() bool {
	return d.value.IsZero()
}

func (d Decimal) Sign() int {
	return d.value.Sign()
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Add returns the sum of d and other.
func (d Decimal) Add(other Decimal) Decimal {
	var result apd.Decimal
	_, _ = ctx().Add(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Sub returns d minus other.
func (d Decimal) Sub(other Decimal) Decimal {
	var result apd.Decimal
	_, _ = ctx().Sub(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Mul returns the product of d and other.
func (d Decimal) Mul(other Decimal) Decimal {
	var result apd.Decimal
	_, _ = ctx().Mul(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Div returns the quotient of d divided by other. Division by zero yields zero.
func (d Decimal) Div(other Decimal) Decimal {
	if other.IsZero() {
		return Decimal{}
	}
	var result apd.Decimal
	_, _ = ctx().Quo(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Round rounds half-up to the given number of decimal places.
func (d Decimal) Round(places int) Decimal {
	var result apd.Decimal
	if _, err := ctx().Quantize(&result, &d.value, -int32(places)); err != nil {
		return d
	}
	return Decimal{value: result}
}

func (d Decimal) Float64() float64 {
	f, err := d.value.Float64()
	if err != nil {
		return 0
	}
	return f
}

func Max(a, b Decimal) Decimal {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func Min(a, b Decimal) Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Thousands converts an amount to the display unit (divide by 1000) rounded to places.
func Thousands(d Decimal, places int) float64 {
	return d.Div(NewDecimalFromInt64(1000)).Round(places).Float64()
}
