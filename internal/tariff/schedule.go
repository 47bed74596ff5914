package tariff

import (
	"errors"
	"fmt"
)

var (
	ErrNoTiers          = errors.New("tariff: at least one tier is required")
	ErrInvalidTier      = errors.New("tariff: invalid tier")
	ErrUnboundedNotLast = errors.New("tariff: only the last tier may be unbounded")
	ErrNegativeTax      = errors.New("tariff: negative tax rate")
)

// Tier is one marginal-rate block. A nil BlockKWh means unbounded.
type Tier struct {
	BlockKWh  *float64 `yaml:"block_kwh,omitempty" json:"block_kwh,omitempty"`
	UnitPrice float64  `yaml:"unit_price" json:"unit_price"`
}

// Block builds a bounded tier.
func Block(kwh, price float64) Tier {
	return Tier{BlockKWh: &kwh, UnitPrice: price}
}

// Unbounded builds the open-ended last tier.
func Unbounded(price float64) Tier {
	return Tier{UnitPrice: price}
}

const (
	DefaultTaxRate   = 0.08
	DefaultSellPrice = 2275.0
	DefaultCurrency  = "VND"
)

// DefaultTiers is the 2025 residential retail ladder (VND/kWh, before VAT).
func DefaultTiers() []Tier {
	return []Tier{
		Block(50, 1984),
		Block(50, 2050),
		Block(100, 2380),
		Block(100, 2998),
		Block(100, 3350),
		Unbounded(3460),
	}
}

type tier struct {
	block     Decimal
	unbounded bool
	price     Decimal
}

// Schedule prices consumption against an ordered list of tiers plus a tax multiplier.
// It is immutable and safe for concurrent use.
type Schedule struct {
	tiers []tier
	tax   Decimal
}

func NewSchedule(tiers []Tier, taxRate float64) (*Schedule, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}
	if taxRate < 0 {
		return nil, ErrNegativeTax
	}
	s := &Schedule{
		tiers: make([]tier, 0, len(tiers)),
		tax:   NewDecimalFromFloat(taxRate),
	}
	for i, t := range tiers {
		if t.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: tier %d has negative unit price", ErrInvalidTier, i+1)
		}
		if t.BlockKWh == nil {
			if i != len(tiers)-1 {
				return nil, ErrUnboundedNotLast
			}
			s.tiers = append(s.tiers, tier{unbounded: true, price: NewDecimalFromFloat(t.UnitPrice)})
			continue
		}
		if *t.BlockKWh <= 0 {
			return nil, fmt.Errorf("%w: tier %d block must be > 0", ErrInvalidTier, i+1)
		}
		s.tiers = append(s.tiers, tier{
			block: NewDecimalFromFloat(*t.BlockKWh),
			price: NewDecimalFromFloat(t.UnitPrice),
		})
	}
	return s, nil
}

// Flat is a single unbounded tier with no tax; it is what a non-tiered tariff reduces to.
func Flat(price float64) *Schedule {
	s, err := NewSchedule([]Tier{Unbounded(price)}, 0)
	if err != nil {
		return &Schedule{tiers: []tier{{unbounded: true}}}
	}
	return s
}

// QuoteLine is the share of consumption billed within one tier.
type QuoteLine struct {
	Tier      int
	KWh       Decimal
	UnitPrice Decimal
	Amount    Decimal
}

// Quote itemizes the cost of a consumption figure.
type Quote struct {
	KWh      Decimal
	Lines    []QuoteLine
	Subtotal Decimal
	Tax      Decimal
	Total    Decimal
}

// Quote walks the tiers in order, each capped by its block, the remainder flowing
// to the next tier. Consumption left over after a bounded last tier is not billed.
func (s *Schedule) Quote(kwh Decimal) Quote {
	remaining := Max(kwh, Decimal{})
	q := Quote{KWh: remaining}
	for i, t := range s.tiers {
		if remaining.Sign() <= 0 {
			break
		}
		take := remaining
		if !t.unbounded {
			take = Min(remaining, t.block)
		}
		amount := take.Mul(t.price)
		q.Lines = append(q.Lines, QuoteLine{Tier: i + 1, KWh: take, UnitPrice: t.price, Amount: amount})
		q.Subtotal = q.Subtotal.Add(amount)
		remaining = remaining.Sub(take)
	}
	q.Total = q.Subtotal.Mul(NewDecimalFromInt64(1).Add(s.tax))
	q.Tax = q.Total.Sub(q.Subtotal)
	return q
}

// Cost is the taxed price of kwh. Pure and deterministic.
func (s *Schedule) Cost(kwh Decimal) Decimal {
	return s.Quote(kwh).Total
}

// CostKWh is Cost for a float consumption figure.
func (s *Schedule) CostKWh(kwh float64) Decimal {
	return s.Cost(NewDecimalFromFloat(kwh))
}

// Tiers returns the schedule as configuration values.
func (s *Schedule) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	for i, t := range s.tiers {
		out[i].UnitPrice = t.price.Float64()
		if !t.unbounded {
			b := t.block.Float64()
			out[i].BlockKWh = &b
		}
	}
	return out
}

func (s *Schedule) TaxRate() float64 {
	return s.tax.Float64()
}

// FlatRate prices energy at a single per-unit rate with no tiers and no tax.
type FlatRate struct {
	Price Decimal
}

func NewFlatRate(price float64) FlatRate {
	return FlatRate{Price: NewDecimalFromFloat(price)}
}

func (r FlatRate) Revenue(kwh float64) Decimal {
	return Max(NewDecimalFromFloat(kwh), Decimal{}).Mul(r.Price)
}
