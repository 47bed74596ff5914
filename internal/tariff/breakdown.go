package tariff

// Breakdown is the cost of a month split into the part already banked before
// today, today's marginal contribution and the year to date.
type Breakdown struct {
	Month  Decimal
	Banked Decimal
	Day    Decimal
	Year   Decimal
}

// Breakdown prices a month progressively. Tiers apply to the monthly total, so the
// day's cost is the difference between tiering the whole month and tiering what
// had accrued by the start of the day (bankedKWh). Each closed month of the year
// is tiered on its own frozen consumption and never re-tiered.
func (s *Schedule) Breakdown(monthKWh, bankedKWh float64, closedMonths []float64) Breakdown {
	b := Breakdown{
		Month:  s.CostKWh(monthKWh),
		Banked: s.CostKWh(bankedKWh),
	}
	b.Day = Max(b.Month.Sub(b.Banked), Decimal{})
	for _, m := range closedMonths {
		b.Year = b.Year.Add(s.CostKWh(m))
	}
	b.Year = b.Year.Add(b.Month)
	return b
}
