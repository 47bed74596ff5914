package model

import "time"

// Snapshot is the published state of one instance after an update cycle.
// Energy figures are kWh; money figures are in thousands of the tariff currency.
type Snapshot struct {
	TotalBuy  float64 `json:"total_buy"`
	BuyDay    float64 `json:"buy_day"`
	BuyMonth  float64 `json:"buy_month"`
	BuyYear   float64 `json:"buy_year"`
	TotalSell float64 `json:"total_sell"`
	SellDay   float64 `json:"sell_day"`
	SellMonth float64 `json:"sell_month"`
	SellYear  float64 `json:"sell_year"`

	BuyCostDay       float64 `json:"buy_cost_day"`
	BuyCostMonth     float64 `json:"buy_cost_month"`
	BuyCostYear      float64 `json:"buy_cost_year"`
	SellRevenueDay   float64 `json:"sell_revenue_day"`
	SellRevenueMonth float64 `json:"sell_revenue_month"`
	SellRevenueYear  float64 `json:"sell_revenue_year"`

	Currency    string    `json:"currency,omitempty"`
	LastUpdated time.Time `json:"last_updated"`

	// Missing lists channels that have not produced a valid reading yet.
	Missing []Channel `json:"missing,omitempty"`
}

// Consumption returns the energy figure for a channel and period.
func (s Snapshot) Consumption(c Channel, p Period) float64 {
	switch {
	case c == ChannelBuy && p == PeriodDay:
		return s.BuyDay
	case c == ChannelBuy && p == PeriodMonth:
		return s.BuyMonth
	case c == ChannelBuy && p == PeriodYear:
		return s.BuyYear
	case c == ChannelSell && p == PeriodDay:
		return s.SellDay
	case c == ChannelSell && p == PeriodMonth:
		return s.SellMonth
	case c == ChannelSell && p == PeriodYear:
		return s.SellYear
	}
	return 0
}

// Total returns the accepted meter total for a channel.
func (s Snapshot) Total(c Channel) float64 {
	if c == ChannelSell {
		return s.TotalSell
	}
	return s.TotalBuy
}

// IsMissing reports whether c has no valid reading yet.
func (s Snapshot) IsMissing(c Channel) bool {
	for _, m := range s.Missing {
		if m == c {
			return true
		}
	}
	return false
}
