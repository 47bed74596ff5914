package models

import (
	"energy-billing/internal/analysis"
	"energy-billing/internal/ledger"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id,omitempty"`
}

// LedgerResponse holds the daily rows of one year, newest first
type LedgerResponse struct {
	Year      int               `json:"year"`
	Rows      []ledger.DailyRow `json:"rows"`
	TotalBuy  float64           `json:"total_buy"`  // sum of buy_day
	TotalSell float64           `json:"total_sell"` // sum of sell_day

	Usage   []analysis.Usage     `json:"usage"`
	TopDays []analysis.RankedDay `json:"top_buy_days"`
}

// QuoteResponse itemizes the tiered cost of a consumption figure.
// Money values are decimal strings in the tariff currency.
type QuoteResponse struct {
	KWh      string      `json:"kwh"`
	Currency string      `json:"currency"`
	Lines    []QuoteLine `json:"lines"`
	Subtotal string      `json:"subtotal"`
	Tax      string      `json:"tax"`
	Total    string      `json:"total"`
	// TotalThousands is Total in thousands, rounded the way snapshot costs are
	TotalThousands float64 `json:"total_thousands"`
}

// QuoteLine is the share of a quote billed within one tier
type QuoteLine struct {
	Tier      int    `json:"tier"`
	KWh       string `json:"kwh"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
}

// TierInfo describes one configured tier
type TierInfo struct {
	Tier      int      `json:"tier"`
	BlockKWh  *float64 `json:"block_kwh,omitempty"` // nil = unbounded
	UnitPrice float64  `json:"unit_price"`
}

// TariffResponse describes the configured buy tiers and sell price
type TariffResponse struct {
	Currency  string     `json:"currency"`
	TaxRate   float64    `json:"tax_rate"`
	Tiers     []TierInfo `json:"tiers"`
	SellPrice string     `json:"sell_price"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
