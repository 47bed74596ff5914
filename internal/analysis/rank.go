package analysis

import (
	"sort"

	"energy-billing/internal/ledger"
	"energy-billing/internal/model"
)

// RankedDay is one date ranked by its daily consumption.
type RankedDay struct {
	Rank int     `json:"rank"`
	Date string  `json:"date"`
	KWh  float64 `json:"kwh"`
}

// TopDays ranks rows by ch's daily consumption, highest first, and keeps at
// most n (all when n <= 0). Equal values rank the newer date first.
func TopDays(rows []ledger.DailyRow, ch model.Channel, n int) []RankedDay {
	out := make([]RankedDay, 0, len(rows))
	for _, r := range rows {
		out = append(out, RankedDay{Date: r.Date, KWh: dayValue(r, ch)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].KWh != out[j].KWh {
			return out[i].KWh > out[j].KWh
		}
		return out[i].Date > out[j].Date
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
