// Package analysis summarizes daily ledger rows.
package analysis

import (
	"math"
	"sort"

	"energy-billing/internal/ledger"
	"energy-billing/internal/model"
)

// Usage is a summary of one channel's daily consumption over a set of days.
type Usage struct {
	Channel model.Channel `json:"channel"`
	Days    int           `json:"days"`

	TotalKWh float64 `json:"total_kwh"`
	MinKWh   float64 `json:"min_kwh"`
	MaxKWh   float64 `json:"max_kwh"`
	MeanKWh  float64 `json:"mean_kwh"`
	P05KWh   float64 `json:"p05_kwh"`
	P95KWh   float64 `json:"p95_kwh"`

	// PeakDate is the date of MaxKWh; the newest such date on ties.
	PeakDate string `json:"peak_date,omitempty"`
}

func dayValue(r ledger.DailyRow, ch model.Channel) float64 {
	if ch == model.ChannelSell {
		return r.SellDay
	}
	return r.BuyDay
}

// Summarize computes the usage of ch across rows. Rows may be in any order.
func Summarize(rows []ledger.DailyRow, ch model.Channel) Usage {
	u := Usage{Channel: ch}
	if len(rows) == 0 {
		return u
	}
	u.Days = len(rows)

	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(rows))
	for _, r := range rows {
		v := dayValue(r, ch)
		vals = append(vals, v)
		u.TotalKWh += v
		if v < minv {
			minv = v
		}
		if v > maxv || (v == maxv && r.Date > u.PeakDate) {
			maxv = v
			u.PeakDate = r.Date
		}
	}
	sort.Float64s(vals)
	u.MinKWh = minv
	u.MaxKWh = maxv
	u.MeanKWh = u.TotalKWh / float64(len(vals))
	u.P05KWh = percentileSorted(vals, 0.05)
	u.P95KWh = percentileSorted(vals, 0.95)
	return u
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
