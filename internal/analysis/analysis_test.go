package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"energy-billing/internal/ledger"
	"energy-billing/internal/model"
)

func rows() []ledger.DailyRow {
	return []ledger.DailyRow{
		{Date: "2025-06-05", BuyDay: 4, SellDay: 1},
		{Date: "2025-06-04", BuyDay: 10, SellDay: 3},
		{Date: "2025-06-03", BuyDay: 6, SellDay: 0},
		{Date: "2025-06-02", BuyDay: 10, SellDay: 2},
		{Date: "2025-06-01", BuyDay: 0, SellDay: 4},
	}
}

func TestSummarize(t *testing.T) {
	u := Summarize(rows(), model.ChannelBuy)

	assert.Equal(t, model.ChannelBuy, u.Channel)
	assert.Equal(t, 5, u.Days)
	assert.Equal(t, 30.0, u.TotalKWh)
	assert.Equal(t, 0.0, u.MinKWh)
	assert.Equal(t, 10.0, u.MaxKWh)
	assert.Equal(t, 6.0, u.MeanKWh)
	assert.Equal(t, "2025-06-04", u.PeakDate)
	// sorted 0,4,6,10,10: pos 0.2 and 3.8
	assert.InDelta(t, 0.8, u.P05KWh, 1e-9)
	assert.InDelta(t, 10.0, u.P95KWh, 1e-9)

	s := Summarize(rows(), model.ChannelSell)
	assert.Equal(t, 10.0, s.TotalKWh)
	assert.Equal(t, "2025-06-01", s.PeakDate)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Usage{Channel: model.ChannelSell}, Summarize(nil, model.ChannelSell))
}

func TestTopDays(t *testing.T) {
	top := TopDays(rows(), model.ChannelBuy, 3)

	assert.Equal(t, []RankedDay{
		{Rank: 1, Date: "2025-06-04", KWh: 10},
		{Rank: 2, Date: "2025-06-02", KWh: 10},
		{Rank: 3, Date: "2025-06-03", KWh: 6},
	}, top)
	assert.Len(t, TopDays(rows(), model.ChannelSell, 0), 5)
}
