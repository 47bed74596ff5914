package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReading(t *testing.T) {
	tests := []struct {
		raw  string
		want Reading
	}{
		{raw: "123.456", want: Reading{Value: 123.456, Valid: true}},
		{raw: " 42 ", want: Reading{Value: 42, Valid: true}},
		{raw: "0", want: Reading{Value: 0, Valid: true}},
		{raw: "-3", want: Reading{Value: -3, Valid: true}},
		{raw: "", want: Invalid},
		{raw: "unknown", want: Invalid},
		{raw: "unavailable", want: Invalid},
		{raw: "Unavailable", want: Invalid},
		{raw: "none", want: Invalid},
		{raw: "12kWh", want: Invalid},
		{raw: "NaN", want: Invalid},
		{raw: "+Inf", want: Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseReading(tt.raw))
		})
	}
}

func TestReadingCandidate(t *testing.T) {
	assert.Equal(t, 0.0, Invalid.Candidate())
	assert.Equal(t, 0.0, Reading{Value: -1, Valid: true}.Candidate())
	assert.Equal(t, 7.5, Reading{Value: 7.5, Valid: true}.Candidate())
	assert.False(t, ValidReading(math.NaN()).Valid)
}

func TestPeriodKey(t *testing.T) {
	at := time.Date(2025, time.June, 5, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, "2025-06-05", PeriodDay.Key(at))
	assert.Equal(t, "2025-06", PeriodMonth.Key(at))
	assert.Equal(t, "2025", PeriodYear.Key(at))
	assert.Equal(t, "", Period("week").Key(at))
}

func TestParseChannelAndPeriod(t *testing.T) {
	c, err := ParseChannel("sell")
	require.NoError(t, err)
	assert.Equal(t, ChannelSell, c)

	_, err = ParseChannel("grid")
	assert.Error(t, err)

	p, err := ParsePeriod("month")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)

	_, err = ParsePeriod("hour")
	assert.Error(t, err)
}

func TestSnapshotAccessors(t *testing.T) {
	s := Snapshot{
		TotalBuy: 110, BuyDay: 10, BuyMonth: 20, BuyYear: 30,
		TotalSell: 50, SellDay: 1, SellMonth: 2, SellYear: 3,
		Missing: []Channel{ChannelSell},
	}

	assert.Equal(t, 10.0, s.Consumption(ChannelBuy, PeriodDay))
	assert.Equal(t, 3.0, s.Consumption(ChannelSell, PeriodYear))
	assert.Equal(t, 50.0, s.Total(ChannelSell))
	assert.True(t, s.IsMissing(ChannelSell))
	assert.False(t, s.IsMissing(ChannelBuy))
}
