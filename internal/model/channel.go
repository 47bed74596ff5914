package model

import (
	"fmt"
	"time"
)

// Channel identifies which meter total a figure derives from.
// Keep these values stable; they are used as storage keys and JSON field prefixes.
type Channel string

const (
	// ChannelBuy derives from the forward (import) meter.
	ChannelBuy Channel = "buy"
	// ChannelSell derives from the reverse (export) meter.
	ChannelSell Channel = "sell"
)

// Channels lists every channel in a stable order.
var Channels = []Channel{ChannelBuy, ChannelSell}

func (c Channel) Valid() bool {
	return c == ChannelBuy || c == ChannelSell
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown channel %q", s)
	}
	return c, nil
}

// Period is a rolling accounting window.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists every period from finest to coarsest.
var Periods = []Period{PeriodDay, PeriodMonth, PeriodYear}

const (
	DayKeyLayout   = "2006-01-02"
	MonthKeyLayout = "2006-01"
	YearKeyLayout  = "2006"
)

func (p Period) Valid() bool {
	return p == PeriodDay || p == PeriodMonth || p == PeriodYear
}

func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown period %q", s)
	}
	return p, nil
}

// Key returns the period key containing t, in t's own location:
// day -> "2025-06-05", month -> "2025-06", year -> "2025".
func (p Period) Key(t time.Time) string {
	switch p {
	case PeriodDay:
		return t.Format(DayKeyLayout)
	case PeriodMonth:
		return t.Format(MonthKeyLayout)
	case PeriodYear:
		return t.Format(YearKeyLayout)
	default:
		return ""
	}
}
