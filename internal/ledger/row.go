// Package ledger keeps the human-readable per-year record of meter totals and
// consumption, in either one row per day or one row per update.
package ledger

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var (
	ErrIncompleteRow  = errors.New("ledger: entry has missing values")
	ErrUnknownMode    = errors.New("ledger: unknown mode")
	ErrUnknownMissing = errors.New("ledger: unknown missing-value policy")
)

// Mode selects the row granularity of a ledger.
type Mode string

const (
	// ModeDaily keeps one comma-separated row per date, newest first.
	ModeDaily Mode = "daily"
	// ModeTimestamped appends one pipe-separated row per update second.
	ModeTimestamped Mode = "timestamped"
)

// Missing selects what happens when an entry has absent values.
type Missing string

const (
	// MissingSkip drops the write entirely.
	MissingSkip Missing = "skip"
	// MissingCarry writes anyway, filling absent values from the previous row or 0.
	MissingCarry Missing = "carry"
)

// Figures are one channel's values at the time of a write. Nil means missing.
type Figures struct {
	Total *float64
	Day   *float64
	Month *float64
	Year  *float64
}

// Entry is what one update cycle hands to a ledger.
type Entry struct {
	At   time.Time
	Buy  Figures
	Sell Figures
}

func (e Entry) complete(withYear bool) bool {
	for _, f := range []Figures{e.Buy, e.Sell} {
		if f.Total == nil || f.Day == nil || f.Month == nil {
			return false
		}
		if withYear && f.Year == nil {
			return false
		}
	}
	return true
}

// DailyRow is one date of a daily ledger. Time is empty on rows written
// before the time column existed.
type DailyRow struct {
	Date      string  `json:"date"`
	TotalBuy  float64 `json:"total_buy"`
	BuyDay    float64 `json:"buy_day"`
	BuyMonth  float64 `json:"buy_month"`
	TotalSell float64 `json:"total_sell"`
	SellDay   float64 `json:"sell_day"`
	SellMonth float64 `json:"sell_month"`
	Time      string  `json:"time,omitempty"`
}

// Writer is a ledger for one instance.
type Writer interface {
	// Write records e, idempotently per the ledger's row key. It returns
	// ErrIncompleteRow when the entry was skipped for missing values.
	Write(e Entry) error
	// Days returns one row per date of year, newest first.
	Days(year int) ([]DailyRow, error)
	// Path returns the file holding year.
	Path(year int) string
}

// New returns the writer for mode rooted at dir.
func New(mode Mode, dir string, missing Missing, roundDecimals int) (Writer, error) {
	if missing == "" {
		missing = MissingSkip
	}
	if missing != MissingSkip && missing != MissingCarry {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMissing, missing)
	}
	switch mode {
	case ModeDaily, "":
		return NewDailyWriter(dir, missing, roundDecimals), nil
	case ModeTimestamped:
		return NewTimestampWriter(dir, missing), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

func yearPath(dir string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%04d.csv", year))
}

// formatShort renders v the way the daily ledger has always stored numbers:
// the shortest representation, with ".0" on integral values.
func formatShort(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func pick(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
