// Package options handles one-shot overrides: "this period's consumption so far
// should read X", applied once and then cleared.
package options

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"energy-billing/internal/accounting"
	"energy-billing/internal/model"
	"energy-billing/internal/source"
)

var ErrInterval = errors.New("options: interval_minutes must not exceed 60")

const maxIntervalMinutes = 60

// Literal is a user-typed number. It is kept as text so a malformed value can
// be ignored on its own instead of failing the whole document.
type Literal string

func (l *Literal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Literal(s)
		return nil
	}
	*l = Literal(b)
	return nil
}

// Float parses the literal; ok is false when it is empty or malformed.
func (l Literal) Float() (float64, bool) {
	s := strings.TrimSpace(string(l))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Seed is one override field: a literal and an optional entity whose current
// value takes precedence when it is valid.
type Seed struct {
	Value  Literal `yaml:"value,omitempty" json:"value,omitempty"`
	Entity string  `yaml:"entity,omitempty" json:"entity,omitempty"`
}

func (s Seed) empty() bool {
	return strings.TrimSpace(string(s.Value)) == "" && strings.TrimSpace(s.Entity) == ""
}

// Seeds holds the three period fields of one channel.
type Seeds struct {
	Day   Seed `yaml:"day,omitempty" json:"day,omitempty"`
	Month Seed `yaml:"month,omitempty" json:"month,omitempty"`
	Year  Seed `yaml:"year,omitempty" json:"year,omitempty"`
}

func (s Seeds) get(p model.Period) Seed {
	switch p {
	case model.PeriodDay:
		return s.Day
	case model.PeriodMonth:
		return s.Month
	default:
		return s.Year
	}
}

// Document is one batch of one-shot options.
type Document struct {
	IntervalMinutes *int  `yaml:"interval_minutes,omitempty" json:"interval_minutes,omitempty"`
	Buy             Seeds `yaml:"buy,omitempty" json:"buy,omitempty"`
	Sell            Seeds `yaml:"sell,omitempty" json:"sell,omitempty"`
}

// Parse reads a YAML (or JSON) document. An empty input is an empty document.
func Parse(raw []byte) (Document, error) {
	var d Document
	if len(bytes.TrimSpace(raw)) == 0 {
		return d, nil
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Document{}, fmt.Errorf("parse options: %w", err)
	}
	return d, nil
}

func (d Document) seeds(ch model.Channel) Seeds {
	if ch == model.ChannelSell {
		return d.Sell
	}
	return d.Buy
}

// IsZero reports whether the document carries nothing to apply.
func (d Document) IsZero() bool {
	if d.IntervalMinutes != nil {
		return false
	}
	for _, ch := range model.Channels {
		for _, p := range model.Periods {
			if !d.seeds(ch).get(p).empty() {
				return false
			}
		}
	}
	return true
}

// Interval returns the requested update interval, clamped to at least one
// minute. ok is false when the document does not set one.
func (d Document) Interval() (time.Duration, bool, error) {
	if d.IntervalMinutes == nil {
		return 0, false, nil
	}
	m := max(*d.IntervalMinutes, 1)
	if m > maxIntervalMinutes {
		return 0, false, fmt.Errorf("%w, got %d", ErrInterval, m)
	}
	return time.Duration(m) * time.Minute, true, nil
}

func (d Document) entities() []string {
	var ids []string
	for _, ch := range model.Channels {
		for _, p := range model.Periods {
			if e := strings.TrimSpace(d.seeds(ch).get(p).Entity); e != "" {
				ids = append(ids, e)
			}
		}
	}
	return ids
}

// Resolve turns the document into overrides. For each field a valid reading of
// its entity wins, then a parseable literal; anything else leaves the field
// absent. Fields are independent: one malformed value never blocks another.
func Resolve(ctx context.Context, d Document, src source.Source, log zerolog.Logger) []accounting.Override {
	var readings map[string]model.Reading
	if ids := d.entities(); len(ids) > 0 && src != nil {
		readings = source.ReadMany(ctx, src, log, ids...)
	}

	var out []accounting.Override
	for _, ch := range model.Channels {
		for _, p := range model.Periods {
			seed := d.seeds(ch).get(p)
			if seed.empty() {
				continue
			}
			if e := strings.TrimSpace(seed.Entity); e != "" {
				if r, ok := readings[e]; ok && r.Valid {
					out = append(out, accounting.Override{Channel: ch, Period: p, KWh: r.Value})
					continue
				}
			}
			if v, ok := seed.Value.Float(); ok {
				out = append(out, accounting.Override{Channel: ch, Period: p, KWh: v})
				continue
			}
			log.Warn().
				Str("channel", string(ch)).
				Str("period", string(p)).
				Str("value", string(seed.Value)).
				Str("entity", seed.Entity).
				Msg("ignoring one-shot value that is neither a valid sensor nor a number")
		}
	}
	return out
}
