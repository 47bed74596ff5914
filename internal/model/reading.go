package model

import (
	"math"
	"strconv"
	"strings"
)

// Reading is one raw sample of a cumulative meter.
// An invalid reading carries no information; it is never an error.
type Reading struct {
	Value float64
	Valid bool
}

// Invalid is the zero-information reading.
var Invalid = Reading{}

// unavailableStates are the sentinel states a host reports instead of a number.
var unavailableStates = map[string]struct{}{
	"":            {},
	"unknown":     {},
	"unavailable": {},
	"none":        {},
}

func ValidReading(v float64) Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid
	}
	return Reading{Value: v, Valid: true}
}

// ParseReading converts a raw state string into a Reading.
// Sentinel states and anything that fails numeric parsing are invalid.
func ParseReading(raw string) Reading {
	s := strings.TrimSpace(raw)
	if _, ok := unavailableStates[strings.ToLower(s)]; ok {
		return Invalid
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Invalid
	}
	return ValidReading(v)
}

// Candidate is the value this reading contributes to an accepted total:
// invalid and negative readings contribute 0.
func (r Reading) Candidate() float64 {
	if !r.Valid || r.Value < 0 {
		return 0
	}
	return r.Value
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
