package accounting

import (
	"encoding/json"
	"errors"
	"fmt"

	"energy-billing/internal/model"
)

// StateVersion is the version written into every saved document.
const StateVersion = 1

var (
	ErrUnknownChannel  = errors.New("accounting: unknown channel")
	ErrUnknownPeriod   = errors.New("accounting: unknown period")
	ErrNoAcceptedTotal = errors.New("accounting: channel has no accepted total yet")
	ErrNoBaseline      = errors.New("accounting: baseline not established")
)

// Baseline is the accepted total captured at the start of the period Key.
// Months is only used on the year baseline: closed months of that year and
// their frozen consumption in kWh.
type Baseline struct {
	Key    string             `json:"period_key"`
	Base   *float64           `json:"base"`
	Months map[string]float64 `json:"months,omitempty"`
}

// State is the durable accounting document for one instance.
type State struct {
	Version   int                                          `json:"version"`
	Accepted  map[model.Channel]*float64                   `json:"accepted"`
	Baselines map[model.Channel]map[model.Period]*Baseline `json:"baselines"`
}

// NewState returns an empty, normalized document.
func NewState() *State {
	s := &State{}
	s.Normalize()
	return s
}

// Normalize fills in every key a current document must have, leaving values
// that are already present untouched. Older documents load through it.
func (s *State) Normalize() {
	if s.Version == 0 {
		s.Version = StateVersion
	}
	if s.Accepted == nil {
		s.Accepted = map[model.Channel]*float64{}
	}
	if s.Baselines == nil {
		s.Baselines = map[model.Channel]map[model.Period]*Baseline{}
	}
	for _, ch := range model.Channels {
		if _, ok := s.Accepted[ch]; !ok {
			s.Accepted[ch] = nil
		}
		periods := s.Baselines[ch]
		if periods == nil {
			periods = map[model.Period]*Baseline{}
			s.Baselines[ch] = periods
		}
		for _, p := range model.Periods {
			if periods[p] == nil {
				periods[p] = &Baseline{}
			}
		}
		if periods[model.PeriodYear].Months == nil {
			periods[model.PeriodYear].Months = map[string]float64{}
		}
	}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := &State{
		Version:   s.Version,
		Accepted:  make(map[model.Channel]*float64, len(s.Accepted)),
		Baselines: make(map[model.Channel]map[model.Period]*Baseline, len(s.Baselines)),
	}
	for ch, v := range s.Accepted {
		out.Accepted[ch] = copyFloat(v)
	}
	for ch, periods := range s.Baselines {
		cp := make(map[model.Period]*Baseline, len(periods))
		for p, b := range periods {
			if b == nil {
				continue
			}
			nb := &Baseline{Key: b.Key, Base: copyFloat(b.Base)}
			if b.Months != nil {
				nb.Months = make(map[string]float64, len(b.Months))
				for k, v := range b.Months {
					nb.Months[k] = v
				}
			}
			cp[p] = nb
		}
		out.Baselines[ch] = cp
	}
	return out
}

// AcceptedTotal returns the accepted total of ch and whether one exists.
func (s *State) AcceptedTotal(ch model.Channel) (float64, bool) {
	v := s.Accepted[ch]
	if v == nil {
		return 0, false
	}
	return *v, true
}

func (s *State) baseline(ch model.Channel, p model.Period) (*Baseline, error) {
	if !ch.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
	s.Normalize()
	return s.Baselines[ch][p], nil
}

// Baseline returns a copy of the stored baseline for (ch, p).
func (s *State) Baseline(ch model.Channel, p model.Period) (Baseline, error) {
	b, err := s.baseline(ch, p)
	if err != nil {
		return Baseline{}, err
	}
	out := Baseline{Key: b.Key, Base: copyFloat(b.Base)}
	if len(b.Months) > 0 {
		out.Months = make(map[string]float64, len(b.Months))
		for k, v := range b.Months {
			out.Months[k] = v
		}
	}
	return out, nil
}

// DecodeState parses a stored document. Documents without a version field are
// read as one of the two legacy layouts; anything missing is defaulted.
func DecodeState(raw []byte) (*State, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if _, ok := probe["version"]; !ok {
		if s, ok, err := decodeLegacy(probe); ok || err != nil {
			return s, err
		}
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	s.Normalize()
	return &s, nil
}

// Encode marshals the document.
func (s *State) Encode() ([]byte, error) {
	s.Normalize()
	return json.MarshalIndent(s, "", "  ")
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func floatPtr(v float64) *float64 {
	return &v
}
