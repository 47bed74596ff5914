package accounting

import (
	"fmt"

	"energy-billing/internal/model"
)

// Tracker keeps the accepted total of each channel monotonic.
type Tracker struct {
	state *State
}

func NewTracker(state *State) *Tracker {
	state.Normalize()
	return &Tracker{state: state}
}

// Update folds one reading into the accepted total of ch and returns it.
// The accepted total becomes max(previous, max(reading, 0)); an invalid reading
// contributes 0 and so never lowers it. ok is false while ch has never seen a
// valid reading.
func (t *Tracker) Update(ch model.Channel, r model.Reading) (accepted float64, ok bool, err error) {
	if !ch.Valid() {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	prev := t.state.Accepted[ch]
	if prev == nil {
		if !r.Valid {
			return 0, false, nil
		}
		t.state.Accepted[ch] = floatPtr(r.Candidate())
		return r.Candidate(), true, nil
	}
	if c := r.Candidate(); c > *prev {
		*prev = c
	}
	return *prev, true, nil
}

// Accepted returns the accepted total of ch.
func (t *Tracker) Accepted(ch model.Channel) (float64, bool) {
	return t.state.AcceptedTotal(ch)
}
