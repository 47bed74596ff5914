package accounting

import (
	"time"

	"energy-billing/internal/model"
)

// Override is a one-shot "consumption so far" value for one channel and period.
type Override struct {
	Channel model.Channel
	Period  model.Period
	KWh     float64
}

// Recalibrator rewrites baselines from one-shot overrides.
type Recalibrator struct {
	state *State
}

func NewRecalibrator(state *State) *Recalibrator {
	state.Normalize()
	return &Recalibrator{state: state}
}

// Apply sets the base of (ch, p) so that its consumption reads desired:
// base = accepted - max(desired, 0), keyed to the period containing now.
// A nil desired is a no-op. The base is not floored, so the next
// Consumption returns desired exactly even when it exceeds the accepted total.
// Frozen months on the year baseline are left as they are.
func (r *Recalibrator) Apply(ch model.Channel, p model.Period, desired *float64, now time.Time) (bool, error) {
	bl, err := r.state.baseline(ch, p)
	if err != nil {
		return false, err
	}
	if desired == nil {
		return false, nil
	}
	accepted, ok := r.state.AcceptedTotal(ch)
	if !ok {
		return false, ErrNoAcceptedTotal
	}
	bl.Key = p.Key(now)
	bl.Base = floatPtr(accepted - max(*desired, 0))
	return true, nil
}
