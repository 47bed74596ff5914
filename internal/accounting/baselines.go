package accounting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"energy-billing/internal/model"
)

// BaselineStore rolls period baselines over and derives consumption from them.
type BaselineStore struct {
	state *State
}

func NewBaselineStore(state *State) *BaselineStore {
	state.Normalize()
	return &BaselineStore{state: state}
}

// Rollover returns the base of the period of p containing now. When the stored
// key differs from now's key, or no base exists yet, the base is captured from
// the current accepted total and rolled is true. Calling it again inside the same
// period does not mutate anything.
//
// A month rollover inside the same year freezes the closing month's consumption
// into the year baseline. A year rollover clears the frozen months.
func (b *BaselineStore) Rollover(ch model.Channel, p model.Period, now time.Time) (base float64, rolled bool, err error) {
	bl, err := b.state.baseline(ch, p)
	if err != nil {
		return 0, false, err
	}
	accepted, ok := b.state.AcceptedTotal(ch)
	if !ok {
		return 0, false, ErrNoAcceptedTotal
	}

	key := p.Key(now)
	if bl.Key == key && bl.Base != nil {
		return *bl.Base, false, nil
	}

	switch p {
	case model.PeriodMonth:
		b.freezeMonth(ch, bl, accepted, now)
	case model.PeriodYear:
		bl.Months = map[string]float64{}
	}

	bl.Key = key
	bl.Base = floatPtr(accepted)
	return accepted, true, nil
}

func (b *BaselineStore) freezeMonth(ch model.Channel, month *Baseline, accepted float64, now time.Time) {
	if month.Base == nil || month.Key == "" {
		return
	}
	year := b.state.Baselines[ch][model.PeriodYear]
	if !strings.HasPrefix(month.Key, model.PeriodYear.Key(now)+"-") {
		return
	}
	if year.Months == nil {
		year.Months = map[string]float64{}
	}
	year.Months[month.Key] = max(accepted-*month.Base, 0)
}

// RolloverAll runs Rollover for every period of ch, coarsest first so a year
// change clears the frozen months before the month freeze looks at them.
// It returns the periods that rolled.
func (b *BaselineStore) RolloverAll(ch model.Channel, now time.Time) ([]model.Period, error) {
	var rolled []model.Period
	for i := len(model.Periods) - 1; i >= 0; i-- {
		p := model.Periods[i]
		_, r, err := b.Rollover(ch, p, now)
		if err != nil {
			return rolled, err
		}
		if r {
			rolled = append(rolled, p)
		}
	}
	return rolled, nil
}

// Consumption is max(accepted - base, 0) for (ch, p).
func (b *BaselineStore) Consumption(ch model.Channel, p model.Period) (float64, error) {
	bl, err := b.state.baseline(ch, p)
	if err != nil {
		return 0, err
	}
	accepted, ok := b.state.AcceptedTotal(ch)
	if !ok {
		return 0, ErrNoAcceptedTotal
	}
	if bl.Base == nil {
		return 0, fmt.Errorf("%w: %s %s", ErrNoBaseline, ch, p)
	}
	return max(accepted-*bl.Base, 0), nil
}

// MonthToDateAtMidnight is the month's consumption as it stood when the current
// day started: the day base minus the month base, floored at 0.
func (b *BaselineStore) MonthToDateAtMidnight(ch model.Channel) (float64, error) {
	day, err := b.state.baseline(ch, model.PeriodDay)
	if err != nil {
		return 0, err
	}
	month := b.state.Baselines[ch][model.PeriodMonth]
	if day.Base == nil || month.Base == nil {
		return 0, fmt.Errorf("%w: %s", ErrNoBaseline, ch)
	}
	return max(*day.Base-*month.Base, 0), nil
}

// ClosedMonths returns the frozen consumption of each closed month of the
// current year, ordered by month.
func (b *BaselineStore) ClosedMonths(ch model.Channel) ([]float64, error) {
	year, err := b.state.baseline(ch, model.PeriodYear)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(year.Months))
	for k := range year.Months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, year.Months[k])
	}
	return out, nil
}
