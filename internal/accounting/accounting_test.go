package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-billing/internal/model"
)

var hcm = time.FixedZone("ICT", 7*60*60)

func at(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, hcm)
}

type book struct {
	state   *State
	tracker *Tracker
	base    *BaselineStore
	recal   *Recalibrator
}

func newBook() *book {
	s := NewState()
	return &book{state: s, tracker: NewTracker(s), base: NewBaselineStore(s), recal: NewRecalibrator(s)}
}

func (b *book) tick(t *testing.T, ch model.Channel, r model.Reading, now time.Time) {
	t.Helper()
	_, _, err := b.tracker.Update(ch, r)
	require.NoError(t, err)
	_, err = b.base.RolloverAll(ch, now)
	if err != nil {
		require.ErrorIs(t, err, ErrNoAcceptedTotal)
	}
}

func TestTrackerIgnoresDownwardGlitches(t *testing.T) {
	b := newBook()

	readings := []model.Reading{
		model.ValidReading(100),
		model.ValidReading(105),
		model.ValidReading(103),
		model.Invalid,
		model.ValidReading(-4),
		model.ValidReading(110),
	}
	want := []float64{100, 105, 105, 105, 105, 110}

	for i, r := range readings {
		got, ok, err := b.tracker.Update(model.ChannelBuy, r)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want[i], got, "tick %d", i)
	}
}

func TestTrackerWithoutValidReadingHasNoTotal(t *testing.T) {
	b := newBook()

	_, ok, err := b.tracker.Update(model.ChannelSell, model.ParseReading("unavailable"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.base.RolloverAll(model.ChannelSell, at(2025, 6, 5, 10))
	assert.ErrorIs(t, err, ErrNoAcceptedTotal)

	_, err = b.base.Consumption(model.ChannelSell, model.PeriodDay)
	assert.ErrorIs(t, err, ErrNoAcceptedTotal)
}

func TestTrackerRejectsUnknownChannel(t *testing.T) {
	b := newBook()

	_, _, err := b.tracker.Update(model.Channel("solar"), model.ValidReading(1))
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestRolloverCapturesBaseOnceAndIsIdempotent(t *testing.T) {
	b := newBook()
	now := at(2025, 6, 5, 10)

	_, _, err := b.tracker.Update(model.ChannelBuy, model.ValidReading(100))
	require.NoError(t, err)

	base, rolled, err := b.base.Rollover(model.ChannelBuy, model.PeriodDay, now)
	require.NoError(t, err)
	assert.True(t, rolled)
	assert.Equal(t, 100.0, base)

	c, err := b.base.Consumption(model.ChannelBuy, model.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c)

	_, _, err = b.tracker.Update(model.ChannelBuy, model.ValidReading(104))
	require.NoError(t, err)

	before, err := b.state.Baseline(model.ChannelBuy, model.PeriodDay)
	require.NoError(t, err)
	base, rolled, err = b.base.Rollover(model.ChannelBuy, model.PeriodDay, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, rolled)
	assert.Equal(t, 100.0, base)
	after, err := b.state.Baseline(model.ChannelBuy, model.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	c, err = b.base.Consumption(model.ChannelBuy, model.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 4.0, c)
}

func TestEndToEndSameDay(t *testing.T) {
	b := newBook()
	now := at(2025, 6, 5, 8)

	readings := []float64{100, 105, 103, 110}
	wantAccepted := []float64{100, 105, 105, 110}
	wantDay := []float64{0, 5, 5, 10}

	for i, v := range readings {
		b.tick(t, model.ChannelBuy, model.ValidReading(v), now.Add(time.Duration(i)*time.Minute))

		acc, ok := b.tracker.Accepted(model.ChannelBuy)
		require.True(t, ok)
		assert.Equal(t, wantAccepted[i], acc)

		day, err := b.base.Consumption(model.ChannelBuy, model.PeriodDay)
		require.NoError(t, err)
		assert.Equal(t, wantDay[i], day)
	}
}

func TestDayRolloverKeepsMonthBase(t *testing.T) {
	b := newBook()

	b.tick(t, model.ChannelBuy, model.ValidReading(100), at(2025, 6, 5, 23))
	b.tick(t, model.ChannelBuy, model.ValidReading(112), at(2025, 6, 6, 0))
	b.tick(t, model.ChannelBuy, model.ValidReading(115), at(2025, 6, 6, 9))

	day, err := b.base.Consumption(model.ChannelBuy, model.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 3.0, day)

	month, err := b.base.Consumption(model.ChannelBuy, model.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, 15.0, month)

	banked, err := b.base.MonthToDateAtMidnight(model.ChannelBuy)
	require.NoError(t, err)
	assert.Equal(t, 12.0, banked)
}

func TestMonthRolloverFreezesClosedMonth(t *testing.T) {
	b := newBook()

	b.tick(t, model.ChannelBuy, model.ValidReading(1000), at(2025, 5, 10, 12))
	b.tick(t, model.ChannelBuy, model.ValidReading(1080), at(2025, 5, 31, 23))
	b.tick(t, model.ChannelBuy, model.ValidReading(1085), at(2025, 6, 1, 0))
	b.tick(t, model.ChannelBuy, model.ValidReading(1200), at(2025, 6, 30, 22))
	b.tick(t, model.ChannelBuy, model.ValidReading(1210), at(2025, 7, 1, 0))

	year, err := b.state.Baseline(model.ChannelBuy, model.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2025-05": 85, "2025-06": 125}, year.Months)

	closed, err := b.base.ClosedMonths(model.ChannelBuy)
	require.NoError(t, err)
	assert.Equal(t, []float64{85, 125}, closed)

	yearKWh, err := b.base.Consumption(model.ChannelBuy, model.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, 210.0, yearKWh)
}

func TestYearRolloverClearsFrozenMonths(t *testing.T) {
	b := newBook()

	b.tick(t, model.ChannelBuy, model.ValidReading(10), at(2025, 11, 20, 12))
	b.tick(t, model.ChannelBuy, model.ValidReading(30), at(2025, 12, 1, 0))
	b.tick(t, model.ChannelBuy, model.ValidReading(55), at(2026, 1, 1, 0))

	year, err := b.state.Baseline(model.ChannelBuy, model.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, "2026", year.Key)
	assert.Empty(t, year.Months)

	closed, err := b.base.ClosedMonths(model.ChannelBuy)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestRecalibrationRoundTrip(t *testing.T) {
	now := at(2025, 6, 5, 10)

	for _, p := range model.Periods {
		for _, desired := range []float64{0, 7.5, 42.125, 500} {
			b := newBook()
			b.tick(t, model.ChannelBuy, model.ValidReading(320.4), now)

			applied, err := b.recal.Apply(model.ChannelBuy, p, &desired, now)
			require.NoError(t, err)
			assert.True(t, applied)

			b.tick(t, model.ChannelBuy, model.Invalid, now.Add(time.Minute))

			got, err := b.base.Consumption(model.ChannelBuy, p)
			require.NoError(t, err)
			assert.InDelta(t, desired, got, 1e-9, "%s %v", p, desired)
		}
	}
}

func TestRecalibrationNegativeIsZero(t *testing.T) {
	b := newBook()
	now := at(2025, 6, 5, 10)
	b.tick(t, model.ChannelSell, model.ValidReading(40), now)

	neg := -3.0
	_, err := b.recal.Apply(model.ChannelSell, model.PeriodMonth, &neg, now)
	require.NoError(t, err)

	got, err := b.base.Consumption(model.ChannelSell, model.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestRecalibrationAbsentIsNoop(t *testing.T) {
	b := newBook()
	now := at(2025, 6, 5, 10)
	b.tick(t, model.ChannelBuy, model.ValidReading(40), now)
	before := b.state.Clone()

	applied, err := b.recal.Apply(model.ChannelBuy, model.PeriodDay, nil, now)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, before, b.state)
}

func TestRecalibrationNeedsAcceptedTotal(t *testing.T) {
	b := newBook()
	x := 5.0

	_, err := b.recal.Apply(model.ChannelBuy, model.PeriodDay, &x, at(2025, 6, 5, 10))
	assert.ErrorIs(t, err, ErrNoAcceptedTotal)

	_, err = b.recal.Apply(model.ChannelBuy, model.Period("week"), &x, at(2025, 6, 5, 10))
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}
