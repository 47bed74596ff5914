package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-billing/internal/model"
)

func TestNewStateIsNormalized(t *testing.T) {
	s := NewState()

	assert.Equal(t, StateVersion, s.Version)
	for _, ch := range model.Channels {
		_, ok := s.AcceptedTotal(ch)
		assert.False(t, ok)
		for _, p := range model.Periods {
			require.NotNil(t, s.Baselines[ch][p])
		}
		assert.NotNil(t, s.Baselines[ch][model.PeriodYear].Months)
	}
}

func TestEncodeDecodeKeepsValues(t *testing.T) {
	s := NewState()
	s.Accepted[model.ChannelBuy] = floatPtr(123.5)
	s.Baselines[model.ChannelBuy][model.PeriodDay] = &Baseline{Key: "2025-06-05", Base: floatPtr(120)}
	s.Baselines[model.ChannelBuy][model.PeriodYear].Months["2025-05"] = 80

	raw, err := s.Encode()
	require.NoError(t, err)

	got, err := DecodeState(raw)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestDecodeDefaultsMissingKeys(t *testing.T) {
	got, err := DecodeState([]byte(`{"version":1,"accepted":{"buy":12}}`))
	require.NoError(t, err)

	acc, ok := got.AcceptedTotal(model.ChannelBuy)
	require.True(t, ok)
	assert.Equal(t, 12.0, acc)
	_, ok = got.AcceptedTotal(model.ChannelSell)
	assert.False(t, ok)
	assert.NotNil(t, got.Baselines[model.ChannelSell][model.PeriodMonth])
}

func TestDecodeLegacyBillingLayout(t *testing.T) {
	raw := `{
		"accepted": {"forward": 1500.5, "reverse": 20},
		"day": {"date": "2025-06-05", "f_base": 1490, "r_base": 19},
		"month": {"month": "2025-06", "f_base": 1400, "r_base": 10},
		"year": {"year": "2025", "f_base": 1000, "r_base": null, "months": {"2025-05": 88.5}}
	}`

	got, err := DecodeState([]byte(raw))
	require.NoError(t, err)

	acc, _ := got.AcceptedTotal(model.ChannelBuy)
	assert.Equal(t, 1500.5, acc)
	day, err := got.Baseline(model.ChannelSell, model.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-05", day.Key)
	assert.Equal(t, 19.0, *day.Base)
	year, err := got.Baseline(model.ChannelBuy, model.PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2025-05": 88.5}, year.Months)
	sellYear, err := got.Baseline(model.ChannelSell, model.PeriodYear)
	require.NoError(t, err)
	assert.Nil(t, sellYear.Base)
}

func TestDecodeLegacyPlainLayout(t *testing.T) {
	raw := `{"baseline": {
		"buy":  {"day": {"base": 5, "date": "2025-06-05"}, "month": {"base": 3, "ym": "2025-06"}, "year": {"base": 1, "y": "2025"}},
		"sell": {"day": {"base": null, "date": null}}
	}}`

	got, err := DecodeState([]byte(raw))
	require.NoError(t, err)

	month, err := got.Baseline(model.ChannelBuy, model.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, "2025-06", month.Key)
	assert.Equal(t, 3.0, *month.Base)
	sellDay, err := got.Baseline(model.ChannelSell, model.PeriodDay)
	require.NoError(t, err)
	assert.Nil(t, sellDay.Base)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeState([]byte(`not json`))
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	s := NewState()
	s.Accepted[model.ChannelBuy] = floatPtr(1)
	s.Baselines[model.ChannelBuy][model.PeriodYear].Months["2025-01"] = 4

	c := s.Clone()
	*c.Accepted[model.ChannelBuy] = 2
	c.Baselines[model.ChannelBuy][model.PeriodYear].Months["2025-01"] = 9

	acc, _ := s.AcceptedTotal(model.ChannelBuy)
	assert.Equal(t, 1.0, acc)
	assert.Equal(t, 4.0, s.Baselines[model.ChannelBuy][model.PeriodYear].Months["2025-01"])
}
