package accounting

import (
	"encoding/json"
	"fmt"

	"energy-billing/internal/model"
)

// Integration-era layouts. The billing layout keeps one record per period with
// f_/r_ bases and the closed months on the year record (buy side only). The
// plain layout nests channel -> period -> {base, key}.
type legacyPeriod struct {
	Date   *string            `json:"date"`
	Month  *string            `json:"month"`
	Year   *string            `json:"year"`
	FBase  *float64           `json:"f_base"`
	RBase  *float64           `json:"r_base"`
	Months map[string]float64 `json:"months"`
}

type legacyKeyed struct {
	Base *float64 `json:"base"`
	Date *string  `json:"date"`
	YM   *string  `json:"ym"`
	Y    *string  `json:"y"`
}

func decodeLegacy(probe map[string]json.RawMessage) (*State, bool, error) {
	if raw, ok := probe["baseline"]; ok {
		s, err := decodeLegacyPlain(raw)
		return s, true, err
	}
	if _, ok := probe["day"]; ok {
		s, err := decodeLegacyBilling(probe)
		return s, true, err
	}
	return nil, false, nil
}

func decodeLegacyBilling(probe map[string]json.RawMessage) (*State, error) {
	s := NewState()

	if raw, ok := probe["accepted"]; ok {
		var acc struct {
			Forward *float64 `json:"forward"`
			Reverse *float64 `json:"reverse"`
		}
		if err := json.Unmarshal(raw, &acc); err != nil {
			return nil, fmt.Errorf("decode legacy accepted: %w", err)
		}
		s.Accepted[model.ChannelBuy] = acc.Forward
		s.Accepted[model.ChannelSell] = acc.Reverse
	}

	for _, p := range model.Periods {
		raw, ok := probe[string(p)]
		if !ok {
			continue
		}
		var lp legacyPeriod
		if err := json.Unmarshal(raw, &lp); err != nil {
			return nil, fmt.Errorf("decode legacy %s: %w", p, err)
		}
		key := ""
		switch {
		case lp.Date != nil:
			key = *lp.Date
		case lp.Month != nil:
			key = *lp.Month
		case lp.Year != nil:
			key = *lp.Year
		}
		s.Baselines[model.ChannelBuy][p].Key = key
		s.Baselines[model.ChannelBuy][p].Base = lp.FBase
		s.Baselines[model.ChannelSell][p].Key = key
		s.Baselines[model.ChannelSell][p].Base = lp.RBase
		if p == model.PeriodYear {
			for m, kwh := range lp.Months {
				s.Baselines[model.ChannelBuy][p].Months[m] = kwh
			}
		}
	}
	return s, nil
}

func decodeLegacyPlain(raw json.RawMessage) (*State, error) {
	var doc map[string]map[string]legacyKeyed
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode legacy baseline: %w", err)
	}
	s := NewState()
	for _, ch := range model.Channels {
		for _, p := range model.Periods {
			lk, ok := doc[string(ch)][string(p)]
			if !ok {
				continue
			}
			b := s.Baselines[ch][p]
			b.Base = lk.Base
			switch {
			case lk.Date != nil:
				b.Key = *lk.Date
			case lk.YM != nil:
				b.Key = *lk.YM
			case lk.Y != nil:
				b.Key = *lk.Y
			}
		}
	}
	return s, nil
}
