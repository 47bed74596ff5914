package engine

import (
	"time"

	"energy-billing/internal/ledger"
	"energy-billing/internal/metrics"
	"energy-billing/internal/model"
	"energy-billing/internal/tariff"
)

type channelFigures struct {
	total            float64
	day, month, year float64
	ok               bool
}

func (r *Runtime) figures(ch model.Channel) channelFigures {
	total, ok := r.tracker.Accepted(ch)
	if !ok {
		return channelFigures{}
	}
	f := channelFigures{total: total, ok: true}
	var err error
	if f.day, err = r.baselines.Consumption(ch, model.PeriodDay); err != nil {
		return channelFigures{}
	}
	if f.month, err = r.baselines.Consumption(ch, model.PeriodMonth); err != nil {
		return channelFigures{}
	}
	if f.year, err = r.baselines.Consumption(ch, model.PeriodYear); err != nil {
		return channelFigures{}
	}
	return f
}

// compute derives the published snapshot from the current state. Money is
// computed on unrounded kWh and only rounded for display.
func (r *Runtime) compute(now time.Time) model.Snapshot {
	snap := model.Snapshot{Currency: r.opts.Currency, LastUpdated: now}
	kwh := func(v float64) float64 { return model.Round(v, r.opts.RoundDecimals) }
	money := func(d tariff.Decimal) float64 { return tariff.Thousands(d, r.opts.CostDecimals) }

	if b := r.figures(model.ChannelBuy); b.ok {
		snap.TotalBuy, snap.BuyDay, snap.BuyMonth, snap.BuyYear = kwh(b.total), kwh(b.day), kwh(b.month), kwh(b.year)

		banked, err := r.baselines.MonthToDateAtMidnight(model.ChannelBuy)
		if err != nil {
			banked = 0
		}
		closed, _ := r.baselines.ClosedMonths(model.ChannelBuy)
		cost := r.opts.BuySchedule.Breakdown(b.month, banked, closed)
		snap.BuyCostDay = money(cost.Day)
		snap.BuyCostMonth = money(cost.Month)
		snap.BuyCostYear = money(cost.Year)
		r.observeConsumption(model.ChannelBuy, b)
	} else {
		snap.Missing = append(snap.Missing, model.ChannelBuy)
	}

	if s := r.figures(model.ChannelSell); s.ok {
		snap.TotalSell, snap.SellDay, snap.SellMonth, snap.SellYear = kwh(s.total), kwh(s.day), kwh(s.month), kwh(s.year)
		snap.SellRevenueDay = money(r.opts.SellRate.Revenue(s.day))
		snap.SellRevenueMonth = money(r.opts.SellRate.Revenue(s.month))
		snap.SellRevenueYear = money(r.opts.SellRate.Revenue(s.year))
		r.observeConsumption(model.ChannelSell, s)
	} else {
		snap.Missing = append(snap.Missing, model.ChannelSell)
	}
	return snap
}

func (r *Runtime) observeConsumption(ch model.Channel, f channelFigures) {
	metrics.SetConsumption(string(ch), string(model.PeriodDay), f.day)
	metrics.SetConsumption(string(ch), string(model.PeriodMonth), f.month)
	metrics.SetConsumption(string(ch), string(model.PeriodYear), f.year)
}

// entryFor hands the published figures of snap to the ledger; a missing
// channel leaves its figures nil.
func entryFor(snap model.Snapshot, now time.Time) ledger.Entry {
	e := ledger.Entry{At: now}
	if !snap.IsMissing(model.ChannelBuy) {
		e.Buy = figuresOf(snap, model.ChannelBuy)
	}
	if !snap.IsMissing(model.ChannelSell) {
		e.Sell = figuresOf(snap, model.ChannelSell)
	}
	return e
}

func figuresOf(snap model.Snapshot, ch model.Channel) ledger.Figures {
	total := snap.Total(ch)
	day := snap.Consumption(ch, model.PeriodDay)
	month := snap.Consumption(ch, model.PeriodMonth)
	year := snap.Consumption(ch, model.PeriodYear)
	return ledger.Figures{Total: &total, Day: &day, Month: &month, Year: &year}
}
