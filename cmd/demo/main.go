package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"energy-billing/internal/engine"
	"energy-billing/internal/ledger"
	"energy-billing/internal/logger"
	"energy-billing/internal/model"
	"energy-billing/internal/options"
	"energy-billing/internal/source"
	"energy-billing/internal/state"
	"energy-billing/internal/tariff"
)

const (
	forward = "sensor.demo_forward"
	reverse = "sensor.demo_reverse"
)

type step struct {
	at         time.Time
	buy, sell  string
	note       string
	oneShotDay string
}

// Demo:
// - Feed a scripted sequence of meter states through a static source
// - Cross a day and a month boundary, including meter glitches
// - Apply a one-shot day value and print what each cycle publishes
func main() {
	outDir := flag.String("out", "", "Directory for state and ledger (default: a temp dir)")
	verbose := flag.Bool("v", false, "Log every cycle")
	flag.Parse()

	dir := *outDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "energy-demo-")
		if err != nil {
			panic(err)
		}
		dir = tmp
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(level, "console")

	loc := time.FixedZone("ICT", 7*60*60)
	day := func(m time.Month, d, h, min int) time.Time { return time.Date(2025, m, d, h, min, 0, 0, loc) }
	script := []step{
		{at: day(5, 30, 8, 0), buy: "1000.0", sell: "50.0", note: "first readings establish baselines"},
		{at: day(5, 30, 12, 0), buy: "1012.4", sell: "55.5", note: "daytime import and export"},
		{at: day(5, 30, 12, 1), buy: "unavailable", sell: "unknown", note: "meter offline: nothing moves"},
		{at: day(5, 30, 18, 0), buy: "3.0", sell: "56.0", note: "glitch: buy total drops, rejected"},
		{at: day(5, 31, 0, 5), buy: "1030.0", sell: "58.0", note: "day rollover"},
		{at: day(5, 31, 20, 0), buy: "1085.0", sell: "60.0", note: "crossing into tier 2"},
		{at: day(6, 1, 0, 1), buy: "1086.0", sell: "60.0", note: "month rollover freezes May"},
		{at: day(6, 1, 9, 0), buy: "1090.0", sell: "61.0", oneShotDay: "10", note: "one-shot: buy day = 10 kWh"},
		{at: day(6, 1, 21, 0), buy: "1101.5", sell: "64.0", note: "evening"},
	}

	clock := script[0].at
	src := source.NewStaticSource(nil)
	sched, err := tariff.NewSchedule(tariff.DefaultTiers(), tariff.DefaultTaxRate)
	if err != nil {
		panic(err)
	}
	lw := ledger.NewDailyWriter(dir, ledger.MissingCarry, 3)
	rt, err := engine.New(context.Background(), engine.Options{
		InstanceID:    "demo",
		ForwardEntity: forward,
		ReverseEntity: reverse,
		Source:        src,
		Store:         state.NewFileStore(filepath.Join(dir, "state.json")),
		Ledger:        lw,
		BuySchedule:   sched,
		SellRate:      tariff.NewFlatRate(tariff.DefaultSellPrice),
		Currency:      tariff.DefaultCurrency,
		RoundDecimals: 3,
		CostDecimals:  1,
		Location:      loc,
		Clock:         func() time.Time { return clock },
		Logger:        log,
	})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Writing state and ledger to %s\n\n", dir)
	fmt.Printf("%-16s %-12s %-8s %-8s %-8s %-9s %-9s %-9s %-8s %-8s  %s\n",
		"time", "buy total", "day", "month", "year", "cost d", "cost m", "cost y", "sell d", "rev d", "note")

	ctx := context.Background()
	for _, s := range script {
		clock = s.at
		src.Set(forward, s.buy)
		src.Set(reverse, s.sell)

		var snap model.Snapshot
		if s.oneShotDay != "" {
			snap, err = rt.ApplyOptions(ctx, options.Document{
				Buy: options.Seeds{Day: options.Seed{Value: options.Literal(s.oneShotDay)}},
			})
		} else {
			snap, err = rt.Update(ctx)
		}
		if err != nil {
			panic(err)
		}
		fmt.Printf("%-16s %-12.3f %-8.3f %-8.3f %-8.3f %-9.1f %-9.1f %-9.1f %-8.3f %-8.1f  %s\n",
			s.at.Format("2006-01-02 15:04"),
			snap.TotalBuy, snap.BuyDay, snap.BuyMonth, snap.BuyYear,
			snap.BuyCostDay, snap.BuyCostMonth, snap.BuyCostYear,
			snap.SellDay, snap.SellRevenueDay,
			s.note,
		)
	}

	rows, err := lw.Days(2025)
	if err != nil {
		panic(err)
	}
	fmt.Printf("\nLedger %s:\n", lw.Path(2025))
	for _, r := range rows {
		fmt.Printf("  %s buy_day=%.3f buy_month=%.3f sell_day=%.3f at %s\n", r.Date, r.BuyDay, r.BuyMonth, r.SellDay, r.Time)
	}
	fmt.Printf("\nDone. Money in thousand %s.\n", tariff.DefaultCurrency)
}
