package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"

	"energy-billing/internal/analysis"
	"energy-billing/internal/config"
	"energy-billing/internal/engine"
	"energy-billing/internal/ledger"
	"energy-billing/internal/logger"
	"energy-billing/internal/model"
	"energy-billing/internal/options"
	"energy-billing/internal/tariff"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "tick":
		cmdTick(os.Args[2:])
	case "cost":
		cmdCost(os.Args[2:])
	case "recalibrate":
		cmdRecalibrate(os.Args[2:])
	case "history":
		cmdHistory(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli tick --config energy.yaml [--n 1]")
	fmt.Println("  cli cost --kwh 120 [--config energy.yaml]")
	fmt.Println("  cli recalibrate --config energy.yaml --options once.yaml")
	fmt.Println("  cli history --config energy.yaml [--year 2025]")
	fmt.Println("  cli export --config energy.yaml [--year 2025] [--format xlsx|pdf] [--out energy-2025.xlsx]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - tick runs update cycles against the configured meters and persists state")
	fmt.Println("  - recalibrate applies a one-shot options document; it is not stored")
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func cliLogger(cfg *config.Config, verbose bool) zerolog.Logger {
	if !verbose {
		return logger.New("warn", "console")
	}
	return logger.New(cfg.Log.Level, "console")
}

func openRuntime(ctx context.Context, cfg *config.Config, verbose bool) *engine.Runtime {
	rt, err := engine.FromConfig(ctx, cfg, cliLogger(cfg, verbose))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open instance: %v\n", err)
		os.Exit(1)
	}
	return rt
}

func cmdTick(args []string) {
	fs := flag.NewFlagSet("tick", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	n := fs.Int("n", 1, "Number of update cycles to run")
	every := fs.Duration("every", 0, "Pause between cycles (0 = configured interval when n > 1)")
	verbose := fs.Bool("v", false, "Log at the configured level")
	_ = fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	ctx := context.Background()
	rt := openRuntime(ctx, cfg, *verbose)
	defer rt.Close()

	pause := *every
	if pause == 0 {
		pause = cfg.Interval()
	}
	for i := 0; i < *n; i++ {
		if i > 0 {
			time.Sleep(pause)
		}
		snap, err := rt.Update(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "update: %v\n", err)
		}
		printSnapshot(snap)
	}
}

func cmdCost(args []string) {
	fs := flag.NewFlagSet("cost", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config (optional, default tiers otherwise)")
	kwh := fs.String("kwh", "", "Consumption in kWh")
	_ = fs.Parse(args)

	if *kwh == "" {
		fmt.Println("--kwh is required")
		os.Exit(2)
	}
	cfg := config.Default()
	if *cfgPath != "" {
		c, err := config.LoadUnchecked(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = c
	}
	sched, err := cfg.BuySchedule()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tariff: %v\n", err)
		os.Exit(1)
	}
	d, err := tariff.NewDecimal(*kwh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kwh: %v\n", err)
		os.Exit(2)
	}

	q := sched.Quote(d)
	fmt.Printf("%-6s %-12s %-12s %-16s\n", "tier", "kwh", "unit", "amount")
	for _, l := range q.Lines {
		fmt.Printf("%-6d %-12s %-12s %-16s\n", l.Tier, l.KWh, l.UnitPrice, l.Amount)
	}
	fmt.Printf("\nsubtotal=%s tax=%s total=%s %s (%.*f thousand)\n",
		q.Subtotal, q.Tax, q.Total, cfg.Tariff.Currency,
		cfg.Tariff.CostDecimals, tariff.Thousands(q.Total, cfg.Tariff.CostDecimals))
}

func cmdRecalibrate(args []string) {
	fs := flag.NewFlagSet("recalibrate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	optsPath := fs.String("options", "", "Path to a one-shot options document (YAML or JSON)")
	verbose := fs.Bool("v", false, "Log at the configured level")
	_ = fs.Parse(args)

	if *optsPath == "" {
		fmt.Println("--options is required")
		os.Exit(2)
	}
	raw, err := os.ReadFile(*optsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read options: %v\n", err)
		os.Exit(1)
	}
	doc, err := options.Parse(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig(*cfgPath)
	ctx := context.Background()
	rt := openRuntime(ctx, cfg, *verbose)
	defer rt.Close()

	snap, err := rt.ApplyOptions(ctx, doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recalibrate: %v\n", err)
		os.Exit(1)
	}
	printSnapshot(snap)
}

func cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	year := fs.Int("year", time.Now().Year(), "Ledger year")
	height := fs.Int("height", 12, "Chart height")
	top := fs.Int("top", 5, "Number of highest-consumption days to list")
	_ = fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	rows := readDays(cfg, *year)
	if len(rows) == 0 {
		fmt.Printf("no ledger rows for %d\n", *year)
		return
	}

	// rows are newest first; plot oldest to newest
	buy := make([]float64, len(rows))
	sell := make([]float64, len(rows))
	for i, r := range rows {
		buy[len(rows)-1-i] = r.BuyDay
		sell[len(rows)-1-i] = r.SellDay
	}
	graph := asciigraph.PlotMany([][]float64{buy, sell},
		asciigraph.Height(*height),
		asciigraph.Caption(fmt.Sprintf("daily kWh %d: buy (red) / sell (green), %s .. %s", *year, rows[len(rows)-1].Date, rows[0].Date)),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
	)
	fmt.Println(graph)

	fmt.Printf("\n%-6s %-6s %-10s %-10s %-10s %-10s %-10s %-10s %-12s\n", "", "days", "total", "mean", "min", "p05", "p95", "max", "peak")
	for _, ch := range model.Channels {
		u := analysis.Summarize(rows, ch)
		fmt.Printf("%-6s %-6d %-10.3f %-10.3f %-10.3f %-10.3f %-10.3f %-10.3f %-12s\n",
			ch, u.Days, u.TotalKWh, u.MeanKWh, u.MinKWh, u.P05KWh, u.P95KWh, u.MaxKWh, u.PeakDate)
	}

	fmt.Printf("\n%-4s %-12s %-10s\n", "rank", "date", "buy kWh")
	for _, d := range analysis.TopDays(rows, model.ChannelBuy, *top) {
		fmt.Printf("%-4d %-12s %-10.3f\n", d.Rank, d.Date, d.KWh)
	}
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	year := fs.Int("year", time.Now().Year(), "Ledger year")
	format := fs.String("format", "xlsx", "xlsx or pdf")
	outPath := fs.String("out", "", "Output path (default energy-<year>.<format>)")
	_ = fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	rows := readDays(cfg, *year)

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(*format) {
	case "xlsx":
		data, err = ledger.ExportXLSX(*year, rows)
	case "pdf":
		data, err = ledger.ExportPDF(*year, rows)
	default:
		fmt.Printf("unsupported --format %q\n", *format)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}

	out := *outPath
	if out == "" {
		out = fmt.Sprintf("energy-%04d.%s", *year, strings.ToLower(*format))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d days to %s\n", len(rows), out)
}

func readDays(cfg *config.Config, year int) []ledger.DailyRow {
	w, err := ledger.New(cfg.Ledger.Mode, cfg.OutputDir, cfg.Ledger.Missing, cfg.RoundDecimals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger: %v\n", err)
		os.Exit(1)
	}
	rows, err := w.Days(year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read ledger: %v\n", err)
		os.Exit(1)
	}
	return rows
}

func printSnapshot(s model.Snapshot) {
	fmt.Printf("%s\n", s.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("%-6s %-12s %-10s %-10s %-10s %-12s %-12s %-12s\n", "", "total", "day", "month", "year", "money day", "money month", "money year")
	if s.IsMissing(model.ChannelBuy) {
		fmt.Printf("%-6s (no valid reading yet)\n", "buy")
	} else {
		fmt.Printf("%-6s %-12.3f %-10.3f %-10.3f %-10.3f %-12.1f %-12.1f %-12.1f\n", "buy",
			s.TotalBuy, s.BuyDay, s.BuyMonth, s.BuyYear, s.BuyCostDay, s.BuyCostMonth, s.BuyCostYear)
	}
	if s.IsMissing(model.ChannelSell) {
		fmt.Printf("%-6s (no valid reading yet)\n", "sell")
	} else {
		fmt.Printf("%-6s %-12.3f %-10.3f %-10.3f %-10.3f %-12.1f %-12.1f %-12.1f\n", "sell",
			s.TotalSell, s.SellDay, s.SellMonth, s.SellYear, s.SellRevenueDay, s.SellRevenueMonth, s.SellRevenueYear)
	}
	fmt.Printf("money in thousand %s\n", s.Currency)
}
