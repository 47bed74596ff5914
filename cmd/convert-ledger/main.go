package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"energy-billing/internal/ledger"
)

// convert-ledger turns a timestamped ledger (one pipe-separated row per
// update) into a daily ledger (one CSV row per date, newest first), keeping the
// last row of each date.
func main() {
	var (
		inPath  = flag.String("in", "", "Timestamped ledger file (e.g. energy/2025.csv)")
		outPath = flag.String("out", "", "Daily ledger output path (default: <in>.daily.csv)")
		force   = flag.Bool("force", false, "Overwrite the output file if it exists")
	)
	flag.Parse()

	if *inPath == "" {
		log.Fatal("--in is required")
	}
	if *outPath == "" {
		*outPath = strings.TrimSuffix(*inPath, filepath.Ext(*inPath)) + ".daily.csv"
	}
	if !*force {
		if _, err := os.Stat(*outPath); err == nil {
			log.Fatalf("%s exists; pass --force to overwrite", *outPath)
		}
	}

	f, err := os.Open(*inPath)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	rows, err := ledger.ParseTimestamped(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to read ledger: %v", err)
	}
	fmt.Printf("Read %d timestamped rows from %s\n", len(rows), *inPath)

	days := ledger.DailyFromTimestamped(rows)
	if err := ledger.WriteDaily(*outPath, days); err != nil {
		log.Fatalf("Failed to write daily ledger: %v", err)
	}

	fmt.Printf("Saved %d days to %s\n", len(days), *outPath)
}
