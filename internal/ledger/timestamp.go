package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"energy-billing/internal/atomicfile"
)

// TimestampHeader is the first line of every timestamped ledger file.
const TimestampHeader = "date|hour|min_sec|total_buy|buy_day|buy_month|buy_year|total_sell|sell_day|sell_month|sell_year"

const timestampColumns = 11

// TimestampRow is one update of a timestamped ledger.
type TimestampRow struct {
	Date   string
	Hour   string
	MinSec string

	TotalBuy float64
	BuyDay   float64
	BuyMonth float64
	BuyYear  float64

	TotalSell float64
	SellDay   float64
	SellMonth float64
	SellYear  float64
}

func (r TimestampRow) key() string {
	return r.Date + "|" + r.Hour + "|" + r.MinSec
}

func (r TimestampRow) String() string {
	return fmt.Sprintf("%s|%s|%s|%.3f|%.3f|%.3f|%.3f|%.3f|%.3f|%.3f|%.3f",
		r.Date, r.Hour, r.MinSec,
		r.TotalBuy, r.BuyDay, r.BuyMonth, r.BuyYear,
		r.TotalSell, r.SellDay, r.SellMonth, r.SellYear,
	)
}

// Daily reduces the row to the daily ledger's columns.
func (r TimestampRow) Daily() DailyRow {
	return DailyRow{
		Date:      r.Date,
		TotalBuy:  r.TotalBuy,
		BuyDay:    r.BuyDay,
		BuyMonth:  r.BuyMonth,
		TotalSell: r.TotalSell,
		SellDay:   r.SellDay,
		SellMonth: r.SellMonth,
		Time:      r.Hour + ":" + r.MinSec,
	}
}

// TimestampWriter appends one row per update to <dir>/<year>.csv. A write whose
// (date, hour, min:sec) matches the last row replaces that row instead.
type TimestampWriter struct {
	mu      sync.Mutex
	dir     string
	missing Missing
}

func NewTimestampWriter(dir string, missing Missing) *TimestampWriter {
	return &TimestampWriter{dir: dir, missing: missing}
}

func (w *TimestampWriter) Path(year int) string { return yearPath(w.dir, year) }

func (w *TimestampWriter) Write(e Entry) error {
	return w.Append(e)
}

// Append records e at the end of the file of e's year.
func (w *TimestampWriter) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !e.complete(true) && w.missing == MissingSkip {
		return ErrIncompleteRow
	}

	path := w.Path(e.At.Year())
	lines, unterminated, err := readLines(path)
	if err != nil {
		return err
	}

	last, lastIdx := lastTimestampRow(lines)
	var prev TimestampRow
	if lastIdx >= 0 {
		prev = last
	}
	row := TimestampRow{
		Date:      e.At.Format("2006-01-02"),
		Hour:      e.At.Format("15"),
		MinSec:    e.At.Format("04:05"),
		TotalBuy:  pick(e.Buy.Total, prev.TotalBuy),
		BuyDay:    pick(e.Buy.Day, prev.BuyDay),
		BuyMonth:  pick(e.Buy.Month, prev.BuyMonth),
		BuyYear:   pick(e.Buy.Year, prev.BuyYear),
		TotalSell: pick(e.Sell.Total, prev.TotalSell),
		SellDay:   pick(e.Sell.Day, prev.SellDay),
		SellMonth: pick(e.Sell.Month, prev.SellMonth),
		SellYear:  pick(e.Sell.Year, prev.SellYear),
	}

	if len(lines) == 0 {
		return atomicfile.Write(path, []byte(TimestampHeader+"\n"+row.String()+"\n"), 0o644)
	}

	if lastIdx >= 0 && last.key() == row.key() {
		lines[lastIdx] = row.String()
		return atomicfile.Write(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
	}

	return appendLine(path, row.String(), unterminated)
}

func appendLine(path, line string, newlineFirst bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()

	if newlineFirst {
		line = "\n" + line
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append ledger %s: %w", path, err)
	}
	return nil
}

// readLines returns the lines of path and whether the file lacks a final newline.
func readLines(path string) ([]string, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read ledger %s: %w", path, err)
	}
	unterminated := len(raw) > 0 && raw[len(raw)-1] != '\n'
	raw = bytes.TrimRight(raw, "\n")
	if len(raw) == 0 {
		return nil, false, nil
	}
	return strings.Split(string(raw), "\n"), unterminated, nil
}

// lastTimestampRow finds the last line that parses as a row, skipping blank
// lines and headers.
func lastTimestampRow(lines []string) (TimestampRow, int) {
	for i := len(lines) - 1; i >= 0; i-- {
		if r, ok := parseTimestampLine(lines[i]); ok {
			return r, i
		}
	}
	return TimestampRow{}, -1
}

func parseTimestampLine(line string) (TimestampRow, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line == TimestampHeader {
		return TimestampRow{}, false
	}
	parts := strings.Split(line, "|")
	if len(parts) < timestampColumns {
		return TimestampRow{}, false
	}
	var vals [timestampColumns - 3]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+3]), 64)
		if err != nil {
			return TimestampRow{}, false
		}
		vals[i] = v
	}
	return TimestampRow{
		Date:      strings.TrimSpace(parts[0]),
		Hour:      strings.TrimSpace(parts[1]),
		MinSec:    strings.TrimSpace(parts[2]),
		TotalBuy:  vals[0],
		BuyDay:    vals[1],
		BuyMonth:  vals[2],
		BuyYear:   vals[3],
		TotalSell: vals[4],
		SellDay:   vals[5],
		SellMonth: vals[6],
		SellYear:  vals[7],
	}, true
}

// ParseTimestamped reads every row of a timestamped ledger in file order.
func ParseTimestamped(r io.Reader) ([]TimestampRow, error) {
	var rows []TimestampRow
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if row, ok := parseTimestampLine(sc.Text()); ok {
			rows = append(rows, row)
		}
	}
	return rows, sc.Err()
}

// Rows returns every row of year in file order.
func (w *TimestampWriter) Rows(year int) ([]TimestampRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.Path(year))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTimestamped(f)
}

// Days keeps the last row of each date, newest date first.
func (w *TimestampWriter) Days(year int) ([]DailyRow, error) {
	rows, err := w.Rows(year)
	if err != nil {
		return nil, err
	}
	return DailyFromTimestamped(rows), nil
}

// DailyFromTimestamped keeps the last row of each date, newest date first.
func DailyFromTimestamped(rows []TimestampRow) []DailyRow {
	daily := make([]DailyRow, 0, len(rows))
	for _, r := range rows {
		daily = append(daily, r.Daily())
	}
	return dedupeNewestFirst(daily)
}
