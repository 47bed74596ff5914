package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"energy-billing/internal/atomicfile"
	"energy-billing/internal/model"
)

const dailyColumns = 7

// DailyWriter upserts one row per calendar date into <dir>/<year>.csv.
// Rows are kept newest first; the file is rewritten atomically on every write.
type DailyWriter struct {
	mu            sync.Mutex
	dir           string
	missing       Missing
	roundDecimals int
}

func NewDailyWriter(dir string, missing Missing, roundDecimals int) *DailyWriter {
	return &DailyWriter{dir: dir, missing: missing, roundDecimals: roundDecimals}
}

func (w *DailyWriter) Path(year int) string { return yearPath(w.dir, year) }

func (w *DailyWriter) Write(e Entry) error {
	return w.Upsert(e)
}

// Upsert replaces or inserts the row for e's date in the file of e's year.
func (w *DailyWriter) Upsert(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !e.complete(false) && w.missing == MissingSkip {
		return ErrIncompleteRow
	}

	path := w.Path(e.At.Year())
	rows, err := readDaily(path)
	if err != nil {
		return err
	}

	date := e.At.Format("2006-01-02")
	prev := carrySource(rows, date)
	r := DailyRow{
		Date:      date,
		TotalBuy:  model.Round(pick(e.Buy.Total, prev.TotalBuy), w.roundDecimals),
		BuyDay:    model.Round(pick(e.Buy.Day, prev.BuyDay), w.roundDecimals),
		BuyMonth:  model.Round(pick(e.Buy.Month, prev.BuyMonth), w.roundDecimals),
		TotalSell: model.Round(pick(e.Sell.Total, prev.TotalSell), w.roundDecimals),
		SellDay:   model.Round(pick(e.Sell.Day, prev.SellDay), w.roundDecimals),
		SellMonth: model.Round(pick(e.Sell.Month, prev.SellMonth), w.roundDecimals),
		Time:      e.At.Format("15:04:05"),
	}

	byDate := make(map[string]DailyRow, len(rows)+1)
	for _, old := range rows {
		byDate[old.Date] = old
	}
	byDate[date] = r

	out := make([]DailyRow, 0, len(byDate))
	for _, row := range byDate {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })

	data, err := encodeDaily(out)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, 0o644)
}

// carrySource is the row missing values are carried from: the existing row for
// date, else the newest earlier row, else zeros.
func carrySource(rows []DailyRow, date string) DailyRow {
	var best DailyRow
	for _, r := range rows {
		if r.Date == date {
			return r
		}
		if r.Date < date && r.Date > best.Date {
			best = r
		}
	}
	best.Date = ""
	return best
}

func (w *DailyWriter) Days(year int) ([]DailyRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := readDaily(w.Path(year))
	if err != nil {
		return nil, err
	}
	return dedupeNewestFirst(rows), nil
}

func dedupeNewestFirst(rows []DailyRow) []DailyRow {
	byDate := make(map[string]DailyRow, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}
	out := make([]DailyRow, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func readDaily(path string) ([]DailyRow, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()

	rows, err := ParseDaily(f)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}
	return rows, nil
}

// ParseDaily reads daily rows, skipping blank, short and non-numeric lines
// (including any header). The eighth time column is optional.
func ParseDaily(r io.Reader) ([]DailyRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var rows []DailyRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				continue
			}
			return nil, err
		}
		if len(rec) < dailyColumns {
			continue
		}
		var vals [dailyColumns - 1]float64
		ok := true
		for i := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		row := DailyRow{
			Date:      strings.TrimSpace(rec[0]),
			TotalBuy:  vals[0],
			BuyDay:    vals[1],
			BuyMonth:  vals[2],
			TotalSell: vals[3],
			SellDay:   vals[4],
			SellMonth: vals[5],
		}
		if len(rec) > dailyColumns {
			row.Time = strings.TrimSpace(rec[dailyColumns])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// encodeDaily renders rows in file order. Rows without a time keep an empty
// eighth column.
func encodeDaily(rows []DailyRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range rows {
		rec := []string{
			r.Date,
			formatShort(r.TotalBuy),
			formatShort(r.BuyDay),
			formatShort(r.BuyMonth),
			formatShort(r.TotalSell),
			formatShort(r.SellDay),
			formatShort(r.SellMonth),
			r.Time,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDaily replaces the file at path with rows, newest first.
func WriteDaily(path string, rows []DailyRow) error {
	data, err := encodeDaily(dedupeNewestFirst(rows))
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, 0o644)
}
