// Package journal persists trade fills durably. Two backends are provided:
// an append-only CSV file and a SQLite database. Both flush each row before
// returning so a confirmed fill survives a crash.
package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"cryptobot/internal/model"
)

var csvHeader = []string{
	"ts", "symbol", "side", "qty", "price", "fee", "notional", "realized_pnl", "cash_after",
}

// CSVWriter appends fills to a CSV file, one row per fill, fsynced.
type CSVWriter struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewCSVWriter opens (or creates) the CSV journal at path, writing the
// header if the file is new or empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csv journal open: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csv journal stat: %w", err)
	}
	w := &CSVWriter{f: f, path: path}
	if st.Size() == 0 {
		if err := w.writeRow(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// Append writes one fill row and syncs it to disk.
func (w *CSVWriter) Append(fill model.Fill) error {
	return w.writeRow(fillToRecord(fill))
}

func (w *CSVWriter) writeRow(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cw := csv.NewWriter(w.f)
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("csv journal write: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv journal flush: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("csv journal sync: %w", err)
	}
	return nil
}

// Path returns the journal file path.
func (w *CSVWriter) Path() string { return w.path }

// Close closes the underlying file.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// ReadCSV loads all fills from a CSV journal, in append order.
func ReadCSV(path string) ([]model.Fill, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv journal open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	var fills []model.Fill
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv journal read: %w", err)
		}
		if first {
			first = false
			if len(record) > 0 && record[0] == csvHeader[0] {
				continue // skip header
			}
		}
		fill, err := recordToFill(record)
		if err != nil {
			return nil, err
		}
		fills = append(fills, fill)
	}
	return fills, nil
}

func fillToRecord(f model.Fill) []string {
	return []string{
		f.TS.UTC().Format(time.RFC3339Nano),
		f.Symbol,
		string(f.Side),
		strconv.FormatFloat(f.Qty, 'f', -1, 64),
		strconv.FormatFloat(f.Price, 'f', -1, 64),
		strconv.FormatFloat(f.Fee, 'f', -1, 64),
		strconv.FormatFloat(f.Notional, 'f', -1, 64),
		strconv.FormatFloat(f.RealizedPnL, 'f', -1, 64),
		strconv.FormatFloat(f.CashAfter, 'f', -1, 64),
	}
}

func recordToFill(record []string) (model.Fill, error) {
	if len(record) != len(csvHeader) {
		return model.Fill{}, fmt.Errorf("csv journal: row has %d fields, want %d", len(record), len(csvHeader))
	}
	ts, err := time.Parse(time.RFC3339Nano, record[0])
	if err != nil {
		return model.Fill{}, fmt.Errorf("csv journal: bad ts %q: %w", record[0], err)
	}
	nums := make([]float64, 6)
	for i, raw := range record[3:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Fill{}, fmt.Errorf("csv journal: bad %s %q: %w", csvHeader[i+3], raw, err)
		}
		nums[i] = v
	}
	return model.Fill{
		TS:          ts,
		Symbol:      record[1],
		Side:        model.Side(record[2]),
		Qty:         nums[0],
		Price:       nums[1],
		Fee:         nums[2],
		Notional:    nums[3],
		RealizedPnL: nums[4],
		CashAfter:   nums[5],
	}, nil
}
