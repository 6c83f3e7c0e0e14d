package prices

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrMissingDateColumn is returned when a CSV header has no date column.
var ErrMissingDateColumn = errors.New("csv header has no date column")

var csvDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "01/02/2006"}

// ParseCSV reads daily bars for one symbol from a vendor CSV export.
//
// Header names are matched case-insensitively: date, open, high, low, close,
// "adj close" (also adj_close, adjusted_close) and volume. Empty, "null" and
// "nan" cells become missing values.
func ParseCSV(r io.Reader, symbol string) ([]DailyPrice, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch name {
		case "adj close", "adj_close", "adjclose", "adjusted_close":
			name = "adjusted_close"
		}
		cols[name] = i
	}
	dateIdx, ok := cols["date"]
	if !ok {
		return nil, ErrMissingDateColumn
	}

	var bars []DailyPrice
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dateIdx >= len(record) {
			continue
		}

		date, err := parseCSVDate(record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bar := DailyPrice{Symbol: symbol, Date: date}
		for name, dst := range map[string]**float64{
			"open":           &bar.Open,
			"high":           &bar.High,
			"low":            &bar.Low,
			"close":          &bar.Close,
			"adjusted_close": &bar.AdjustedClose,
		} {
			v, err := csvFloat(record, cols, name)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, name, err)
			}
			*dst = v
		}
		if f, err := csvFloat(record, cols, "volume"); err == nil && f != nil {
			vol := int64(*f)
			bar.Volume = &vol
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func parseCSVDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

func csvFloat(record []string, cols map[string]int, name string) (*float64, error) {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return nil, nil
	}
	raw := strings.TrimSpace(record[idx])
	switch strings.ToLower(raw) {
	case "", "null", "nan", "none":
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
