package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// rowDateRe accepts M/D/Y with 2- or 4-digit years and either "/" or
	// "-" separators, the variants seen in metering-portal exports.
	rowDateRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)

	// esiidRe matches a 17–22 digit electric service identifier.
	esiidRe = regexp.MustCompile(`^\d{17,22}$`)
)

// Positional fallback matching the standard SMT export layout, used when
// header matching finds nothing.
const (
	fallbackMeterCol = 0
	fallbackDateCol  = 1
	fallbackUsageCol = 5
)

// ParseUsageCSV aggregates a tabular usage export into monthly buckets and
// a direct row-level total. Rows with unparseable dates or negative usage
// are skipped, never fatal; a non-nil error means the file itself was
// unreadable (no header, broken quoting).
func ParseUsageCSV(payload []byte, h Heuristics) (*Extraction, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	meterCol, dateCol, usageCol := locateColumns(header, h)

	ex := &Extraction{}
	rows := 0
	var earliest, latest time.Time

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A torn row mid-file; keep what parsed so far.
			break
		}
		if len(record) <= dateCol || len(record) <= usageCol {
			continue
		}

		date, ok := parseRowDate(record[dateCol])
		if !ok {
			continue
		}
		kwh, err := strconv.ParseFloat(strings.TrimSpace(record[usageCol]), 64)
		if err != nil || kwh < 0 {
			// Negative rows are net-metering surplus or bad data; either
			// way they are not consumption.
			continue
		}

		if ex.Series.MeterID == "" && meterCol < len(record) {
			if id := strings.TrimSpace(record[meterCol]); esiidRe.MatchString(id) {
				ex.Series.MeterID = id
			}
		}

		ex.Series.Add(date.Year(), int(date.Month()), kwh, false)
		ex.Series.Observe(date)
		ex.DirectTotal += kwh
		rows++

		if earliest.IsZero() || date.Before(earliest) {
			earliest = date
		}
		if latest.IsZero() || date.After(latest) {
			latest = date
		}
	}

	if rows > 0 {
		ex.HasDirect = true
		ex.DaysCovered = spanDays(earliest, latest) + 1 // inclusive span
	}
	if rows > 0 && rows < h.FullCoverageRows {
		ex.Warning = fmt.Sprintf(
			"Only %d usage rows found; estimates improve with a longer export (around %d rows covers a full year).",
			rows, h.FullCoverageRows)
	}

	ex.Series.Sort()
	return ex, nil
}

// locateColumns finds the meter, date, and usage column indices by
// case-insensitive substring match against the header, falling back to the
// fixed export layout when a column can't be matched. The date keywords are
// checked against non-usage columns first so "usage date" doesn't claim the
// usage column.
func locateColumns(header []string, h Heuristics) (meterCol, dateCol, usageCol int) {
	meterCol, dateCol, usageCol = -1, -1, -1

	normalized := make([]string, len(header))
	for i, col := range header {
		normalized[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(col)), "_", " ")
	}

	for i, col := range normalized {
		switch {
		case meterCol == -1 && containsAny(col, h.MeterColumnKeywords):
			meterCol = i
		case dateCol == -1 && containsAny(col, h.DateColumnKeywords):
			dateCol = i
		case usageCol == -1 && containsAny(col, h.UsageColumnKeywords) &&
			!strings.Contains(col, "time") && !strings.Contains(col, "date"):
			usageCol = i
		}
	}

	if meterCol == -1 {
		meterCol = fallbackMeterCol
	}
	if dateCol == -1 {
		dateCol = fallbackDateCol
	}
	if usageCol == -1 {
		usageCol = fallbackUsageCol
	}
	return meterCol, dateCol, usageCol
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// parseRowDate parses a permissive M/D/Y date. Two-digit years are assumed
// to be 2000s.
func parseRowDate(s string) (time.Time, bool) {
	m := rowDateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
