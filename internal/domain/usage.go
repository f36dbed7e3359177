package domain

import (
	"sort"
	"time"
)

// Source identifies where a normalized record's data came from.
type Source string

const (
	SourceFileUpload Source = "file_upload"
	SourceAIScan     Source = "ai_scan"
	SourceLivePortal Source = "live_portal"

	// SourceRegionalDefault marks the fallback record produced when no
	// candidate parsed; its figure is a flat regional average, not a
	// measurement.
	SourceRegionalDefault Source = "regional_default"
)

// EstimateMethod records how an annual figure was computed.
type EstimateMethod string

const (
	MethodDirectSum            EstimateMethod = "direct_sum"
	MethodSummaryExtrapolation EstimateMethod = "summary_extrapolation"
	MethodPartialExtrapolation EstimateMethod = "partial_extrapolation"
)

// DataQuality grades how much real calendar coverage backs an estimate.
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent"
	QualityGood      DataQuality = "good"
	QualityFair      DataQuality = "fair"
)

// RawInput is an opaque uploaded payload plus the metadata needed to
// classify it. It lives only for the duration of one extraction call.
type RawInput struct {
	Filename  string
	MediaType string
	Content   []byte
}

// MonthlyUsage is one calendar month's consumption in kWh.
type MonthlyUsage struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"` // 1–12
	KWh       float64 `json:"kwh"`
	Estimated bool    `json:"estimated,omitempty"`
}

// UsageSeries is a chronologically ordered monthly usage history with at
// most one entry per (year, month). Earliest and Latest are the raw
// timestamps observed while building the series, which may span more
// calendar time than the entries themselves represent.
type UsageSeries struct {
	Entries  []MonthlyUsage `json:"entries"`
	MeterID  string         `json:"meter_id,omitempty"`
	Earliest time.Time      `json:"earliest,omitzero"`
	Latest   time.Time      `json:"latest,omitzero"`
}

// Add merges kwh into the (year, month) bucket, creating it if absent.
// Merging rather than appending preserves the uniqueness invariant when a
// file carries several readings for the same month.
func (s *UsageSeries) Add(year, month int, kwh float64, estimated bool) {
	for i := range s.Entries {
		if s.Entries[i].Year == year && s.Entries[i].Month == month {
			s.Entries[i].KWh += kwh
			// Any estimated contribution taints the whole bucket.
			s.Entries[i].Estimated = s.Entries[i].Estimated || estimated
			return
		}
	}
	s.Entries = append(s.Entries, MonthlyUsage{Year: year, Month: month, KWh: kwh, Estimated: estimated})
}

// Observe widens the raw timestamp range to include t.
func (s *UsageSeries) Observe(t time.Time) {
	if s.Earliest.IsZero() || t.Before(s.Earliest) {
		s.Earliest = t
	}
	if s.Latest.IsZero() || t.After(s.Latest) {
		s.Latest = t
	}
}

// Sort orders entries ascending by (year, month).
func (s *UsageSeries) Sort() {
	sort.Slice(s.Entries, func(i, j int) bool {
		if s.Entries[i].Year != s.Entries[j].Year {
			return s.Entries[i].Year < s.Entries[j].Year
		}
		return s.Entries[i].Month < s.Entries[j].Month
	})
}

// Total returns the sum of all entries in kWh.
func (s *UsageSeries) Total() float64 {
	var total float64
	for _, e := range s.Entries {
		total += e.KWh
	}
	return total
}

// SummaryPeriod is a single billing-period rollup from a Green Button
// UsageSummary block.
type SummaryPeriod struct {
	Start time.Time
	Days  int
	KWh   float64
}

// Extraction is the intermediate result of parsing one usage file, before
// annualization. A nil *Extraction from a parser means the file was
// structurally unreadable; an Extraction with an empty series means the
// file parsed but held no usable consumption data.
type Extraction struct {
	Series      UsageSeries
	Summary     *SummaryPeriod // set only when the summary block is the best data available
	DirectTotal float64        // running sum of row-level measurements
	HasDirect   bool
	DaysCovered int
	Warning     string // coverage shortfalls; never fatal
}

// AnnualEstimate is a single defensible annual kWh figure plus the
// provenance a caller needs to judge it.
type AnnualEstimate struct {
	AnnualKWh   int            `json:"annual_kwh"`
	DaysCovered int            `json:"days_covered"`
	Quality     DataQuality    `json:"data_quality"`
	Method      EstimateMethod `json:"method"`
}

// BillScan holds the fields a vision model extracted from a photographed
// utility bill. All fields are optional; a scan with neither a usage
// figure nor an identifier is not a recognizable bill.
type BillScan struct {
	CustomerName    string         `json:"customerName,omitempty"`
	CurrentUsageKWh float64        `json:"currentUsageKwh,omitempty"`
	UsageHistory    []MonthlyUsage `json:"usageHistory,omitempty"`
	ESIID           string         `json:"esiid,omitempty"`
	AccountNumber   string         `json:"accountNumber,omitempty"`
}

// Recognizable reports whether the scan carries enough to treat as a bill.
// An identifier alone qualifies; it proves the document is a utility bill
// even when no usage figure could be read off it.
func (b BillScan) Recognizable() bool {
	return b.HasUsage() || b.ESIID != "" || b.AccountNumber != ""
}

// HasUsage reports whether the scan carries an actual consumption figure
// that an annual estimate could be built from.
func (b BillScan) HasUsage() bool {
	return b.CurrentUsageKWh > 0 || len(b.UsageHistory) > 0
}

// PortalUsage is a live metering-portal session result. The estimation
// flags are passed through to the reconciler untouched.
type PortalUsage struct {
	Monthly     []MonthlyUsage `json:"monthlyUsage"`
	AnnualKWh   float64        `json:"annualKwh"`
	ESIID       string         `json:"esiid,omitempty"`
	IsEstimated bool           `json:"isEstimated,omitempty"`
	IsNewHome   bool           `json:"isNewHome,omitempty"`
}

// NormalizedUsageRecord is the engine's final output: one comparable,
// quality-graded usage estimate per qualification attempt. Records are
// never mutated after construction; re-extraction replaces the record.
type NormalizedUsageRecord struct {
	ID          string         `json:"id"`
	Source      Source         `json:"source"`
	AnnualKWh   int            `json:"annual_kwh"`
	Monthly     UsageSeries    `json:"monthly_usage"`
	MeterID     string         `json:"meter_id,omitempty"`
	Quality     DataQuality    `json:"data_quality,omitempty"`
	Method      EstimateMethod `json:"method,omitempty"`
	Warning     string         `json:"warning,omitempty"`
	ExtractedAt time.Time      `json:"extracted_at"`
}
