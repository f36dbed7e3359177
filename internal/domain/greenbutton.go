package domain

import (
	"encoding/xml"
	"fmt"
	"math"
	"regexp"
	"time"
)

var (
	// serviceDeliveryPointRe pulls the ESIID out of a ServiceDeliveryPoint
	// block; the element's inner structure varies between utilities, so the
	// digits are matched loosely.
	serviceDeliveryPointRe = regexp.MustCompile(`(?s)<(?:[A-Za-z0-9]+:)?ServiceDeliveryPoint[^>]*>.*?(\d{10,22})`)

	// usagePointHrefRe matches the ESIID in a UsagePoint cross-reference
	// link, e.g. href=".../UsagePoint/10443720000000001".
	usagePointHrefRe = regexp.MustCompile(`UsagePoint/(\d{10,22})`)
)

// Green Button Atom feed elements. Field tags use local names only so the
// ESPI namespace prefix (or lack of one) doesn't matter.
type gbFeed struct {
	XMLName xml.Name
	Entries []gbEntry `xml:"entry"`
}

type gbEntry struct {
	Title   string    `xml:"title"`
	Content gbContent `xml:"content"`
}

type gbContent struct {
	IntervalBlocks []gbIntervalBlock `xml:"IntervalBlock"`
	UsageSummaries []gbUsageSummary  `xml:"UsageSummary"`
	// Older exports use the ESPI 1.0 element name.
	PowerSummaries []gbUsageSummary `xml:"ElectricPowerUsageSummary"`
}

type gbIntervalBlock struct {
	Readings []gbIntervalReading `xml:"IntervalReading"`
}

type gbIntervalReading struct {
	Start    int64   `xml:"timePeriod>start"`
	Duration int64   `xml:"timePeriod>duration"`
	Value    float64 `xml:"value"` // watt-hours
}

type gbUsageSummary struct {
	BillingStart    int64   `xml:"billingPeriod>start"`
	BillingDuration int64   `xml:"billingPeriod>duration"`
	Value           float64 `xml:"overallConsumptionLastPeriod>value"`
	PowerOfTen      int     `xml:"overallConsumptionLastPeriod>powerOfTenMultiplier"`
}

// ParseGreenButton aggregates a Green Button/ESPI document into monthly
// usage buckets. A non-nil error means the document was structurally
// unparseable, as distinct from a valid document that simply holds no
// readings, which returns an Extraction with an empty series.
func ParseGreenButton(payload []byte, h Heuristics) (*Extraction, error) {
	var feed gbFeed
	if err := xml.Unmarshal(payload, &feed); err != nil {
		return nil, fmt.Errorf("parse green button feed: %w", err)
	}

	ex := &Extraction{}
	monthlySource := false
	var summary *SummaryPeriod

	for _, entry := range feed.Entries {
		for _, block := range entry.Content.IntervalBlocks {
			for _, r := range block.Readings {
				if r.Start <= 0 {
					continue
				}
				start := time.Unix(r.Start, 0).UTC()
				if r.Duration > int64(h.MonthlyReadingDays)*86400 {
					monthlySource = true
				}
				ex.Series.Add(start.Year(), int(start.Month()), r.Value/1000, false)
				ex.Series.Observe(start)
			}
		}
		summaries := append(entry.Content.UsageSummaries, entry.Content.PowerSummaries...)
		for _, s := range summaries {
			if summary != nil || s.BillingDuration <= 0 || s.Value <= 0 {
				continue
			}
			kwh := s.Value * math.Pow10(s.PowerOfTen) / 1000
			summary = &SummaryPeriod{
				Start: time.Unix(s.BillingStart, 0).UTC(),
				Days:  int(s.BillingDuration / 86400),
				KWh:   kwh,
			}
		}
	}

	ex.Series.MeterID = extractMeterID(payload)
	ex.Series.Sort()
	buckets := len(ex.Series.Entries)

	switch {
	case buckets >= h.AuthoritativeMonths || (monthlySource && buckets > 0):
		// Multi-month interval data beats a one-period summary even when
		// both are present in the same document.
		ex.DaysCovered = spanDays(ex.Series.Earliest, ex.Series.Latest) + h.BucketPaddingDays
	case summary != nil:
		ex.Summary = summary
		ex.DaysCovered = summary.Days
		ex.Series.Entries = nil
		ex.Series.Add(summary.Start.Year(), int(summary.Start.Month()), summary.KWh, true)
		ex.Series.Observe(summary.Start)
	case buckets >= 2:
		ex.DaysCovered = spanDays(ex.Series.Earliest, ex.Series.Latest) + h.BucketPaddingDays
	default:
		// Sub-monthly readings confined to a single calendar month say
		// nothing about a year. Drop the bucket so annualization fails
		// rather than scale a day of data by twelve.
		ex.Series.Entries = nil
	}

	return ex, nil
}

// extractMeterID looks for the ESIID in a ServiceDeliveryPoint element or a
// UsagePoint cross-reference link. Absence is non-fatal.
func extractMeterID(payload []byte) string {
	if m := serviceDeliveryPointRe.FindSubmatch(payload); m != nil {
		return string(m[1])
	}
	if m := usagePointHrefRe.FindSubmatch(payload); m != nil {
		return string(m[1])
	}
	return ""
}

// spanDays is the whole-day span between two timestamps, zero when either
// is missing.
func spanDays(earliest, latest time.Time) int {
	if earliest.IsZero() || latest.IsZero() {
		return 0
	}
	return int(latest.Sub(earliest).Hours() / 24)
}
