package domain

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// FileResult is a successfully parsed and annualized file upload.
type FileResult struct {
	Series   UsageSeries
	Estimate AnnualEstimate
	Warning  string
}

// Candidate is one possible source for a normalized record. Exactly one
// field is set; use the constructors.
type Candidate struct {
	File   *FileResult
	Scan   *BillScan
	Portal *PortalUsage
}

// FileCandidate wraps a parsed file upload.
func FileCandidate(series UsageSeries, est AnnualEstimate, warning string) Candidate {
	return Candidate{File: &FileResult{Series: series, Estimate: est, Warning: warning}}
}

// ScanCandidate wraps AI-extracted bill fields.
func ScanCandidate(scan BillScan) Candidate {
	return Candidate{Scan: &scan}
}

// PortalCandidate wraps a live metering-portal session result.
func PortalCandidate(p PortalUsage) Candidate {
	return Candidate{Portal: &p}
}

// Reconcile merges extraction candidates into one normalized usage record
// under a fixed precedence: live portal > file upload > AI bill scan.
// Portal data is measured and complete by construction; files are measured
// but may be partial; scanned fields carry the most transcription risk.
//
// Reconcile always returns a record. When no candidate is usable it carries
// the flat regional default and an explicit warning, so downstream sizing
// never blocks on missing data.
func Reconcile(candidates []Candidate, h Heuristics) NormalizedUsageRecord {
	var (
		portal *PortalUsage
		file   *FileResult
		scan   *BillScan
	)
	for _, c := range candidates {
		switch {
		case c.Portal != nil && portal == nil:
			portal = c.Portal
		case c.File != nil && file == nil:
			file = c.File
		case c.Scan != nil && scan == nil:
			// A scan holding only an identifier has nothing to estimate
			// from; skip it so the regional default applies rather than a
			// fabricated zero.
			if c.Scan.HasUsage() {
				scan = c.Scan
			}
		}
	}

	switch {
	case portal != nil:
		return fromPortal(*portal)
	case file != nil:
		return fromFile(*file)
	case scan != nil:
		return fromScan(*scan)
	default:
		return NormalizedUsageRecord{
			ID:        uuid.NewString(),
			Source:    SourceRegionalDefault,
			AnnualKWh: h.DefaultAnnualKWh,
			Warning: fmt.Sprintf(
				"No usage data could be read; using a regional average of %d kWh/yr. Upload a usage file or connect your meter account for an accurate figure.",
				h.DefaultAnnualKWh),
			ExtractedAt: clock.Now(),
		}
	}
}

func fromPortal(p PortalUsage) NormalizedUsageRecord {
	var series UsageSeries
	for _, m := range p.Monthly {
		series.Add(m.Year, m.Month, m.KWh, p.IsEstimated)
	}
	series.Sort()
	series.MeterID = p.ESIID

	annual := p.AnnualKWh
	if annual == 0 {
		annual = series.Total()
	}

	var warning string
	switch {
	case p.IsNewHome:
		warning = "The provider flagged this address as a new home; usage is the provider's estimate, not a full year of measurements."
	case p.IsEstimated:
		warning = "The provider marked this usage history as estimated."
	}

	return NormalizedUsageRecord{
		ID:          uuid.NewString(),
		Source:      SourceLivePortal,
		AnnualKWh:   int(math.Round(annual)),
		Monthly:     series,
		MeterID:     p.ESIID,
		Warning:     warning,
		ExtractedAt: clock.Now(),
	}
}

func fromFile(f FileResult) NormalizedUsageRecord {
	return NormalizedUsageRecord{
		ID:          uuid.NewString(),
		Source:      SourceFileUpload,
		AnnualKWh:   f.Estimate.AnnualKWh,
		Monthly:     f.Series,
		MeterID:     f.Series.MeterID,
		Quality:     f.Estimate.Quality,
		Method:      f.Estimate.Method,
		Warning:     f.Warning,
		ExtractedAt: clock.Now(),
	}
}

// fromScan annualizes AI-extracted bill fields. A history sum is scaled by
// 12/monthsPresent; with no history, the current month is multiplied by 12.
// This is weaker than any file-derived method and is never promoted above a
// successful file or portal result.
func fromScan(b BillScan) NormalizedUsageRecord {
	var (
		annual float64
		series UsageSeries
	)
	if len(b.UsageHistory) > 0 {
		for _, m := range b.UsageHistory {
			series.Add(m.Year, m.Month, m.KWh, true)
		}
		series.Sort()
		annual = series.Total() * 12 / float64(len(b.UsageHistory))
	} else {
		annual = b.CurrentUsageKWh * 12
	}
	series.MeterID = b.ESIID

	return NormalizedUsageRecord{
		ID:          uuid.NewString(),
		Source:      SourceAIScan,
		AnnualKWh:   int(math.Round(annual)),
		Monthly:     series,
		MeterID:     b.ESIID,
		Warning:     "Annual usage was estimated from a scanned bill; upload a usage export or connect your meter account for a measured figure.",
		ExtractedAt: clock.Now(),
	}
}
