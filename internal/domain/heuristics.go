package domain

import "errors"

// Heuristics collects the ambient tuning knobs used by the classifier,
// parsers, annualizer, and reconciler. Pulling them into one structure
// keeps threshold tuning testable in isolation instead of scattering
// literals through the code. Zero values are not meaningful; start from
// DefaultHeuristics and override.
type Heuristics struct {
	// Classifier.
	ESPIMarker          string   `yaml:"espi_marker"`
	MonthlyReportTitle  string   `yaml:"monthly_report_title"`
	IntervalReportTitle string   `yaml:"interval_report_title"`
	MinIntervalReadings int      `yaml:"min_interval_readings"`
	MeterColumnKeywords []string `yaml:"meter_column_keywords"`
	DateColumnKeywords  []string `yaml:"date_column_keywords"`
	UsageColumnKeywords []string `yaml:"usage_column_keywords"`
	BillingKeywords     []string `yaml:"billing_keywords"`

	// Aggregators.
	MonthlyReadingDays  int `yaml:"monthly_reading_days"`
	AuthoritativeMonths int `yaml:"authoritative_months"`
	BucketPaddingDays   int `yaml:"bucket_padding_days"`
	FullCoverageRows    int `yaml:"full_coverage_rows"`

	// Annualizer.
	ExcellentDays int `yaml:"excellent_days"`
	GoodDays      int `yaml:"good_days"`

	// Reconciler.
	DefaultAnnualKWh int `yaml:"default_annual_kwh"`
}

// Validate rejects threshold combinations that would make grading or
// classification degenerate.
func (h Heuristics) Validate() error {
	switch {
	case h.ESPIMarker == "":
		return errors.New("espi_marker must be set")
	case h.MinIntervalReadings <= 0:
		return errors.New("min_interval_readings must be positive")
	case h.GoodDays <= 0 || h.ExcellentDays <= h.GoodDays:
		return errors.New("excellent_days must exceed good_days, both positive")
	case h.DefaultAnnualKWh <= 0:
		return errors.New("default_annual_kwh must be positive")
	}
	return nil
}

// DefaultHeuristics returns the reference thresholds.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		ESPIMarker:          "http://naesb.org/espi",
		MonthlyReportTitle:  "Monthly Electricity Consumption",
		IntervalReportTitle: "Fifteen Minute Electricity Consumption",
		MinIntervalReadings: 100,
		MeterColumnKeywords: []string{"esiid", "esi id", "meter"},
		DateColumnKeywords:  []string{"usage date", "date"},
		UsageColumnKeywords: []string{"usage", "kwh", "consumption"},
		BillingKeywords:     []string{"amount due", "payment", "due date", "balance", "autopay"},

		MonthlyReadingDays:  20,
		AuthoritativeMonths: 6,
		// The final month bucket's own span is invisible in the reading
		// timestamps, so bucket-derived coverage gets a flat 30-day pad.
		BucketPaddingDays: 30,
		FullCoverageRows:  100,

		ExcellentDays: 300,
		GoodDays:      180,

		DefaultAnnualKWh: 14000,
	}
}
