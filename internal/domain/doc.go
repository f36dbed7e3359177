// Package domain normalizes residential electricity-consumption data from
// mutually incompatible sources into a single annual and monthly estimate.
//
// # Data Sources
//
// Usage data arrives three ways, in decreasing order of trustworthiness:
//
//	live portal  — a Smart Meter Texas session; measured and complete.
//	file upload  — a Green Button XML or metering-portal CSV export; measured
//	               but often partial.
//	bill scan    — fields a vision model extracted from a photographed bill;
//	               inferred from printed summaries, highest transcription risk.
//
// None of these carry a schema guarantee. Classification, parsing, and
// annualization are written to tolerate ambiguous, partial, and malformed
// real-world files and to reject wrong file types with a message the
// homeowner can act on.
//
// # Green Button / ESPI Conventions
//
// Green Button files are Atom feeds in the NAESB ESPI namespace
// (http://naesb.org/espi). Relevant elements:
//
//	IntervalReading — timePeriod>start (epoch seconds), timePeriod>duration
//	  (seconds), value (integer watt-hours). Fifteen-minute reports carry
//	  ~96 readings per day; monthly reports carry one reading per billing
//	  month with a duration around 30 days.
//	UsageSummary — billingPeriod (start, duration) plus
//	  overallConsumptionLastPeriod (value, powerOfTenMultiplier). A single
//	  billing-period rollup, used only when interval data is too thin.
//	ServiceDeliveryPoint / UsagePoint href — carries the ESIID, a 17–22
//	  digit code identifying the electric delivery point.
//
// Readings whose duration exceeds 20 days are treated as native monthly
// rollups rather than sub-daily intervals. When six or more month buckets
// are populated, or any reading was monthly, the multi-month series is
// authoritative and a co-present UsageSummary is ignored: multi-month
// interval data is strictly more informative than a one-period summary.
//
// # Tabular Exports
//
// Smart Meter Texas CSV exports are comma-delimited with a header row.
// Columns are located by case-insensitive substring match (ESIID, usage
// date, usage kWh) with a positional fallback of 0, 1, 5 matching the
// standard export layout. Dates are M/D/Y with 2- or 4-digit years and
// either "/" or "-" separators. Rows with unparseable dates or negative
// usage are skipped, not fatal. Roughly 100 rows is treated as full
// coverage; fewer yields a warning on a still-valid estimate.
//
// # Annualization and Quality
//
// The annual figure is computed by the first applicable method:
//
//	direct_sum             — sum of row-level measurements (no extrapolation)
//	summary_extrapolation  — (periodKWh / periodDays) × 365
//	partial_extrapolation  — round(bucketTotal / bucketCount × 12)
//
// Data quality is a pure function of calendar coverage: ≥300 days is
// excellent, ≥180 good, anything less fair. Quality is deliberately
// decoupled from method: the best available method can still rest on thin
// coverage, and callers must see that distinction. A summary extrapolation
// never grades excellent.
package domain
