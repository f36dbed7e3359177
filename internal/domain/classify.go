package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// intervalReadingRe counts readings without committing to a namespace
// prefix; exports use both <IntervalReading> and <espi:IntervalReading>.
var intervalReadingRe = regexp.MustCompile(`<(?:[A-Za-z0-9]+:)?IntervalReading[\s>]`)

// FileFormat identifies which parser applies to an accepted upload.
type FileFormat string

const (
	FormatIntervalXML FileFormat = "interval_xml"
	// FormatIntervalXMLLimited is a fifteen-minute report with too few
	// readings to say much about a year. Accepted, but with a warning.
	FormatIntervalXMLLimited FileFormat = "interval_xml_limited"
	FormatMonthlyXML         FileFormat = "monthly_xml"
	FormatSMTCSV             FileFormat = "smt_csv"
	FormatUnknown            FileFormat = "unknown"
)

// RejectReason is the machine-readable cause of a rejection.
type RejectReason string

const (
	RejectUnsupportedFile RejectReason = "unsupported_file"
	RejectWebPage         RejectReason = "web_page"
	RejectNotGreenButton  RejectReason = "not_green_button"
	RejectBillingCSV      RejectReason = "billing_csv"
	RejectUnrecognized    RejectReason = "unrecognized"
)

// ClassificationResult is the classifier's verdict. A rejected result
// always carries a non-empty human-readable Message saying why and what to
// upload instead; malformed uploads are the expected common case, not an
// error condition.
type ClassificationResult struct {
	Accepted bool         `json:"accepted"`
	Format   FileFormat   `json:"format"`
	Warning  string       `json:"warning,omitempty"`
	Reason   RejectReason `json:"reason,omitempty"`
	Message  string       `json:"message,omitempty"`
}

func rejected(reason RejectReason, message string) ClassificationResult {
	return ClassificationResult{Format: FormatUnknown, Reason: reason, Message: message}
}

// imageExts are extensions rejected outright: a photo of a bill is not a
// usage-history export.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".heic": true, ".heif": true, ".webp": true, ".bmp": true, ".tiff": true,
}

// Classify decides which parser applies to an upload, or rejects it with a
// specific diagnostic. It is a pure function over the input bytes: the same
// input always yields the same result.
func Classify(in RawInput, h Heuristics) ClassificationResult {
	ext := strings.ToLower(filepath.Ext(in.Filename))

	if imageExts[ext] {
		return rejected(RejectUnsupportedFile, fmt.Sprintf(
			"%q is an image file. We need your usage history export — the Green Button XML or CSV download from your utility — not a photo of the bill.", in.Filename))
	}
	if ext == ".pdf" {
		return rejected(RejectUnsupportedFile,
			"PDF statements can't be read here. Download the usage history export (Green Button XML or CSV) from your utility instead of the bill PDF.")
	}

	content := string(in.Content)
	trimmed := strings.TrimSpace(content)

	switch {
	case ext == ".xml" || strings.HasPrefix(trimmed, "<"):
		return classifyXML(content, h)
	case ext == ".csv" || strings.Contains(firstLine(trimmed), ","):
		return classifyCSV(trimmed, h)
	default:
		return rejected(RejectUnrecognized,
			"Couldn't recognize this file as a usage export. Download the Green Button XML or the usage CSV from your utility's portal and upload that.")
	}
}

func classifyXML(content string, h Heuristics) ClassificationResult {
	if !strings.Contains(content, h.ESPIMarker) {
		lower := strings.ToLower(content)
		if strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype html") {
			return rejected(RejectWebPage,
				"This file was saved as a webpage, not a data export. Use the portal's download button rather than File → Save As.")
		}
		return rejected(RejectNotGreenButton,
			"This XML is not in Green Button format. Look for the Green Button \"Download My Data\" option on your utility's site.")
	}

	readings := len(intervalReadingRe.FindAllStringIndex(content, -1))

	if strings.Contains(content, h.IntervalReportTitle) && !strings.Contains(content, h.MonthlyReportTitle) {
		if readings < h.MinIntervalReadings {
			return ClassificationResult{
				Accepted: true,
				Format:   FormatIntervalXMLLimited,
				Warning: fmt.Sprintf(
					"Only %d fifteen-minute readings (roughly a day of data). The %q report gives a far better annual picture — consider downloading that instead.",
					readings, h.MonthlyReportTitle),
			}
		}
		return ClassificationResult{Accepted: true, Format: FormatIntervalXML}
	}
	if strings.Contains(content, h.MonthlyReportTitle) {
		return ClassificationResult{Accepted: true, Format: FormatMonthlyXML}
	}

	// ESPI marker present but no recognized report title. Let the interval
	// parser decide what it can extract.
	if readings > 0 && readings < h.MinIntervalReadings {
		return ClassificationResult{
			Accepted: true,
			Format:   FormatIntervalXMLLimited,
			Warning: fmt.Sprintf(
				"Only %d interval readings found; the annual estimate may rest on very little data.", readings),
		}
	}
	return ClassificationResult{Accepted: true, Format: FormatIntervalXML}
}

func classifyCSV(content string, h Heuristics) ClassificationResult {
	// SMT headers use underscores (USAGE_DATE); treat them as spaces so the
	// keyword lists match either spelling.
	header := strings.ReplaceAll(strings.ToLower(firstLine(content)), "_", " ")

	billingHits := countKeywords(header, h.BillingKeywords)
	usageHits := countKeywords(header, h.MeterColumnKeywords) +
		countKeywords(header, h.DateColumnKeywords) +
		countKeywords(header, h.UsageColumnKeywords)

	if billingHits >= 2 && billingHits > usageHits {
		return rejected(RejectBillingCSV,
			"This looks like a billing statement export (amount due, payment columns) rather than usage data. Download the usage or interval report instead.")
	}
	if usageHits > 0 {
		return ClassificationResult{Accepted: true, Format: FormatSMTCSV}
	}
	return rejected(RejectUnrecognized,
		"This CSV doesn't have the usage columns we expect (ESIID, usage date, usage kWh). Download the usage report from your metering portal.")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func countKeywords(s string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(s, k) {
			n++
		}
	}
	return n
}
