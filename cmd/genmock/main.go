// Command genmock generates usage-file fixtures for manual testing and demo
// environments: a monthly Green Button XML, a fifteen-minute interval Green
// Button XML, a daily metering-portal CSV, and a billing CSV that the
// classifier must reject. It runs the actual extraction on each fixture so
// the printed figures match real service behavior.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/fixtures
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/powertothepeople/usage-engine/internal/domain"
)

const mockESIID = "10443720004529860174"

var baseDate = time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for fixtures")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Fixed clock for reproducible record timestamps in the printed output.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.September, 2, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fixtures := []struct {
		name    string
		content string
	}{
		{"monthly_green_button.xml", monthlyXML()},
		{"interval_green_button.xml", intervalXML()},
		{"daily_usage.csv", dailyCSV()},
		{"billing_statement.csv", billingCSV()},
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	h := domain.DefaultHeuristics()
	for _, f := range fixtures {
		path := filepath.Join(*outDir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		log.Printf("wrote %s (%d bytes)", path, len(f.content))
		report(f.name, []byte(f.content), h)
	}

	return nil
}

// report runs the real extraction so fixture changes show up as changed
// expectations immediately.
func report(name string, content []byte, h domain.Heuristics) {
	in := domain.RawInput{Filename: name, Content: content}

	cls := domain.Classify(in, h)
	if !cls.Accepted {
		fmt.Printf("  %s: rejected (%s)\n", name, cls.Reason)
		return
	}

	var ex *domain.Extraction
	var err error
	if cls.Format == domain.FormatSMTCSV {
		ex, err = domain.ParseUsageCSV(content, h)
	} else {
		ex, err = domain.ParseGreenButton(content, h)
	}
	if err != nil {
		fmt.Printf("  %s: parse error: %v\n", name, err)
		return
	}

	est, err := domain.Annualize(*ex, h)
	if err != nil {
		fmt.Printf("  %s: no usable data\n", name)
		return
	}
	fmt.Printf("  %s: format=%s annual=%d kWh method=%s quality=%s months=%d\n",
		name, cls.Format, est.AnnualKWh, est.Method, est.Quality, len(ex.Series.Entries))
}

// monthlyXML builds a twelve-month "Monthly Electricity Consumption" feed.
func monthlyXML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">` + "\n")
	b.WriteString(` <entry>` + "\n")
	b.WriteString(`  <title>Monthly Electricity Consumption</title>` + "\n")
	b.WriteString(`  <link rel="related" href="/espi/1_1/resource/UsagePoint/` + mockESIID + `"/>` + "\n")
	b.WriteString(`  <content><espi:IntervalBlock>` + "\n")

	// Seasonal-ish monthly totals in watt-hours.
	monthly := []float64{1020, 940, 870, 910, 1180, 1390, 1510, 1480, 1260, 1050, 980, 1010}
	for i, kwh := range monthly {
		start := baseDate.AddDate(0, i, 0)
		next := baseDate.AddDate(0, i+1, 0)
		fmt.Fprintf(&b, `   <espi:IntervalReading><espi:timePeriod><espi:start>%d</espi:start><espi:duration>%d</espi:duration></espi:timePeriod><espi:value>%d</espi:value></espi:IntervalReading>`+"\n",
			start.Unix(), next.Unix()-start.Unix(), int(kwh*1000))
	}

	b.WriteString(`  </espi:IntervalBlock></content>` + "\n")
	b.WriteString(` </entry>` + "\n")
	b.WriteString(`</feed>` + "\n")
	return b.String()
}

// intervalXML builds two days of fifteen-minute readings plus the prior
// billing-period summary. Two days of intervals alone carry no annual
// signal, so the summary is what the annualizer extrapolates from.
func intervalXML() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">` + "\n")
	b.WriteString(` <entry>` + "\n")
	b.WriteString(`  <title>Fifteen Minute Electricity Consumption</title>` + "\n")
	b.WriteString(`  <content><espi:IntervalBlock>` + "\n")

	for i := 0; i < 2*96; i++ {
		start := baseDate.Add(time.Duration(i) * 15 * time.Minute)
		// ~350 Wh per fifteen minutes, bumped during evening hours.
		value := 350
		if h := start.Hour(); h >= 17 && h <= 21 {
			value = 620
		}
		fmt.Fprintf(&b, `   <espi:IntervalReading><espi:timePeriod><espi:start>%d</espi:start><espi:duration>900</espi:duration></espi:timePeriod><espi:value>%d</espi:value></espi:IntervalReading>`+"\n",
			start.Unix(), value)
	}

	b.WriteString(`  </espi:IntervalBlock>` + "\n")
	billingStart := baseDate.AddDate(0, 0, -30)
	fmt.Fprintf(&b, `   <espi:UsageSummary><espi:billingPeriod><espi:start>%d</espi:start><espi:duration>%d</espi:duration></espi:billingPeriod><espi:overallConsumptionLastPeriod><espi:powerOfTenMultiplier>0</espi:powerOfTenMultiplier><espi:value>%d</espi:value></espi:overallConsumptionLastPeriod></espi:UsageSummary>`+"\n",
		billingStart.Unix(), 30*86400, 1170000)
	b.WriteString(`  </content>` + "\n")
	b.WriteString(` </entry>` + "\n")
	b.WriteString(`</feed>` + "\n")
	return b.String()
}

// dailyCSV builds a full year of daily rows in the standard export layout.
func dailyCSV() string {
	var b strings.Builder
	b.WriteString("ESIID,USAGE_DATE,USAGE_START_TIME,USAGE_END_TIME,REVISION,USAGE_KWH\n")
	for i := 0; i < 365; i++ {
		d := baseDate.AddDate(0, 0, i)
		kwh := 28.0
		if m := d.Month(); m >= time.June && m <= time.September {
			kwh = 46.5
		}
		fmt.Fprintf(&b, "%s,%02d/%02d/%d,00:00,23:59,1,%.1f\n",
			mockESIID, d.Month(), d.Day(), d.Year(), kwh)
	}
	return b.String()
}

// billingCSV is a statement export the classifier must reject.
func billingCSV() string {
	var b strings.Builder
	b.WriteString("Account Number,Statement Date,Amount Due,Due Date,Payment Method,Balance\n")
	for i := 0; i < 12; i++ {
		d := baseDate.AddDate(0, i, 14)
		due := d.AddDate(0, 0, 10)
		fmt.Fprintf(&b, "884412907,%02d/%02d/%d,%.2f,%02d/%02d/%d,autopay,0.00\n",
			d.Month(), d.Day(), d.Year(), 95.0+float64(i)*3.5,
			due.Month(), due.Day(), due.Year())
	}
	return b.String()
}
