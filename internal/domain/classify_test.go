package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const espiHeader = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:espi="http://naesb.org/espi">`

func intervalXML(title string, readings int) string {
	var b strings.Builder
	b.WriteString(espiHeader)
	fmt.Fprintf(&b, "<title>%s</title><entry><content>", title)
	for i := 0; i < readings; i++ {
		fmt.Fprintf(&b,
			`<IntervalReading><timePeriod><start>%d</start><duration>900</duration></timePeriod><value>500</value></IntervalReading>`,
			1700000000+i*900)
	}
	b.WriteString(`</content></entry></feed>`)
	return b.String()
}

func TestClassify(t *testing.T) {
	h := DefaultHeuristics()

	tests := []struct {
		name       string
		filename   string
		content    string
		wantFormat FileFormat
		wantReason RejectReason
	}{
		{
			name:       "jpeg photo rejected",
			filename:   "bill.jpg",
			content:    "\xff\xd8\xff",
			wantReason: RejectUnsupportedFile,
		},
		{
			name:       "pdf statement rejected",
			filename:   "statement.pdf",
			content:    "%PDF-1.7",
			wantReason: RejectUnsupportedFile,
		},
		{
			name:       "saved webpage rejected",
			filename:   "usage.xml",
			content:    "<!DOCTYPE html><html><body>Smart Meter Texas</body></html>",
			wantReason: RejectWebPage,
		},
		{
			name:       "xml without espi marker rejected",
			filename:   "export.xml",
			content:    `<?xml version="1.0"?><data><row>1</row></data>`,
			wantReason: RejectNotGreenButton,
		},
		{
			name:       "monthly green button accepted",
			filename:   "gb_monthly.xml",
			content:    espiHeader + `<title>Monthly Electricity Consumption</title></feed>`,
			wantFormat: FormatMonthlyXML,
		},
		{
			name:       "fifteen minute with plenty of readings",
			filename:   "gb_interval.xml",
			content:    intervalXML("Fifteen Minute Electricity Consumption", 120),
			wantFormat: FormatIntervalXML,
		},
		{
			name:       "fifteen minute with one day of readings",
			filename:   "gb_interval.xml",
			content:    intervalXML("Fifteen Minute Electricity Consumption", 50),
			wantFormat: FormatIntervalXMLLimited,
		},
		{
			name:       "smt csv accepted",
			filename:   "usage.csv",
			content:    "ESIID,USAGE_DATE,REVISION_DATE,USAGE_START_TIME,USAGE_END_TIME,USAGE_KWH\n",
			wantFormat: FormatSMTCSV,
		},
		{
			name:       "billing statement csv rejected",
			filename:   "export.csv",
			content:    "Amount,Due Date,Payment Method\n125.40,11/01/2024,autopay\n",
			wantReason: RejectBillingCSV,
		},
		{
			name:       "unrecognizable csv rejected",
			filename:   "export.csv",
			content:    "foo,bar,baz\n1,2,3\n",
			wantReason: RejectUnrecognized,
		},
		{
			name:       "unrecognizable text rejected",
			filename:   "notes.txt",
			content:    "called the utility; they said to download something",
			wantReason: RejectUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(RawInput{Filename: tt.filename, Content: []byte(tt.content)}, h)

			if tt.wantReason != "" {
				assert.False(t, result.Accepted)
				assert.Equal(t, tt.wantReason, result.Reason)
				assert.NotEmpty(t, result.Message, "a rejection always explains itself")
				return
			}
			require.True(t, result.Accepted, "message: %s", result.Message)
			assert.Equal(t, tt.wantFormat, result.Format)
		})
	}
}

func TestClassifyLimitedIntervalWarning(t *testing.T) {
	h := DefaultHeuristics()
	result := Classify(RawInput{
		Filename: "gb.xml",
		Content:  []byte(intervalXML("Fifteen Minute Electricity Consumption", 50)),
	}, h)

	require.True(t, result.Accepted)
	assert.Equal(t, FormatIntervalXMLLimited, result.Format)
	assert.Contains(t, result.Warning, "50")
	assert.Contains(t, result.Warning, "Monthly Electricity Consumption")
}

func TestClassifyIsPure(t *testing.T) {
	h := DefaultHeuristics()
	in := RawInput{Filename: "usage.csv", Content: []byte("ESIID,USAGE_DATE,X,Y,Z,USAGE_KWH\n")}

	first := Classify(in, h)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(in, h))
	}
}

func TestClassifyUntitledESPIFallsBackToInterval(t *testing.T) {
	h := DefaultHeuristics()
	result := Classify(RawInput{
		Filename: "gb.xml",
		Content:  []byte(intervalXML("My Energy Data", 200)),
	}, h)

	require.True(t, result.Accepted)
	assert.Equal(t, FormatIntervalXML, result.Format)
}
