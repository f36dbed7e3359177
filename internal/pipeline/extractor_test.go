package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powertothepeople/usage-engine/internal/domain"
	"github.com/powertothepeople/usage-engine/internal/observability"
)

type fakePortal struct {
	usage domain.PortalUsage
	err   error

	gotUsername string
	gotPassword string
}

func (f *fakePortal) FetchUsage(_ context.Context, username, password string) (domain.PortalUsage, error) {
	f.gotUsername = username
	f.gotPassword = password
	if f.err != nil {
		return domain.PortalUsage{}, f.err
	}
	return f.usage, nil
}

type fakePublisher struct {
	records []domain.NormalizedUsageRecord
	err     error
}

func (f *fakePublisher) PublishRecord(_ context.Context, rec domain.NormalizedUsageRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func newTestExtractor(portal domain.PortalClient, pub RecordPublisher) *Extractor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(domain.DefaultHeuristics(), portal, pub, logger, observability.NewMetricsForTesting())
}

func usageCSV(days int) []byte {
	var b strings.Builder
	b.WriteString("ESIID,USAGE_DATE,USAGE_START_TIME,USAGE_END_TIME,REVISION,USAGE_KWH\n")
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		fmt.Fprintf(&b, "10443720004529860174,%02d/%02d/%d,00:00,23:59,1,30.5\n",
			d.Month(), d.Day(), d.Year())
	}
	return []byte(b.String())
}

func TestExtractFileCSV(t *testing.T) {
	e := newTestExtractor(nil, nil)

	rec, cls := e.ExtractFile(context.Background(), domain.RawInput{
		Filename: "usage.csv",
		Content:  usageCSV(365),
	})

	require.True(t, cls.Accepted)
	assert.Equal(t, domain.FormatSMTCSV, cls.Format)
	assert.Equal(t, domain.SourceFileUpload, rec.Source)
	assert.Equal(t, domain.MethodDirectSum, rec.Method)
	assert.Equal(t, domain.QualityExcellent, rec.Quality)
	assert.InDelta(t, 30.5*365, float64(rec.AnnualKWh), 1)
}

func TestExtractFileRejectedFallsBackToDefault(t *testing.T) {
	e := newTestExtractor(nil, nil)

	rec, cls := e.ExtractFile(context.Background(), domain.RawInput{
		Filename: "bill.pdf",
		Content:  []byte("%PDF-1.7"),
	})

	assert.False(t, cls.Accepted)
	assert.Equal(t, domain.RejectUnsupportedFile, cls.Reason)
	assert.NotEmpty(t, cls.Message)
	assert.Equal(t, domain.SourceRegionalDefault, rec.Source)
	assert.Equal(t, 14000, rec.AnnualKWh)
	assert.NotEmpty(t, rec.Warning)
}

func TestExtractFileMalformedXMLFallsBackToDefault(t *testing.T) {
	e := newTestExtractor(nil, nil)

	rec, cls := e.ExtractFile(context.Background(), domain.RawInput{
		Filename: "usage.xml",
		Content:  []byte(`<feed xmlns:espi="http://naesb.org/espi"><entry>Monthly Electricity Consumption<unclosed</feed>`),
	})

	assert.True(t, cls.Accepted)
	assert.Equal(t, domain.SourceRegionalDefault, rec.Source)
	assert.Equal(t, 14000, rec.AnnualKWh)
}

func TestExtractFileSingleDayIntervalFallsBackToDefault(t *testing.T) {
	e := newTestExtractor(nil, nil)

	// A day of fifteen-minute readings with no usage summary: accepted
	// with a warning, but no annual figure can honestly come out of it.
	var b strings.Builder
	b.WriteString(`<feed xmlns:espi="http://naesb.org/espi"><title>Fifteen Minute Electricity Consumption</title><entry><content><IntervalBlock>`)
	start := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b,
			`<IntervalReading><timePeriod><start>%d</start><duration>900</duration></timePeriod><value>500</value></IntervalReading>`,
			start.Unix()+int64(i*900))
	}
	b.WriteString(`</IntervalBlock></content></entry></feed>`)

	rec, cls := e.ExtractFile(context.Background(), domain.RawInput{
		Filename: "interval.xml",
		Content:  []byte(b.String()),
	})

	assert.True(t, cls.Accepted)
	assert.Equal(t, domain.FormatIntervalXMLLimited, cls.Format)
	assert.NotEmpty(t, cls.Warning)
	assert.Equal(t, domain.SourceRegionalDefault, rec.Source)
	assert.Equal(t, 14000, rec.AnnualKWh)
}

func TestExtractFilePublishes(t *testing.T) {
	pub := &fakePublisher{}
	e := newTestExtractor(nil, pub)

	rec, _ := e.ExtractFile(context.Background(), domain.RawInput{
		Filename: "usage.csv",
		Content:  usageCSV(200),
	})

	require.Len(t, pub.records, 1)
	assert.Equal(t, rec.ID, pub.records[0].ID)
}

func TestExtractFilePublishErrorDoesNotFailExtraction(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	e := newTestExtractor(nil, pub)

	rec, cls := e.ExtractFile(context.Background(), domain.RawInput{
		Filename: "usage.csv",
		Content:  usageCSV(200),
	})

	assert.True(t, cls.Accepted)
	assert.Equal(t, domain.SourceFileUpload, rec.Source)
	assert.Empty(t, pub.records)
}

func TestExtractBillScanUnrecognizable(t *testing.T) {
	e := newTestExtractor(nil, nil)

	_, err := e.ExtractBillScan(context.Background(), domain.BillScan{CustomerName: "Pat"})
	require.Error(t, err)
}

func TestExtractBillScanCurrentUsage(t *testing.T) {
	e := newTestExtractor(nil, nil)

	rec, err := e.ExtractBillScan(context.Background(), domain.BillScan{CurrentUsageKWh: 1200})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceAIScan, rec.Source)
	assert.Equal(t, 14400, rec.AnnualKWh)
}

func TestExtractPortalSuccess(t *testing.T) {
	portal := &fakePortal{usage: domain.PortalUsage{AnnualKWh: 12800, ESIID: "10443720004529860174"}}
	e := newTestExtractor(portal, nil)

	rec, err := e.ExtractPortal(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLivePortal, rec.Source)
	assert.Equal(t, 12800, rec.AnnualKWh)
	assert.Equal(t, "user@example.com", portal.gotUsername)
	assert.Equal(t, "hunter2", portal.gotPassword)
}

func TestExtractPortalFailsClosed(t *testing.T) {
	portal := &fakePortal{err: errors.New("gateway timeout")}
	e := newTestExtractor(portal, nil)

	_, err := e.ExtractPortal(context.Background(), "user@example.com", "hunter2")
	require.Error(t, err)
}

func TestExtractPortalNotConfigured(t *testing.T) {
	e := newTestExtractor(nil, nil)

	_, err := e.ExtractPortal(context.Background(), "user@example.com", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestCheckReadiness(t *testing.T) {
	e := newTestExtractor(nil, nil)
	assert.NoError(t, e.CheckReadiness(context.Background()))
}
