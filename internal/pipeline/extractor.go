// Package pipeline orchestrates classification, parsing, annualization, and
// reconciliation into the service's three extraction entry points: file
// upload, AI bill scan, and live portal session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/powertothepeople/usage-engine/internal/domain"
	"github.com/powertothepeople/usage-engine/internal/observability"
)

// RecordPublisher writes a normalized record to a downstream sink. Optional;
// a nil publisher means records are only returned to the caller.
type RecordPublisher interface {
	PublishRecord(ctx context.Context, rec domain.NormalizedUsageRecord) error
}

// Extractor is the orchestration layer above the pure domain functions. It
// owns metrics and logging; all parsing decisions live in the domain package.
type Extractor struct {
	heuristics domain.Heuristics
	portal     domain.PortalClient
	publisher  RecordPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates an Extractor. portal and publisher may be nil when the
// corresponding feature is disabled.
func New(h domain.Heuristics, portal domain.PortalClient, publisher RecordPublisher, logger *slog.Logger, metrics *observability.Metrics) *Extractor {
	e := &Extractor{
		heuristics: h,
		portal:     portal,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
	e.ready.Store(true)
	return e
}

// CheckReadiness returns nil when the extractor can serve requests.
func (e *Extractor) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("extractor is not ready")
	}
	return nil
}

// ExtractFile runs the full classify-parse-annualize-reconcile cycle on an
// uploaded file. It always returns a record: unusable uploads degrade to the
// regional-default record, and the classification verdict is returned
// alongside so callers can surface the rejection diagnostic.
func (e *Extractor) ExtractFile(ctx context.Context, in domain.RawInput) (domain.NormalizedUsageRecord, domain.ClassificationResult) {
	start := time.Now()

	cls := domain.Classify(in, e.heuristics)
	if !cls.Accepted {
		e.metrics.FilesRejected.WithLabelValues(string(cls.Reason)).Inc()
		e.logger.Info("upload rejected",
			"filename", in.Filename,
			"reason", cls.Reason,
		)
		rec := domain.Reconcile(nil, e.heuristics)
		e.finish(ctx, rec, start)
		return rec, cls
	}
	e.metrics.FilesClassified.WithLabelValues(string(cls.Format)).Inc()

	ex, err := e.parse(in, cls)
	if err != nil {
		e.logger.Warn("parse failed, falling back to regional default",
			"filename", in.Filename,
			"format", cls.Format,
			"error", err,
		)
		rec := domain.Reconcile(nil, e.heuristics)
		e.finish(ctx, rec, start)
		return rec, cls
	}

	est, err := domain.Annualize(*ex, e.heuristics)
	if err != nil {
		e.logger.Warn("no usable readings, falling back to regional default",
			"filename", in.Filename,
			"format", cls.Format,
		)
		rec := domain.Reconcile(nil, e.heuristics)
		e.finish(ctx, rec, start)
		return rec, cls
	}

	warning := cls.Warning
	if warning == "" {
		warning = ex.Warning
	}

	rec := domain.Reconcile([]domain.Candidate{
		domain.FileCandidate(ex.Series, est, warning),
	}, e.heuristics)

	e.logger.Info("file extracted",
		"filename", in.Filename,
		"format", cls.Format,
		"annual_kwh", rec.AnnualKWh,
		"quality", rec.Quality,
		"method", rec.Method,
	)
	e.finish(ctx, rec, start)
	return rec, cls
}

// ExtractBillScan reconciles AI-extracted bill fields into a record. A scan
// with neither a usage figure nor an identifier is an error, not a silent
// default: the caller chose this path and should know the scan failed. A
// scan that proves the document is a bill but carries no usage figure
// reconciles to the regional-default record with its warning.
func (e *Extractor) ExtractBillScan(ctx context.Context, scan domain.BillScan) (domain.NormalizedUsageRecord, error) {
	start := time.Now()

	if !scan.Recognizable() {
		return domain.NormalizedUsageRecord{}, errors.New("bill scan carries no usable usage fields")
	}

	rec := domain.Reconcile([]domain.Candidate{domain.ScanCandidate(scan)}, e.heuristics)

	e.logger.Info("bill scan extracted",
		"annual_kwh", rec.AnnualKWh,
		"history_months", len(scan.UsageHistory),
	)
	e.finish(ctx, rec, start)
	return rec, nil
}

// ExtractPortal fetches usage through a live metering-portal session and
// reconciles it. It fails closed: any portal error is returned as-is, never
// replaced with a fabricated record. Credentials pass straight through to the
// client and are never logged or stored.
func (e *Extractor) ExtractPortal(ctx context.Context, username, password string) (domain.NormalizedUsageRecord, error) {
	if e.portal == nil {
		return domain.NormalizedUsageRecord{}, errors.New("live portal is not configured")
	}
	start := time.Now()

	usage, err := e.portal.FetchUsage(ctx, username, password)
	if err != nil {
		outcome := "error"
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			outcome = "auth_error"
		}
		e.metrics.PortalRequests.WithLabelValues(outcome).Inc()
		e.logger.Warn("portal fetch failed", "outcome", outcome, "error", err)
		return domain.NormalizedUsageRecord{}, fmt.Errorf("portal fetch: %w", err)
	}
	e.metrics.PortalRequests.WithLabelValues("success").Inc()

	rec := domain.Reconcile([]domain.Candidate{domain.PortalCandidate(usage)}, e.heuristics)

	e.logger.Info("portal extracted",
		"annual_kwh", rec.AnnualKWh,
		"months", len(usage.Monthly),
		"estimated", usage.IsEstimated,
	)
	e.finish(ctx, rec, start)
	return rec, nil
}

func (e *Extractor) parse(in domain.RawInput, cls domain.ClassificationResult) (*domain.Extraction, error) {
	switch cls.Format {
	case domain.FormatSMTCSV:
		return domain.ParseUsageCSV(in.Content, e.heuristics)
	case domain.FormatIntervalXML, domain.FormatIntervalXMLLimited, domain.FormatMonthlyXML:
		return domain.ParseGreenButton(in.Content, e.heuristics)
	default:
		return nil, fmt.Errorf("no parser for format %q", cls.Format)
	}
}

// finish records extraction metrics and hands the record to the publisher.
// Publishing is best effort: a sink outage never fails the extraction.
func (e *Extractor) finish(ctx context.Context, rec domain.NormalizedUsageRecord, start time.Time) {
	e.metrics.Extractions.WithLabelValues(string(rec.Source), string(rec.Method)).Inc()
	e.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())

	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishRecord(ctx, rec); err != nil {
		e.metrics.PublishErrors.Inc()
		e.logger.Error("record publish failed", "record_id", rec.ID, "error", err)
		return
	}
	e.metrics.RecordsPublished.Inc()
}
