package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/DeliverySync/internal/config"
	"github.com/JonMunkholm/DeliverySync/internal/logging"
	"github.com/JonMunkholm/DeliverySync/internal/schema"
)

// Service runs reconciliation uploads and serves order queries.
type Service struct {
	store      Store
	extractor  *Extractor
	engine     *Engine
	dispatcher *Dispatcher // nil when notifications are off
	limiter    *UploadLimiter
	timeout    time.Duration
	recorder   Recorder
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithRecorder reports every finished run to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock replaces time.Now for LastUpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the pipeline. ch may be nil, and notifications are also
// skipped when cfg.Notify.Enabled is false.
func NewService(store Store, ch Channel, cfg *config.Config, opts ...Option) (*Service, error) {
	policy, ok := ParseMissingCodePolicy(cfg.Reconcile.MissingCodePolicy)
	if !ok {
		return nil, fmt.Errorf("unknown missing code policy %q", cfg.Reconcile.MissingCodePolicy)
	}

	layout := schema.DeliveryExport.WithSkips(cfg.Reconcile.HeaderRows, cfg.Reconcile.FooterRows)
	extractor, err := NewExtractor(layout, policy)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	s := &Service{
		store:     store,
		extractor: extractor,
		limiter:   NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		timeout:   cfg.Upload.Timeout,
		recorder:  nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = NewEngine(store, s.now)
	if ch != nil && cfg.Notify.Enabled {
		s.dispatcher = NewDispatcher(ch, cfg.Notify.BaseURL)
	}

	return s, nil
}

// Process runs one upload end to end: extract, dedup, reconcile, persist
// and notify.
//
// Fatal errors (unreadable workbook, missing order code under the fail
// policy, no free slot) return a nil Result. A failed bulk insert returns a
// *PersistError together with the Result, so updates that did land are still
// reported. Everything else is isolated into Result.Report.Issues.
//
// Concurrent runs are not serialized per order code. Two uploads that both
// classify the same code as new race on InsertMany and the store's unique
// index rejects the second.
func (s *Service) Process(ctx context.Context, fileName string, data []byte, opts ProcessOptions) (result *Result, err error) {
	report := &Report{
		RunID:    uuid.NewString(),
		FileName: fileName,
		DryRun:   opts.DryRun,
		Issues:   []Issue{},
	}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		report.DurationMs = report.Duration.Milliseconds()
		s.recorder.ObserveRun(report, err)
	}()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ctx = logging.WithRunID(ctx, report.RunID)
	log := logging.WithFields(ctx, "file", fileName, "dry_run", opts.DryRun)
	log.Info("reconciliation started", "bytes", len(data))

	ext, err := s.extractor.Extract(data)
	if err != nil {
		log.Warn("extraction failed", "error", err)
		return nil, err
	}
	report.RowsRead = ext.RowsRead
	report.SkippedRows = ext.Skipped
	report.addIssues(ext.Issues...)

	records, dups := Dedup(ext.Records)
	report.Candidates = len(records)
	report.Duplicates = dups

	cls, err := s.engine.Reconcile(ctx, records)
	report.addIssues(cls.Issues...)
	report.Unchanged = cls.Unchanged
	report.ClassifiedNew = len(cls.NewItems)
	report.ClassifiedUpdated = len(cls.UpdatedItems)
	if err != nil {
		// Nothing was written; classified records are only counted.
		log.Warn("reconciliation interrupted", "error", err,
			"classified_new", report.ClassifiedNew, "classified_updated", report.ClassifiedUpdated)
		result = &Result{NewItems: []OrderRecord{}, UpdatedItems: []OrderRecord{}, Report: report}
		return result, err
	}

	result = &Result{NewItems: cls.NewItems, UpdatedItems: cls.UpdatedItems, Report: report}
	if opts.DryRun {
		s.fillCounts(result)
		log.Info("dry run finished", "new", report.New, "updated", report.Updated, "unchanged", report.Unchanged)
		return result, nil
	}

	created, insertErr := s.insertNew(ctx, cls.NewItems, report)
	updated, updateErr := s.applyUpdates(ctx, cls.UpdatedItems, report)
	result.NewItems, result.UpdatedItems = created, updated
	s.fillCounts(result)

	if s.dispatcher != nil {
		sent, issues := s.dispatcher.Dispatch(ctx, persistedOutcomes(cls.Outcomes, created, updated))
		report.NotificationsSent = sent
		report.addIssues(issues...)
	}

	log.Info("reconciliation finished",
		"rows", report.RowsRead,
		"new", report.New,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"issues", len(report.Issues),
		"notified", report.NotificationsSent,
	)

	if insertErr != nil {
		return result, insertErr
	}
	return result, updateErr
}

// persistedOutcomes filters outcomes down to the records that were written,
// keeping row order. Created records carry their assigned ID.
func persistedOutcomes(outcomes []Outcome, created, updated []OrderRecord) []Outcome {
	written := make(map[string]OrderRecord, len(created)+len(updated))
	for _, rec := range created {
		written[rec.OrderCode] = rec
	}
	for _, rec := range updated {
		written[rec.OrderCode] = rec
	}

	out := make([]Outcome, 0, len(written))
	for _, o := range outcomes {
		if rec, ok := written[o.Record.OrderCode]; ok {
			out = append(out, Outcome{Kind: o.Kind, Record: rec})
		}
	}
	return out
}

func (s *Service) fillCounts(r *Result) {
	r.Report.New = len(r.NewItems)
	r.Report.Updated = len(r.UpdatedItems)
}

// insertNew persists every new record in one InsertMany call. On failure no
// record is considered created.
func (s *Service) insertNew(ctx context.Context, records []OrderRecord, report *Report) ([]OrderRecord, error) {
	if len(records) == 0 {
		return []OrderRecord{}, nil
	}

	batch := make([]OrderRecord, len(records))
	codes := make([]string, len(records))
	for i, rec := range records {
		rec.ID = uuid.NewString()
		batch[i] = rec
		codes[i] = rec.OrderCode
	}

	if err := s.store.InsertMany(ctx, batch); err != nil {
		perr := &PersistError{Op: "insert", Codes: codes, Err: err}
		logging.FromContext(ctx).Error("bulk insert failed", "count", len(batch), "error", err)
		report.addIssues(Issue{Kind: IssuePersist, Reason: perr.Error()})
		return []OrderRecord{}, perr
	}
	return batch, nil
}

// applyUpdates writes status changes one by one. A failed update becomes an
// issue; the rest of the batch still runs unless ctx is done.
func (s *Service) applyUpdates(ctx context.Context, records []OrderRecord, report *Report) ([]OrderRecord, error) {
	applied := make([]OrderRecord, 0, len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			codes := make([]string, 0, len(records)-i)
			for _, r := range records[i:] {
				codes = append(codes, r.OrderCode)
			}
			perr := &PersistError{Op: "update", Codes: codes, Err: err}
			report.addIssues(Issue{Kind: IssuePersist, Reason: perr.Error()})
			return applied, perr
		}

		if err := s.store.UpdateStatus(ctx, rec.OrderCode, rec.Status, rec.LastUpdatedAt); err != nil {
			perr := &PersistError{Op: "update", Codes: []string{rec.OrderCode}, Err: err}
			logging.FromContext(ctx).Warn("status update failed", "order_code", rec.OrderCode, "error", err)
			report.addIssues(Issue{Kind: IssuePersist, OrderCode: rec.OrderCode, Reason: perr.Error()})
			continue
		}
		applied = append(applied, rec)
	}

	return applied, nil
}

// GetByCode returns the persisted order with the given code.
func (s *Service) GetByCode(ctx context.Context, code string) (*OrderRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}
	return s.store.FindByCode(ctx, code)
}

// GetByID resolves id as a record UUID, falling back to an order code for
// anything that does not parse as one.
func (s *Service) GetByID(ctx context.Context, id string) (*OrderRecord, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return s.GetByCode(ctx, id)
	}
	return s.store.FindByID(ctx, id)
}

// Ping checks the store when it supports health checks.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// UploadLimiterStatus returns the current limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until running uploads finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
