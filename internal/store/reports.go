package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// ReportStore persists finished reports in two tiers: a fast cache tier that
// is authoritative for read availability, and a durable tier whose write
// failures are logged and swallowed. Reads try the cache first and fall back
// to the durable tier.
type ReportStore struct {
	cache   interfaces.KVStore
	durable interfaces.KVStore // may equal cache when only one backend is configured
	cfg     Config
	logger  logging.Logger
}

// NewReportStore wires the two tiers. durable may be nil, in which case only
// the cache tier is used.
func NewReportStore(cache, durable interfaces.KVStore, cfg Config, logger logging.Logger) *ReportStore {
	return &ReportStore{
		cache:   cache,
		durable: durable,
		cfg:     cfg,
		logger:  logger.With(logging.Field{Key: "component", Value: "report-store"}),
	}
}

// Put dual-writes the report. The cache write is authoritative: its failure
// is returned; a durable-tier failure is logged and swallowed.
func (r *ReportStore) Put(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := ReportKey(report.JobID)
	if err := r.cache.Set(ctx, key, data, r.cfg.ttl()); err != nil {
		return fmt.Errorf("cache write %s: %w", key, err)
	}

	if r.durable != nil && r.durable != r.cache {
		if err := r.durable.Set(ctx, key, data, r.cfg.ttl()); err != nil {
			r.logger.Warn("durable report write failed, report readable via cache",
				logging.Field{Key: "job_id", Value: report.JobID},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
	return nil
}

// Get returns the report for jobID, or ErrReportNotFound.
func (r *ReportStore) Get(ctx context.Context, jobID string) (*model.Report, error) {
	key := ReportKey(jobID)

	data, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache report read failed",
			logging.Field{Key: "job_id", Value: jobID},
			logging.Field{Key: "error", Value: err.Error()})
	}
	if data == nil && r.durable != nil && r.durable != r.cache {
		data, err = r.durable.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("durable read %s: %w", key, err)
		}
	}
	if data == nil {
		return nil, ErrReportNotFound
	}

	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report %s: %w", jobID, err)
	}
	return &report, nil
}
