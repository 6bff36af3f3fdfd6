package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// JobStateStore is the durable record of a job's lifecycle. Writes are
// read-modify-write merges with last-writer-wins semantics, which is safe
// because exactly one orchestrator owns a job at a time. Every write
// refreshes the TTL.
type JobStateStore struct {
	kv     interfaces.KVStore
	cfg    Config
	logger logging.Logger
}

// NewJobStateStore wraps kv with the job-record contract.
func NewJobStateStore(kv interfaces.KVStore, cfg Config, logger logging.Logger) *JobStateStore {
	return &JobStateStore{
		kv:     kv,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "job-state"}),
	}
}

// Create writes the initial pending record for a new job.
func (j *JobStateStore) Create(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := j.kv.Set(ctx, JobKey(job.ID), data, j.cfg.ttl()); err != nil {
		return fmt.Errorf("create job %s: %w", job.ID, err)
	}
	return nil
}

// Get returns the job record, or (nil, nil) when absent or expired.
func (j *JobStateStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := j.kv.Get(ctx, JobKey(jobID))
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if data == nil {
		return nil, nil
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// Upsert merges patch into the existing record and returns the merged job.
// Fields not set in the patch keep their stored values.
func (j *JobStateStore) Upsert(ctx context.Context, jobID string, patch model.JobPatch) (*model.Job, error) {
	job, err := j.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("upsert job %s: record not found", jobID)
	}

	patch.Apply(job)

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := j.kv.Set(ctx, JobKey(jobID), data, j.cfg.ttl()); err != nil {
		return nil, fmt.Errorf("upsert job %s: %w", jobID, err)
	}
	return job, nil
}
