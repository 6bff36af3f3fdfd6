// Package queue provides the persistent scan-job queue used in queued
// execution mode. Delivery is at-least-once: a task whose handler fails is
// retried with exponential backoff up to a capped attempt count, then parked
// as dead.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	_ "modernc.org/sqlite" // SQLite driver
)

// ScanTask is the job description placed on the queue. RawCredentials holds
// either an encrypted {encrypted, iv, tag} triple or legacy plaintext JSON;
// the worker's decryption path tolerates both.
type ScanTask struct {
	JobID          string          `json:"job_id"`
	URL            string          `json:"url"`
	Email          string          `json:"email,omitempty"`
	RawCredentials json.RawMessage `json:"credentials,omitempty"`
}

// Config controls queue behavior.
type Config struct {
	Path         string        // sqlite file; empty disables the queue (inline mode)
	MaxAttempts  int           // total attempts per task, including the first
	InitialDelay time.Duration // backoff base; delay doubles per failed attempt
	PollInterval time.Duration // worker idle poll cadence
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		PollInterval: time.Second,
	}
}

// Queue is a sqlite-backed FIFO with per-task retry state.
type Queue struct {
	db     *sql.DB
	cfg    Config
	logger logging.Logger
}

// Open opens (creating if needed) the queue database at cfg.Path.
func Open(cfg Config, logger logging.Logger) (*Queue, error) {
	if cfg.Path == "" {
		return nil, errors.New("queue: empty path")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = DefaultConfig().InitialDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open queue database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id      TEXT NOT NULL,
			payload     TEXT NOT NULL,
			state       TEXT NOT NULL DEFAULT 'pending', -- pending | active | done | dead
			attempts    INTEGER NOT NULL DEFAULT 0,
			next_run_at INTEGER NOT NULL,
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_ready ON tasks(state, next_run_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	l := logger.With(logging.Field{Key: "component", Value: "queue"})
	l.Info("queue opened", logging.Field{Key: "path", Value: cfg.Path})

	return &Queue{db: db, cfg: cfg, logger: l}, nil
}

// Enqueue appends a task, runnable immediately.
func (q *Queue) Enqueue(ctx context.Context, task *ScanTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	now := time.Now().Unix()
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO tasks (job_id, payload, next_run_at, created_at) VALUES (?, ?, ?, ?)`,
		task.JobID, string(payload), now, now)
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", task.JobID, err)
	}
	q.logger.Info("task enqueued", logging.Field{Key: "job_id", Value: task.JobID})
	return nil
}

// claim marks the oldest runnable task active and returns it, or (0, nil, nil)
// when nothing is ready.
func (q *Queue) claim(ctx context.Context) (int64, *ScanTask, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	var (
		id      int64
		payload string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, payload FROM tasks
		WHERE state = 'pending' AND next_run_at <= ?
		ORDER BY id LIMIT 1`, time.Now().Unix()).Scan(&id, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET state = 'active', attempts = attempts + 1 WHERE id = ?`, id); err != nil {
		return 0, nil, err
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, err
	}

	var task ScanTask
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return 0, nil, fmt.Errorf("unmarshal task %d: %w", id, err)
	}
	return id, &task, nil
}

// finish marks a claimed task done.
func (q *Queue) finish(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE tasks SET state = 'done' WHERE id = ?`, id)
	return err
}

// fail reschedules a claimed task with exponential backoff, or parks it dead
// once attempts are exhausted.
func (q *Queue) fail(ctx context.Context, id int64) error {
	var attempts int
	if err := q.db.QueryRowContext(ctx,
		`SELECT attempts FROM tasks WHERE id = ?`, id).Scan(&attempts); err != nil {
		return err
	}

	if attempts >= q.cfg.MaxAttempts {
		_, err := q.db.ExecContext(ctx, `UPDATE tasks SET state = 'dead' WHERE id = ?`, id)
		q.logger.Warn("task exhausted retries", logging.Field{Key: "task_id", Value: id})
		return err
	}

	delay := q.cfg.InitialDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE tasks SET state = 'pending', next_run_at = ? WHERE id = ?`,
		time.Now().Add(delay).Unix(), id)
	return err
}

// Close closes the queue database.
func (q *Queue) Close() error {
	return q.db.Close()
}
