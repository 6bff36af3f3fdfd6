package store

import (
	"errors"
	"time"
)

// Persisted key layout. One record per job and one per report, both expiring
// after DefaultTTL unless refreshed.
const (
	jobKeyPrefix    = "job:"
	reportKeyPrefix = "report:"

	// DefaultTTL is the retention window for job and report records,
	// refreshed on every write.
	DefaultTTL = 30 * 24 * time.Hour
)

var (
	// ErrReportNotFound is returned when a report is queried before the
	// owning job completed (or after expiry).
	ErrReportNotFound = errors.New("store: report not found")
)

// JobKey returns the storage key for a job record.
func JobKey(jobID string) string { return jobKeyPrefix + jobID }

// ReportKey returns the storage key for a report document.
func ReportKey(jobID string) string { return reportKeyPrefix + jobID }

// Config selects and parameterizes the KV backend. The pipeline only ever
// sees the interfaces.KVStore contract.
type Config struct {
	// Backend is "memory" or "sqlite".
	Backend string

	// Path is the sqlite database file path; ignored by the memory backend.
	Path string

	// TTL overrides DefaultTTL when > 0.
	TTL time.Duration
}

// DefaultConfig returns the development default: an in-memory store.
func DefaultConfig() Config {
	return Config{Backend: "memory", TTL: DefaultTTL}
}

func (c Config) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}
