package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/store"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/testutil"
)

func openBackends(t *testing.T) map[string]interfaces.KVStore {
	t.Helper()
	logger := &testutil.DummyLogger{}

	sqlite, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"), logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	memory := store.NewMemoryStore()
	t.Cleanup(func() { memory.Close() })

	return map[string]interfaces.KVStore{"memory": memory, "sqlite": sqlite}
}

// ─── KV backends ───────────────────────────────────────────────────────

func TestKVStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, kv := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := kv.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := kv.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "v" {
				t.Fatalf("expected %q, got %q", "v", got)
			}

			if err := kv.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			got, err = kv.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get after delete: %v", err)
			}
			if got != nil {
				t.Fatalf("expected nil after delete, got %q", got)
			}
		})
	}
}

func TestKVStore_TTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, kv := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := kv.Set(ctx, "short", []byte("x"), 30*time.Millisecond); err != nil {
				t.Fatalf("Set: %v", err)
			}
			time.Sleep(80 * time.Millisecond)
			got, err := kv.Get(ctx, "short")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != nil {
				t.Fatalf("expected expired key to be gone, got %q", got)
			}
		})
	}
}

// ─── Job state ─────────────────────────────────────────────────────────

func newJobStore(t *testing.T) *store.JobStateStore {
	t.Helper()
	logger := &testutil.DummyLogger{}
	kv := store.NewMemoryStore()
	t.Cleanup(func() { kv.Close() })
	return store.NewJobStateStore(kv, store.DefaultConfig(), logger)
}

func TestJobStateStore_GetMissingReturnsNil(t *testing.T) {
	t.Parallel()
	jobs := newJobStore(t)

	job, err := jobs.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for unknown job, got %+v", job)
	}
}

func TestJobStateStore_UpsertMergesFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	jobs := newJobStore(t)

	created := &model.Job{
		ID:        "j1",
		URL:       "https://example.com",
		Status:    model.JobPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := jobs.Create(ctx, created); err != nil {
		t.Fatalf("Create: %v", err)
	}

	scanning := model.JobScanning
	progress := 22
	stage := "discovery"
	if _, err := jobs.Upsert(ctx, "j1", model.JobPatch{
		Status:       &scanning,
		Progress:     &progress,
		CurrentStage: &stage,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// A later partial patch must not clobber earlier fields.
	progress2 := 38
	if _, err := jobs.Upsert(ctx, "j1", model.JobPatch{Progress: &progress2}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	job, err := jobs.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != model.JobScanning {
		t.Fatalf("status clobbered: %s", job.Status)
	}
	if job.Progress != 38 {
		t.Fatalf("expected progress 38, got %d", job.Progress)
	}
	if job.CurrentStage != "discovery" {
		t.Fatalf("stage clobbered: %q", job.CurrentStage)
	}
	if job.URL != "https://example.com" {
		t.Fatalf("url clobbered: %q", job.URL)
	}
}

// ─── Reports ───────────────────────────────────────────────────────────

func TestReportStore_DualTier(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := &testutil.DummyLogger{}

	cache := store.NewMemoryStore()
	t.Cleanup(func() { cache.Close() })
	durable, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "reports.db"), logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { durable.Close() })

	reports := store.NewReportStore(cache, durable, store.DefaultConfig(), logger)

	if _, err := reports.Get(ctx, "j1"); err != store.ErrReportNotFound {
		t.Fatalf("expected ErrReportNotFound before write, got %v", err)
	}

	rpt := &model.Report{JobID: "j1", URL: "https://example.com", OverallScore: 7}
	if err := reports.Put(ctx, rpt); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := reports.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OverallScore != 7 {
		t.Fatalf("expected score 7, got %v", got.OverallScore)
	}

	// Cache loss must not lose the report: the durable tier serves it.
	if err := cache.Delete(ctx, store.ReportKey("j1")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = reports.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get after cache loss: %v", err)
	}
	if got.JobID != "j1" {
		t.Fatalf("unexpected report: %+v", got)
	}
}
