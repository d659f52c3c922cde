package jobs

import (
	"context"
	"testing"
	"time"

	"lessonmanager/internal/domain/account"
	"lessonmanager/internal/platform/identity"
	"lessonmanager/internal/platform/recordstore"
	"lessonmanager/internal/platform/retry"
)

func TestSweepExecutesOnlyExpiredRecords(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()
	provider.CreateWithID("due", "due@x.com", "Due", "secret")
	provider.CreateWithID("future", "future@x.com", "Future", "secret")

	policy := retry.Fixed(3, time.Millisecond)
	scheduler := account.NewScheduler(store, policy)
	pipeline := account.NewPipeline(store, policy)
	executor := account.NewExecutor(scheduler, pipeline, account.NewGuard(provider), provider, policy, nil)

	if _, err := scheduler.Schedule(ctx, "due", "due@x.com", "Due", 1); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if _, err := scheduler.Schedule(ctx, "future", "future@x.com", "Future", 30); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	service := New(store, scheduler, executor, 0)
	result, err := service.Sweep(ctx, time.Now().AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Scanned != 1 || result.Executed != 1 || len(result.Failed) != 0 {
		t.Fatalf("unexpected sweep result: %+v", result)
	}

	if deleted := provider.Deleted(); len(deleted) != 1 || deleted[0] != "due" {
		t.Fatalf("only the due principal must be deleted, got %v", deleted)
	}
	if record, err := scheduler.Record(ctx, "future"); err != nil || record == nil {
		t.Fatalf("future record must survive the sweep: %v (%v)", record, err)
	}
}

func TestSweepIsEmptyWhenNothingDue(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()

	policy := retry.Fixed(3, time.Millisecond)
	scheduler := account.NewScheduler(store, policy)
	pipeline := account.NewPipeline(store, policy)
	executor := account.NewExecutor(scheduler, pipeline, account.NewGuard(provider), provider, policy, nil)

	service := New(store, scheduler, executor, 0)
	result, err := service.Sweep(ctx, time.Now())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Scanned != 0 || result.Executed != 0 {
		t.Fatalf("unexpected sweep result: %+v", result)
	}
}

func TestRunNowRecordsJobRun(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	service := New(store, nil, nil, 0)

	details, err := service.RunNow(ctx, "noop", func(ctx context.Context) (any, error) {
		return map[string]any{"ok": true}, nil
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if details == nil {
		t.Fatal("expected details from job")
	}

	runs, err := store.List(ctx, "jobRuns")
	if err != nil {
		t.Fatalf("list job runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(runs))
	}
	if runs[0].Fields["status"] != "completed" || runs[0].Fields["jobType"] != "noop" {
		t.Fatalf("unexpected run record: %v", runs[0].Fields)
	}
}
