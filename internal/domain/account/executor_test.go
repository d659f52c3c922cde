package account

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"lessonmanager/internal/platform/identity"
	"lessonmanager/internal/platform/recordstore"
)

type countingCertWriter struct {
	mu    sync.Mutex
	calls int
	last  *AnonymizedIdentity
}

func (w *countingCertWriter) Write(anonymized *AnonymizedIdentity) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	w.last = anonymized
	return "storage/deletions/" + anonymized.AnonymousID + ".pdf", nil
}

func newTestExecutor(store *recordstore.Memory, provider *identity.Memory, certs CertificateWriter) *Executor {
	scheduler := NewScheduler(store, testPolicy())
	pipeline := NewPipeline(store, testPolicy())
	guard := NewGuard(provider)
	return NewExecutor(scheduler, pipeline, guard, provider, testPolicy(), certs)
}

func TestExecuteRunsFullFlow(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "secret")
	seedUserData(t, store, "u1")
	certs := &countingCertWriter{}
	executor := newTestExecutor(store, provider, certs)

	scheduler := NewScheduler(store, testPolicy())
	if _, err := scheduler.Schedule(ctx, "u1", "a@x.com", "Alice", 30); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	anonymized, err := executor.Execute(ctx, "u1", "secret")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if anonymized.AnonymousID == "" {
		t.Fatal("expected a generated anonymous id")
	}

	user, err := store.Get(ctx, collectionUsers, "u1")
	if err != nil || user["email"] != AnonymousEmail {
		t.Fatalf("user record not anonymized: %v (%v)", user, err)
	}
	if deleted := provider.Deleted(); len(deleted) != 1 || deleted[0] != "u1" {
		t.Fatalf("principal not deleted: %v", deleted)
	}
	if store.Len(collectionDeletions) != 0 {
		t.Fatal("deletion record must be cleared after execution")
	}
	if certs.calls != 1 || certs.last.AnonymousID != anonymized.AnonymousID {
		t.Fatalf("expected one certificate for the run, got %d", certs.calls)
	}
}

func TestExecuteRejectsMissingSecretBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "secret")
	seedUserData(t, store, "u1")
	executor := newTestExecutor(store, provider, nil)

	if _, err := executor.Execute(ctx, "u1", ""); !errors.Is(err, ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}

	user, err := store.Get(ctx, collectionUsers, "u1")
	if err != nil || user["email"] != "a@x.com" {
		t.Fatalf("guard failure must leave data untouched: %v (%v)", user, err)
	}
	if len(provider.Deleted()) != 0 {
		t.Fatal("guard failure must not delete the principal")
	}
}

func TestExecuteRejectsStaleCredentialBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "secret")
	seedUserData(t, store, "u1")
	executor := newTestExecutor(store, provider, nil)

	if _, err := executor.Execute(ctx, "u1", "stale"); !errors.Is(err, ErrReauthFailed) {
		t.Fatalf("expected ErrReauthFailed, got %v", err)
	}

	user, err := store.Get(ctx, collectionUsers, "u1")
	if err != nil || user["email"] != "a@x.com" {
		t.Fatalf("guard failure must leave data untouched: %v (%v)", user, err)
	}
}

func TestExecuteRetryAfterPartialFailureIsSafe(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "secret")
	seedUserData(t, store, "u1")
	executor := newTestExecutor(store, provider, nil)

	// first invocation anonymizes everything, then fails at identity removal
	provider.FailDelete(errors.New("identity backend down"))
	if _, err := executor.Execute(ctx, "u1", "secret"); err == nil {
		t.Fatal("expected first invocation to fail")
	}
	before := snapshotUser(t, store, "u1")

	// the whole operation is re-runnable; anonymized fields stay fixed
	provider.FailDelete(nil)
	if _, err := executor.Execute(ctx, "u1", "secret"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	after := snapshotUser(t, store, "u1")

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("retry changed already-anonymized data:\nbefore: %v\nafter:  %v", before, after)
	}
	if deleted := provider.Deleted(); len(deleted) != 1 || deleted[0] != "u1" {
		t.Fatalf("principal not deleted on retry: %v", deleted)
	}
}

func TestExecuteExpiredRequiresDueRecord(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "secret")
	seedUserData(t, store, "u1")
	executor := newTestExecutor(store, provider, nil)

	if _, err := executor.ExecuteExpired(ctx, "u1", time.Now()); !errors.Is(err, ErrNotScheduled) {
		t.Fatalf("expected ErrNotScheduled, got %v", err)
	}

	scheduler := NewScheduler(store, testPolicy())
	if _, err := scheduler.Schedule(ctx, "u1", "a@x.com", "Alice", 30); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if _, err := executor.ExecuteExpired(ctx, "u1", time.Now()); !errors.Is(err, ErrNotExpired) {
		t.Fatalf("expected ErrNotExpired, got %v", err)
	}

	anonymized, err := executor.ExecuteExpired(ctx, "u1", time.Now().AddDate(0, 0, 31))
	if err != nil {
		t.Fatalf("expired execution failed: %v", err)
	}
	if anonymized.AnonymousID == "" {
		t.Fatal("expected a generated anonymous id")
	}
	if len(provider.Deleted()) != 1 {
		t.Fatal("expired execution must delete the principal")
	}
}

func TestExecuteSerializesConcurrentRunsPerUser(t *testing.T) {
	ctx := context.Background()
	store := recordstore.NewMemory()
	provider := identity.NewMemory()
	provider.CreateWithID("u1", "a@x.com", "Alice", "secret")
	seedUserData(t, store, "u1")
	executor := newTestExecutor(store, provider, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = executor.Execute(ctx, "u1", "secret")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, identity.ErrNotFound) {
			t.Fatalf("unexpected concurrent error: %v", err)
		}
	}
	if succeeded == 0 {
		t.Fatal("at least one concurrent run must succeed")
	}

	user, err := store.Get(ctx, collectionUsers, "u1")
	if err != nil || user["email"] != AnonymousEmail {
		t.Fatalf("user record not anonymized: %v (%v)", user, err)
	}
	if deleted := provider.Deleted(); len(deleted) != 1 {
		t.Fatalf("principal must be deleted exactly once, got %v", deleted)
	}
}
