package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"lessonmanager/internal/platform/identity"
	"lessonmanager/internal/platform/retry"
)

// CertificateWriter persists a proof-of-deletion artifact after a successful
// execution.
type CertificateWriter interface {
	Write(identity *AnonymizedIdentity) (string, error)
}

// Executor runs the whole deletion as one logical operation:
// re-authentication, anonymization, identity removal, record cleanup.
// Committed steps are never rolled back; the operation is forward-only and
// terminal. Every step tolerates "already done", so a failed invocation is
// safely re-runnable end to end.
type Executor struct {
	scheduler *Scheduler
	pipeline  *Pipeline
	guard     *Guard
	identity  identity.Provider
	retry     retry.Policy
	certs     CertificateWriter

	// concurrent runs for the same user collapse into a single execution
	group singleflight.Group
}

func NewExecutor(scheduler *Scheduler, pipeline *Pipeline, guard *Guard, provider identity.Provider, policy retry.Policy, certs CertificateWriter) *Executor {
	return &Executor{
		scheduler: scheduler,
		pipeline:  pipeline,
		guard:     guard,
		identity:  provider,
		retry:     policy,
		certs:     certs,
	}
}

// Execute is the user-facing path: it re-verifies the credential before any
// destructive write.
func (e *Executor) Execute(ctx context.Context, userID, secret string) (*AnonymizedIdentity, error) {
	if err := e.guard.Verify(ctx, userID, secret); err != nil {
		return nil, err
	}
	return e.run(ctx, userID)
}

// ExecuteExpired is the sweep path: it requires an existing DeletionRecord
// whose grace period has elapsed instead of an interactive credential.
func (e *Executor) ExecuteExpired(ctx context.Context, userID string, now time.Time) (*AnonymizedIdentity, error) {
	record, err := e.scheduler.Record(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotScheduled
	}
	if record.ScheduledForDeletion.After(now) {
		return nil, ErrNotExpired
	}
	return e.run(ctx, userID)
}

func (e *Executor) run(ctx context.Context, userID string) (*AnonymizedIdentity, error) {
	result, err, _ := e.group.Do(userID, func() (any, error) {
		// best-effort up front; the record is removed for good after the
		// identity is gone
		if err := e.scheduler.Cancel(ctx, userID); err != nil {
			slog.Warn("deletion record cleanup failed, continuing", "userId", userID, "err", err)
		}

		anonymized, err := e.pipeline.Run(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("anonymize %s: %w", userID, err)
		}

		err = e.retry.Do(ctx, func(ctx context.Context) error {
			return e.identity.Delete(ctx, userID)
		})
		if err != nil && !errors.Is(err, identity.ErrNotFound) {
			return nil, fmt.Errorf("delete principal %s: %w", userID, err)
		}

		if err := e.scheduler.Cancel(ctx, userID); err != nil {
			return nil, err
		}

		if e.certs != nil {
			if path, err := e.certs.Write(anonymized); err != nil {
				slog.Warn("deletion certificate write failed", "userId", userID, "err", err)
			} else {
				slog.Info("deletion certificate written", "path", path)
			}
		}
		return anonymized, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*AnonymizedIdentity), nil
}
