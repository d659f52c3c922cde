// Package jobs runs background work: the deletion sweep walks every pending
// DeletionRecord and executes the ones whose grace period has elapsed.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lessonmanager/internal/domain/account"
	"lessonmanager/internal/platform/recordstore"
)

const JobDeletionSweep = "deletion_sweep"

const collectionJobRuns = "jobRuns"

// DeletionExecutor is the slice of the account executor the sweep needs.
type DeletionExecutor interface {
	ExecuteExpired(ctx context.Context, userID string, now time.Time) (*account.AnonymizedIdentity, error)
}

type SweepResult struct {
	Scanned  int      `json:"scanned"`
	Executed int      `json:"executed"`
	Failed   []string `json:"failed,omitempty"`
}

type Service struct {
	store     recordstore.Store
	scheduler *account.Scheduler
	executor  DeletionExecutor
	interval  time.Duration
	queue     chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(store recordstore.Store, scheduler *account.Scheduler, executor DeletionExecutor, interval time.Duration) *Service {
	return &Service{
		store:     store,
		scheduler: scheduler,
		executor:  executor,
		interval:  interval,
		queue:     make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.interval > 0 {
		go s.scheduleSweeps(ctx, s.interval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// RunNow executes a job inline, recording the run like queued work.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := uuid.NewString()
	startedAt := time.Now().UTC()
	if err := s.store.Put(ctx, collectionJobRuns, runID, recordstore.Fields{
		"jobType":   j.Type,
		"status":    "running",
		"startedAt": startedAt.Format(time.RFC3339),
	}); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	if putErr := s.store.Put(ctx, collectionJobRuns, runID, recordstore.Fields{
		"jobType":     j.Type,
		"status":      status,
		"details":     details,
		"startedAt":   startedAt.Format(time.RFC3339),
		"completedAt": time.Now().UTC().Format(time.RFC3339),
	}); putErr != nil {
		slog.Warn("job run update failed", "err", putErr)
	}
	return details, err
}

func (s *Service) scheduleSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(JobDeletionSweep, func(ctx context.Context) (any, error) {
				return s.Sweep(ctx, time.Now())
			})
		}
	}
}

// Sweep executes every DeletionRecord past its grace period. A single
// account's failure is recorded and the sweep moves on; the next run picks
// the account up again.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	expired, err := s.scheduler.Expired(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(expired)}
	for _, record := range expired {
		if _, err := s.executor.ExecuteExpired(ctx, record.UserID, now); err != nil {
			if errors.Is(err, account.ErrNotScheduled) || errors.Is(err, account.ErrNotExpired) {
				// raced with a cancellation or another sweep
				continue
			}
			slog.Warn("deletion sweep execution failed", "userId", record.UserID, "err", err)
			result.Failed = append(result.Failed, record.UserID)
			continue
		}
		result.Executed++
	}
	return result, nil
}
