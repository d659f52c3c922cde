package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lessonmanager/internal/platform/recordstore"
	"lessonmanager/internal/platform/retry"
)

// Scheduler creates and removes DeletionRecords. Scheduling overwrites any
// existing record for the user; the last call wins.
type Scheduler struct {
	store recordstore.Store
	retry retry.Policy
}

func NewScheduler(store recordstore.Store, policy retry.Policy) *Scheduler {
	policy.Retryable = recordstore.IsTransient
	return &Scheduler{store: store, retry: policy}
}

// Schedule writes a DeletionRecord whose grace period ends gracePeriodDays
// from now. gracePeriodDays <= 0 falls back to DefaultGracePeriodDays.
func (s *Scheduler) Schedule(ctx context.Context, userID, email, displayName string, gracePeriodDays int) (*DeletionRecord, error) {
	if gracePeriodDays <= 0 {
		gracePeriodDays = DefaultGracePeriodDays
	}

	now := time.Now().UTC()
	record := &DeletionRecord{
		UserID:               userID,
		Email:                email,
		DisplayName:          displayName,
		ScheduledForDeletion: now.AddDate(0, 0, gracePeriodDays),
		CreatedAt:            now,
	}

	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.store.Put(ctx, collectionDeletions, userID, record.toFields())
	})
	if err != nil {
		return nil, fmt.Errorf("schedule deletion for %s: %w", userID, err)
	}
	return record, nil
}

// Cancel removes the DeletionRecord. Cancelling when none exists is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, userID string) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, collectionDeletions, userID)
	})
	if err != nil && !errors.Is(err, recordstore.ErrNotFound) {
		return fmt.Errorf("cancel deletion for %s: %w", userID, err)
	}
	return nil
}

// Record returns the user's DeletionRecord, or nil when none exists.
func (s *Scheduler) Record(ctx context.Context, userID string) (*DeletionRecord, error) {
	var fields recordstore.Fields
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		fields, getErr = s.store.Get(ctx, collectionDeletions, userID)
		return getErr
	})
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load deletion record for %s: %w", userID, err)
	}
	return recordFromFields(userID, fields)
}

// Expired returns every DeletionRecord whose grace period ended at or before
// now, ordered by user id.
func (s *Scheduler) Expired(ctx context.Context, now time.Time) ([]*DeletionRecord, error) {
	var docs []recordstore.Document
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var listErr error
		docs, listErr = s.store.List(ctx, collectionDeletions)
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("list deletion records: %w", err)
	}

	var expired []*DeletionRecord
	for _, doc := range docs {
		record, err := recordFromFields(doc.Key, doc.Fields)
		if err != nil {
			return nil, err
		}
		if !record.ScheduledForDeletion.After(now) {
			expired = append(expired, record)
		}
	}
	return expired, nil
}
