package account

import (
	"fmt"
	"time"

	"lessonmanager/internal/platform/recordstore"
)

// DeletionRecord marks an account's intent to be deleted once its grace
// period elapses. At most one live record exists per user; it is keyed by the
// user id in the accountDeletions collection.
type DeletionRecord struct {
	UserID               string    `json:"userId"`
	Email                string    `json:"email"`
	DisplayName          string    `json:"displayName"`
	ScheduledForDeletion time.Time `json:"scheduledForDeletion"`
	CreatedAt            time.Time `json:"createdAt"`
}

// DeletionStatus is derived from a DeletionRecord and the wall clock; it is
// never persisted.
type DeletionStatus struct {
	IsScheduled   bool       `json:"isScheduled"`
	ScheduledDate *time.Time `json:"scheduledDate"`
	RemainingDays int        `json:"remainingDays"`
}

// AnonymizedIdentity is the durable replacement identity generated once per
// executed deletion. It is never reused and never mapped back to the original
// user outside the audit field on the top-level user record.
type AnonymizedIdentity struct {
	UserID      string    `json:"userId"`
	AnonymousID string    `json:"anonymousId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (r *DeletionRecord) toFields() recordstore.Fields {
	return recordstore.Fields{
		fieldUserID:       r.UserID,
		fieldEmail:        r.Email,
		fieldDisplayName:  r.DisplayName,
		fieldScheduledFor: r.ScheduledForDeletion.UTC().Format(time.RFC3339),
		fieldCreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func recordFromFields(key string, fields recordstore.Fields) (*DeletionRecord, error) {
	scheduled, err := timeField(fields, fieldScheduledFor)
	if err != nil {
		return nil, fmt.Errorf("deletion record %s: %w", key, err)
	}
	created, err := timeField(fields, fieldCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("deletion record %s: %w", key, err)
	}
	record := &DeletionRecord{
		UserID:               stringField(fields, fieldUserID),
		Email:                stringField(fields, fieldEmail),
		DisplayName:          stringField(fields, fieldDisplayName),
		ScheduledForDeletion: scheduled,
		CreatedAt:            created,
	}
	if record.UserID == "" {
		record.UserID = key
	}
	return record, nil
}

func stringField(fields recordstore.Fields, name string) string {
	value, _ := fields[name].(string)
	return value
}

func timeField(fields recordstore.Fields, name string) (time.Time, error) {
	raw, ok := fields[name].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("field %s missing or not a timestamp", name)
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %s: %w", name, err)
	}
	return parsed, nil
}

func boolField(fields recordstore.Fields, name string) bool {
	value, _ := fields[name].(bool)
	return value
}
