package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"lessonmanager/internal/platform/recordstore"
	"lessonmanager/internal/platform/retry"
)

// Pipeline rewrites every PII-bearing record owned by a user to fixed
// placeholder values, deletes the private profile outright, and returns the
// generated replacement identity. Content fields are preserved verbatim.
//
// Mutations are applied in atomic batches capped at the store's
// MaxBatchSize. A user's fan-out is unbounded, so commits are chunked:
// each chunk is atomic on its own and the overall run is eventually atomic.
// Every rewrite is an idempotent field replace, which makes a partially
// applied run safe to retry from the start.
type Pipeline struct {
	store recordstore.Store
	retry retry.Policy
}

func NewPipeline(store recordstore.Store, policy retry.Policy) *Pipeline {
	policy.Retryable = recordstore.IsTransient
	return &Pipeline{store: store, retry: policy}
}

// Run anonymizes everything owned by userID. Records already tagged
// anonymized are skipped, so re-running against an anonymized user queues no
// writes.
func (p *Pipeline) Run(ctx context.Context, userID string) (*AnonymizedIdentity, error) {
	anonymousID, err := NewAnonymousID()
	if err != nil {
		return nil, fmt.Errorf("generate anonymous id: %w", err)
	}

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339)
	batch := newChunkedBatch(p.store, p.retry)

	rooms, err := p.list(ctx, chatRoomsCollection(userID))
	if err != nil {
		return nil, fmt.Errorf("list chat rooms for %s: %w", userID, err)
	}
	for _, room := range rooms {
		if !boolField(room.Fields, fieldAnonymized) {
			if err := batch.update(ctx, chatRoomsCollection(userID), room.Key, recordstore.Fields{
				fieldUserID:       anonymousID,
				fieldUserEmail:    AnonymousEmail,
				fieldAnonymized:   true,
				fieldAnonymizedAt: stamp,
			}); err != nil {
				return nil, err
			}
		}

		messages, err := p.list(ctx, messagesCollection(userID, room.Key))
		if err != nil {
			return nil, fmt.Errorf("list messages for %s/%s: %w", userID, room.Key, err)
		}
		for _, message := range messages {
			if boolField(message.Fields, fieldAnonymized) {
				continue
			}
			if err := batch.update(ctx, messagesCollection(userID, room.Key), message.Key, recordstore.Fields{
				fieldUserID:     anonymousID,
				fieldUserEmail:  AnonymousEmail,
				fieldAnonymized: true,
			}); err != nil {
				return nil, err
			}
		}
	}

	lessons, err := p.list(ctx, lessonsCollection(userID))
	if err != nil {
		return nil, fmt.Errorf("list lessons for %s: %w", userID, err)
	}
	for _, lesson := range lessons {
		if boolField(lesson.Fields, fieldAnonymized) {
			continue
		}
		if err := batch.update(ctx, lessonsCollection(userID), lesson.Key, recordstore.Fields{
			fieldUserIDLesson: anonymousID,
			fieldTeacherName:  AnonymousTeacherName,
			fieldAnonymized:   true,
			fieldAnonymizedAt: stamp,
		}); err != nil {
			return nil, err
		}
	}

	// the private profile has no standalone value once content is stripped
	if err := batch.delete(ctx, profileCollection(userID), profileDocKey); err != nil {
		return nil, err
	}

	userFields, err := p.get(ctx, collectionUsers, userID)
	if err != nil && !errors.Is(err, recordstore.ErrNotFound) {
		return nil, fmt.Errorf("load user record %s: %w", userID, err)
	}
	if err == nil && !boolField(userFields, fieldAnonymized) {
		// originalUserId stays behind as the one internal audit cross-reference
		if err := batch.update(ctx, collectionUsers, userID, recordstore.Fields{
			fieldEmail:          AnonymousEmail,
			fieldDisplayName:    DeletedUserName,
			fieldAnonymized:     true,
			fieldAnonymizedAt:   stamp,
			fieldOriginalUserID: userID,
		}); err != nil {
			return nil, err
		}
	}

	if err := batch.flush(ctx); err != nil {
		return nil, err
	}

	return &AnonymizedIdentity{
		UserID:      userID,
		AnonymousID: anonymousID,
		CompletedAt: now,
	}, nil
}

func (p *Pipeline) list(ctx context.Context, collection string) ([]recordstore.Document, error) {
	var docs []recordstore.Document
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var listErr error
		docs, listErr = p.store.List(ctx, collection)
		return listErr
	})
	return docs, err
}

func (p *Pipeline) get(ctx context.Context, collection, key string) (recordstore.Fields, error) {
	var fields recordstore.Fields
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var getErr error
		fields, getErr = p.store.Get(ctx, collection, key)
		if errors.Is(getErr, recordstore.ErrNotFound) {
			fields = nil
		}
		return getErr
	})
	return fields, err
}

// chunkedBatch queues mutations and commits a full atomic batch every time
// the store's size limit is reached. Chunks commit sequentially.
type chunkedBatch struct {
	store recordstore.Store
	retry retry.Policy
	batch recordstore.Batch
	max   int
}

func newChunkedBatch(store recordstore.Store, policy retry.Policy) *chunkedBatch {
	return &chunkedBatch{
		store: store,
		retry: policy,
		batch: store.NewBatch(),
		max:   store.MaxBatchSize(),
	}
}

func (c *chunkedBatch) update(ctx context.Context, collection, key string, fields recordstore.Fields) error {
	c.batch.Update(collection, key, fields)
	return c.commitIfFull(ctx)
}

func (c *chunkedBatch) delete(ctx context.Context, collection, key string) error {
	c.batch.Delete(collection, key)
	return c.commitIfFull(ctx)
}

func (c *chunkedBatch) commitIfFull(ctx context.Context) error {
	if c.max > 0 && c.batch.Len() >= c.max {
		return c.flush(ctx)
	}
	return nil
}

func (c *chunkedBatch) flush(ctx context.Context) error {
	if c.batch.Len() == 0 {
		return nil
	}
	batch := c.batch
	c.batch = c.store.NewBatch()
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return batch.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("commit anonymization batch: %w", err)
	}
	return nil
}

const anonymousSuffixLen = 9

// NewAnonymousID generates an identifier of the form
// anon_<unixMilli>_<random base36 suffix>. The suffix is long enough that a
// collision across deletions is negligible.
func NewAnonymousID() (string, error) {
	suffix := make([]byte, 0, anonymousSuffixLen)
	for i := 0; i < anonymousSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(36))
		if err != nil {
			return "", err
		}
		suffix = strconv.AppendInt(suffix, n.Int64(), 36)
	}
	return "anon_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + string(suffix), nil
}
