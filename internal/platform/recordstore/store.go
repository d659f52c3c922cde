package recordstore

import (
	"context"
	"errors"
)

// Fields is the field set of a single document.
type Fields map[string]any

// Document pairs a key with its fields inside one collection.
type Document struct {
	Key    string
	Fields Fields
}

var ErrNotFound = errors.New("document not found")

// TransientError wraps backend failures that are safe to retry, such as a
// dropped connection or a serialization conflict. Anything else coming out of
// a Store is treated as fatal by callers.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient store error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err may succeed on a retry.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// Store is a keyed document store. Put replaces the whole document; batch
// updates merge fields into the existing document and leave the rest alone.
type Store interface {
	// Get returns the document's fields, or ErrNotFound.
	Get(ctx context.Context, collection, key string) (Fields, error)
	// Put replaces the document, creating it if absent.
	Put(ctx context.Context, collection, key string, fields Fields) error
	// Delete removes the document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, collection, key string) error
	// List returns every document in the collection, ordered by key.
	List(ctx context.Context, collection string) ([]Document, error)
	// NewBatch starts an empty mutation batch. Commit is all-or-nothing.
	NewBatch() Batch
	// MaxBatchSize is the largest number of mutations one batch may hold.
	MaxBatchSize() int
}

// Batch accumulates mutations and applies them atomically on Commit.
type Batch interface {
	// Update merges fields into the document, creating it if absent.
	Update(collection, key string, fields Fields)
	// Delete removes the document.
	Delete(collection, key string)
	// Len reports the number of queued mutations.
	Len() int
	// Commit applies every queued mutation atomically.
	Commit(ctx context.Context) error
}

// Clone returns a deep copy of fields safe to mutate independently.
func Clone(fields Fields) Fields {
	if fields == nil {
		return nil
	}
	out := make(Fields, len(fields))
	for name, value := range fields {
		if nested, ok := value.(map[string]any); ok {
			out[name] = map[string]any(Clone(nested))
			continue
		}
		out[name] = value
	}
	return out
}
