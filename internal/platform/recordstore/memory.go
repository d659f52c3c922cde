package recordstore

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and local development. It
// supports fault injection: queued errors are returned by the next mutating
// operations in order, which lets tests exercise the retry and chunking
// paths.
type Memory struct {
	mu           sync.RWMutex
	collections  map[string]map[string]Fields
	maxBatchSize int
	pendingErrs  []error
}

func NewMemory() *Memory {
	return &Memory{
		collections:  make(map[string]map[string]Fields),
		maxBatchSize: defaultMaxBatchSize,
	}
}

// SetMaxBatchSize lowers the advertised batch ceiling so tests can force
// chunking with small data sets.
func (s *Memory) SetMaxBatchSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxBatchSize = n
}

// FailNext queues errs to be returned, one per subsequent mutating call
// (Put, Delete, or Batch.Commit).
func (s *Memory) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingErrs = append(s.pendingErrs, errs...)
}

func (s *Memory) takeErr() error {
	if len(s.pendingErrs) == 0 {
		return nil
	}
	err := s.pendingErrs[0]
	s.pendingErrs = s.pendingErrs[1:]
	return err
}

func (s *Memory) Get(ctx context.Context, collection, key string) (Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	fields, ok := docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return Clone(fields), nil
}

func (s *Memory) Put(ctx context.Context, collection, key string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return err
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]Fields)
		s.collections[collection] = docs
	}
	docs[key] = Clone(fields)
	return nil
}

func (s *Memory) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr(); err != nil {
		return err
	}
	if docs, ok := s.collections[collection]; ok {
		delete(docs, key)
	}
	return nil
}

func (s *Memory) List(ctx context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	out := make([]Document, 0, len(docs))
	for key, fields := range docs {
		out = append(out, Document{Key: key, Fields: Clone(fields)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Memory) NewBatch() Batch {
	return &memoryBatch{store: s}
}

func (s *Memory) MaxBatchSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxBatchSize
}

// Len reports the number of documents in a collection.
func (s *Memory) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

type memoryBatch struct {
	store     *Memory
	mutations []mutation
}

func (b *memoryBatch) Update(collection, key string, fields Fields) {
	b.mutations = append(b.mutations, mutation{collection: collection, key: key, fields: Clone(fields)})
}

func (b *memoryBatch) Delete(collection, key string) {
	b.mutations = append(b.mutations, mutation{collection: collection, key: key, delete: true})
}

func (b *memoryBatch) Len() int {
	return len(b.mutations)
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if err := b.store.takeErr(); err != nil {
		return err
	}
	for _, m := range b.mutations {
		docs, ok := b.store.collections[m.collection]
		if !ok {
			if m.delete {
				continue
			}
			docs = make(map[string]Fields)
			b.store.collections[m.collection] = docs
		}
		if m.delete {
			delete(docs, m.key)
			continue
		}
		existing, ok := docs[m.key]
		if !ok {
			docs[m.key] = Clone(m.fields)
			continue
		}
		merged := Clone(existing)
		for name, value := range m.fields {
			merged[name] = value
		}
		docs[m.key] = merged
	}
	return nil
}
