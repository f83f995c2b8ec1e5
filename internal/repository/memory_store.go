package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"rubric-review/backend/pkg/models"
)

// MemoryWorkflowStore keeps records in process memory. Each record carries
// its own mutex so updates to different ids do not contend.
type MemoryWorkflowStore struct {
	mu      sync.RWMutex
	records map[int64]*memRecord
	lastID  atomic.Int64
}

type memRecord struct {
	mu  sync.Mutex
	rec *models.WorkflowRecord
}

// NewMemoryWorkflowStore creates an empty store. The first id is 1.
func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{records: make(map[int64]*memRecord)}
}

// Create stores a new record.
func (s *MemoryWorkflowStore) Create(_ context.Context, inputs *models.TaskZeroInputs) (*models.WorkflowRecord, error) {
	now := time.Now().UTC()
	rec := &models.WorkflowRecord{
		ID:             s.lastID.Add(1),
		TaskZeroInputs: inputs,
		CurrentStep:    models.StepTaskZero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	rec = rec.Clone()

	s.mu.Lock()
	s.records[rec.ID] = &memRecord{rec: rec}
	s.mu.Unlock()

	return rec.Clone(), nil
}

// Get retrieves a copy of a record.
func (s *MemoryWorkflowStore) Get(_ context.Context, id int64) (*models.WorkflowRecord, error) {
	entry, ok := s.entry(id)
	if !ok {
		return nil, models.NewWorkflowNotFoundError(id)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.rec.Clone(), nil
}

// UpdatePartial applies mutate under the record's lock.
func (s *MemoryWorkflowStore) UpdatePartial(_ context.Context, id int64, mutate MutateFunc) (*models.WorkflowRecord, error) {
	entry, ok := s.entry(id)
	if !ok {
		return nil, models.NewWorkflowNotFoundError(id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.rec.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.ID = id
	working.UpdatedAt = time.Now().UTC()

	// The entry must still be the one registered for id.
	if current, ok := s.entry(id); !ok || current != entry {
		return nil, models.NewWorkflowNotFoundError(id)
	}

	entry.rec = working
	return working.Clone(), nil
}

// List returns copies of records ordered by id.
func (s *MemoryWorkflowStore) List(_ context.Context, limit, offset int) ([]*models.WorkflowRecord, error) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if offset > 0 {
		if offset >= len(ids) {
			return []*models.WorkflowRecord{}, nil
		}
		ids = ids[offset:]
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	result := make([]*models.WorkflowRecord, 0, len(ids))
	for _, id := range ids {
		if entry, ok := s.entry(id); ok {
			entry.mu.Lock()
			result = append(result, entry.rec.Clone())
			entry.mu.Unlock()
		}
	}
	return result, nil
}

// Ping always succeeds.
func (s *MemoryWorkflowStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored records.
func (s *MemoryWorkflowStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryWorkflowStore) entry(id int64) (*memRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.records[id]
	return e, ok
}
