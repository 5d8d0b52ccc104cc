package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo, used when no database
// is configured and as a fake in tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // storage key -> document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Document)}
}

// Upsert inserts or updates the row keyed by storage key.
func (r *MemoryRepo) Upsert(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.data[doc.StorageKey]; ok {
		existing.DisplayName = doc.DisplayName
		existing.MediaType = doc.MediaType
		existing.SizeBytes = doc.SizeBytes
		existing.OwnerID = doc.OwnerID
		existing.IsShared = doc.IsShared
		existing.Category = doc.Category
		existing.UpdatedAt = doc.CreatedAt
		r.data[doc.StorageKey] = existing
		return existing, nil
	}

	doc.Registered = true
	doc.UpdatedAt = doc.CreatedAt
	r.data[doc.StorageKey] = doc
	return doc, nil
}

// GetByID returns a document by metadata id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.data {
		if doc.ID == id {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}

// GetByStorageKey returns a document by its storage key.
func (r *MemoryRepo) GetByStorageKey(ctx context.Context, storageKey string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if doc, ok := r.data[storageKey]; ok {
		return doc, nil
	}
	return Document{}, ErrNotFound
}

// ListByScope returns visible rows, newest first with key tiebreak.
func (r *MemoryRepo) ListByScope(ctx context.Context, callerID string, scope Scope) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Document
	for _, doc := range r.data {
		if scope.Allows(callerID, doc.OwnerID, doc.IsShared) {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].StorageKey < out[j].StorageKey
	})
	return out, nil
}

// Delete removes a row by metadata id.
func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, doc := range r.data {
		if doc.ID == id {
			delete(r.data, key)
			return nil
		}
	}
	return ErrNotFound
}

// touch is a test hook to set timestamps deterministically.
func (r *MemoryRepo) touch(storageKey string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.data[storageKey]; ok {
		doc.CreatedAt = at
		doc.UpdatedAt = at
		r.data[storageKey] = doc
	}
}

var _ Repo = (*MemoryRepo)(nil)
