package documents

import "context"

// Repo defines persistence operations for document metadata.
type Repo interface {
	// Upsert inserts the document or, when a row with the same storage key
	// already exists, updates its mutable fields in place. The authoritative
	// row is returned; its ID is stable across re-uploads.
	Upsert(ctx context.Context, doc Document) (Document, error)
	GetByID(ctx context.Context, id string) (Document, error)
	GetByStorageKey(ctx context.Context, storageKey string) (Document, error)
	// ListByScope returns every row visible to callerID under scope,
	// newest first. Pagination happens after the cross-store merge, not here.
	ListByScope(ctx context.Context, callerID string, scope Scope) ([]Document, error)
	Delete(ctx context.Context, id string) error
}
