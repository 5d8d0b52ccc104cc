package object

import (
	"context"
	"io"
	"time"
)

// Info describes a stored object as reported by a listing.
type Info struct {
	Key         string
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
}

// Store defines the contract for the object store backing documents.
// Absence is modeled as a valid outcome where noted, never as an error,
// so idempotent retries of delete stay safe.
type Store interface {
	// List returns every object under the given key prefix.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Exists reports whether an object is physically present.
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes the reader contents under key and returns the byte count.
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)
	// Delete removes an object. It returns false, not an error, when the
	// object was already absent.
	Delete(ctx context.Context, key string) (bool, error)
	// SignURL returns a time-limited read-only URL for an existing object.
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
