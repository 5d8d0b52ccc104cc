package documents

import "time"

// Document is the metadata record for an uploaded document. The physical
// bytes live in the object store under StorageKey; a document may also exist
// there with no metadata row at all (bucket-only), in which case listings
// synthesize a Document from the raw object entry.
type Document struct {
	ID          string
	DisplayName string
	MediaType   string
	SizeBytes   int64
	StorageKey  string
	OwnerID     string
	IsShared    bool
	Category    string
	Registered  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
