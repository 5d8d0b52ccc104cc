package documents

import (
	"context"
	"fmt"
	"mime"
	"path"
	"sort"
	"strings"
	"sync"

	"knowledge-backend/internal/shared/metrics"
	"knowledge-backend/internal/shared/storage/object"
	"knowledge-backend/internal/shared/telemetry"
)

// Reconciler merges the metadata store's view of documents with the object
// store's physical listing into one scoped, deduplicated, ordered result.
// Neither store is trusted alone: a metadata row may outlive its object
// (deleted out-of-band) and an object may exist with no row (uploaded
// out-of-band). Both states are valid and resolved here at read time.
type Reconciler struct {
	Repo  Repo
	Store object.Store
}

// Page is one reconciled listing page. Total reflects the post-merge,
// post-existence-filter count of the whole visible set, not the raw
// metadata count and not the page length.
type Page struct {
	Documents []Document
	Total     int
}

// ListPage produces the page at offset/limit of the merged visible set.
// Metadata and object listings are fetched concurrently; the merge waits
// for both.
func (r *Reconciler) ListPage(ctx context.Context, callerID string, scope Scope, limit, offset int) (Page, error) {
	started := metrics.NowMillis()

	var (
		wg      sync.WaitGroup
		rows    []Document
		rowsErr error
		objects []object.Info
		objErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		rows, rowsErr = r.Repo.ListByScope(ctx, callerID, scope)
	}()
	go func() {
		defer wg.Done()
		objects, objErr = r.listPrefixes(ctx, scope.Prefixes(callerID))
	}()
	wg.Wait()

	if rowsErr != nil {
		return Page{}, fmt.Errorf("%w: metadata query: %v", ErrStore, rowsErr)
	}
	if objErr != nil {
		return Page{}, fmt.Errorf("%w: object listing: %v", ErrStore, objErr)
	}

	merged := r.merge(callerID, scope, rows, objects)
	metrics.ObserveReconcileDurationMs(metrics.NowMillis() - started)

	total := len(merged)
	if offset >= total {
		return Page{Documents: []Document{}, Total: total}, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return Page{Documents: merged[offset:end], Total: total}, nil
}

func (r *Reconciler) listPrefixes(ctx context.Context, prefixes []string) ([]object.Info, error) {
	var out []object.Info
	seen := make(map[string]struct{})
	for _, prefix := range prefixes {
		infos, err := r.Store.List(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			key := NormalizeKey(info.Key)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			info.Key = key
			out = append(out, info)
		}
	}
	return out, nil
}

// merge implements the reconciliation order: surviving metadata rows first
// (richer attributes), then bucket-only objects synthesized into minimal
// records, then one global sort and the caller paginates.
func (r *Reconciler) merge(callerID string, scope Scope, rows []Document, objects []object.Info) []Document {
	byKey := make(map[string]object.Info, len(objects))
	for _, info := range objects {
		byKey[info.Key] = info
	}

	seen := make(map[string]struct{}, len(rows))
	merged := make([]Document, 0, len(rows)+len(objects))

	for _, row := range rows {
		key := NormalizeKey(row.StorageKey)
		if _, exists := byKey[key]; !exists {
			// The physical object is gone; treat the row as not yet
			// deleted from metadata rather than an error.
			metrics.IncReconcileInconsistency()
			telemetry.Warn("documents.reconcile.missing_object", map[string]any{
				"document_id": row.ID,
				"storage_key": key,
				"owner_id":    row.OwnerID,
			})
			continue
		}
		row.StorageKey = key
		merged = append(merged, row)
		seen[key] = struct{}{}
	}

	for _, info := range objects {
		if _, ok := seen[info.Key]; ok {
			continue
		}
		doc := synthesize(info)
		if !scope.Allows(callerID, doc.OwnerID, doc.IsShared) {
			continue
		}
		merged = append(merged, doc)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].StorageKey < merged[j].StorageKey
	})
	return merged
}

// synthesize builds a minimal document record for a bucket-only object.
// The storage key doubles as its identifier; category stays empty and the
// owner is inferred from the key prefix.
func synthesize(info object.Info) Document {
	owner, shared := OwnerFromKey(info.Key)
	mediaType := info.ContentType
	if mediaType == "" {
		mediaType = guessMediaType(info.Key)
	}
	return Document{
		ID:          info.Key,
		DisplayName: DisplayNameFromKey(info.Key),
		MediaType:   mediaType,
		SizeBytes:   info.SizeBytes,
		StorageKey:  info.Key,
		OwnerID:     owner,
		IsShared:    shared,
		CreatedAt:   info.CreatedAt,
		UpdatedAt:   info.CreatedAt,
	}
}

func guessMediaType(key string) string {
	if mt := mime.TypeByExtension(strings.ToLower(path.Ext(key))); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
