package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledge-backend/internal/shared/metrics"
	"knowledge-backend/internal/shared/storage/object"
	"knowledge-backend/internal/shared/telemetry"
)

// Limits carries upload validation settings and per-call store timeouts.
type Limits struct {
	MaxUploadBytes    int64
	AllowedExtensions []string
	SignedURLTTL      time.Duration
	StoreTimeout      time.Duration
}

// Service contains business logic for documents: upload, delete, signed
// view URLs, and reconciled listings. The object store is the source of
// truth for content; the metadata store enriches it and can be rolled back.
type Service struct {
	Repo       Repo
	Store      object.Store
	Limits     Limits
	reconciler *Reconciler
}

// NewService constructs a Service with its reconciler.
func NewService(repo Repo, store object.Store, limits Limits) *Service {
	if limits.MaxUploadBytes <= 0 {
		limits.MaxUploadBytes = 10 << 20
	}
	if limits.SignedURLTTL <= 0 {
		limits.SignedURLTTL = time.Hour
	}
	if limits.StoreTimeout <= 0 {
		limits.StoreTimeout = 10 * time.Second
	}
	return &Service{
		Repo:       repo,
		Store:      store,
		Limits:     limits,
		reconciler: &Reconciler{Repo: repo, Store: store},
	}
}

// UploadInput describes one upload request.
type UploadInput struct {
	OwnerID  string
	Admin    bool
	FileName string
	Category string
	IsShared bool
	Body     io.Reader
}

// List returns the reconciled page of documents visible to the caller.
func (s *Service) List(ctx context.Context, callerID string, scope Scope, limit, offset int) (Page, error) {
	if callerID == "" {
		return Page{}, ErrInvalidInput
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.reconciler.ListPage(ctx, callerID, scope, limit, offset)
}

// Upload validates the payload, writes the object, then upserts metadata.
// The storage key is deterministic, so re-uploading the same name by the
// same owner overwrites the same object and updates the same row.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	if in.OwnerID == "" || in.FileName == "" {
		return Document{}, ErrInvalidInput
	}
	if in.IsShared && !in.Admin {
		return Document{}, fmt.Errorf("%w: only admins may upload company documents", ErrForbidden)
	}
	if err := s.checkExtension(in.FileName); err != nil {
		return Document{}, err
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.Limits.MaxUploadBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Document{}, ErrEmptyFile
	}
	if int64(len(data)) > s.Limits.MaxUploadBytes {
		return Document{}, ErrFileTooLarge
	}

	key, err := BuildStorageKey(in.IsShared, in.OwnerID, in.FileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	mediaType := guessMediaType(key)

	putCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	size, err := s.Store.Put(putCtx, key, mediaType, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: put object: %v", ErrStore, err)
	}

	doc := Document{
		ID:          uuid.NewString(),
		DisplayName: DisplayNameFromKey(key),
		MediaType:   mediaType,
		SizeBytes:   size,
		StorageKey:  key,
		OwnerID:     in.OwnerID,
		IsShared:    in.IsShared,
		Category:    strings.TrimSpace(in.Category),
		CreatedAt:   time.Now().UTC(),
	}

	upsertCtx, cancelUpsert := s.storeCtx(ctx)
	defer cancelUpsert()
	stored, err := s.Repo.Upsert(upsertCtx, doc)
	if err != nil {
		// The object is already written. Leaving it is intentional: the
		// reconciled listing surfaces it as a bucket-only document until
		// a retry re-registers it.
		metrics.IncUploadOrphan()
		telemetry.Error("documents.upload.metadata_failed", map[string]any{
			"storage_key": key,
			"owner_id":    in.OwnerID,
			"error":       err.Error(),
		})
		return Document{}, fmt.Errorf("%w: upsert metadata: %v", ErrStore, err)
	}

	metrics.IncDocumentUploaded()
	telemetry.Info("documents.uploaded", map[string]any{
		"document_id": stored.ID,
		"storage_key": stored.StorageKey,
		"owner_id":    stored.OwnerID,
		"is_shared":   stored.IsShared,
		"byte_size":   stored.SizeBytes,
	})
	return stored, nil
}

// Delete removes a document from both stores. Physical absence is tolerated
// so retries and out-of-band deletions cannot strand metadata rows.
func (s *Service) Delete(ctx context.Context, callerID string, admin bool, documentID string) error {
	doc, err := s.getByID(ctx, documentID)
	if err != nil {
		return err
	}

	if doc.IsShared {
		if !admin {
			return fmt.Errorf("%w: only admins may delete company documents", ErrForbidden)
		}
	} else if doc.OwnerID != callerID {
		return fmt.Errorf("%w: you can only delete your own documents", ErrForbidden)
	}

	key := NormalizeKey(doc.StorageKey)
	delCtx, cancel := s.storeCtx(ctx)
	removed, delErr := s.Store.Delete(delCtx, key)
	cancel()
	switch {
	case delErr != nil:
		// Metadata deletion proceeds regardless; a stranded object shows
		// up as bucket-only on the next listing.
		telemetry.Error("documents.delete.object_failed", map[string]any{
			"document_id": doc.ID,
			"storage_key": key,
			"error":       delErr.Error(),
		})
	case !removed:
		telemetry.Warn("documents.delete.object_absent", map[string]any{
			"document_id": doc.ID,
			"storage_key": key,
		})
	}

	rowCtx, cancelRow := s.storeCtx(ctx)
	defer cancelRow()
	if err := s.Repo.Delete(rowCtx, doc.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: delete metadata: %v", ErrStore, err)
	}

	metrics.IncDocumentDeleted()
	telemetry.Info("documents.deleted", map[string]any{
		"document_id": doc.ID,
		"storage_key": key,
		"owner_id":    doc.OwnerID,
	})
	return nil
}

// SignedViewURL resolves a metadata id or a bare storage key to a physical
// object and returns a time-limited read URL for it.
func (s *Service) SignedViewURL(ctx context.Context, callerID string, ref string) (string, error) {
	if ref == "" {
		return "", ErrInvalidInput
	}

	var key string
	doc, err := s.getByID(ctx, ref)
	switch {
	case err == nil:
		if !ScopeAll.Allows(callerID, doc.OwnerID, doc.IsShared) {
			return "", ErrForbidden
		}
		key = NormalizeKey(doc.StorageKey)
	case errors.Is(err, ErrNotFound):
		// Bucket-only reference: the key itself is the identifier.
		key = NormalizeKey(ref)
		owner, shared := OwnerFromKey(key)
		if !ScopeAll.Allows(callerID, owner, shared) {
			return "", ErrForbidden
		}
	default:
		return "", err
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	exists, err := s.Store.Exists(storeCtx, key)
	if err != nil {
		return "", fmt.Errorf("%w: exists check: %v", ErrStore, err)
	}
	if !exists {
		return "", ErrNotFound
	}

	url, err := s.Store.SignURL(storeCtx, key, s.Limits.SignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("%w: sign url: %v", ErrStore, err)
	}
	return url, nil
}

// VisibleIDs returns metadata ids visible to the caller under scope. The
// chat service passes them to the agent as retrieval candidates.
func (s *Service) VisibleIDs(ctx context.Context, callerID string, scope Scope) ([]string, error) {
	listCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	rows, err := s.Repo.ListByScope(listCtx, callerID, scope)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata query: %v", ErrStore, err)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// ResolveRefs maps document ids back to metadata for display. Unknown ids
// are skipped rather than failing the whole set.
func (s *Service) ResolveRefs(ctx context.Context, ids []string) ([]Document, error) {
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.getByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *Service) checkExtension(fileName string) error {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		return fmt.Errorf("%w: missing extension", ErrExtension)
	}
	for _, allowed := range s.Limits.AllowedExtensions {
		if ext == strings.ToLower(strings.TrimSpace(allowed)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (allowed: %s)", ErrExtension, ext, strings.Join(s.Limits.AllowedExtensions, ", "))
}

// getByID fetches one metadata row under the per-call store timeout.
func (s *Service) getByID(ctx context.Context, id string) (Document, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Limits.StoreTimeout)
}
