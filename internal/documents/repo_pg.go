package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, display_name, media_type, byte_size, storage_key, owner_id, is_shared, category, created_at, updated_at`

// Upsert inserts the document or updates the existing row for its storage key.
func (r *PGRepo) Upsert(ctx context.Context, doc Document) (Document, error) {
	const query = `
INSERT INTO documents (
    id,
    display_name,
    media_type,
    byte_size,
    storage_key,
    owner_id,
    is_shared,
    category,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (storage_key) DO UPDATE SET
    display_name = EXCLUDED.display_name,
    media_type   = EXCLUDED.media_type,
    byte_size    = EXCLUDED.byte_size,
    owner_id     = EXCLUDED.owner_id,
    is_shared    = EXCLUDED.is_shared,
    category     = EXCLUDED.category,
    updated_at   = EXCLUDED.updated_at
RETURNING ` + documentColumns

	var category sql.NullString
	if doc.Category != "" {
		category = sql.NullString{String: doc.Category, Valid: true}
	}

	row := r.DB.QueryRowContext(
		ctx,
		query,
		doc.ID,
		doc.DisplayName,
		doc.MediaType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.OwnerID,
		doc.IsShared,
		category,
		doc.CreatedAt,
	)
	out, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("upsert document key=%s: %w", doc.StorageKey, err)
	}
	return out, nil
}

// GetByID fetches a document by its metadata id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// GetByStorageKey fetches a document by its unique storage key.
func (r *PGRepo) GetByStorageKey(ctx context.Context, storageKey string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE storage_key = $1
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, storageKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// ListByScope returns rows visible under the scope predicate, newest first.
func (r *PGRepo) ListByScope(ctx context.Context, callerID string, scope Scope) ([]Document, error) {
	var (
		where string
		args  []any
	)
	switch scope {
	case ScopeMy:
		where = `owner_id = $1 AND is_shared = FALSE`
		args = []any{callerID}
	case ScopeCompany:
		where = `is_shared = TRUE`
	default: // ScopeAll
		where = `owner_id = $1 OR is_shared = TRUE`
		args = []any{callerID}
	}

	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE ` + where + `
ORDER BY created_at DESC, storage_key ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes a document row by id.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var category sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.DisplayName,
		&doc.MediaType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&doc.OwnerID,
		&doc.IsShared,
		&category,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if category.Valid {
		doc.Category = category.String
	}
	doc.Registered = true
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
