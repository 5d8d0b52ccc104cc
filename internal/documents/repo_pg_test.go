package documents

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var documentRows = []string{
	"id", "display_name", "media_type", "byte_size", "storage_key",
	"owner_id", "is_shared", "category", "created_at", "updated_at",
}

func TestPGRepoUpsertReturnsAuthoritativeRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := Document{
		ID:          "doc-new",
		DisplayName: "report.pdf",
		MediaType:   "application/pdf",
		SizeBytes:   1234,
		StorageKey:  "users/u1/report.pdf",
		OwnerID:     "u1",
		Category:    "finance",
		CreatedAt:   now,
	}

	// Conflict path: the row for this key already exists under doc-old,
	// so RETURNING carries the surviving id.
	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.DisplayName,
			doc.MediaType,
			doc.SizeBytes,
			doc.StorageKey,
			doc.OwnerID,
			doc.IsShared,
			sqlmock.AnyArg(), // category
			doc.CreatedAt,
		).
		WillReturnRows(sqlmock.NewRows(documentRows).AddRow(
			"doc-old", doc.DisplayName, doc.MediaType, doc.SizeBytes, doc.StorageKey,
			doc.OwnerID, doc.IsShared, doc.Category, now.Add(-time.Hour), now,
		))

	stored, err := repo.Upsert(context.Background(), doc)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if stored.ID != "doc-old" {
		t.Fatalf("expected surviving id from RETURNING, got %q", stored.ID)
	}
	if !stored.Registered {
		t.Fatal("row from the database must report registered")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(documentRows))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByScopePredicates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		scope    Scope
		wherePat string
		args     []any
	}{
		{ScopeMy, `owner_id = \$1 AND is_shared = FALSE`, []any{"u1"}},
		{ScopeCompany, `is_shared = TRUE`, nil},
		{ScopeAll, `owner_id = \$1 OR is_shared = TRUE`, []any{"u1"}},
	}

	for _, tc := range cases {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock.New: %v", err)
		}

		repo := &PGRepo{DB: db}
		expect := mock.ExpectQuery(`SELECT (.+) FROM documents\s+WHERE ` + tc.wherePat)
		if len(tc.args) > 0 {
			args := make([]driver.Value, 0, len(tc.args))
			for _, a := range tc.args {
				args = append(args, a)
			}
			expect.WithArgs(args...)
		}
		expect.WillReturnRows(sqlmock.NewRows(documentRows).AddRow(
			"doc-1", "a.pdf", "application/pdf", int64(10), "users/u1/a.pdf",
			"u1", false, nil, now, now,
		))

		rows, err := repo.ListByScope(context.Background(), "u1", tc.scope)
		if err != nil {
			t.Fatalf("scope %s: ListByScope: %v", tc.scope, err)
		}
		if len(rows) != 1 {
			t.Fatalf("scope %s: expected 1 row, got %d", tc.scope, len(rows))
		}
		if rows[0].Category != "" {
			t.Fatalf("scope %s: NULL category must scan to empty, got %q", tc.scope, rows[0].Category)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("scope %s: ExpectationsWereMet: %v", tc.scope, err)
		}
		_ = db.Close()
	}
}

func TestPGRepoDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.Delete(context.Background(), "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on zero rows, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
