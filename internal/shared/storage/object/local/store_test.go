package local

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestPutListExistsDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	written, err := store.Put(ctx, "users/u1/report.pdf", "application/pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if written != int64(len("content")) {
		t.Fatalf("written = %d", written)
	}

	exists, err := store.Exists(ctx, "users/u1/report.pdf")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}

	infos, err := store.List(ctx, "users/u1/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "users/u1/report.pdf" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	if infos[0].SizeBytes != int64(len("content")) {
		t.Fatalf("size = %d", infos[0].SizeBytes)
	}

	removed, err := store.Delete(ctx, "users/u1/report.pdf")
	if err != nil || !removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}

	// Absence on repeat delete is a valid false, not an error.
	removed, err = store.Delete(ctx, "users/u1/report.pdf")
	if err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}
	if removed {
		t.Fatal("repeat delete must report false")
	}
}

func TestListMissingPrefixIsEmpty(t *testing.T) {
	store := New(t.TempDir())
	infos, err := store.List(context.Background(), "users/nobody/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected empty listing, got %d", len(infos))
	}
}

func TestSignURL(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.Put(ctx, "users/u1/a.txt", "text/plain", strings.NewReader("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	url, err := store.SignURL(ctx, "users/u1/a.txt", time.Hour)
	if err != nil {
		t.Fatalf("SignURL: %v", err)
	}
	if !strings.HasPrefix(url, "file://") || !strings.Contains(url, "expires=") {
		t.Fatalf("unexpected url %q", url)
	}

	if _, err := store.SignURL(ctx, "users/u1/missing.txt", time.Hour); err == nil {
		t.Fatal("expected error for absent object")
	}
}

func TestSafeKeyRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.Put(ctx, "../outside.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for traversal key")
	}
	if _, err := store.Delete(ctx, "../../outside.txt"); err == nil {
		t.Fatal("expected error for traversal delete")
	}
}
