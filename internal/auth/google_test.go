package auth

import (
	"testing"
	"time"
)

func TestIsAdminMatchesCaseInsensitive(t *testing.T) {
	svc := NewGoogleService("id", "secret", "http://cb", "http://ui", []string{"Admin@Example.com", " ", "ops@example.com"})

	if !svc.isAdmin("admin@example.com") {
		t.Fatal("expected admin match regardless of case")
	}
	if !svc.isAdmin("OPS@EXAMPLE.COM") {
		t.Fatal("expected admin match for second entry")
	}
	if svc.isAdmin("user@example.com") {
		t.Fatal("unexpected admin match")
	}
	if svc.isAdmin("") {
		t.Fatal("empty email must never be admin")
	}
}

func TestStateStoreConsumeOnce(t *testing.T) {
	store := newStateStore()
	store.put("state-1", time.Now().Add(time.Minute))

	if !store.consume("state-1") {
		t.Fatal("first consume must succeed")
	}
	if store.consume("state-1") {
		t.Fatal("second consume must fail")
	}

	store.put("state-2", time.Now().Add(-time.Second))
	if store.consume("state-2") {
		t.Fatal("expired state must fail")
	}
}

func TestAppendToken(t *testing.T) {
	url, err := appendToken("http://ui.example/login?next=%2Fhome", "tok123")
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	if url != "http://ui.example/login?next=%2Fhome&token=tok123" {
		t.Fatalf("unexpected url %q", url)
	}

	if _, err := appendToken("", "tok"); err == nil {
		t.Fatal("expected error for empty redirect url")
	}
}
