package documents

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"knowledge-backend/internal/shared/storage/object"
)

// fakeStore is an in-memory object.Store with per-operation error injection.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]fakeObject

	listErr   error
	putErr    error
	deleteErr error
	existsErr error
	signErr   error
}

type fakeObject struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]fakeObject)}
}

func (s *fakeStore) seed(key string, data []byte, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = fakeObject{data: data, contentType: "application/octet-stream", createdAt: createdAt}
}

func (s *fakeStore) List(ctx context.Context, prefix string) ([]object.Info, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []object.Info
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, object.Info{
			Key:         key,
			SizeBytes:   int64(len(obj.data)),
			ContentType: obj.contentType,
			CreatedAt:   obj.createdAt,
		})
	}
	return out, nil
}

func (s *fakeStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = fakeObject{data: data, contentType: contentType, createdAt: time.Now().UTC()}
	return int64(len(data)), nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) (bool, error) {
	if s.deleteErr != nil {
		return false, s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

func (s *fakeStore) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return "https://signed.example/" + key, nil
}

var _ object.Store = (*fakeStore)(nil)

func testLimits() Limits {
	return Limits{
		MaxUploadBytes:    1 << 20,
		AllowedExtensions: []string{".pdf", ".docx", ".txt", ".md"},
		SignedURLTTL:      time.Hour,
		StoreTimeout:      5 * time.Second,
	}
}

func seedRegistered(t *testing.T, repo Repo, store *fakeStore, doc Document, body string) Document {
	t.Helper()
	store.seed(doc.StorageKey, []byte(body), doc.CreatedAt)
	stored, err := repo.Upsert(context.Background(), doc)
	if err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	return stored
}

func uploadBody(content string) io.Reader {
	return bytes.NewReader([]byte(content))
}
