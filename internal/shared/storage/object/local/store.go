package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"knowledge-backend/internal/shared/storage/object"
)

// Store implements object.Store using the local filesystem. It exists for
// development and tests; signed URLs degrade to file URLs with an expiry
// query parameter.
type Store struct {
	baseDir string
}

// New creates a new local object store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// List walks the tree under prefix and reports files as objects.
func (s *Store) List(ctx context.Context, prefix string) ([]object.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean, err := s.safeKey(prefix)
	if err != nil {
		return nil, err
	}

	root := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	var out []object.Info
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		out = append(out, object.Info{
			Key:       filepath.ToSlash(rel),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}
	return out, nil
}

// Exists reports whether a file is present for the key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	clean, err := s.safeKey(key)
	if err != nil {
		return false, err
	}

	info, statErr := os.Stat(filepath.Join(s.baseDir, filepath.FromSlash(clean)))
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return false, nil
		}
		return false, statErr
	}
	return !info.IsDir(), nil
}

// Put writes the reader contents to disk at the given key.
func (s *Store) Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	clean, err := s.safeKey(key)
	if err != nil {
		return 0, err
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("write body: %w", err)
	}
	return written, nil
}

// Delete removes the file for key, returning false when already absent.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	clean, err := s.safeKey(key)
	if err != nil {
		return false, err
	}

	if err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(clean))); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SignURL returns a file URL with an expiry hint. Good enough for local dev;
// production uses the S3 store's presigned URLs.
func (s *Store) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("object %s not found", key)
	}

	clean, err := s.safeKey(key)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Join(s.baseDir, filepath.FromSlash(clean)))
	if err != nil {
		return "", err
	}
	expires := time.Now().UTC().Add(ttl).Unix()
	return "file://" + filepath.ToSlash(abs) + "?expires=" + strconv.FormatInt(expires, 10), nil
}

func (s *Store) safeKey(key string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(strings.TrimLeft(key, "/")))
	if clean == "." {
		return "", nil
	}
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return clean, nil
}

var _ object.Store = (*Store)(nil)
