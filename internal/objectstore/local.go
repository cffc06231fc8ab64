package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// LocalStore copies files into a directory tree, one file per key. It backs
// dry runs.
type LocalStore struct {
	Root string
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

// Path returns the file a key is stored at.
func (s *LocalStore) Path(key string) string {
	// Empty segments are kept visible rather than collapsed.
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		if seg == "" {
			segments[i] = "_"
		}
	}
	return filepath.Join(append([]string{s.Root}, segments...)...)
}

// Upload implements Uploader.
func (s *LocalStore) Upload(ctx context.Context, localPath, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if slices.Contains(strings.Split(key, "/"), "..") {
		return fmt.Errorf("invalid key %q", key)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer src.Close()

	dst := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}
