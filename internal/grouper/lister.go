package grouper

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Lister enumerates the files under a directory.
type Lister interface {
	// List returns the paths of all non-directory entries under root. When
	// recursive is false only root's immediate children are returned.
	List(root string, recursive bool) ([]string, error)
}

// OSLister lists files on the local filesystem.
type OSLister struct{}

// NewOSLister creates a new local filesystem lister.
func NewOSLister() *OSLister {
	return &OSLister{}
}

// List implements Lister.
func (l *OSLister) List(root string, recursive bool) ([]string, error) {
	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", root, err)
		}
		var files []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			files = append(files, filepath.Join(root, entry.Name()))
		}
		return files, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}
