// Package grouper enumerates image files under a crawl root and groups them by
// containing directory.
package grouper

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spachava753/imagecrawl/internal/models"
	"github.com/spachava753/imagecrawl/internal/util"
)

// Group recursively lists root, keeps files whose extension is in exts and
// groups them by the directory they live in. Groups are sorted by suffix and
// files within a group by path.
func Group(lister Lister, root string, exts util.ExtensionSet) ([]models.FileGroup, error) {
	if lister == nil {
		return nil, models.Precondition("lister", "must not be nil")
	}
	if strings.TrimSpace(root) == "" {
		return nil, models.Precondition("root", "must not be blank")
	}
	if len(exts) == 0 {
		return nil, models.Precondition("extensions", "must not be empty")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, models.Precondition("root", "%s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, models.Precondition("root", "%s is not a directory", root)
	}
	// WalkDir does not descend into a symlinked root.
	if absRoot, err = filepath.EvalSymlinks(absRoot); err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	files, err := lister.List(absRoot, true)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", absRoot, err)
	}

	byDir := make(map[string][]string)
	for _, f := range files {
		if !exts.Match(f) {
			continue
		}
		dir := filepath.Dir(f)
		byDir[dir] = append(byDir[dir], f)
	}

	groups := make([]models.FileGroup, 0, len(byDir))
	for dir, dirFiles := range byDir {
		sort.Strings(dirFiles)
		groups = append(groups, models.FileGroup{
			Suffix: Suffix(absRoot, dir),
			Dir:    dir,
			Files:  dirFiles,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Suffix < groups[j].Suffix
	})

	slog.Debug("grouped files",
		"root", absRoot,
		"files", len(files),
		"groups", len(groups))

	return groups, nil
}

// Suffix returns dir relative to root: the root prefix and one separator are
// removed, separators become forward slashes, and the result is trimmed of
// surrounding whitespace. root itself yields "".
func Suffix(root, dir string) string {
	root = filepath.Clean(root)
	dir = filepath.Clean(dir)
	if dir == root {
		return ""
	}
	rel := strings.TrimPrefix(dir, root)
	rel = strings.TrimPrefix(rel, string(filepath.Separator))
	return strings.TrimSpace(filepath.ToSlash(rel))
}
