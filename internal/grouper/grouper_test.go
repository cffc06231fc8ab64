package grouper

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spachava753/imagecrawl/internal/models"
	"github.com/spachava753/imagecrawl/internal/util"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("img"), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

func defaultExts(t *testing.T) util.ExtensionSet {
	t.Helper()
	exts, err := util.ParseExtensions(util.DefaultExtensions)
	if err != nil {
		t.Fatal(err)
	}
	return exts
}

func TestGroup(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a/b/x.png", "a/b/y.gif", "a/c/z.jpg", "w.png", "a/b/notes.txt", "a/d/skip.bmp")

	groups, err := Group(NewOSLister(), root, defaultExts(t))
	if err != nil {
		t.Fatalf("Group: %v", err)
	}

	want := map[string][]string{
		"":    {"w.png"},
		"a/b": {"x.png", "y.gif"},
		"a/c": {"z.jpg"},
	}

	if len(groups) != len(want) {
		t.Fatalf("expected %d groups, got %d: %+v", len(want), len(groups), groups)
	}

	for _, g := range groups {
		wantFiles, ok := want[g.Suffix]
		if !ok {
			t.Errorf("unexpected group %q", g.Suffix)
			continue
		}
		var names []string
		for _, f := range g.Files {
			if filepath.Dir(f) != g.Dir {
				t.Errorf("file %s not in group dir %s", f, g.Dir)
			}
			names = append(names, filepath.Base(f))
		}
		if !reflect.DeepEqual(names, wantFiles) {
			t.Errorf("group %q files = %v, want %v", g.Suffix, names, wantFiles)
		}
	}

	// Sorted by suffix, root first.
	if groups[0].Suffix != "" || groups[1].Suffix != "a/b" || groups[2].Suffix != "a/c" {
		t.Errorf("groups not sorted by suffix: %q %q %q", groups[0].Suffix, groups[1].Suffix, groups[2].Suffix)
	}
}

func TestGroupCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "birds/A.PNG", "birds/b.Jpg")

	groups, err := Group(NewOSLister(), root, defaultExts(t))
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Files) != 2 {
		t.Fatalf("expected one group of 2 files, got %+v", groups)
	}
}

func TestGroupSymlinkedRoot(t *testing.T) {
	real := t.TempDir()
	writeFiles(t, real, "trees/oak/a.png", "w.png")

	link := filepath.Join(t.TempDir(), "pictures")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	groups, err := Group(NewOSLister(), link, defaultExts(t))
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", groups)
	}
	if groups[0].Suffix != "" || groups[1].Suffix != "trees/oak" {
		t.Errorf("unexpected suffixes %q %q", groups[0].Suffix, groups[1].Suffix)
	}
}

func TestGroupEmptyRoot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "docs/readme.txt")

	groups, err := Group(NewOSLister(), root, defaultExts(t))
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %+v", groups)
	}
}

type countingLister struct {
	calls int
	err   error
}

func (l *countingLister) List(root string, recursive bool) ([]string, error) {
	l.calls++
	return nil, l.err
}

func TestGroupPreconditions(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.png")
	writeFiles(t, root, "file.png")

	tests := []struct {
		name   string
		lister Lister
		root   string
		exts   util.ExtensionSet
	}{
		{"nil lister", nil, root, defaultExts(t)},
		{"blank root", &countingLister{}, "  ", defaultExts(t)},
		{"missing root", &countingLister{}, filepath.Join(root, "missing"), defaultExts(t)},
		{"root is a file", &countingLister{}, file, defaultExts(t)},
		{"no extensions", &countingLister{}, root, util.ExtensionSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Group(tt.lister, tt.root, tt.exts)
			var pe *models.PreconditionError
			if !errors.As(err, &pe) {
				t.Fatalf("expected PreconditionError, got %v", err)
			}
			if cl, ok := tt.lister.(*countingLister); ok && cl.calls != 0 {
				t.Error("lister must not be called when preconditions fail")
			}
		})
	}
}

func TestGroupListerError(t *testing.T) {
	lister := &countingLister{err: errors.New("permission denied")}
	_, err := Group(lister, t.TempDir(), defaultExts(t))
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *models.PreconditionError
	if errors.As(err, &pe) {
		t.Error("listing failures are not precondition errors")
	}
}

func TestSuffix(t *testing.T) {
	sep := string(filepath.Separator)
	root := filepath.Join(sep, "data", "images")

	tests := []struct {
		name string
		dir  string
		want string
	}{
		{"root", root, ""},
		{"root trailing sep", root + sep, ""},
		{"one level", filepath.Join(root, "trees"), "trees"},
		{"two levels", filepath.Join(root, "trees", "oak"), "trees/oak"},
		{"whitespace trimmed", filepath.Join(root, " trees "), "trees"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Suffix(root, tt.dir); got != tt.want {
				t.Errorf("Suffix(%q, %q) = %q, want %q", root, tt.dir, got, tt.want)
			}
		})
	}
}

func TestOSListerNonRecursive(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "top.png", "nested/inner.png")

	files, err := NewOSLister().List(root, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "top.png" {
		t.Errorf("List(non-recursive) = %v, want only top.png", files)
	}

	files, err = NewOSLister().List(root, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("List(recursive) = %v, want 2 files", files)
	}
}
