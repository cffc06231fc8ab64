package util

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are matched when a crawl does not configure any.
var DefaultExtensions = []string{".png", ".gif", ".jpg"}

// ExtensionSet is a case-insensitive set of file extensions, stored lower-case
// with a leading dot.
type ExtensionSet map[string]struct{}

// ParseExtensions normalizes extensions like "PNG", ".Jpg" or " gif " into an
// ExtensionSet. Blank entries are rejected.
func ParseExtensions(exts []string) (ExtensionSet, error) {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			return nil, fmt.Errorf("invalid extension: %q", ext)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.ContainsAny(ext, `/\`) {
			return nil, fmt.Errorf("invalid extension: %q", ext)
		}
		set[ext] = struct{}{}
	}
	return set, nil
}

// Match reports whether path has an extension in the set.
func (s ExtensionSet) Match(path string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Sorted returns the extensions in lexical order.
func (s ExtensionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
