// Package tags derives classification tags from a directory suffix.
package tags

import (
	"strings"

	"github.com/gosimple/slug"
)

// Extractor maps a suffix such as "trees/oak" to tags.
type Extractor interface {
	Tags(suffix string) []string
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(suffix string) []string

func (f ExtractorFunc) Tags(suffix string) []string {
	return f(suffix)
}

// SegmentExtractor uses each path segment of the suffix as a tag. With Slug
// set, segments are normalized with slug.Make ("Old Oak" becomes "old-oak").
type SegmentExtractor struct {
	Slug bool
}

func (e SegmentExtractor) Tags(suffix string) []string {
	var out []string
	for _, seg := range strings.Split(suffix, "/") {
		if e.Slug {
			seg = slug.Make(seg)
		}
		out = append(out, seg)
	}
	return out
}
