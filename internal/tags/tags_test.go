package tags

import (
	"reflect"
	"testing"
)

func TestSegmentExtractor(t *testing.T) {
	tests := []struct {
		name   string
		slug   bool
		suffix string
		want   []string
	}{
		{"two levels", false, "trees/oak", []string{"trees", "oak"}},
		{"root", false, "", []string{""}},
		{"spaces kept", false, "Old Trees/Oak", []string{"Old Trees", "Oak"}},
		{"slug", true, "Old Trees/Oak", []string{"old-trees", "oak"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentExtractor{Slug: tt.slug}.Tags(tt.suffix)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tags(%q) = %q, want %q", tt.suffix, got, tt.want)
			}
		})
	}
}

func TestExtractorFunc(t *testing.T) {
	var e Extractor = ExtractorFunc(func(suffix string) []string { return []string{"x", suffix} })
	if got := e.Tags("y"); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Tags() = %v", got)
	}
}
