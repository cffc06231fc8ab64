package models

import (
	"path/filepath"
	"strings"
)

// RootPath is the logical path recorded for files directly under the crawl root.
const RootPath = "<root>"

// FileGroup is the set of matching files found in one directory.
type FileGroup struct {
	Suffix string   // directory relative to the crawl root, forward slashes
	Dir    string   // absolute directory the files live in
	Files  []string // absolute file paths
}

// ImageSet is the metadata persisted for one directory's worth of images.
type ImageSet struct {
	Path      string
	Tags      []string
	Version   string
	Transform *TransformID
	Files     []string

	key string
}

// NewImageSet builds an ImageSet for suffix. Tags are cleaned and the
// destination key is fixed at construction.
func NewImageSet(suffix string, tags []string, version string, transform *TransformID, files []string) ImageSet {
	return ImageSet{
		Path:      suffix,
		Tags:      CleanTags(tags),
		Version:   version,
		Transform: transform,
		Files:     files,
		key:       DestinationKey(suffix, version, transform),
	}
}

// Key returns the destination key prefix under which the set's files are stored.
func (s ImageSet) Key() string {
	return s.key
}

// LogicalPath returns Path, or RootPath for the root group.
func (s ImageSet) LogicalPath() string {
	if s.Path == "" {
		return RootPath
	}
	return s.Path
}

func (s ImageSet) PartitionKey() string {
	return SanitizeKey(s.LogicalPath())
}

func (s ImageSet) RowKey() string {
	return SanitizeKey(s.Version)
}

// ObjectKey returns the object-store key for one of the set's files.
func (s ImageSet) ObjectKey(file string) string {
	return s.key + "/" + filepath.Base(file)
}

// Record returns the metadata record for s.
func (s ImageSet) Record(table string) Record {
	fields := map[string]any{
		"path":    s.LogicalPath(),
		"tags":    s.Tags,
		"key":     s.key,
		"version": s.Version,
	}
	if s.Transform != nil {
		fields["transform_name"] = s.Transform.Name
		fields["transform_version"] = s.Transform.Version
	}
	return Record{
		Table:        table,
		PartitionKey: s.PartitionKey(),
		RowKey:       s.RowKey(),
		Fields:       fields,
	}
}

// Summary returns the report line for s.
func (s ImageSet) Summary() ImageSetSummary {
	return ImageSetSummary{
		Path:  s.LogicalPath(),
		Key:   s.key,
		Tags:  s.Tags,
		Files: len(s.Files),
	}
}

// DestinationKey returns "original/<suffix>/<version>" or, for transformed
// sets, "transform/<name>/<version>/<suffix>/<version>".
func DestinationKey(suffix, version string, transform *TransformID) string {
	suffix = filepath.ToSlash(suffix)
	if transform == nil {
		return "original/" + suffix + "/" + version
	}
	return "transform/" + transform.Name + "/" + transform.Version + "/" + suffix + "/" + version
}

var keyReplacer = strings.NewReplacer("/", "_", `\`, "_", "#", "_", "?", "_")

// SanitizeKey replaces characters that are not allowed in table keys.
func SanitizeKey(s string) string {
	return keyReplacer.Replace(s)
}

// CleanTags trims each tag and drops blanks.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Record is a row upserted into the metadata store.
type Record struct {
	Table        string
	PartitionKey string
	RowKey       string
	Fields       map[string]any // values are string or []string
}
