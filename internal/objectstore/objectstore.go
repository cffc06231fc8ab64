// Package objectstore uploads local files to an object store under a key.
package objectstore

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Uploader stores the file at localPath under key.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) error
}

// ContentType detects the MIME type of the file at localPath, falling back to
// application/octet-stream.
func ContentType(localPath string) string {
	mt, err := mimetype.DetectFile(localPath)
	if err != nil || mt == nil {
		return "application/octet-stream"
	}
	return mt.String()
}

// joinKey prefixes key with prefix, if any. key is not cleaned: the empty
// segment of a root set's key must survive.
func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
