package executor

import (
	"fmt"
	"strings"
)

// RunError aggregates every operation that failed during a crawl. The crawl
// itself ran to completion; whatever succeeded was persisted.
type RunError struct {
	Errors []error
}

func (e *RunError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d operation(s) failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *RunError) Unwrap() []error {
	return e.Errors
}

// UploadError is a failed upload of the file at Path to Key.
type UploadError struct {
	Path string
	Key  string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %s to %s: %v", e.Path, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// UpsertError is a failed metadata upsert.
type UpsertError struct {
	Table        string
	PartitionKey string
	RowKey       string
	Err          error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upserting %s/%s into %s: %v", e.PartitionKey, e.RowKey, e.Table, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}

// TransformError is a group whose transform could not be run at all.
type TransformError struct {
	Suffix string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transforming group %q: %v", e.Suffix, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
