// Package executor runs a crawl: it groups the files under the root,
// optionally transforms them, then upserts metadata and uploads files with
// bounded concurrency.
package executor

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/imagecrawl/internal/grouper"
	"github.com/spachava753/imagecrawl/internal/metastore"
	"github.com/spachava753/imagecrawl/internal/models"
	"github.com/spachava753/imagecrawl/internal/objectstore"
	"github.com/spachava753/imagecrawl/internal/tags"
	"github.com/spachava753/imagecrawl/internal/throttle"
	"github.com/spachava753/imagecrawl/internal/transform"
	"github.com/spachava753/imagecrawl/internal/util"
)

// Options are the per-run settings of a Crawler.
type Options struct {
	Name              string
	Root              string
	Extensions        util.ExtensionSet
	Version           string
	UpsertConcurrency int
	UploadConcurrency int
	ImageSetTable     string
	TransformTable    string
	ReportPath        string
}

// Collaborators are the external systems a Crawler talks to. Transform is
// optional.
type Collaborators struct {
	Lister    grouper.Lister
	Tags      tags.Extractor
	Uploader  objectstore.Uploader
	Upserter  metastore.Upserter
	Transform *transform.Runner
}

// Crawler coordinates one crawl.
type Crawler struct {
	opts Options
	c    Collaborators
}

type uploadSource struct {
	Path string
	Key  string
}

type upsertSource struct {
	Table        string
	PartitionKey string
	RowKey       string
}

// NewCrawler checks opts and collaborators and creates a Crawler.
func NewCrawler(opts Options, c Collaborators) (*Crawler, error) {
	switch {
	case c.Lister == nil:
		return nil, models.Precondition("lister", "must not be nil")
	case c.Tags == nil:
		return nil, models.Precondition("tags", "must not be nil")
	case c.Uploader == nil:
		return nil, models.Precondition("uploader", "must not be nil")
	case c.Upserter == nil:
		return nil, models.Precondition("upserter", "must not be nil")
	case opts.UpsertConcurrency < 1:
		return nil, models.Precondition("concurrency.upserts", "must be at least 1, got %d", opts.UpsertConcurrency)
	case opts.UploadConcurrency < 1:
		return nil, models.Precondition("concurrency.uploads", "must be at least 1, got %d", opts.UploadConcurrency)
	case opts.Version == "":
		return nil, models.Precondition("version", "must not be empty")
	case opts.ImageSetTable == "":
		return nil, models.Precondition("metadata_store.table", "must not be empty")
	case c.Transform != nil && opts.TransformTable == "":
		return nil, models.Precondition("metadata_store.transform_table", "must not be empty")
	}
	return &Crawler{opts: opts, c: c}, nil
}

// Run executes the crawl. Cancelling ctx aborts the run only until the first
// network operation is submitted; after that every submitted operation runs
// to completion.
//
// Run returns a *RunError listing every failed operation alongside a result
// describing the whole run. Any other error means nothing was submitted.
func (cr *Crawler) Run(ctx context.Context) (*models.CrawlResult, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	logger := slog.With("run_id", runID)

	name := cr.opts.Name
	if name == "" {
		name = startTime.Format("2006-01-02__15-04-05")
	}

	result := &models.CrawlResult{
		RunID:     runID,
		CrawlName: name,
		StartedAt: startTime,
		Failures:  make(map[models.ErrorType]int),
		Groups:    []models.ImageSetSummary{},
	}

	groups, err := grouper.Group(cr.c.Lister, cr.opts.Root, cr.opts.Extensions)
	if err != nil {
		return nil, err
	}
	result.GroupsFound = len(groups)
	logger.Info("enumerated crawl root", "root", cr.opts.Root, "groups", len(groups))

	var errs []error

	var transformID *models.TransformID
	if cr.c.Transform != nil {
		id := cr.c.Transform.Transform.ID()
		transformID = &id
		result.Transform = transformID

		var transformErrs []error
		groups, transformErrs, err = cr.transform(ctx, logger, groups, result)
		if err != nil {
			return nil, err
		}
		errs = append(errs, transformErrs...)
	}

	sets := make([]models.ImageSet, 0, len(groups))
	for _, g := range groups {
		if len(g.Files) == 0 {
			continue
		}
		set := models.NewImageSet(g.Suffix, cr.c.Tags.Tags(g.Suffix), cr.opts.Version, transformID, g.Files)
		sets = append(sets, set)
		result.Groups = append(result.Groups, set.Summary())
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl aborted before submission: %w", err)
	}

	// Nothing below observes cancellation.
	netCtx := context.WithoutCancel(ctx)

	upsertOps := cr.upsertOps(sets)
	upsertFailures, err := throttle.Run(netCtx, cr.opts.UpsertConcurrency, upsertOps)
	if err != nil {
		return nil, fmt.Errorf("running upserts: %w", err)
	}
	result.RecordsUpserted = len(upsertOps) - len(upsertFailures)
	logger.Info("upserted metadata", "records", result.RecordsUpserted, "failed", len(upsertFailures))

	uploadOps := cr.uploadOps(sets)
	uploadFailures, err := throttle.Run(netCtx, cr.opts.UploadConcurrency, uploadOps)
	if err != nil {
		return nil, fmt.Errorf("running uploads: %w", err)
	}
	result.FilesUploaded = len(uploadOps) - len(uploadFailures)
	logger.Info("uploaded files", "files", result.FilesUploaded, "failed", len(uploadFailures))

	slices.SortFunc(upsertFailures, func(a, b throttle.Failure[upsertSource]) int {
		return cmp.Or(
			cmp.Compare(a.Source.Table, b.Source.Table),
			cmp.Compare(a.Source.PartitionKey, b.Source.PartitionKey),
			cmp.Compare(a.Source.RowKey, b.Source.RowKey),
		)
	})
	for _, f := range upsertFailures {
		upsertErr := &UpsertError{Table: f.Source.Table, PartitionKey: f.Source.PartitionKey, RowKey: f.Source.RowKey, Err: f.Err}
		logger.Error("upsert failed", "table", f.Source.Table, "partition_key", f.Source.PartitionKey, "row_key", f.Source.RowKey, "error", f.Err)
		errs = append(errs, upsertErr)
		result.Failures[models.ErrUpsertFailed]++
		result.Errors = append(result.Errors, models.OperationError{
			Type:    models.ErrUpsertFailed,
			Source:  f.Source.PartitionKey + "/" + f.Source.RowKey,
			Message: f.Err.Error(),
		})
	}

	slices.SortFunc(uploadFailures, func(a, b throttle.Failure[uploadSource]) int {
		return cmp.Compare(a.Source.Path, b.Source.Path)
	})
	for _, f := range uploadFailures {
		uploadErr := &UploadError{Path: f.Source.Path, Key: f.Source.Key, Err: f.Err}
		logger.Error("upload failed", "path", f.Source.Path, "key", f.Source.Key, "error", f.Err)
		errs = append(errs, uploadErr)
		result.Failures[models.ErrUploadFailed]++
		result.Errors = append(result.Errors, models.OperationError{
			Type:    models.ErrUploadFailed,
			Source:  f.Source.Path,
			Message: f.Err.Error(),
		})
	}

	result.EndedAt = time.Now()
	result.TotalDurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()

	if cr.opts.ReportPath != "" {
		if err := writeReport(cr.opts.ReportPath, result); err != nil {
			logger.Warn("failed to write report", "path", cr.opts.ReportPath, "error", err)
		}
	}

	logger.Info("crawl finished",
		"groups", len(sets),
		"records_upserted", result.RecordsUpserted,
		"files_uploaded", result.FilesUploaded,
		"failed", len(errs),
		"duration_sec", result.TotalDurationSec)

	if len(errs) > 0 {
		return result, &RunError{Errors: errs}
	}
	return result, nil
}

// transform runs the transform over every group, one at a time. Groups the
// transform could not run on, or that produced no outputs, are dropped.
func (cr *Crawler) transform(ctx context.Context, logger *slog.Logger, groups []models.FileGroup, result *models.CrawlResult) ([]models.FileGroup, []error, error) {
	var (
		out  []models.FileGroup
		errs []error
	)
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("crawl aborted during transform: %w", err)
		}

		transformed, err := cr.c.Transform.Run(ctx, g)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, nil, fmt.Errorf("crawl aborted during transform: %w", err)
			}
			logger.Error("transform failed for group", "group", g.Suffix, "error", err)
			errs = append(errs, &TransformError{Suffix: g.Suffix, Err: err})
			result.GroupsDropped++
			result.Failures[models.ErrTransformFailed]++
			result.Errors = append(result.Errors, models.OperationError{
				Type:    models.ErrTransformFailed,
				Source:  g.Suffix,
				Message: err.Error(),
			})
			continue
		}

		result.FilesSkipped += max(len(g.Files)-len(transformed.Files), 0)
		if len(transformed.Files) == 0 {
			logger.Warn("dropping group with no transform outputs", "group", g.Suffix)
			result.GroupsDropped++
			result.Failures[models.ErrTransformGroupEmpty]++
			continue
		}
		out = append(out, transformed)
	}
	return out, errs, nil
}

// upsertOps returns the transform descriptor upsert, if any, followed by one
// upsert per image set.
func (cr *Crawler) upsertOps(sets []models.ImageSet) []throttle.Operation[upsertSource] {
	var records []models.Record
	if cr.c.Transform != nil {
		records = append(records, cr.c.Transform.Transform.Record(cr.opts.TransformTable))
	}
	for _, set := range sets {
		records = append(records, set.Record(cr.opts.ImageSetTable))
	}

	ops := make([]throttle.Operation[upsertSource], 0, len(records))
	for _, rec := range records {
		ops = append(ops, throttle.Operation[upsertSource]{
			Source: upsertSource{Table: rec.Table, PartitionKey: rec.PartitionKey, RowKey: rec.RowKey},
			Run: func(ctx context.Context) error {
				return cr.c.Upserter.Upsert(ctx, rec)
			},
		})
	}
	return ops
}

func (cr *Crawler) uploadOps(sets []models.ImageSet) []throttle.Operation[uploadSource] {
	var ops []throttle.Operation[uploadSource]
	for _, set := range sets {
		for _, file := range set.Files {
			src := uploadSource{Path: file, Key: set.ObjectKey(file)}
			ops = append(ops, throttle.Operation[uploadSource]{
				Source: src,
				Run: func(ctx context.Context) error {
					return cr.c.Uploader.Upload(ctx, src.Path, src.Key)
				},
			})
		}
	}
	return ops
}

func writeReport(path string, result *models.CrawlResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
