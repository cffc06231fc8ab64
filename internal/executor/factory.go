package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spachava753/imagecrawl/internal/config"
	"github.com/spachava753/imagecrawl/internal/grouper"
	"github.com/spachava753/imagecrawl/internal/metastore"
	"github.com/spachava753/imagecrawl/internal/models"
	"github.com/spachava753/imagecrawl/internal/objectstore"
	"github.com/spachava753/imagecrawl/internal/registry"
	"github.com/spachava753/imagecrawl/internal/tags"
	"github.com/spachava753/imagecrawl/internal/transform"
	"github.com/spachava753/imagecrawl/internal/util"
)

// NewCrawlerFromConfig builds a Crawler and its collaborators from cfg. cfg is
// expected to have been validated.
func NewCrawlerFromConfig(ctx context.Context, cfg models.CrawlConfig) (*Crawler, error) {
	exts, err := util.ParseExtensions(cfg.Extensions)
	if err != nil {
		return nil, models.Precondition("extensions", "%v", err)
	}

	lister := grouper.NewOSLister()

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating object store: %w", err)
	}
	upserter, err := newUpserter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating metadata store: %w", err)
	}

	var runner *transform.Runner
	if cfg.Transform != nil {
		runner, err = newTransformRunner(ctx, *cfg.Transform, lister, exts)
		if err != nil {
			return nil, err
		}
	}

	var name string
	if cfg.Name != nil {
		name = *cfg.Name
	}

	return NewCrawler(Options{
		Name:              name,
		Root:              cfg.Root,
		Extensions:        exts,
		Version:           cfg.Version,
		UpsertConcurrency: cfg.Concurrency.Upserts,
		UploadConcurrency: cfg.Concurrency.Uploads,
		ImageSetTable:     cfg.MetadataStore.Table,
		TransformTable:    cfg.MetadataStore.TransformTable,
		ReportPath:        cfg.ReportPath,
	}, Collaborators{
		Lister:    lister,
		Tags:      tags.SegmentExtractor{Slug: cfg.Tags.Slug},
		Uploader:  uploader,
		Upserter:  upserter,
		Transform: runner,
	})
}

func newUploader(ctx context.Context, cfg models.CrawlConfig) (objectstore.Uploader, error) {
	osc := cfg.ObjectStore
	if cfg.DryRun {
		dir := osc.Path
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "imagecrawl-dry-run")
		}
		slog.Info("dry run: copying files locally", "path", dir)
		return objectstore.NewLocalStore(dir), nil
	}

	switch osc.Type {
	case models.ObjectStoreS3:
		return objectstore.NewS3Store(ctx, objectstore.S3Options{
			Bucket:    osc.Bucket,
			Prefix:    osc.Prefix,
			Region:    osc.Region,
			Endpoint:  osc.Endpoint,
			PathStyle: osc.PathStyle,
			AccessKey: osc.AccessKey,
			SecretKey: osc.SecretKey,
		})
	case models.ObjectStoreMinio:
		return objectstore.NewMinioStore(objectstore.MinioOptions{
			Endpoint:  osc.Endpoint,
			Bucket:    osc.Bucket,
			Prefix:    osc.Prefix,
			Region:    osc.Region,
			AccessKey: osc.AccessKey,
			SecretKey: osc.SecretKey,
			UseSSL:    osc.UseSSL,
		})
	case models.ObjectStoreLocal:
		return objectstore.NewLocalStore(osc.Path), nil
	default:
		return nil, fmt.Errorf("unsupported object store type: %s", osc.Type)
	}
}

func newUpserter(ctx context.Context, cfg models.CrawlConfig) (metastore.Upserter, error) {
	msc := cfg.MetadataStore
	if cfg.DryRun {
		return metastore.NewMemoryStore(), nil
	}

	switch msc.Type {
	case models.MetadataStoreDynamoDB:
		return metastore.NewDynamoDBStore(msc.Region, msc.Endpoint)
	case models.MetadataStorePostgres:
		return metastore.OpenPostgres(ctx, msc.DSN)
	case models.MetadataStoreMemory:
		return metastore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported metadata store type: %s", msc.Type)
	}
}

// LoadTransform reads the descriptor ref points at, from a transform.toml file
// or a registry.
func LoadTransform(ctx context.Context, ref models.TransformRef) (models.Transform, error) {
	if ref.Path != nil && *ref.Path != "" {
		dir, file := filepath.Split(*ref.Path)
		if dir == "" {
			dir = "."
		}
		return config.LoadTransform(os.DirFS(dir), file)
	}
	if ref.Registry != nil {
		return registry.Resolve(ctx, *ref.Registry, ref.Name, ref.Version)
	}
	return models.Transform{}, models.Precondition("transform", "must specify either 'path' or 'registry'")
}

func newTransformRunner(ctx context.Context, ref models.TransformRef, lister grouper.Lister, exts util.ExtensionSet) (*transform.Runner, error) {
	tr, err := LoadTransform(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("loading transform: %w", err)
	}

	var tool transform.Tool = transform.NewExecTool()
	if tr.Image != nil && *tr.Image != "" {
		tool = transform.NewDockerTool(*tr.Image, ref.OutputDir)
	}

	slog.Info("loaded transform", "transform", tr.ID().String(), "executable", tr.Executable, "output_dir", ref.OutputDir)
	return transform.NewRunner(tr, ref.OutputDir, lister, exts, tool)
}

// RunFromConfig loads a crawl config file and executes the crawl.
func RunFromConfig(ctx context.Context, configPath string) (*models.CrawlResult, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading crawl config: %w", err)
	}

	crawler, err := NewCrawlerFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating crawler: %w", err)
	}

	return crawler.Run(ctx)
}
