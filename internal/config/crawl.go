package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/imagecrawl/internal/models"
	"github.com/spachava753/imagecrawl/internal/util"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "IMAGECRAWL"

// DefaultCrawlConfig returns a CrawlConfig with default values.
func DefaultCrawlConfig() models.CrawlConfig {
	return models.CrawlConfig{
		Extensions: append([]string(nil), util.DefaultExtensions...),
		Version:    "0",
		LogLevel:   "info",
		Concurrency: models.ConcurrencyConfig{
			Upserts: 4,
			Uploads: 20,
		},
		ObjectStore: models.ObjectStoreConfig{
			Type:   models.ObjectStoreS3,
			UseSSL: true,
		},
		MetadataStore: models.MetadataStoreConfig{
			Type:           models.MetadataStoreDynamoDB,
			Table:          "imagesets",
			TransformTable: "transforms",
		},
	}
}

// LoadCrawlConfig loads and parses a crawl.yaml file.
func LoadCrawlConfig(path string) (models.CrawlConfig, error) {
	cfg := DefaultCrawlConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading crawl config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing crawl config: %w", err)
	}

	// Validate transform ref
	if ref := cfg.Transform; ref != nil {
		hasPath := ref.Path != nil && *ref.Path != ""
		hasRegistry := ref.Registry != nil
		if !hasPath && !hasRegistry {
			return cfg, fmt.Errorf("transform: must specify either 'path' or 'registry'")
		}
		if hasPath && hasRegistry {
			return cfg, fmt.Errorf("transform: cannot specify both 'path' and 'registry'")
		}
		if ref.OutputDir == "" {
			ref.OutputDir = "transformed"
		}
	}

	// Apply defaults for missing values
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), util.DefaultExtensions...)
	}
	if cfg.Version == "" {
		cfg.Version = "0"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Concurrency.Upserts == 0 {
		cfg.Concurrency.Upserts = 4
	}
	if cfg.Concurrency.Uploads == 0 {
		cfg.Concurrency.Uploads = 20
	}
	if cfg.ObjectStore.Type == "" {
		cfg.ObjectStore.Type = models.ObjectStoreS3
	}
	if cfg.MetadataStore.Type == "" {
		cfg.MetadataStore.Type = models.MetadataStoreDynamoDB
	}
	if cfg.MetadataStore.Table == "" {
		cfg.MetadataStore.Table = "imagesets"
	}
	if cfg.MetadataStore.TransformTable == "" {
		cfg.MetadataStore.TransformTable = "transforms"
	}

	return cfg, nil
}

// envSettings are the connection settings that may come from the environment,
// e.g. IMAGECRAWL_ACCESS_KEY.
type envSettings struct {
	ObjectStoreEndpoint string `envconfig:"OBJECT_STORE_ENDPOINT"`
	ObjectStoreRegion   string `envconfig:"OBJECT_STORE_REGION"`
	Bucket              string `envconfig:"BUCKET"`
	AccessKey           string `envconfig:"ACCESS_KEY"`
	SecretKey           string `envconfig:"SECRET_KEY"`
	MetadataRegion      string `envconfig:"METADATA_REGION"`
	MetadataEndpoint    string `envconfig:"METADATA_ENDPOINT"`
	PostgresDSN         string `envconfig:"POSTGRES_DSN"`
	LogLevel            string `envconfig:"LOG_LEVEL"`
}

// ApplyEnv overlays connection settings from IMAGECRAWL_* environment
// variables onto cfg. Set variables win over crawl.yaml.
func ApplyEnv(cfg models.CrawlConfig) (models.CrawlConfig, error) {
	var env envSettings
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return cfg, fmt.Errorf("parsing environment variables: %w", err)
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.ObjectStore.Endpoint, env.ObjectStoreEndpoint)
	overlay(&cfg.ObjectStore.Region, env.ObjectStoreRegion)
	overlay(&cfg.ObjectStore.Bucket, env.Bucket)
	overlay(&cfg.ObjectStore.AccessKey, env.AccessKey)
	overlay(&cfg.ObjectStore.SecretKey, env.SecretKey)
	overlay(&cfg.MetadataStore.Region, env.MetadataRegion)
	overlay(&cfg.MetadataStore.Endpoint, env.MetadataEndpoint)
	overlay(&cfg.MetadataStore.DSN, env.PostgresDSN)
	overlay(&cfg.LogLevel, env.LogLevel)

	return cfg, nil
}

// Validate checks cfg for errors that must stop a crawl before any work is
// scheduled.
func Validate(cfg models.CrawlConfig) error {
	if strings.TrimSpace(cfg.Root) == "" {
		return models.Precondition("root", "must not be blank")
	}
	exts, err := util.ParseExtensions(cfg.Extensions)
	if err != nil {
		return models.Precondition("extensions", "%v", err)
	}
	if len(exts) == 0 {
		return models.Precondition("extensions", "must not be empty")
	}
	if strings.TrimSpace(cfg.Version) == "" {
		return models.Precondition("version", "must not be blank")
	}
	if cfg.Concurrency.Upserts < 1 {
		return models.Precondition("concurrency.upserts", "must be at least 1, got %d", cfg.Concurrency.Upserts)
	}
	if cfg.Concurrency.Uploads < 1 {
		return models.Precondition("concurrency.uploads", "must be at least 1, got %d", cfg.Concurrency.Uploads)
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return models.Precondition("log_level", "%v", err)
	}

	if !cfg.DryRun {
		switch cfg.ObjectStore.Type {
		case models.ObjectStoreS3, models.ObjectStoreMinio:
			if cfg.ObjectStore.Bucket == "" {
				return models.Precondition("object_store.bucket", "required for %s", cfg.ObjectStore.Type)
			}
			if cfg.ObjectStore.Type == models.ObjectStoreMinio && cfg.ObjectStore.Endpoint == "" {
				return models.Precondition("object_store.endpoint", "required for minio")
			}
		case models.ObjectStoreLocal:
			if cfg.ObjectStore.Path == "" {
				return models.Precondition("object_store.path", "required for local")
			}
		default:
			return models.Precondition("object_store.type", "unsupported type %q", cfg.ObjectStore.Type)
		}

		switch cfg.MetadataStore.Type {
		case models.MetadataStoreDynamoDB, models.MetadataStoreMemory:
		case models.MetadataStorePostgres:
			if cfg.MetadataStore.DSN == "" {
				return models.Precondition("metadata_store.dsn", "set %s_POSTGRES_DSN", EnvPrefix)
			}
		default:
			return models.Precondition("metadata_store.type", "unsupported type %q", cfg.MetadataStore.Type)
		}
	}

	if ref := cfg.Transform; ref != nil {
		if ref.Registry != nil {
			hasPath := ref.Registry.Path != nil && *ref.Registry.Path != ""
			hasURL := ref.Registry.URL != nil && *ref.Registry.URL != ""
			if hasPath == hasURL {
				return models.Precondition("transform.registry", "must specify exactly one of 'path' or 'url'")
			}
			if ref.Name == "" {
				return models.Precondition("transform.name", "required when using a registry")
			}
		}
		if strings.TrimSpace(ref.OutputDir) == "" {
			return models.Precondition("transform.output_dir", "must not be blank")
		}
		// Outputs under the root would be picked up by the next crawl.
		if within(cfg.Root, ref.OutputDir) {
			return models.Precondition("transform.output_dir", "%s is inside root %s", ref.OutputDir, cfg.Root)
		}
	}

	return nil
}

// within reports whether dir is root or lies beneath it.
func within(root, dir string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (models.CrawlConfig, error) {
	cfg, err := LoadCrawlConfig(path)
	if err != nil {
		return cfg, err
	}
	if cfg, err = ApplyEnv(cfg); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	slog.Debug("loaded crawl config", "path", path, "root", cfg.Root, "transform", cfg.Transform != nil)
	return cfg, nil
}

// ParseLogLevel converts debug, info, warn or error to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}
