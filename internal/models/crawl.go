package models

import "time"

// Object store backends.
const (
	ObjectStoreS3    = "s3"
	ObjectStoreMinio = "minio"
	ObjectStoreLocal = "local"
)

// Metadata store backends.
const (
	MetadataStoreDynamoDB = "dynamodb"
	MetadataStorePostgres = "postgres"
	MetadataStoreMemory   = "memory"
)

// CrawlConfig represents the parsed crawl.yaml configuration.
type CrawlConfig struct {
	Name          *string             `yaml:"name,omitempty" json:"name,omitempty"`
	Root          string              `yaml:"root" json:"root"`
	Extensions    []string            `yaml:"extensions" json:"extensions"`
	Version       string              `yaml:"version" json:"version"`
	LogLevel      string              `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Tags          TagConfig           `yaml:"tags,omitempty" json:"tags,omitempty"`
	Concurrency   ConcurrencyConfig   `yaml:"concurrency" json:"concurrency"`
	ObjectStore   ObjectStoreConfig   `yaml:"object_store" json:"object_store"`
	MetadataStore MetadataStoreConfig `yaml:"metadata_store" json:"metadata_store"`
	Transform     *TransformRef       `yaml:"transform,omitempty" json:"transform,omitempty"`
	ReportPath    string              `yaml:"report_path,omitempty" json:"report_path,omitempty"`
	DryRun        bool                `yaml:"dry_run" json:"dry_run"`
}

type TagConfig struct {
	Slug bool `yaml:"slug" json:"slug"`
}

// ConcurrencyConfig holds the two independent ceilings. Upserts are kept lower
// because the metadata store tolerates fewer concurrent writers.
type ConcurrencyConfig struct {
	Upserts int `yaml:"upserts" json:"upserts"`
	Uploads int `yaml:"uploads" json:"uploads"`
}

// ObjectStoreConfig selects and configures the upload destination. Secrets are
// never read from crawl.yaml; see config.ApplyEnv.
type ObjectStoreConfig struct {
	Type      string `yaml:"type" json:"type"`
	Bucket    string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Path      string `yaml:"path,omitempty" json:"path,omitempty"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	PathStyle bool   `yaml:"path_style" json:"path_style"`
	AccessKey string `yaml:"-" json:"-"`
	SecretKey string `yaml:"-" json:"-"`
}

type MetadataStoreConfig struct {
	Type           string `yaml:"type" json:"type"`
	Table          string `yaml:"table,omitempty" json:"table,omitempty"`
	TransformTable string `yaml:"transform_table,omitempty" json:"transform_table,omitempty"`
	Region         string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint       string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	DSN            string `yaml:"-" json:"-"`
}

// TransformRef specifies which transform to apply and where to find it.
// Exactly one of Path or Registry must be set.
type TransformRef struct {
	Path      *string      `yaml:"path,omitempty" json:"path,omitempty"`
	Registry  *RegistryRef `yaml:"registry,omitempty" json:"registry,omitempty"`
	Name      string       `yaml:"name,omitempty" json:"name,omitempty"`
	Version   string       `yaml:"version,omitempty" json:"version,omitempty"`
	OutputDir string       `yaml:"output_dir" json:"output_dir"`
}

type RegistryRef struct {
	Path *string `yaml:"path,omitempty" json:"path,omitempty"`
	URL  *string `yaml:"url,omitempty" json:"url,omitempty"`
}

// CrawlResult summarizes a single crawl run.
type CrawlResult struct {
	RunID            string            `json:"run_id"`
	CrawlName        string            `json:"crawl_name"`
	Transform        *TransformID      `json:"transform,omitempty"`
	GroupsFound      int               `json:"groups_found"`
	GroupsDropped    int               `json:"groups_dropped"`
	RecordsUpserted  int               `json:"records_upserted"`
	FilesUploaded    int               `json:"files_uploaded"`
	FilesSkipped     int               `json:"files_skipped"`
	Failures         map[ErrorType]int `json:"failures"`
	Errors           []OperationError  `json:"errors,omitempty"`
	TotalDurationSec float64           `json:"total_duration_sec"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          time.Time         `json:"ended_at"`
	Groups           []ImageSetSummary `json:"groups"`
}

// ImageSetSummary is the per-group line of a CrawlResult.
type ImageSetSummary struct {
	Path  string   `json:"path"`
	Key   string   `json:"key"`
	Tags  []string `json:"tags"`
	Files int      `json:"files"`
}

// OperationError records one failed operation in a CrawlResult.
type OperationError struct {
	Type    ErrorType `json:"type"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// Failed reports whether any operation in the run failed.
func (r *CrawlResult) Failed() bool {
	return len(r.Errors) > 0
}
