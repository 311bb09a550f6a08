// Package config defines the application configuration and its loader.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Queue      QueueConfig      `mapstructure:"queue" validate:"required"`
	Blob       BlobConfig       `mapstructure:"blob" validate:"required"`
	Search     SearchConfig     `mapstructure:"search" validate:"required"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Batch      BatchConfig      `mapstructure:"batch"`
}

// ServerConfig contains process-level settings shared by all binaries.
type ServerConfig struct {
	// HealthPort is the port for the worker's health endpoint.
	HealthPort int    `mapstructure:"health_port" validate:"required,gt=0,lt=65536"`
	LogLevel   string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`

	// MigrationsDir is the directory containing goose SQL migrations,
	// applied at worker startup.
	MigrationsDir string `mapstructure:"migrations_dir" validate:"required"`
}

// QueueConfig contains broker connection settings and the queue names
// used by the pipeline. Queue names are configuration, not constants,
// so deployments can namespace them.
type QueueConfig struct {
	URL string `mapstructure:"url" validate:"required"`

	// ConnectRetries and ConnectRetryDelaySeconds bound the startup
	// connection loop; exhausting the attempts is a fatal error.
	ConnectRetries           int `mapstructure:"connect_retries"             validate:"required,gt=0"`
	ConnectRetryDelaySeconds int `mapstructure:"connect_retry_delay_seconds" validate:"required,gt=0"`

	// Prefetch is the per-consumer unacked message limit.
	Prefetch int `mapstructure:"prefetch" validate:"gte=0"`

	// RequeueOnFailure controls what happens to a message whose handler
	// reports a transient failure: false acks and drops it, true nacks
	// it back onto the queue. There is no dead-letter queue.
	RequeueOnFailure bool `mapstructure:"requeue_on_failure"`

	ExtractInQueue   string `mapstructure:"extract_in_queue"   validate:"required"`
	ExtractOutQueue  string `mapstructure:"extract_out_queue"  validate:"required"`
	SummarizeInQueue string `mapstructure:"summarize_in_queue" validate:"required"`
	SummaryInQueue   string `mapstructure:"summary_in_queue"   validate:"required"`
	IndexInQueue     string `mapstructure:"index_in_queue"     validate:"required"`
	IndexUpdateQueue string `mapstructure:"index_update_queue" validate:"required"`
	IndexDeleteQueue string `mapstructure:"index_delete_queue" validate:"required"`
}

// BlobConfig contains the object-store connection settings.
type BlobConfig struct {
	Endpoint  string `mapstructure:"endpoint"   validate:"required"`
	AccessKey string `mapstructure:"access_key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" validate:"required"`
	Bucket    string `mapstructure:"bucket"     validate:"required"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// SearchConfig contains the search index connection settings.
type SearchConfig struct {
	URL       string `mapstructure:"url"        validate:"required"`
	IndexName string `mapstructure:"index_name" validate:"required"`
}

// SummarizerConfig contains the summarization API settings. An empty
// APIKey is not a startup error: the summarization stage treats it as
// a permanent skip condition per message.
type SummarizerConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"gte=1"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"gte=1"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" validate:"gt=0"`
}

// ExtractionConfig contains OCR and PDF rasterization settings.
type ExtractionConfig struct {
	// Languages passed to the OCR engine.
	Languages []string `mapstructure:"languages" validate:"required,min=1"`

	// GhostscriptPath is the external PDF-to-image converter binary.
	GhostscriptPath string `mapstructure:"ghostscript_path" validate:"required"`

	// RasterDPI is the render resolution for PDF pages.
	RasterDPI int `mapstructure:"raster_dpi" validate:"required,gt=0"`

	// TempDir for downloaded blobs and rasterized pages; empty means
	// the system temp directory.
	TempDir string `mapstructure:"temp_dir"`
}

// BatchConfig contains the access-log batch ingestion settings.
type BatchConfig struct {
	InputDir    string `mapstructure:"input_dir"   validate:"required"`
	ArchiveDir  string `mapstructure:"archive_dir" validate:"required"`
	ErrorDir    string `mapstructure:"error_dir"   validate:"required"`
	FilePattern string `mapstructure:"file_pattern" validate:"required"`

	// ScheduleEnabled switches the batch binary into daemon mode
	// without the --daemon flag.
	ScheduleEnabled bool `mapstructure:"schedule_enabled"`

	// DailyTimeUTC is the daemon's daily run time, HH:mm, UTC wall clock.
	DailyTimeUTC string `mapstructure:"daily_time_utc" validate:"required"`
}
