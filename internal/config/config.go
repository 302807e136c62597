package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. BAAC_LOADER_WORKERS.
const EnvPrefix = "BAAC"

// Config represents the complete application configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Loader     LoaderConfig     `yaml:"loader" envconfig:"LOADER"`
	Enrichment EnrichmentConfig `yaml:"enrichment" envconfig:"ENRICHMENT"`
	Sink       SinkConfig       `yaml:"sink" envconfig:"SINK"`
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	CacheDir  string `yaml:"cache_dir" envconfig:"CACHE_DIR" validate:"required"`
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// LoaderConfig controls the per-year loading pool and sampling
type LoaderConfig struct {
	Workers        int   `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`
	ForceReload    bool  `yaml:"force_reload" envconfig:"FORCE_RELOAD"`
	SampleSize     int   `yaml:"sample_size" envconfig:"SAMPLE_SIZE" validate:"min=0"`
	SampleSeed     int64 `yaml:"sample_seed" envconfig:"SAMPLE_SEED"`
	MergeLocations bool  `yaml:"merge_locations" envconfig:"MERGE_LOCATIONS"`
}

// EnrichmentConfig configures the Overpass and Open-Meteo collaborators
type EnrichmentConfig struct {
	Enabled     bool          `yaml:"enabled" envconfig:"ENABLED"`
	Weather     bool          `yaml:"weather" envconfig:"WEATHER"`
	OverpassURL string        `yaml:"overpass_url" envconfig:"OVERPASS_URL" validate:"omitempty,url"`
	MeteoURL    string        `yaml:"meteo_url" envconfig:"METEO_URL" validate:"omitempty,url"`
	Radius      int           `yaml:"radius" envconfig:"RADIUS" validate:"min=1,max=50000"`
	MinYear     int           `yaml:"min_year" envconfig:"MIN_YEAR" validate:"omitempty,min=2000,max=2099"`
	Workers     int           `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=256"`
	OverpassRPS float64       `yaml:"overpass_rps" envconfig:"OVERPASS_RPS" validate:"gt=0"`
	MeteoRPS    float64       `yaml:"meteo_rps" envconfig:"METEO_RPS" validate:"gt=0"`
	Burst       int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	MaxRetries  int           `yaml:"max_retries" envconfig:"MAX_RETRIES" validate:"min=0,max=20"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	MemoSize    int           `yaml:"memo_size" envconfig:"MEMO_SIZE" validate:"min=1"`
}

// SinkConfig selects and configures the document store
type SinkConfig struct {
	Type       string        `yaml:"type" envconfig:"TYPE" validate:"oneof=none elasticsearch sqlite"`
	BatchSize  int           `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=1,max=10000"`
	Elastic    ElasticConfig `yaml:"elastic" envconfig:"ELASTIC"`
	SQLitePath string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// ElasticConfig holds the Elasticsearch connection settings
type ElasticConfig struct {
	Host     string `yaml:"host" envconfig:"NODE_HOST"`
	Port     int    `yaml:"port" envconfig:"NODE_PORT" validate:"min=1,max=65535"`
	User     string `yaml:"user" envconfig:"AUTH_USER"`
	Password string `yaml:"password" envconfig:"AUTH_PASSWORD"`
	Index    string `yaml:"index" envconfig:"INDEX" validate:"required"`
}

// Address returns the node URL.
func (e ElasticConfig) Address() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxPageSize     int           `yaml:"max_page_size" envconfig:"MAX_PAGE_SIZE" validate:"min=1"`
	RateLimit       float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"min=0"`
	RateBurst       int           `yaml:"rate_burst" envconfig:"RATE_BURST" validate:"min=0"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingExporter string `yaml:"tracing_exporter" envconfig:"TRACING_EXPORTER" validate:"oneof=none stdout"`
	MetricsExporter string `yaml:"metrics_exporter" envconfig:"METRICS_EXPORTER" validate:"oneof=none prometheus"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/baac.log",
		},
		Paths: PathsConfig{
			DataDir:   "data/raw",
			CacheDir:  "data/cache",
			ExportDir: "data/exports",
			LogsDir:   "logs",
		},
		Loader: LoaderConfig{
			Workers:        10,
			SampleSeed:     42,
			MergeLocations: true,
		},
		Enrichment: EnrichmentConfig{
			Enabled:     false,
			Weather:     false,
			OverpassURL: "http://localhost:12345/api/interpreter",
			MeteoURL:    "https://archive-api.open-meteo.com/v1/archive",
			Radius:      1000,
			Workers:     10,
			OverpassRPS: 0.5,
			MeteoRPS:    5,
			Burst:       1,
			MaxRetries:  7,
			Timeout:     20 * time.Second,
			MemoSize:    10000,
		},
		Sink: SinkConfig{
			Type:      "none",
			BatchSize: 500,
			Elastic: ElasticConfig{
				Host:  "localhost",
				Port:  9200,
				Index: "accidents-routiers",
			},
			SQLitePath: "data/cache/accidents.db",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxPageSize:     1000,
			RateLimit:       50,
			RateBurst:       100,
		},
		Telemetry: TelemetryConfig{
			ServiceName:     "baac-pipeline",
			TracingExporter: "none",
			MetricsExporter: "prometheus",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a
// .env file and the environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// .env values never override variables already set in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	applyLegacyCredentials(&cfg.Sink.Elastic)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyLegacyCredentials reads the ELK_USER and ELK_PASSWORD variables older
// deployments keep in their .env file.
func applyLegacyCredentials(e *ElasticConfig) {
	if e.User == "" {
		e.User = os.Getenv("ELK_USER")
	}
	if e.Password == "" {
		e.Password = os.Getenv("ELK_PASSWORD")
	}
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Enrichment.Enabled && c.Enrichment.OverpassURL == "" {
		return fmt.Errorf("enrichment enabled without an overpass url")
	}
	if c.Enrichment.Weather && c.Enrichment.MeteoURL == "" {
		return fmt.Errorf("weather enrichment enabled without a meteo url")
	}
	if c.Sink.Type == "sqlite" && c.Sink.SQLitePath == "" {
		return fmt.Errorf("sqlite sink requires a sqlite path")
	}
	return nil
}

// findConfigFile returns the first config file found in common locations
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}
