// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.everlast/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: answer model, classifier model, temperatures, embedder
//   - Storage: PostgreSQL connection for the pgvector knowledge base
//   - Retrieval: candidate over-fetch and final result counts
//   - Ingestion: chunk size and overlap for the offline indexing job
//   - Server: HTTP listen address and per-IP rate limits
//
// Sensitive data (the PostgreSQL password) is masked in MarshalJSON/String.
// Validation is fail-fast with sentinel errors checkable via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates a temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgres indicates the PostgreSQL connection settings are invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidRetrieval indicates the retrieval counts are invalid.
	// The candidate over-fetch must stay strictly greater than the final
	// result count so deduplication has room to drop repeats.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidChunking indicates the ingestion chunk settings are invalid.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidServer indicates the HTTP server settings are invalid.
	ErrInvalidServer = errors.New("invalid server configuration")
)

// Retrieval defaults. Candidates are over-fetched so that removing
// duplicate passages still leaves a full result set.
const (
	DefaultSearchCandidates = 5
	DefaultSearchResults    = 3

	// MaxSearchCandidates bounds the vector query to keep latency predictable.
	MaxSearchCandidates = 50
)

// Ingestion defaults for the offline document indexing job.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// AI model configuration
	ModelName             string  `mapstructure:"model_name" json:"model_name"`                         // answer model (e.g. "gemini-2.5-flash")
	ClassifierModel       string  `mapstructure:"classifier_model" json:"classifier_model"`             // fast model for style detection
	Temperature           float32 `mapstructure:"temperature" json:"temperature"`                       // answer model temperature
	ClassifierTemperature float32 `mapstructure:"classifier_temperature" json:"classifier_temperature"` // low for consistent classification

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Retrieval configuration
	SearchCandidates int `mapstructure:"search_candidates" json:"search_candidates"` // over-fetch count, must be > SearchResults
	SearchResults    int `mapstructure:"search_results" json:"search_results"`       // final passages per turn

	// Ingestion configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Server configuration
	ListenAddr    string  `mapstructure:"listen_addr" json:"listen_addr"`
	RateLimit     float64 `mapstructure:"rate_limit" json:"rate_limit"`           // requests per second per IP
	RateBurst     int     `mapstructure:"rate_burst" json:"rate_burst"`           // burst allowance per IP
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`     // empty disables tracing export
	OTLPService   string  `mapstructure:"otlp_service" json:"otlp_service"`       // service name for traces
	OTLPEnviron   string  `mapstructure:"otlp_environment" json:"otlp_environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".everlast")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults. The answer model is tuned for balanced prose, the
	// classifier runs at low temperature for consistent JSON output.
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("classifier_model", "gemini-2.5-flash-lite")
	v.SetDefault("temperature", 0.5)
	v.SetDefault("classifier_temperature", 0.1)

	// Embedding defaults
	v.SetDefault("embedder_model", "gemini-embedding-001")

	// Retrieval defaults
	v.SetDefault("search_candidates", DefaultSearchCandidates)
	v.SetDefault("search_results", DefaultSearchResults)

	// Ingestion defaults
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "everlast")
	v.SetDefault("postgres_password", "everlast_dev_password")
	v.SetDefault("postgres_db_name", "everlast")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("listen_addr", "127.0.0.1:3400")
	v.SetDefault("rate_limit", 5.0)
	v.SetDefault("rate_burst", 10)

	// Observability defaults (endpoint empty = tracing export disabled)
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("otlp_service", "everlast-assistant")
	v.SetDefault("otlp_environment", "dev")
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper; its presence is
// checked at startup in cmd.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded strings cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("model_name", "EVERLAST_MODEL_NAME")
	mustBind("classifier_model", "EVERLAST_CLASSIFIER_MODEL")
	mustBind("embedder_model", "EVERLAST_EMBEDDER_MODEL")
	mustBind("listen_addr", "EVERLAST_LISTEN_ADDR")
	mustBind("postgres_host", "EVERLAST_POSTGRES_HOST")
	mustBind("postgres_port", "EVERLAST_POSTGRES_PORT")
	mustBind("postgres_user", "EVERLAST_POSTGRES_USER")
	mustBind("postgres_password", "EVERLAST_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "EVERLAST_POSTGRES_DB")
	mustBind("otlp_endpoint", "EVERLAST_OTLP_ENDPOINT")
}

// DatabaseURL returns the PostgreSQL connection string for pgx.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// FullModelName returns the provider-qualified answer model name for Genkit,
// e.g. "googleai/gemini-2.5-flash".
func (c *Config) FullModelName() string {
	return qualifyModel(c.ModelName)
}

// FullClassifierModelName returns the provider-qualified classifier model name.
func (c *Config) FullClassifierModelName() string {
	return qualifyModel(c.ClassifierModel)
}

func qualifyModel(name string) string {
	for _, r := range name {
		if r == '/' {
			return name
		}
	}
	return "googleai/" + name
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep two characters on each end for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
