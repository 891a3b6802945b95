// Package config loads lexigraph settings from an optional TOML file
// overlaid with LEXIGRAPH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// EnvConfigFile names the optional TOML file layered under the environment.
const EnvConfigFile = "LEXIGRAPH_CONFIG"

// Config holds server and CLI settings. The env tag names the variable
// that overrides each field.
type Config struct {
	// Exactly one store: Postgres when DatabaseURL is set, badger otherwise.
	DatabaseURL string `env:"LEXIGRAPH_DATABASE_URL" validate:"required_without=DataDir,excluded_with=DataDir"`
	DataDir     string `env:"LEXIGRAPH_DATA_DIR"`

	HTTPAddr  string `env:"LEXIGRAPH_HTTP_ADDR" validate:"required"`
	GRPCAddr  string `env:"LEXIGRAPH_GRPC_ADDR"`  // empty = no gRPC listener
	NATSURL   string `env:"LEXIGRAPH_NATS_URL"`   // empty = no events
	AuthToken string `env:"LEXIGRAPH_AUTH_TOKEN"` // empty = auth disabled

	// Graph settings
	RebuildOnStart   bool          `env:"LEXIGRAPH_REBUILD_ON_START"`
	ExtractWorkers   int           `env:"LEXIGRAPH_EXTRACT_WORKERS" validate:"gte=1,lte=256"`
	FilterStopWords  bool          `env:"LEXIGRAPH_FILTER_STOP_WORDS"`
	MinWordLength    int           `env:"LEXIGRAPH_MIN_WORD_LENGTH" validate:"gte=1,lte=64"`
	CycleSampleLimit int           `env:"LEXIGRAPH_CYCLE_SAMPLE_LIMIT" validate:"gte=1,lte=10000"`
	CycleTimeout     time.Duration `env:"LEXIGRAPH_CYCLE_TIMEOUT" validate:"gt=0"`

	// Search rate limiting, in requests per second (0 = off).
	SearchRateLimit float64 `env:"LEXIGRAPH_SEARCH_RATE_LIMIT" validate:"gte=0"`
	SearchRateBurst int     `env:"LEXIGRAPH_SEARCH_RATE_BURST" validate:"gte=1"`

	// Export settings (interval 0 = disabled)
	ExportInterval   time.Duration `env:"LEXIGRAPH_EXPORT_INTERVAL" validate:"gte=0"`
	ExportS3Bucket   string        `env:"LEXIGRAPH_EXPORT_S3_BUCKET"` // enables S3 when set
	ExportS3Endpoint string        `env:"LEXIGRAPH_EXPORT_S3_ENDPOINT" validate:"omitempty,url"`
	ExportS3Region   string        `env:"LEXIGRAPH_EXPORT_S3_REGION"`
	ExportS3Key      string        `env:"LEXIGRAPH_EXPORT_S3_KEY"`
	ExportGitRepo    string        `env:"LEXIGRAPH_EXPORT_GIT_REPO"` // enables git when set; path to clone
	ExportGitFile    string        `env:"LEXIGRAPH_EXPORT_GIT_FILE"`
	ExportGitBranch  string        `env:"LEXIGRAPH_EXPORT_GIT_BRANCH"`
}

// fileConfig is the TOML layout. Durations are strings ("2s", "5m").
type fileConfig struct {
	DatabaseURL string `toml:"database_url"`
	DataDir     string `toml:"data_dir"`
	HTTPAddr    string `toml:"http_addr"`
	GRPCAddr    string `toml:"grpc_addr"`
	NATSURL     string `toml:"nats_url"`
	AuthToken   string `toml:"auth_token"`

	Graph struct {
		RebuildOnStart   *bool  `toml:"rebuild_on_start"`
		ExtractWorkers   int    `toml:"extract_workers"`
		FilterStopWords  *bool  `toml:"filter_stop_words"`
		MinWordLength    int    `toml:"min_word_length"`
		CycleSampleLimit int    `toml:"cycle_sample_limit"`
		CycleTimeout     string `toml:"cycle_timeout"`
	} `toml:"graph"`

	Search struct {
		RateLimit float64 `toml:"rate_limit"`
		RateBurst int     `toml:"rate_burst"`
	} `toml:"search"`

	Export struct {
		Interval   string `toml:"interval"`
		S3Bucket   string `toml:"s3_bucket"`
		S3Endpoint string `toml:"s3_endpoint"`
		S3Region   string `toml:"s3_region"`
		S3Key      string `toml:"s3_key"`
		GitRepo    string `toml:"git_repo"`
		GitFile    string `toml:"git_file"`
		GitBranch  string `toml:"git_branch"`
	} `toml:"export"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(envTag)
	return v
}

func envTag(f reflect.StructField) string {
	return f.Tag.Get("env")
}

// Default returns the built-in settings with no store configured.
func Default() *Config {
	return &Config{
		HTTPAddr:         ":8080",
		GRPCAddr:         ":9090",
		RebuildOnStart:   true,
		ExtractWorkers:   min(runtime.NumCPU(), 256),
		MinWordLength:    1,
		CycleSampleLimit: 20,
		CycleTimeout:     2 * time.Second,
		SearchRateBurst:  20,
		ExportS3Region:   "us-east-1",
		ExportS3Key:      "lexigraph/links.jsonl",
		ExportGitFile:    "lexigraph.jsonl",
		ExportGitBranch:  "main",
	}
}

// Load builds the configuration from defaults, the TOML file named by
// LEXIGRAPH_CONFIG (if any), then the environment, and validates it.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// UsesPostgres reports whether the Postgres store is configured.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func (c *Config) applyFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("%s %s: %w", EnvConfigFile, path, err)
	}

	setString(&c.DatabaseURL, f.DatabaseURL)
	setString(&c.DataDir, f.DataDir)
	setString(&c.HTTPAddr, f.HTTPAddr)
	setString(&c.GRPCAddr, f.GRPCAddr)
	setString(&c.NATSURL, f.NATSURL)
	setString(&c.AuthToken, f.AuthToken)

	if f.Graph.RebuildOnStart != nil {
		c.RebuildOnStart = *f.Graph.RebuildOnStart
	}
	if f.Graph.FilterStopWords != nil {
		c.FilterStopWords = *f.Graph.FilterStopWords
	}
	setInt(&c.ExtractWorkers, f.Graph.ExtractWorkers)
	setInt(&c.MinWordLength, f.Graph.MinWordLength)
	setInt(&c.CycleSampleLimit, f.Graph.CycleSampleLimit)
	if f.Search.RateLimit != 0 {
		c.SearchRateLimit = f.Search.RateLimit
	}
	setInt(&c.SearchRateBurst, f.Search.RateBurst)

	setString(&c.ExportS3Bucket, f.Export.S3Bucket)
	setString(&c.ExportS3Endpoint, f.Export.S3Endpoint)
	setString(&c.ExportS3Region, f.Export.S3Region)
	setString(&c.ExportS3Key, f.Export.S3Key)
	setString(&c.ExportGitRepo, f.Export.GitRepo)
	setString(&c.ExportGitFile, f.Export.GitFile)
	setString(&c.ExportGitBranch, f.Export.GitBranch)

	var errs []error
	if f.Graph.CycleTimeout != "" {
		d, err := time.ParseDuration(f.Graph.CycleTimeout)
		errs = append(errs, wrapKey("graph.cycle_timeout", err))
		c.CycleTimeout = d
	}
	if f.Export.Interval != "" {
		d, err := time.ParseDuration(f.Export.Interval)
		errs = append(errs, wrapKey("export.interval", err))
		c.ExportInterval = d
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, os.Getenv("LEXIGRAPH_DATABASE_URL"))
	setString(&c.DataDir, os.Getenv("LEXIGRAPH_DATA_DIR"))
	c.HTTPAddr = envOrDefault("LEXIGRAPH_HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = envOrDefault("LEXIGRAPH_GRPC_ADDR", c.GRPCAddr)
	c.NATSURL = envOrDefault("LEXIGRAPH_NATS_URL", c.NATSURL)
	c.AuthToken = envOrDefault("LEXIGRAPH_AUTH_TOKEN", c.AuthToken)

	c.ExportS3Bucket = envOrDefault("LEXIGRAPH_EXPORT_S3_BUCKET", c.ExportS3Bucket)
	c.ExportS3Endpoint = envOrDefault("LEXIGRAPH_EXPORT_S3_ENDPOINT", c.ExportS3Endpoint)
	c.ExportS3Region = envOrDefault("LEXIGRAPH_EXPORT_S3_REGION", c.ExportS3Region)
	c.ExportS3Key = envOrDefault("LEXIGRAPH_EXPORT_S3_KEY", c.ExportS3Key)
	c.ExportGitRepo = envOrDefault("LEXIGRAPH_EXPORT_GIT_REPO", c.ExportGitRepo)
	c.ExportGitFile = envOrDefault("LEXIGRAPH_EXPORT_GIT_FILE", c.ExportGitFile)
	c.ExportGitBranch = envOrDefault("LEXIGRAPH_EXPORT_GIT_BRANCH", c.ExportGitBranch)

	return errors.Join(
		envBool("LEXIGRAPH_REBUILD_ON_START", &c.RebuildOnStart),
		envBool("LEXIGRAPH_FILTER_STOP_WORDS", &c.FilterStopWords),
		envInt("LEXIGRAPH_EXTRACT_WORKERS", &c.ExtractWorkers),
		envInt("LEXIGRAPH_MIN_WORD_LENGTH", &c.MinWordLength),
		envInt("LEXIGRAPH_CYCLE_SAMPLE_LIMIT", &c.CycleSampleLimit),
		envDuration("LEXIGRAPH_CYCLE_TIMEOUT", &c.CycleTimeout),
		envFloat("LEXIGRAPH_SEARCH_RATE_LIMIT", &c.SearchRateLimit),
		envInt("LEXIGRAPH_SEARCH_RATE_BURST", &c.SearchRateBurst),
		envDuration("LEXIGRAPH_EXPORT_INTERVAL", &c.ExportInterval),
	)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return wrapKey(key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return wrapKey(key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return wrapKey(key, err)
	}
	*dst = f
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return wrapKey(key, err)
	}
	*dst = d
	return nil
}

func wrapKey(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// formatValidationError joins validator errors into one message naming the
// environment variable behind each field.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	name := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "required_without":
		return fmt.Sprintf("%s or %s is required", name, envNameOf(e.Param()))
	case "excluded_with":
		return fmt.Sprintf("%s and %s are mutually exclusive", name, envNameOf(e.Param()))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", name, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", name, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a URL", name)
	default:
		return fmt.Sprintf("%s is invalid", name)
	}
}

// envNameOf maps a Config field name to its environment variable.
func envNameOf(field string) string {
	if f, ok := reflect.TypeFor[Config]().FieldByName(field); ok {
		if tag := envTag(f); tag != "" {
			return tag
		}
	}
	return field
}
