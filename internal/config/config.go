package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DeafMist/veille/backend/internal/scheduler"
)

const (
	BackendElasticsearch = "elasticsearch"
	BackendMemory        = "memory"
)

// Common contains parameters shared by every binary.
type Common struct {
	StoreBackend             string
	ElasticsearchAddr        string
	ElasticsearchIndexPrefix string

	LLM             LLM
	SummaryLanguage string
	ExtractTimeout  time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	Archive Archive

	IngestAt       scheduler.TimeOfDay
	IngestLocation *time.Location
}

// LLM selects the model provider.
type LLM struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// Archive configures the optional S3 export of compiled articles.
type Archive struct {
	Bucket    string
	Prefix    string
	Region    string
	PathStyle bool
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr    string
	CORSOrigins []string
}

// Ingest configures the standalone ingestion runner.
type Ingest struct {
	Common
	ConnectTimeout time.Duration
}

// LoadDotEnv reads variables from the given files (".env" by default) without
// overriding the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:      *common,
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		CORSOrigins: splitAndTrim(getEnv("CORS_ORIGINS", "*")),
	}

	if len(c.CORSOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ORIGINS must contain at least one origin")
	}

	return c, nil
}

// LoadIngest builds an Ingest config from environment variables.
func LoadIngest() (*Ingest, error) {
	common, err := loadCommon()
	if err != nil {
		return nil, err
	}

	c := &Ingest{
		Common:         *common,
		ConnectTimeout: getDuration("INGEST_CONNECT_TIMEOUT", "2m"),
	}

	if c.ConnectTimeout <= 0 {
		return nil, fmt.Errorf("INGEST_CONNECT_TIMEOUT must be positive")
	}

	return c, nil
}

func loadCommon() (*Common, error) {
	c := &Common{
		StoreBackend:             strings.ToLower(getEnv("STORE_BACKEND", BackendElasticsearch)),
		ElasticsearchAddr:        getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndexPrefix: getEnv("ELASTICSEARCH_INDEX_PREFIX", "veille"),
		LLM: LLM{
			Provider:  strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			APIKey:    getEnv("LLM_API_KEY", ""),
			Model:     getEnv("LLM_MODEL", ""),
			BaseURL:   getEnv("LLM_BASE_URL", ""),
			MaxTokens: getInt("LLM_MAX_TOKENS", 4096),
			Timeout:   getDuration("LLM_TIMEOUT", "2m"),
		},
		SummaryLanguage: getEnv("SUMMARY_LANGUAGE", "French"),
		ExtractTimeout:  getDuration("EXTRACT_TIMEOUT", "30s"),
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "veille_events"),
		Archive: Archive{
			Bucket:    getEnv("ARCHIVE_BUCKET", ""),
			Prefix:    getEnv("ARCHIVE_PREFIX", "articles/"),
			Region:    getEnv("AWS_REGION", ""),
			PathStyle: getBool("ARCHIVE_PATH_STYLE", false),
		},
	}

	switch c.StoreBackend {
	case BackendElasticsearch, BackendMemory:
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendElasticsearch, BackendMemory)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be openai or anthropic")
	}
	if c.LLM.APIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	if c.LLM.MaxTokens <= 0 {
		return nil, fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.ExtractTimeout <= 0 {
		return nil, fmt.Errorf("EXTRACT_TIMEOUT must be positive")
	}

	at, err := scheduler.ParseTimeOfDay(getEnv("INGEST_SCHEDULE", "09:00"))
	if err != nil {
		return nil, fmt.Errorf("INGEST_SCHEDULE: %w", err)
	}
	c.IngestAt = at

	loc, err := time.LoadLocation(getEnv("INGEST_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("INGEST_TIMEZONE: %w", err)
	}
	c.IngestLocation = loc

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
