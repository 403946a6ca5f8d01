package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/veille/backend/internal/config"
	"github.com/DeafMist/veille/backend/internal/scheduler"
)

var keys = []string{
	"STORE_BACKEND", "ELASTICSEARCH_ADDR", "ELASTICSEARCH_INDEX_PREFIX",
	"LLM_PROVIDER", "LLM_API_KEY", "LLM_MODEL", "LLM_BASE_URL", "LLM_MAX_TOKENS", "LLM_TIMEOUT",
	"SUMMARY_LANGUAGE", "EXTRACT_TIMEOUT", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"ARCHIVE_BUCKET", "ARCHIVE_PREFIX", "AWS_REGION", "ARCHIVE_PATH_STYLE",
	"INGEST_SCHEDULE", "INGEST_TIMEZONE", "INGEST_CONNECT_TIMEOUT",
	"API_BIND_ADDR", "CORS_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
	t.Setenv("LLM_API_KEY", "sk-test")
}

func TestLoadAPIDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, config.BackendElasticsearch, cfg.StoreBackend)
	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "veille", cfg.ElasticsearchIndexPrefix)
	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, "openai", cfg.LLM.Provider)
	require.Equal(t, 4096, cfg.LLM.MaxTokens)
	require.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	require.Equal(t, 30*time.Second, cfg.ExtractTimeout)
	require.Equal(t, "French", cfg.SummaryLanguage)
	require.Empty(t, cfg.KafkaBrokers)
	require.Empty(t, cfg.Archive.Bucket)
	require.Equal(t, scheduler.TimeOfDay{Hour: 9}, cfg.IngestAt)
	require.Equal(t, time.Local, cfg.IngestLocation)
}

func TestLoadAPIOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_MODEL", "claude-haiku-4-5")
	t.Setenv("LLM_MAX_TOKENS", "8000")
	t.Setenv("KAFKA_BROKERS", "kafka-a:9092,kafka-b:9092")
	t.Setenv("ARCHIVE_BUCKET", "veille-articles")
	t.Setenv("ARCHIVE_PATH_STYLE", "true")
	t.Setenv("INGEST_SCHEDULE", "06:30")
	t.Setenv("INGEST_TIMEZONE", "Europe/Paris")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, config.BackendMemory, cfg.StoreBackend)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.Equal(t, "anthropic", cfg.LLM.Provider)
	require.Equal(t, "claude-haiku-4-5", cfg.LLM.Model)
	require.Equal(t, 8000, cfg.LLM.MaxTokens)
	require.Equal(t, []string{"kafka-a:9092", "kafka-b:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "veille-articles", cfg.Archive.Bucket)
	require.True(t, cfg.Archive.PathStyle)
	require.Equal(t, scheduler.TimeOfDay{Hour: 6, Minute: 30}, cfg.IngestAt)
	require.Equal(t, "Europe/Paris", cfg.IngestLocation.String())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "missing api key", key: "LLM_API_KEY", val: ""},
		{name: "unknown provider", key: "LLM_PROVIDER", val: "mistral"},
		{name: "unknown backend", key: "STORE_BACKEND", val: "mongo"},
		{name: "bad schedule", key: "INGEST_SCHEDULE", val: "9am"},
		{name: "bad timezone", key: "INGEST_TIMEZONE", val: "Mars/Olympus"},
		{name: "negative tokens", key: "LLM_MAX_TOKENS", val: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := config.LoadAPI()
			require.Error(t, err)
		})
	}
}

func TestLoadIngest(t *testing.T) {
	clearEnv(t)
	t.Setenv("INGEST_CONNECT_TIMEOUT", "45s")

	cfg, err := config.LoadIngest()
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, cfg.ConnectTimeout)
}

func TestLoadDotEnvKeepsProcessEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_MODEL", "from-env")
	require.NoError(t, os.Unsetenv("SUMMARY_LANGUAGE"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LLM_MODEL=from-file\nSUMMARY_LANGUAGE=English\n"), 0o600))

	require.NoError(t, config.LoadDotEnv(path))

	cfg, err := config.LoadAPI()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.LLM.Model)
	require.Equal(t, "English", cfg.SummaryLanguage)

	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
