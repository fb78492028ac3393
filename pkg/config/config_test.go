package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Retriever.DefaultTopK)
	assert.Equal(t, 3, cfg.Retriever.ContextTopK)
	assert.InDelta(t, 0.01, cfg.Retriever.Threshold, 1e-12)
	assert.False(t, cfg.Postgres.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Redis.CacheTTL)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
retriever:
  defaultTopK: 8
  maxTopK: 20
  seedFile: /etc/rag/corpus.yaml
redis:
  enabled: true
  cacheTTL: 5m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Retriever.DefaultTopK)
	assert.Equal(t, 20, cfg.Retriever.MaxTopK)
	assert.Equal(t, 3, cfg.Retriever.ContextTopK, "unset keys keep defaults")
	assert.Equal(t, "/etc/rag/corpus.yaml", cfg.Retriever.SeedFile)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RAG_SERVER_PORT", "7070")
	t.Setenv("RAG_KAFKA_ENABLED", "true")
	t.Setenv("RAG_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RAG_RETRIEVER_THRESHOLD", "0.2")
	t.Setenv("RAG_RETRIEVER_WATCH_SEED", "true")
	t.Setenv("RAG_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.InDelta(t, 0.2, cfg.Retriever.Threshold, 1e-12)
	assert.True(t, cfg.Retriever.WatchSeed)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("RAG_SERVER_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "retriever:\n  defaultTopK: 10\n  maxTopK: 5\n"))
	assert.ErrorContains(t, err, "maxTopK")
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", p.DSN())
}

func TestDevelopmentConfigParses(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("RAG_SERVER_CORS_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("RAG_SERVER_RATE_LIMIT", "120")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 120, cfg.Server.RateLimit)
}

func TestValidateRejectsNegativeRateLimit(t *testing.T) {
	t.Setenv("RAG_SERVER_RATE_LIMIT", "-1")

	_, err := Load("")
	assert.ErrorContains(t, err, "server.rateLimit")
}
