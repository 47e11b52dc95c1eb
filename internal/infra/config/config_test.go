package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbedderDefaults(t *testing.T) {
	envVars := []string{
		"VOYAGE_URL",
		"VOYAGE_API_KEY",
		"EMBEDDING_MODEL",
		"EMBEDDER_TIMEOUT",
		"EMBEDDER_RPS",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, "https://api.voyageai.com", cfg.Embedder.URL)
	assert.Equal(t, "voyage-multilingual-2", cfg.Embedder.Model)
	assert.Equal(t, 30, cfg.Embedder.TimeoutSeconds)
	assert.Equal(t, 3.0, cfg.Embedder.RequestsPerSecond)
}

func TestLoad_EmbedderFromEnv(t *testing.T) {
	t.Setenv("VOYAGE_URL", "http://localhost:8111")
	t.Setenv("EMBEDDING_MODEL", "voyage-3")
	t.Setenv("EMBEDDER_TIMEOUT", "10")
	t.Setenv("EMBEDDER_RPS", "1.5")

	cfg := Load()

	assert.Equal(t, "http://localhost:8111", cfg.Embedder.URL)
	assert.Equal(t, "voyage-3", cfg.Embedder.Model)
	assert.Equal(t, 10, cfg.Embedder.TimeoutSeconds)
	assert.Equal(t, 1.5, cfg.Embedder.RequestsPerSecond)
}

func TestLoad_RetrievalDefaults(t *testing.T) {
	for _, key := range []string{"EMBEDDING_DIMENSIONS", "RETRIEVAL_TOP_K", "RETRIEVAL_DEFAULT_PROFILE"} {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, 1024, cfg.Retrieval.Dimensions)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, "default", cfg.Retrieval.DefaultProfile)
}

func TestLoad_DBQueryTimeout(t *testing.T) {
	_ = os.Unsetenv("DB_QUERY_TIMEOUT")
	cfg := Load()
	assert.Equal(t, 10, cfg.DB.QueryTimeoutSeconds)

	t.Setenv("DB_QUERY_TIMEOUT", "3")
	cfg = Load()
	assert.Equal(t, 3, cfg.DB.QueryTimeoutSeconds)
}

func TestLoad_SecretFromFile(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "voyage_key")
	require.NoError(t, os.WriteFile(secretFile, []byte("sk-secret\n"), 0o600))
	_ = os.Unsetenv("VOYAGE_API_KEY")
	t.Setenv("VOYAGE_API_KEY_FILE", secretFile)

	cfg := Load()

	assert.Equal(t, "sk-secret", cfg.Embedder.APIKey)
}

func TestConfig_DSN(t *testing.T) {
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_HOST", "h")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "d")

	cfg := Load()

	assert.Equal(t, "postgres://u:p@h:5433/d?sslmode=disable", cfg.DSN())
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "not-a-number")

	cfg := Load()

	assert.Equal(t, 5, cfg.Retrieval.TopK)
}
