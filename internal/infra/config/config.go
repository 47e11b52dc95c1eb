package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	DB        DBConfig
	Embedder  EmbedderConfig
	Retrieval RetrievalConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
	// QueryTimeoutSeconds bounds each search query round trip so a
	// non-responding database degrades into tier fallback instead of
	// stalling requests.
	QueryTimeoutSeconds int
}

type EmbedderConfig struct {
	// URL is the embeddings API base URL.
	URL string
	// APIKey authenticates against the embeddings API. Supports the
	// _FILE convention for container secrets.
	APIKey string
	Model  string
	// TimeoutSeconds bounds each outbound embedding request.
	TimeoutSeconds int
	// RequestsPerSecond bounds the outbound call rate to stay inside
	// the provider's rate limits.
	RequestsPerSecond float64
}

type RetrievalConfig struct {
	Dimensions     int
	TopK           int
	DefaultProfile string
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),
		DB: DBConfig{
			Host:                getEnv("DB_HOST", "rag-db"),
			Port:                getEnv("DB_PORT", "5432"),
			User:                getEnv("DB_USER", "rag_user"),
			Password:            getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "rag_password"),
			Name:                getEnv("DB_NAME", "construction_rag"),
			MaxConns:            getEnvInt("DB_MAX_CONNS", 10),
			MinConns:            getEnvInt("DB_MIN_CONNS", 2),
			QueryTimeoutSeconds: getEnvInt("DB_QUERY_TIMEOUT", 10),
		},
		Embedder: EmbedderConfig{
			URL:               getEnv("VOYAGE_URL", "https://api.voyageai.com"),
			APIKey:            getSecret("VOYAGE_API_KEY", "VOYAGE_API_KEY_FILE", ""),
			Model:             getEnv("EMBEDDING_MODEL", "voyage-multilingual-2"),
			TimeoutSeconds:    getEnvInt("EMBEDDER_TIMEOUT", 30),
			RequestsPerSecond: getEnvFloat("EMBEDDER_RPS", 3),
		},
		Retrieval: RetrievalConfig{
			Dimensions:     getEnvInt("EMBEDDING_DIMENSIONS", 1024),
			TopK:           getEnvInt("RETRIEVAL_TOP_K", 5),
			DefaultProfile: getEnv("RETRIEVAL_DEFAULT_PROFILE", "default"),
		},
	}
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
