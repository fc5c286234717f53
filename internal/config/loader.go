package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables, optionally
// overlaid by a .env file in the working directory.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.Embedder = EndpointConfig{
		BaseURL: strings.TrimSpace(os.Getenv("EMBEDDER_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("EMBEDDER_API_KEY")),
	}
	cfg.EmbedderModel = firstNonEmpty(strings.TrimSpace(os.Getenv("EMBEDDER_MODEL")), "text-embedding-3-small")
	cfg.EmbedderDim = intFromEnv("EMBEDDER_DIM", 1536)
	cfg.Generator = EndpointConfig{
		BaseURL: strings.TrimSpace(os.Getenv("GENERATOR_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("GENERATOR_API_KEY")),
	}
	cfg.GeneratorAPI = strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("GENERATOR_API")), "anthropic"))
	cfg.GeneratorModel = strings.TrimSpace(os.Getenv("GENERATOR_MODEL"))
	if cfg.GeneratorModel == "" && cfg.GeneratorAPI == "openai" {
		cfg.GeneratorModel = "gpt-4o-mini"
	}
	cfg.VectorIndex = EndpointConfig{
		BaseURL: strings.TrimSpace(os.Getenv("VECTOR_INDEX_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("VECTOR_INDEX_API_KEY")),
	}
	cfg.VectorDSN = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_DSN")), cfg.VectorIndex.BaseURL)
	cfg.VectorCollection = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")), "patient_chunks")
	cfg.MetadataDSN = firstNonEmpty(strings.TrimSpace(os.Getenv("METADATA_DSN")), strings.TrimSpace(os.Getenv("DATABASE_URL")))
	cfg.RecordSource = EndpointConfig{
		BaseURL: strings.TrimSpace(os.Getenv("RECORD_SOURCE_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("RECORD_SOURCE_API_KEY")),
	}

	cfg.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))
	cfg.LogLevel = firstNonEmpty(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "info")

	cfg.Obs.ServiceName = firstNonEmpty(strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME")), "clinical-core")
	cfg.Obs.ServiceVersion = strings.TrimSpace(os.Getenv("SERVICE_VERSION"))
	cfg.Obs.Environment = firstNonEmpty(strings.TrimSpace(os.Getenv("ENVIRONMENT")), "development")

	cfg.PrivacyMode = PrivacyMode(strings.ToUpper(firstNonEmpty(strings.TrimSpace(os.Getenv("PRIVACY_MODE")), string(PrivacyFull))))

	deadlineSeconds := intFromEnv("DEFAULT_DEADLINE_SECONDS", 30)
	cfg.DefaultDeadline = time.Duration(deadlineSeconds) * time.Second

	cfg.SnapshotDir = firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_DIR")), "./data/snapshots")
	cfg.S3Bucket = strings.TrimSpace(os.Getenv("SNAPSHOT_S3_BUCKET"))

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))

	cfg.ListenAddr = firstNonEmpty(strings.TrimSpace(os.Getenv("LISTEN_ADDR")), ":8080")

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
