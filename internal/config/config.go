package config

import "time"

// EndpointConfig is a reachable dependency's address plus credential.
type EndpointConfig struct {
	BaseURL string
	APIKey  string
}

// ObsConfig configures logging/tracing identity.
type ObsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// PrivacyMode is the audit log's redaction policy.
type PrivacyMode string

const (
	PrivacyFull     PrivacyMode = "FULL"
	PrivacyRedacted PrivacyMode = "REDACTED"
	PrivacyMinimal  PrivacyMode = "MINIMAL"
)

// Config is the core's full runtime configuration.
type Config struct {
	Embedder      EndpointConfig
	EmbedderModel string
	EmbedderDim   int
	Generator     EndpointConfig
	GeneratorAPI  string // "anthropic" or "openai"
	GeneratorModel string
	VectorIndex   EndpointConfig
	VectorDSN     string
	VectorCollection string
	MetadataDSN   string
	RecordSource  EndpointConfig

	LogPath  string
	LogLevel string
	Obs      ObsConfig

	PrivacyMode     PrivacyMode
	DefaultDeadline time.Duration

	SnapshotDir string
	S3Bucket    string

	RedisAddr string

	ListenAddr string
}
