// Package config loads FlavorNet settings.
//
// Precedence is: built-in defaults, then an optional YAML file, then
// environment variables (after .env has been loaded by godotenv).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Mongo   MongoConfig   `koanf:"mongo"`
	Auth    AuthConfig    `koanf:"auth"`
	Cache   CacheConfig   `koanf:"cache"`
	Storage StorageConfig `koanf:"storage"`
	Vector  VectorConfig  `koanf:"vector"`
	Logging LoggingConfig `koanf:"logging"`
	Schema  SchemaConfig  `koanf:"schema"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type CacheConfig struct {
	RedisURL string        `koanf:"redis_url"`
	TTL      time.Duration `koanf:"ttl"`
}

type StorageConfig struct {
	Bucket     string        `koanf:"bucket"`
	Region     string        `koanf:"region"`
	PresignTTL time.Duration `koanf:"presign_ttl"`
}

// VectorConfig points at the optional Qdrant + embedding service pair used by
// /recipes/search. Search falls back to the Mongo text index when unset.
type VectorConfig struct {
	QdrantURL    string        `koanf:"qdrant_url"`
	QdrantAPIKey string        `koanf:"qdrant_api_key"`
	Collection   string        `koanf:"collection"`
	EmbeddingURL string        `koanf:"embedding_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SchemaConfig struct {
	Version string `koanf:"version"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8007,
			CORSOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			RequestTimeout: 10 * time.Second,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "appdb",
		},
		Auth: AuthConfig{
			TokenTTL: time.Hour,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Storage: StorageConfig{
			PresignTTL: 10 * time.Minute,
		},
		Vector: VectorConfig{
			Collection: "recipes",
			Timeout:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Schema: SchemaConfig{
			Version: "v3",
		},
	}
}

// envMappings maps flat environment variable names to koanf paths.
var envMappings = map[string]string{
	"port":              "server.port",
	"cors_origins":      "server.cors_origins",
	"rate_limit_rps":    "server.rate_limit_rps",
	"rate_limit_burst":  "server.rate_limit_burst",
	"request_timeout":   "server.request_timeout",
	"mongo_uri":         "mongo.uri",
	"mongo_db":          "mongo.database",
	"jwt_secret":        "auth.jwt_secret",
	"token_ttl":         "auth.token_ttl",
	"redis_url":         "cache.redis_url",
	"cache_ttl":         "cache.ttl",
	"bucket_name":       "storage.bucket",
	"aws_region":        "storage.region",
	"presign_ttl":       "storage.presign_ttl",
	"qdrant_url":        "vector.qdrant_url",
	"qdrant_api_key":    "vector.qdrant_api_key",
	"qdrant_collection": "vector.collection",
	"embedding_url":     "vector.embedding_url",
	"vector_timeout":    "vector.timeout",
	"log_level":         "logging.level",
	"log_format":        "logging.format",
	"schema_version":    "schema.version",
}

// sliceConfigPaths are read from comma-separated env values.
var sliceConfigPaths = []string{"server.cors_origins"}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads .env (if present) and builds the layered configuration.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitSlices(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Mongo.URI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.Mongo.Database == "" {
		return errors.New("MONGO_DB is required")
	}
	switch c.Schema.Version {
	case "v1", "v2", "v3":
	default:
		return fmt.Errorf("unknown schema version %q", c.Schema.Version)
	}
	if c.Vector.QdrantURL != "" && c.Vector.EmbeddingURL == "" {
		return errors.New("EMBEDDING_URL is required when QDRANT_URL is set")
	}
	return nil
}

// VectorEnabled reports whether vector search is configured.
func (c *Config) VectorEnabled() bool {
	return c.Vector.QdrantURL != "" && c.Vector.EmbeddingURL != ""
}

// StorageEnabled reports whether S3 image storage is configured.
func (c *Config) StorageEnabled() bool {
	return c.Storage.Bucket != ""
}
