package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends selectable with SNIPPET_STORE.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Snippet   SnippetConfig
	SQLite    SQLiteConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Retention RetentionConfig
	MinIO     MinIOConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type SnippetConfig struct {
	Store       string
	RecentCount int
	RecentMax   int
}

type SQLiteConfig struct {
	Path string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type RetentionConfig struct {
	Enabled  bool
	Interval time.Duration
	Grace    time.Duration
	Batch    int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Enabled reports whether an archive target is configured.
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != ""
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SNIPPET_STORE", StoreMemory)
	v.SetDefault("SNIPPET_RECENT_COUNT", 10)
	v.SetDefault("SNIPPET_RECENT_MAX", 100)
	v.SetDefault("SQLITE_PATH", "pastebin.db")
	v.SetDefault("MONGODB_DATABASE", "pastebin")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "pastebin:")
	v.SetDefault("RETENTION_ENABLED", false)
	v.SetDefault("RETENTION_INTERVAL", "10m")
	v.SetDefault("RETENTION_GRACE", "0s")
	v.SetDefault("RETENTION_BATCH", 100)
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "pastebin-archive")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Snippet: SnippetConfig{
			Store:       strings.ToLower(strings.TrimSpace(v.GetString("SNIPPET_STORE"))),
			RecentCount: v.GetInt("SNIPPET_RECENT_COUNT"),
			RecentMax:   v.GetInt("SNIPPET_RECENT_MAX"),
		},
		SQLite: SQLiteConfig{
			Path: v.GetString("SQLITE_PATH"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		Retention: RetentionConfig{
			Enabled:  v.GetBool("RETENTION_ENABLED"),
			Interval: v.GetDuration("RETENTION_INTERVAL"),
			Grace:    v.GetDuration("RETENTION_GRACE"),
			Batch:    v.GetInt("RETENTION_BATCH"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store has the settings it needs.
func (c *Config) Validate() error {
	switch c.Snippet.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case StoreMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo store")
		}
		if c.MongoDB.Timeout <= 0 {
			return fmt.Errorf("MONGODB_TIMEOUT must be positive")
		}
	case StoreRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown SNIPPET_STORE %q", c.Snippet.Store)
	}
	if c.Snippet.RecentCount < 0 || c.Snippet.RecentMax < c.Snippet.RecentCount {
		return fmt.Errorf("SNIPPET_RECENT_COUNT must be in [0, SNIPPET_RECENT_MAX]")
	}
	if c.Retention.Enabled && c.Retention.Interval <= 0 {
		return fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.Retention.Batch <= 0 {
		return fmt.Errorf("RETENTION_BATCH must be positive")
	}
	if c.Retention.Grace < 0 {
		return fmt.Errorf("RETENTION_GRACE must not be negative")
	}
	return nil
}
