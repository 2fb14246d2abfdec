// Package config holds the search service configuration, loaded from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/takezou621/sedori-platform-sub006/pkg/config"
	"github.com/takezou621/sedori-platform-sub006/pkg/database"
	"github.com/takezou621/sedori-platform-sub006/pkg/validator"
)

// Engine backends.
const (
	EngineMemory        = "memory"
	EngineElasticsearch = "elasticsearch"
)

// Config is the full service configuration.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"search-service"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8084" validate:"min=1,max=65535"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	Engine           string `env:"SEARCH_ENGINE" envDefault:"elasticsearch" validate:"oneof=memory elasticsearch"`
	ElasticsearchURL string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	IndexAlias       string `env:"SEARCH_INDEX_ALIAS" envDefault:"sedori_products"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"sedori"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"sedori_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"sedori"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"search-service"`

	Workers              int           `env:"INDEX_WORKERS" envDefault:"4" validate:"min=1,max=64"`
	QueueSize            int           `env:"INDEX_QUEUE_SIZE" envDefault:"256" validate:"min=1"`
	JobTimeout           time.Duration `env:"INDEX_JOB_TIMEOUT" envDefault:"15s"`
	BulkFailureThreshold float64       `env:"INDEX_BULK_FAILURE_THRESHOLD" envDefault:"0.1" validate:"gte=0,lte=1"`
	CategoryTTL          time.Duration `env:"CATEGORY_CACHE_TTL" envDefault:"10m"`
	ReindexCron          string        `env:"REINDEX_CRON" envDefault:""`
	ShutdownGrace        time.Duration `env:"SHUTDOWN_GRACE" envDefault:"15s"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if err := validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
