// Package config loads the service configuration.
//
// Precedence (highest to lowest):
//  1. HH_* environment variables (also read from .env when present)
//  2. the optional YAML file passed to Load
//  3. built-in defaults
//
// Environment keys split on the first underscore after the prefix:
//
//	HH_DB_PATH        -> db.path
//	HH_HTTP_HOST_PORT -> http.host_port
//	HH_REDIS_TTL      -> redis.ttl
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"gorm.io/gorm"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/db"
)

const (
	DBTypeFile   = "file"
	DBTypeMemory = "memory"
)

const defaults = `
db:
  type: file
  path: records.db
http:
  host_port: ":1080"
grpc:
  host_port: ""
limiter:
  rate: 10
  burst: 20
redis:
  addr: ""
  password: ""
  db: 0
  ttl: 5m
mqtt:
  broker: ""
  client_id: household-energy-service
  topic: households/+/readings
`

type Config struct {
	DB      DBConfig      `koanf:"db"`
	HTTP    HTTPConfig    `koanf:"http"`
	GRPC    GRPCConfig    `koanf:"grpc"`
	Limiter LimiterConfig `koanf:"limiter"`
	Redis   RedisConfig   `koanf:"redis"`
	MQTT    MQTTConfig    `koanf:"mqtt"`
}

type DBConfig struct {
	Type string `koanf:"type"`
	Path string `koanf:"path"`
}

type HTTPConfig struct {
	HostPort string `koanf:"host_port"`
}

// GRPCConfig leaves the gRPC server off when HostPort is empty.
type GRPCConfig struct {
	HostPort string `koanf:"host_port"`
}

type LimiterConfig struct {
	Rate  float64 `koanf:"rate"`
	Burst int     `koanf:"burst"`
}

// RedisConfig leaves the aggregation cache off when Addr is empty.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// MQTTConfig leaves the reading subscriber off when Broker is empty.
type MQTTConfig struct {
	Broker   string `koanf:"broker"`
	ClientID string `koanf:"client_id"`
	Topic    string `koanf:"topic"`
}

// Load reads .env (if any), then the YAML file at path (if path is not
// empty), then HH_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(common.EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps HH_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, common.EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

func (c *Config) Validate() error {
	switch c.DB.Type {
	case DBTypeFile, DBTypeMemory:
	default:
		return fmt.Errorf("unknown db.type %q, expected %q or %q", c.DB.Type, DBTypeFile, DBTypeMemory)
	}

	if strings.TrimSpace(c.HTTP.HostPort) == "" {
		return errors.New("http.host_port cannot be empty")
	}

	if c.Limiter.Rate < 0 {
		return fmt.Errorf("limiter.rate must not be negative, got %v", c.Limiter.Rate)
	}
	if c.Limiter.Rate > 0 && c.Limiter.Burst <= 0 {
		return fmt.Errorf("limiter.burst must be positive when limiter.rate is set, got %d", c.Limiter.Burst)
	}

	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative, got %v", c.Redis.TTL)
	}

	if c.MQTT.Broker != "" && strings.TrimSpace(c.MQTT.Topic) == "" {
		return errors.New("mqtt.topic cannot be empty when mqtt.broker is set")
	}

	return nil
}

// Dialector picks the storage dialector for db.type.
func (c *Config) Dialector() gorm.Dialector {
	if c.DB.Type == DBTypeMemory {
		return db.UseMemorySqliteDialector()
	}
	return db.UseSqliteDialector(c.DB.Path)
}
