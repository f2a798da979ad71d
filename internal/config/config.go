package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"

	// DefaultJWTSecret is only fit for local single-process runs.
	DefaultJWTSecret = "change-me"
)

type Config struct {
	HTTPAddr      string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	LogLevel      string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Storage       string        `yaml:"storage" env:"STORAGE" env-default:"memory"`
	SessionTTL    time.Duration `yaml:"session-ttl" env:"SESSION_TTL" env-default:"24h"`
	ComputerDelay time.Duration `yaml:"computer-delay" env:"COMPUTER_DELAY" env-default:"300ms"`
	StaticDir     string        `yaml:"static-dir" env:"STATIC_DIR"`
	Redis         Redis         `yaml:"redis"`
	Auth          Auth          `yaml:"auth"`
	Telemetry     Telemetry     `yaml:"telemetry"`
}

type Redis struct {
	ConnString string `yaml:"conn-string" env:"REDIS_CONNSTRING" env-default:"localhost:6379"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt-secret" env:"JWT_SECRET" env-default:"change-me"`
	TokenTTL  time.Duration `yaml:"token-ttl" env:"TOKEN_TTL" env-default:"72h"`
}

type Telemetry struct {
	Enabled     bool   `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Collector   string `yaml:"collector" env:"OTEL_COLLECTOR" env-default:"otel-collector:4317"`
	ServiceName string `yaml:"service-name" env:"SERVICE_NAME" env-default:"tic-tac-toe"`
}

// Load reads the YAML file at path, if any, and applies environment
// overrides. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(cfg)
	} else {
		err = cleanenv.ReadConfig(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unknown storage %q, want %q or %q", c.Storage, StorageMemory, StorageRedis)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.ComputerDelay < 0 {
		return fmt.Errorf("computer delay must not be negative, got %s", c.ComputerDelay)
	}
	if c.Storage == StorageRedis && c.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set when storage is %q", StorageRedis)
	}
	return nil
}
