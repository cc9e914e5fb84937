package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the process bootstrap configuration. The proxy's business
// configuration lives in the database and is managed over the API; this file
// only wires the process itself.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		// Driver is "sqlite" or "postgres".
		Driver string `yaml:"driver"`
		// DSN is the sqlite path or the postgres connection string.
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Pool struct {
		Endpoint string        `yaml:"endpoint"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"pool"`
	Callback struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"callback"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("POOL_ENDPOINT"); v != "" {
		cfg.Pool.Endpoint = v
	}
	if v := os.Getenv("CALLBACK_JWT_SECRET"); v != "" {
		cfg.Callback.JWTSecret = v
	}

	// Defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "data/amm_proxy.db"
	}
	if cfg.Pool.Timeout == 0 {
		cfg.Pool.Timeout = 10 * time.Second
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver must be sqlite or postgres")
	}
	if c.Pool.Endpoint == "" {
		return fmt.Errorf("pool.endpoint is required")
	}
	if c.Callback.JWTSecret == "" {
		return fmt.Errorf("callback.jwt_secret is required")
	}
	return nil
}
