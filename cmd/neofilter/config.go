package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/learningeconomy/neofilter/driver"
)

// Config holds the CLI's connection settings, loaded from YAML.
//
//	neo4j:
//	  uri: neo4j://localhost:7687
//	  username: neo4j
//	  password: secret
//	redis:
//	  addr: localhost:6379
//	  ttl: 30s
//	log_level: debug
type Config struct {
	Neo4j    driver.Config `yaml:"neo4j"`
	Redis    RedisConfig   `yaml:"redis"`
	LogLevel string        `yaml:"log_level"`
}

// RedisConfig enables the count/search cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Neo4j:    driver.Config{URI: "neo4j://localhost:7687", Username: "neo4j"},
		Redis:    RedisConfig{TTL: driver.DefaultCacheTTL, Prefix: "neofilter:"},
		LogLevel: "info",
	}
}

// LoadConfig reads path over the defaults. An empty path means defaults
// only. NEO4J_PASSWORD, when set, overrides the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if pw := os.Getenv("NEO4J_PASSWORD"); pw != "" {
		cfg.Neo4j.Password = pw
	}
	return cfg, nil
}

// Level maps log_level onto slog; unknown values fall back to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
