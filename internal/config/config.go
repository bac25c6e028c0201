package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQ struct {
	URL string `yaml:"url"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWT struct {
	Secret string `yaml:"secret"`
}

type Server struct {
	Port string `yaml:"port"`
}

// Gateway holds the per-gateway payment secrets.
type Gateway struct {
	Name   string `yaml:"name"` // vnpay or momo
	Secret string `yaml:"secret"`
}

// Sweep controls the escalation sweep schedule.
type Sweep struct {
	// Hour of day (0-23, server local time) the sweep runs at.
	Hour int `yaml:"hour"`
	// RunOnStartup triggers one sweep immediately when the sweeper boots.
	RunOnStartup bool `yaml:"run_on_startup"`
	// Port of the sweeper's health endpoint, distinct from the API
	// server's so the two binaries can share a host.
	Port string `yaml:"port"`
}

type Config struct {
	Server   Server    `yaml:"server"`
	DB       DB        `yaml:"db"`
	MQ       MQ        `yaml:"mq"`
	Redis    Redis     `yaml:"redis"`
	JWT      JWT       `yaml:"jwt"`
	Gateways []Gateway `yaml:"gateways"`
	Sweep    Sweep     `yaml:"sweep"`
}

// Load reads config/base.yaml (or the file named by CONFIG_FILE) and then
// applies environment-variable overrides.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = filepath.Join("config", "base.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.DB.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.DB.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.DB.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DB.Name = v
	}
	if v := os.Getenv("MQ_URL"); v != "" {
		cfg.MQ.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("SWEEP_PORT"); v != "" {
		cfg.Sweep.Port = v
	}
	for i := range cfg.Gateways {
		key := "GATEWAY_SECRET_" + strings.ToUpper(cfg.Gateways[i].Name)
		if v := os.Getenv(key); v != "" {
			cfg.Gateways[i].Secret = v
		}
	}
}
