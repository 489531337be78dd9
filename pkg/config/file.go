package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of an optional config file. Every field is
// optional; set fields override what Load read from the environment.
type fileConfig struct {
	Port            string   `yaml:"port"`
	LogLevel        string   `yaml:"log_level"`
	DatabasePath    string   `yaml:"database_path"`
	DataDir         string   `yaml:"data_dir"`
	EngineURL       string   `yaml:"engine_url"`
	TokenSecret     string   `yaml:"token_secret"`
	CORSOrigins     []string `yaml:"cors_origins"`
	BlobStorageType string   `yaml:"blob_storage_type"`
	RedisURL        string   `yaml:"redis_url"`
}

// LoadFile loads configuration from the environment, then applies overrides
// from the YAML file at path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	apply(cfg, &fc)
	return cfg, nil
}

func apply(cfg *Config, fc *fileConfig) {
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.DataDir != "" {
		cfg.DataDir = fc.DataDir
	}
	if fc.EngineURL != "" {
		cfg.EngineURL = fc.EngineURL
	}
	if fc.TokenSecret != "" {
		cfg.TokenSecret = fc.TokenSecret
	}
	if len(fc.CORSOrigins) > 0 {
		origins := make([]string, 0, len(fc.CORSOrigins))
		for _, o := range fc.CORSOrigins {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSOrigins = origins
	}
	if fc.BlobStorageType != "" {
		cfg.BlobStorageType = fc.BlobStorageType
	}
	if fc.RedisURL != "" {
		cfg.RedisURL = fc.RedisURL
	}
}
