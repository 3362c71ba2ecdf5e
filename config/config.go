// Package config loads the JSON configuration file and applies
// environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// DatabaseEntry is one launch-type keyed database credential block.
type DatabaseEntry struct {
	Type string `json:"type"`
	Data struct {
		Username string `json:"username"`
		Password string `json:"password"`
		// DBDNS is the host[:port]/dbname part of the connection URL.
		DBDNS string `json:"db_dns"`
	} `json:"data"`
}

// VaultConfig selects the optional HashiCorp Vault secret source.
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

// RedisConfig selects the optional Redis bearer-token cache.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Config is the full configuration file.
type Config struct {
	Database      []DatabaseEntry `json:"database"`
	ClientVersion int             `json:"client_version"`
	ServerVersion int             `json:"server_version"`
	JWT           string          `json:"jwt"`
	BotToken      string          `json:"bot_token"`
	Vault         VaultConfig     `json:"vault"`
	Redis         RedisConfig     `json:"redis"`
	LogLevel      string          `json:"log_level"`
	LogPretty     bool            `json:"log_pretty"`
}

// Load reads the file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{LogLevel: "info"}

	if err := cfg.loadFromFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if cfg.ClientVersion == 0 {
		return nil, fmt.Errorf("config %s: client_version is required", path)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.JWT = getEnvOrDefault("MONITOR_JWT_SECRET", c.JWT)
	c.BotToken = getEnvOrDefault("MONITOR_BOT_TOKEN", c.BotToken)
	c.LogLevel = getEnvOrDefault("MONITOR_LOG_LEVEL", c.LogLevel)
	c.LogPretty = getEnvBoolOrDefault("MONITOR_LOG_PRETTY", c.LogPretty)

	c.Vault.Address = getEnvOrDefault("VAULT_ADDR", c.Vault.Address)
	c.Vault.Token = getEnvOrDefault("VAULT_TOKEN", c.Vault.Token)

	c.Redis.Address = getEnvOrDefault("MONITOR_REDIS_ADDR", c.Redis.Address)
	c.Redis.Password = getEnvOrDefault("MONITOR_REDIS_PASSWORD", c.Redis.Password)
}

// DatabaseFor picks the credential block whose type matches the launch
// type given on the command line.
func (c *Config) DatabaseFor(launchType string) (DatabaseEntry, error) {
	for _, entry := range c.Database {
		if entry.Type == launchType {
			return entry, nil
		}
	}
	return DatabaseEntry{}, fmt.Errorf("no database entry for launch type %q", launchType)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBoolOrDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
