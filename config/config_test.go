package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `{
	"client_version": 3,
	"server_version": 1,
	"jwt": "file-secret",
	"bot_token": "file-token",
	"database": [
		{"type": "development", "data": {"username": "dev", "password": "devpw", "db_dns": "localhost:5432/monitor_dev"}},
		{"type": "production", "data": {"username": "prod", "password": "prodpw", "db_dns": "db:5432/monitor"}}
	]
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndSelectLaunchType(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ClientVersion != 3 || cfg.JWT != "file-secret" {
		t.Errorf("config = %+v", cfg)
	}

	entry, err := cfg.DatabaseFor("production")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Data.Username != "prod" || entry.Data.DBDNS != "db:5432/monitor" {
		t.Errorf("entry = %+v", entry)
	}

	if _, err := cfg.DatabaseFor("staging"); err == nil {
		t.Error("unknown launch type should fail")
	}
}

func TestLoadRequiresClientVersion(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"database": []}`)); err == nil {
		t.Error("missing client_version should fail")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MONITOR_JWT_SECRET", "env-secret")
	t.Setenv("MONITOR_BOT_TOKEN", "env-token")
	t.Setenv("MONITOR_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.JWT != "env-secret" {
		t.Errorf("jwt = %q", cfg.JWT)
	}
	if cfg.BotToken != "env-token" {
		t.Errorf("bot token = %q", cfg.BotToken)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}
