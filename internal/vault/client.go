// Package vault reads the deployment secrets from HashiCorp Vault when
// the config file should not carry them.
package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"

	"binance-monitor/config"
)

// Secrets are the values the monitor can source from Vault. Empty
// fields keep their config-file values.
type Secrets struct {
	JWT        string
	BotToken   string
	DBPassword string
}

// Client wraps the HashiCorp Vault client.
type Client struct {
	client *api.Client
	cfg    config.VaultConfig
}

// NewClient connects to Vault. Disabled config returns a nil client,
// which loads nothing.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, cfg: cfg}, nil
}

// Load reads the secret blob from the configured KV v2 path.
func (c *Client) Load(ctx context.Context) (Secrets, error) {
	if c == nil {
		return Secrets{}, nil
	}

	path := fmt.Sprintf("%s/data/%s", c.cfg.MountPath, c.cfg.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return Secrets{}, fmt.Errorf("read secrets from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return Secrets{}, fmt.Errorf("no secret at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return Secrets{}, fmt.Errorf("invalid secret format at %s", path)
	}

	return Secrets{
		JWT:        getString(data, "jwt"),
		BotToken:   getString(data, "bot_token"),
		DBPassword: getString(data, "db_password"),
	}, nil
}

// Apply overlays loaded secrets onto the config.
func (s Secrets) Apply(cfg *config.Config, db *config.DatabaseEntry) {
	if s.JWT != "" {
		cfg.JWT = s.JWT
	}
	if s.BotToken != "" {
		cfg.BotToken = s.BotToken
	}
	if s.DBPassword != "" {
		db.Data.Password = s.DBPassword
	}
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
