package database

import (
	"context"
	"fmt"

	"binance-monitor/internal/hosts"
)

// LoadHosts returns every monitored account row.
func (r *Repository) LoadHosts(ctx context.Context) ([]hosts.Account, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT alias, api_key, secret_key, tg_group FROM hosts`)
	if err != nil {
		return nil, fmt.Errorf("query hosts: %w", err)
	}
	defer rows.Close()

	var accounts []hosts.Account
	for rows.Next() {
		var a hosts.Account
		if err := rows.Scan(&a.Alias, &a.APIKey, &a.SecretKey, &a.TelegramGroup); err != nil {
			return nil, fmt.Errorf("scan host row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// InsertHost adds one account row. A duplicate API key fails the
// insert.
func (r *Repository) InsertHost(ctx context.Context, a hosts.Account) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO hosts (alias, api_key, secret_key, tg_group) VALUES ($1, $2, $3, $4)`,
		a.Alias, a.APIKey, a.SecretKey, a.TelegramGroup)
	if err != nil {
		return fmt.Errorf("insert host %q: %w", a.Alias, err)
	}
	return nil
}
