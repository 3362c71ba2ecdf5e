package database

import (
	"context"
	"fmt"
)

// LoadChats returns the persisted Telegram chat-name to chat-id map.
func (r *Repository) LoadChats(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT chat_name, chat_id FROM tg_chats`)
	if err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}
	defer rows.Close()

	chats := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		chats[name] = id
	}
	return chats, rows.Err()
}

// SaveChat upserts one chat-name binding.
func (r *Repository) SaveChat(ctx context.Context, name string, id int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO tg_chats (chat_name, chat_id) VALUES ($1, $2)
		 ON CONFLICT (chat_name) DO UPDATE SET chat_id = EXCLUDED.chat_id`,
		name, id)
	if err != nil {
		return fmt.Errorf("save chat %q: %w", name, err)
	}
	return nil
}
