package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ChatStore persists resolved chat ids across restarts.
type ChatStore interface {
	LoadChats(ctx context.Context) (map[string]int64, error)
	SaveChat(ctx context.Context, name string, id int64) error
}

// Resolver maps Telegram group titles and usernames to chat ids. Misses
// trigger one getUpdates refresh; a name still unknown afterwards is
// unresolvable until it messages the bot again.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]int64

	token   string
	baseURL string
	client  *http.Client
	store   ChatStore
	log     zerolog.Logger
}

// NewResolver returns a resolver backed by store. A nil store keeps the
// cache memory-only.
func NewResolver(token string, store ChatStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		cache:   make(map[string]int64),
		token:   token,
		baseURL: defaultBotURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		store:   store,
		log:     logger.With().Str("component", "chat-resolver").Logger(),
	}
}

// Preload fills the cache from the store.
func (r *Resolver) Preload(ctx context.Context) {
	if r.store == nil {
		return
	}
	chats, err := r.store.LoadChats(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("chat cache preload failed")
		return
	}
	r.mu.Lock()
	for name, id := range chats {
		r.cache[name] = id
	}
	r.mu.Unlock()
	r.log.Info().Int("chats", len(chats)).Msg("chat cache preloaded")
}

// Resolve returns the chat id for a group title or username, refreshing
// from getUpdates once on a miss.
func (r *Resolver) Resolve(ctx context.Context, name string) (int64, bool) {
	r.mu.Lock()
	id, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		return id, true
	}

	if err := r.Refresh(ctx); err != nil {
		r.log.Error().Err(err).Msg("chat refresh failed")
	}

	r.mu.Lock()
	id, ok = r.cache[name]
	r.mu.Unlock()
	if !ok {
		r.log.Error().Msgf("Chat %q not found", name)
	}
	return id, ok
}

type updatesResponse struct {
	OK     bool `json:"ok"`
	Result []struct {
		Message struct {
			Chat struct {
				ID       int64  `json:"id"`
				Type     string `json:"type"`
				Title    string `json:"title"`
				Username string `json:"username"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"result"`
}

// Refresh pulls the bot's update backlog and caches every chat seen.
func (r *Resolver) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.baseURL+"/bot"+r.token+"/getUpdates", nil)
	if err != nil {
		return fmt.Errorf("build getUpdates request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("getUpdates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read getUpdates response: %w", err)
	}

	var updates updatesResponse
	if err := json.Unmarshal(body, &updates); err != nil {
		return fmt.Errorf("decode getUpdates response: %w", err)
	}
	if !updates.OK {
		return fmt.Errorf("bot server reported not ok")
	}

	for _, u := range updates.Result {
		chat := u.Message.Chat
		var name string
		switch chat.Type {
		case "group":
			name = chat.Title
		case "private":
			name = chat.Username
		default:
			continue
		}
		if name == "" {
			continue
		}

		r.mu.Lock()
		known := r.cache[name] == chat.ID
		r.cache[name] = chat.ID
		r.mu.Unlock()

		if !known && r.store != nil {
			if err := r.store.SaveChat(ctx, name, chat.ID); err != nil {
				r.log.Error().Err(err).Str("chat", name).Msg("chat persist failed")
			}
		}
	}
	return nil
}
