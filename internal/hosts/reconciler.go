package hosts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"binance-monitor/internal/pipeline"
)

const pollInterval = 10 * time.Second

// Store is the slice of the database the reconciler reads.
type Store interface {
	LoadHosts(ctx context.Context) ([]Account, error)
}

// Reconciler polls the hosts table and reports differences against its
// cached view as events. It owns the cache; nothing else mutates it.
type Reconciler struct {
	store    Store
	out      *pipeline.Queue[Event]
	interval time.Duration
	cache    []Account
	log      zerolog.Logger
}

// NewReconciler seeds the cache with the accounts already known at
// startup, so they are not re-announced on the first poll.
func NewReconciler(store Store, out *pipeline.Queue[Event], seed []Account, logger zerolog.Logger) *Reconciler {
	cache := make([]Account, len(seed))
	copy(cache, seed)
	return &Reconciler{
		store:    store,
		out:      out,
		interval: pollInterval,
		cache:    cache,
		log:      logger.With().Str("component", "host-reconciler").Logger(),
	}
}

// Run polls until the context is canceled. A failed read keeps the
// cached view and retries on the next tick.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fetched, err := r.store.LoadHosts(ctx)
			if err != nil {
				r.log.Error().Err(err).Msg("hosts poll failed")
				continue
			}
			r.reconcile(fetched)
		}
	}
}

// reconcile diffs the fetched rows against the cache and emits one
// event per difference.
func (r *Reconciler) reconcile(fetched []Account) {
	// new rows and label edits
	for _, row := range fetched {
		idx := r.find(row)
		if idx < 0 {
			r.cache = append(r.cache, row)
			r.log.Info().Str("alias", row.Alias).Msg("host added")
			r.out.Append(Event{Account: row, Change: ChangeNone})
			continue
		}
		if r.cache[idx].TelegramGroup != row.TelegramGroup {
			r.cache[idx].TelegramGroup = row.TelegramGroup
			r.log.Info().Str("alias", row.Alias).Msg("host telegram group changed")
			r.out.Append(Event{Account: row, Change: ChangeTelegram})
		}
	}

	// deleted rows
	kept := r.cache[:0]
	for _, cached := range r.cache {
		present := false
		for _, row := range fetched {
			if cached.SameIdentity(row) {
				present = true
				break
			}
		}
		if present {
			kept = append(kept, cached)
			continue
		}
		r.log.Info().Str("alias", cached.Alias).Msg("host removed")
		r.out.Append(Event{Account: cached, Change: ChangeRemoved})
	}
	r.cache = kept
}

func (r *Reconciler) find(row Account) int {
	for i, cached := range r.cache {
		if cached.SameIdentity(row) {
			return i
		}
	}
	return -1
}
