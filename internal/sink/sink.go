// Package sink consumes the stream-event queue: every event is first
// offered to Telegram and then persisted into the owning account's
// tables.
package sink

import (
	"context"

	"github.com/rs/zerolog"

	"binance-monitor/internal/binance"
	"binance-monitor/internal/database"
	"binance-monitor/internal/pipeline"
	"binance-monitor/internal/telegram"
)

// Notifier delivers one formatted message to a Telegram group.
type Notifier interface {
	Notify(ctx context.Context, group, text string)
}

// Store is the persistence surface the consumer writes through.
type Store interface {
	CreateStreamTables(ctx context.Context, alias string) (database.StreamTables, error)
	InsertOrderEvent(ctx context.Context, table string, ev binance.OrderEvent) error
	InsertBalanceEvent(ctx context.Context, table string, ev binance.BalanceEvent) error
}

// Consumer drains the event queue on a single goroutine. Notification
// always precedes persistence, and a failure in either never stops the
// drain.
type Consumer struct {
	queue    *pipeline.Queue[binance.StreamEvent]
	notifier Notifier
	store    Store
	tables   map[string]database.StreamTables
	log      zerolog.Logger
}

// NewConsumer returns a consumer over the given queue.
func NewConsumer(queue *pipeline.Queue[binance.StreamEvent], notifier Notifier, store Store, logger zerolog.Logger) *Consumer {
	return &Consumer{
		queue:    queue,
		notifier: notifier,
		store:    store,
		tables:   make(map[string]database.StreamTables),
		log:      logger.With().Str("component", "event-sink").Logger(),
	}
}

// Run consumes forever. Intended for its own goroutine.
func (c *Consumer) Run(ctx context.Context) {
	for {
		c.process(ctx, c.queue.Get())
	}
}

func (c *Consumer) process(ctx context.Context, ev binance.StreamEvent) {
	if text := telegram.FormatEvent(ev); text != "" {
		c.notifier.Notify(ctx, ev.Group(), text)
	}
	c.persist(ctx, ev)
}

func (c *Consumer) persist(ctx context.Context, ev binance.StreamEvent) {
	tables, ok := c.tables[ev.Alias()]
	if !ok {
		created, err := c.store.CreateStreamTables(ctx, ev.Alias())
		if err != nil {
			c.log.Error().Err(err).Str("alias", ev.Alias()).Msg("stream table creation failed")
			return
		}
		tables = created
		c.tables[ev.Alias()] = tables
	}

	switch e := ev.(type) {
	case binance.OrderEvent:
		if err := c.store.InsertOrderEvent(ctx, tables.Orders, e); err != nil {
			c.log.Error().Err(err).Str("alias", ev.Alias()).Msg("order event insert failed")
		}
	case binance.BalanceEvent:
		if err := c.store.InsertBalanceEvent(ctx, tables.Balance, e); err != nil {
			c.log.Error().Err(err).Str("alias", ev.Alias()).Msg("balance event insert failed")
		}
	case binance.AccountPositionEvent:
		// notified but kept out of SQL until a position table exists
	}
}
