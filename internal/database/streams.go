package database

import (
	"context"
	"fmt"

	"binance-monitor/internal/binance"
)

// StreamTables is the pair of per-account tables stream events land in.
type StreamTables struct {
	Orders  string
	Balance string
}

// CreateStreamTables creates the order and balance tables for an
// account alias and returns their names. Existing tables are reused.
func (r *Repository) CreateStreamTables(ctx context.Context, alias string) (StreamTables, error) {
	tables := StreamTables{
		Orders:  TableNameFor(alias, "_orders"),
		Balance: TableNameFor(alias, "_balance"),
	}

	ordersDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		instrument_id              TEXT,
		order_side                 TEXT,
		order_type                 TEXT,
		time_in_force              TEXT,
		quantity_purchased         TEXT,
		order_price                TEXT,
		stop_price                 TEXT,
		execution_type             TEXT,
		order_status               TEXT,
		reject_reason              TEXT,
		order_id                   TEXT,
		last_filled_quantity       TEXT,
		cummulative_filled_quantity TEXT,
		last_executed_price        TEXT,
		commission_amount          TEXT,
		commission_asset           TEXT,
		trade_id                   TEXT,
		event_time                 TIMESTAMP,
		transaction_time           TIMESTAMP,
		created_time               TIMESTAMP
	)`, tables.Orders)

	balanceDDL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		instrument_id TEXT,
		balance       TEXT,
		event_time    TIMESTAMP,
		clear_time    TIMESTAMP
	)`, tables.Balance)

	if _, err := r.db.Pool.Exec(ctx, ordersDDL); err != nil {
		return tables, fmt.Errorf("create %s: %w", tables.Orders, err)
	}
	if _, err := r.db.Pool.Exec(ctx, balanceDDL); err != nil {
		return tables, fmt.Errorf("create %s: %w", tables.Balance, err)
	}
	return tables, nil
}

// InsertOrderEvent appends one decoded execution report.
func (r *Repository) InsertOrderEvent(ctx context.Context, table string, ev binance.OrderEvent) error {
	query := fmt.Sprintf(`INSERT INTO %s (
		instrument_id, order_side, order_type, time_in_force,
		quantity_purchased, order_price, stop_price, execution_type,
		order_status, reject_reason, order_id, last_filled_quantity,
		cummulative_filled_quantity, last_executed_price,
		commission_amount, commission_asset, trade_id,
		event_time, transaction_time, created_time
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`, table)

	_, err := r.db.Pool.Exec(ctx, query,
		ev.Instrument, ev.Side, ev.OrderType, ev.TimeInForce,
		ev.Quantity, ev.Price, ev.StopPrice, ev.ExecutionType,
		ev.Status, ev.RejectReason, ev.OrderID, ev.LastFilledQuantity,
		ev.CumulativeFilledQuantity, ev.LastExecutedPrice,
		ev.CommissionAmount, ev.CommissionAsset, ev.TradeID,
		ev.EventTime, ev.TransactionTime, ev.CreatedTime)
	if err != nil {
		return fmt.Errorf("insert order event into %s: %w", table, err)
	}
	return nil
}

// InsertBalanceEvent appends one decoded balance update.
func (r *Repository) InsertBalanceEvent(ctx context.Context, table string, ev binance.BalanceEvent) error {
	query := fmt.Sprintf(`INSERT INTO %s (instrument_id, balance, event_time, clear_time)
		VALUES ($1, $2, $3, $4)`, table)

	_, err := r.db.Pool.Exec(ctx, query, ev.Instrument, ev.Balance, ev.EventTime, ev.ClearTime)
	if err != nil {
		return fmt.Errorf("insert balance event into %s: %w", table, err)
	}
	return nil
}
