package sink

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"binance-monitor/internal/binance"
	"binance-monitor/internal/database"
	"binance-monitor/internal/pipeline"
)

type step struct {
	kind  string // notify, create, order, balance
	value string
}

type recordingBackend struct {
	steps     []step
	createErr error
	insertErr error
}

func (r *recordingBackend) Notify(_ context.Context, group, text string) {
	r.steps = append(r.steps, step{"notify", group + "|" + text})
}

func (r *recordingBackend) CreateStreamTables(_ context.Context, alias string) (database.StreamTables, error) {
	if r.createErr != nil {
		return database.StreamTables{}, r.createErr
	}
	r.steps = append(r.steps, step{"create", alias})
	return database.StreamTables{
		Orders:  database.TableNameFor(alias, "_orders"),
		Balance: database.TableNameFor(alias, "_balance"),
	}, nil
}

func (r *recordingBackend) InsertOrderEvent(_ context.Context, table string, ev binance.OrderEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.steps = append(r.steps, step{"order", table + "|" + ev.OrderID})
	return nil
}

func (r *recordingBackend) InsertBalanceEvent(_ context.Context, table string, ev binance.BalanceEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.steps = append(r.steps, step{"balance", table + "|" + ev.Instrument})
	return nil
}

func label(alias string) binance.AccountLabel {
	return binance.AccountLabel{ForAlias: alias, TelegramGroup: alias + "-group"}
}

func newTestConsumer(backend *recordingBackend) *Consumer {
	return NewConsumer(pipeline.NewQueue[binance.StreamEvent](), backend, backend, zerolog.Nop())
}

func TestNotifyPrecedesPersist(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestConsumer(backend)

	c.process(context.Background(), binance.OrderEvent{AccountLabel: label("main"), OrderID: "77"})

	if len(backend.steps) != 3 {
		t.Fatalf("steps = %+v", backend.steps)
	}
	if backend.steps[0].kind != "notify" {
		t.Errorf("first step = %+v, want notify", backend.steps[0])
	}
	if backend.steps[1].kind != "create" || backend.steps[1].value != "main" {
		t.Errorf("second step = %+v", backend.steps[1])
	}
	if backend.steps[2].kind != "order" || !strings.HasPrefix(backend.steps[2].value, "main_orders|") {
		t.Errorf("third step = %+v", backend.steps[2])
	}
}

func TestTablesCreatedOncePerAlias(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestConsumer(backend)

	ctx := context.Background()
	c.process(ctx, binance.BalanceEvent{AccountLabel: label("main"), Instrument: "BTC"})
	c.process(ctx, binance.BalanceEvent{AccountLabel: label("main"), Instrument: "ETH"})
	c.process(ctx, binance.BalanceEvent{AccountLabel: label("other"), Instrument: "BTC"})

	creates := 0
	for _, s := range backend.steps {
		if s.kind == "create" {
			creates++
		}
	}
	if creates != 2 {
		t.Errorf("creates = %d, want one per alias", creates)
	}
}

func TestAccountPositionNotifiedNotPersisted(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestConsumer(backend)

	c.process(context.Background(), binance.AccountPositionEvent{
		AccountLabel: label("main"), Instrument: "ETH", Free: "1", Locked: "0",
	})

	var notified, inserted bool
	for _, s := range backend.steps {
		switch s.kind {
		case "notify":
			notified = true
		case "order", "balance":
			inserted = true
		}
	}
	if !notified {
		t.Error("account position should reach Telegram")
	}
	if inserted {
		t.Error("account position must not be inserted")
	}
}

func TestTableCreationFailureStillNotifies(t *testing.T) {
	backend := &recordingBackend{createErr: errors.New("db down")}
	c := newTestConsumer(backend)

	c.process(context.Background(), binance.OrderEvent{AccountLabel: label("main"), OrderID: "1"})

	if len(backend.steps) != 1 || backend.steps[0].kind != "notify" {
		t.Errorf("steps = %+v", backend.steps)
	}
	if _, cached := c.tables["main"]; cached {
		t.Error("failed table creation must not be cached")
	}
}

func TestInsertFailureDoesNotStopConsumer(t *testing.T) {
	backend := &recordingBackend{insertErr: errors.New("bad row")}
	c := newTestConsumer(backend)

	ctx := context.Background()
	c.process(ctx, binance.OrderEvent{AccountLabel: label("main"), OrderID: "1"})

	backend.insertErr = nil
	c.process(ctx, binance.OrderEvent{AccountLabel: label("main"), OrderID: "2"})

	found := false
	for _, s := range backend.steps {
		if s.kind == "order" && strings.HasSuffix(s.value, "|2") {
			found = true
		}
	}
	if !found {
		t.Error("later events must persist after a failed insert")
	}
}
