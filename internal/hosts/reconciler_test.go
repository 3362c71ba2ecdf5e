package hosts

import (
	"testing"

	"github.com/rs/zerolog"

	"binance-monitor/internal/pipeline"
)

func acct(alias, group string) Account {
	return Account{Alias: alias, APIKey: alias + "-key", SecretKey: alias + "-secret", TelegramGroup: group}
}

func drain(q *pipeline.Queue[Event]) []Event {
	var out []Event
	for q.Len() > 0 {
		out = append(out, q.Get())
	}
	return out
}

func TestReconcileNewAccount(t *testing.T) {
	q := pipeline.NewQueue[Event]()
	r := NewReconciler(nil, q, nil, zerolog.Nop())

	r.reconcile([]Account{acct("alpha", "g1")})

	events := drain(q)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Change != ChangeNone || events[0].Account.Alias != "alpha" {
		t.Errorf("event = %+v", events[0])
	}

	// same view again: silence
	r.reconcile([]Account{acct("alpha", "g1")})
	if q.Len() != 0 {
		t.Errorf("unchanged view emitted %d events", q.Len())
	}
}

func TestReconcileTelegramChange(t *testing.T) {
	q := pipeline.NewQueue[Event]()
	r := NewReconciler(nil, q, []Account{acct("alpha", "g1")}, zerolog.Nop())

	r.reconcile([]Account{acct("alpha", "g2")})

	events := drain(q)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Change != ChangeTelegram || events[0].Account.TelegramGroup != "g2" {
		t.Errorf("event = %+v", events[0])
	}

	// the cache took the new group: repeating the view is silent
	r.reconcile([]Account{acct("alpha", "g2")})
	if q.Len() != 0 {
		t.Errorf("cache not updated, %d extra events", q.Len())
	}
}

func TestReconcileRemoval(t *testing.T) {
	q := pipeline.NewQueue[Event]()
	seed := []Account{acct("alpha", "g1"), acct("beta", "g1")}
	r := NewReconciler(nil, q, seed, zerolog.Nop())

	r.reconcile([]Account{acct("beta", "g1")})

	events := drain(q)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Change != ChangeRemoved || events[0].Account.Alias != "alpha" {
		t.Errorf("event = %+v", events[0])
	}

	// removed account coming back is a new discovery
	r.reconcile(seed)
	events = drain(q)
	if len(events) != 1 || events[0].Change != ChangeNone {
		t.Errorf("re-added account: %+v", events)
	}
}

func TestReconcileKeyRotationIsRemoveAndAdd(t *testing.T) {
	q := pipeline.NewQueue[Event]()
	r := NewReconciler(nil, q, []Account{acct("alpha", "g1")}, zerolog.Nop())

	rotated := acct("alpha", "g1")
	rotated.APIKey = "fresh-key"
	r.reconcile([]Account{rotated})

	events := drain(q)
	if len(events) != 2 {
		t.Fatalf("got %d events, want add+remove", len(events))
	}
	if events[0].Change != ChangeNone {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Change != ChangeRemoved {
		t.Errorf("second event = %+v", events[1])
	}
}

func TestSeededAccountsNotReannounced(t *testing.T) {
	q := pipeline.NewQueue[Event]()
	seed := []Account{acct("alpha", "g1")}
	r := NewReconciler(nil, q, seed, zerolog.Nop())

	r.reconcile(seed)
	if q.Len() != 0 {
		t.Errorf("seeded account re-announced")
	}
}
