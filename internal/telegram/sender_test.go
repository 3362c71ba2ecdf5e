package telegram

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newBotServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
}

func TestSenderTryAdd(t *testing.T) {
	s := newSender("tok", "http://invalid", Payload{ChatID: 1, Text: "x"}, zerolog.Nop())

	for i := 1; i < senderQueueLimit; i++ {
		if !s.tryAdd(Payload{ChatID: 1, Text: "x"}) {
			t.Fatalf("sender refused payload %d below the limit", i)
		}
	}
	if s.tryAdd(Payload{ChatID: 1, Text: "x"}) {
		t.Error("full sender should refuse payloads")
	}

	s.mu.Lock()
	s.queue = nil
	s.completed = true
	s.mu.Unlock()
	if s.tryAdd(Payload{ChatID: 1, Text: "x"}) {
		t.Error("completed sender should refuse payloads")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) != 0 {
		t.Errorf("refused payload was enqueued anyway, queue=%d", len(s.queue))
	}
}

func TestSenderDrainsQueueAndCompletes(t *testing.T) {
	var hits atomic.Int64
	srv := newBotServer(t, &hits)
	defer srv.Close()

	s := newSender("tok", srv.URL, Payload{ChatID: 1, Text: "a"}, zerolog.Nop())
	s.tryAdd(Payload{ChatID: 1, Text: "b"})
	s.tryAdd(Payload{ChatID: 1, Text: "c"})

	done := make(chan struct{})
	go func() { s.run(); close(done) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sender did not finish")
	}

	if got := hits.Load(); got != 3 {
		t.Errorf("delivered %d payloads, want 3", got)
	}
	if !s.isCompleted() {
		t.Error("drained sender should be completed")
	}
}

func TestSenderFailureCompletesAndDrops(t *testing.T) {
	s := newSender("tok", "http://127.0.0.1:0", Payload{ChatID: 1, Text: "a"}, zerolog.Nop())
	s.tryAdd(Payload{ChatID: 1, Text: "b"})

	s.run()

	if !s.isCompleted() {
		t.Error("failed sender should be completed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) != 0 {
		t.Errorf("queue not discarded, %d left", len(s.queue))
	}
}

func TestDispatcherReusesAvailableSender(t *testing.T) {
	d := NewDispatcher("tok", zerolog.Nop())
	d.baseURL = "http://invalid"

	// plant an idle sender with room; Dispatch must not grow the pool
	idle := newSender("tok", d.baseURL, Payload{ChatID: 1, Text: "x"}, zerolog.Nop())
	d.senders = append(d.senders, idle)

	d.Dispatch(Payload{ChatID: 1, Text: "y"})

	if d.PoolSize() != 1 {
		t.Errorf("pool size = %d", d.PoolSize())
	}
	idle.mu.Lock()
	defer idle.mu.Unlock()
	if len(idle.queue) != 2 {
		t.Errorf("payload not queued on existing sender, queue=%d", len(idle.queue))
	}
}

func TestDispatcherGrowsWhenAllBusy(t *testing.T) {
	var hits atomic.Int64
	srv := newBotServer(t, &hits)
	defer srv.Close()

	d := NewDispatcher("tok", zerolog.Nop())
	d.baseURL = srv.URL

	full := newSender("tok", srv.URL, Payload{ChatID: 1, Text: "x"}, zerolog.Nop())
	for full.tryAdd(Payload{ChatID: 1, Text: "x"}) {
	}
	d.senders = append(d.senders, full)

	d.Dispatch(Payload{ChatID: 1, Text: "y"})

	if d.PoolSize() != 2 {
		t.Errorf("pool size = %d, want 2", d.PoolSize())
	}
}

func TestDispatcherEvictsCompletedPastKeepSize(t *testing.T) {
	d := NewDispatcher("tok", zerolog.Nop())
	d.baseURL = "http://invalid"

	// four completed senders: over the keep size, all evictable
	for i := 0; i < poolKeepSize+1; i++ {
		s := newSender("tok", d.baseURL, Payload{}, zerolog.Nop())
		s.mu.Lock()
		s.completed = true
		s.mu.Unlock()
		d.senders = append(d.senders, s)
	}

	d.Dispatch(Payload{ChatID: 1, Text: "y"})

	// completed senders evicted, one fresh sender added
	if d.PoolSize() != 1 {
		t.Errorf("pool size = %d, want 1", d.PoolSize())
	}
}

func TestDispatchNeverStrandsPayloadOnCompletedSender(t *testing.T) {
	var hits atomic.Int64
	srv := newBotServer(t, &hits)
	defer srv.Close()

	d := NewDispatcher("tok", zerolog.Nop())
	d.baseURL = srv.URL

	// a sender whose run loop has already finished: it must reject the
	// payload so Dispatch starts a fresh sender that delivers it
	done := newSender("tok", srv.URL, Payload{}, zerolog.Nop())
	done.mu.Lock()
	done.queue = nil
	done.completed = true
	done.mu.Unlock()
	d.senders = append(d.senders, done)

	d.Dispatch(Payload{ChatID: 1, Text: "y"})

	if d.PoolSize() != 2 {
		t.Errorf("pool size = %d, want 2", d.PoolSize())
	}
	done.mu.Lock()
	stranded := len(done.queue)
	done.mu.Unlock()
	if stranded != 0 {
		t.Errorf("%d payloads stranded on the completed sender", stranded)
	}

	deadline := time.Now().Add(5 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hits.Load() != 1 {
		t.Errorf("delivered %d payloads, want 1", hits.Load())
	}
}
