package telegram

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBotURL = "https://api.telegram.org"

	// a sender stops accepting new payloads once this many are queued
	senderQueueLimit = 10
	// idle completed senders are evicted once the pool exceeds this
	poolKeepSize = 3
)

// Payload is one message bound for one chat.
type Payload struct {
	ChatID int64
	Text   string
}

// Sender drains its payload queue over one HTTP session and then marks
// itself completed. A network failure completes it immediately; queued
// payloads left behind are dropped with a log line.
type Sender struct {
	mu        sync.Mutex
	queue     []Payload
	completed bool

	token   string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func newSender(token, baseURL string, payload Payload, logger zerolog.Logger) *Sender {
	return &Sender{
		queue:   []Payload{payload},
		token:   token,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logger,
	}
}

// tryAdd enqueues the payload unless the sender has completed or its
// queue is full. The check and the enqueue share one critical section,
// so a payload can never land on a sender whose run loop already ended.
func (s *Sender) tryAdd(p Payload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || len(s.queue) >= senderQueueLimit {
		return false
	}
	s.queue = append(s.queue, p)
	return true
}

func (s *Sender) isCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// run delivers payloads until the queue drains or a delivery fails.
func (s *Sender) run() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.completed = true
			s.mu.Unlock()
			return
		}
		p := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if err := s.deliver(p); err != nil {
			s.log.Error().Err(err).Msg("telegram delivery failed")
			s.mu.Lock()
			s.completed = true
			dropped := len(s.queue)
			s.queue = nil
			s.mu.Unlock()
			if dropped > 0 {
				s.log.Error().Int("dropped", dropped).Msg("undelivered payloads discarded")
			}
			return
		}
	}
}

func (s *Sender) deliver(p Payload) error {
	target := s.baseURL + "/bot" + s.token +
		"/sendMessage?chat_id=" + strconv.FormatInt(p.ChatID, 10) +
		"&text=" + p.Text

	req, err := http.NewRequest(http.MethodPost, target, nil)
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Dispatcher routes payloads onto a growing-and-shrinking pool of
// senders.
type Dispatcher struct {
	mu      sync.Mutex
	senders []*Sender

	token   string
	baseURL string
	log     zerolog.Logger
}

// NewDispatcher returns an empty pool for the given bot token.
func NewDispatcher(token string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		token:   token,
		baseURL: defaultBotURL,
		log:     logger.With().Str("component", "telegram-sender").Logger(),
	}
}

// Dispatch hands the payload to the first sender with spare capacity.
// With none available the pool is compacted past its keep size and a
// fresh sender started.
func (d *Dispatcher) Dispatch(p Payload) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, s := range d.senders {
		if s.tryAdd(p) {
			return
		}
	}

	if len(d.senders) > poolKeepSize {
		kept := d.senders[:0]
		for _, s := range d.senders {
			if !s.isCompleted() {
				kept = append(kept, s)
			}
		}
		d.senders = kept
	}

	s := newSender(d.token, d.baseURL, p, d.log)
	d.senders = append(d.senders, s)
	go s.run()
}

// PoolSize reports the number of pooled senders, completed included.
func (d *Dispatcher) PoolSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.senders)
}
