package binance

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"binance-monitor/internal/pipeline"
)

const (
	userIdleTimeout = 5 * time.Minute
	userPingPeriod  = time.Minute
	keepAlivePeriod = 30 * time.Minute
	recoveryDelay   = 10 * time.Second
)

// UserDataStream owns the user-data websocket of one exchange account.
// Every failure tears the whole cycle down: the listen key is discarded,
// the keepalive stops, and after a fixed delay a fresh cycle starts from
// a new listen key. Stop is terminal and idempotent.
type UserDataStream struct {
	mu      sync.Mutex
	label   AccountLabel
	conn    *websocket.Conn
	stopped bool

	api       ListenKeyAPI
	out       *pipeline.Queue[StreamEvent]
	streamURL string
	log       zerolog.Logger
}

// NewUserDataStream returns a stream for the account identified by
// alias, publishing decoded events into out.
func NewUserDataStream(api ListenKeyAPI, alias, telegramGroup string, out *pipeline.Queue[StreamEvent], logger zerolog.Logger) *UserDataStream {
	return &UserDataStream{
		label:     AccountLabel{ForAlias: alias, TelegramGroup: telegramGroup},
		api:       api,
		out:       out,
		streamURL: defaultStreamURL,
		log:       logger.With().Str("component", "user-stream").Str("alias", alias).Logger(),
	}
}

// SetTelegramGroup swaps the group stamped on future events. Events
// already decoded keep the group they were stamped with.
func (s *UserDataStream) SetTelegramGroup(group string) {
	s.mu.Lock()
	s.label.TelegramGroup = group
	s.mu.Unlock()
}

// Stop ends the stream permanently. Safe to call more than once and
// from any goroutine.
func (s *UserDataStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true
	if s.conn != nil {
		s.conn.Close()
	}
	s.log.Info().Msg("stream stopped")
}

// Run drives connection cycles until Stop is called. Intended to run on
// its own goroutine.
func (s *UserDataStream) Run() {
	for {
		if s.isStopped() {
			return
		}
		err := s.cycle()
		if s.isStopped() {
			return
		}
		if err != nil {
			s.log.Error().Err(err).Msg("stream cycle failed")
		}
		time.Sleep(recoveryDelay)
	}
}

// cycle performs one full connection lifetime: listen key, dial, read
// until failure.
func (s *UserDataStream) cycle() error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	listenKey, err := s.api.CreateListenKey(ctx)
	cancel()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: requestTimeout}
	conn, _, err := dialer.Dial(s.streamURL+"/ws/"+listenKey, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		conn.Close()
		s.closeListenKey(listenKey)
		return nil
	}
	s.conn = conn
	s.mu.Unlock()

	defer func() {
		conn.Close()
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.closeListenKey(listenKey)
	}()

	s.log.Info().Msg("user-data stream connected")

	done := make(chan struct{})
	defer close(done)
	go s.keepAliveLoop(listenKey, done)
	go pingLoop(conn, userPingPeriod, done)

	conn.SetReadDeadline(time.Now().Add(userIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(userIdleTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(userIdleTimeout))
		s.handleFrame(data)
	}
}

// handleFrame decodes one frame and publishes its events. Frames that
// fan out into several events travel as one atomic batch.
func (s *UserDataStream) handleFrame(data []byte) {
	events, err := decodeUserEvents(data, s.labelSnapshot())
	if err != nil {
		s.log.Error().Err(err).Msg("undecodable user-stream frame")
		return
	}

	switch len(events) {
	case 0:
	case 1:
		s.out.Append(events[0])
	default:
		s.out.AppendList(events)
	}
}

// keepAliveLoop extends the listen key every 30 minutes for as long as
// the owning connection cycle lives.
func (s *UserDataStream) keepAliveLoop(listenKey string, done <-chan struct{}) {
	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			body, err := s.api.KeepAliveListenKey(ctx, listenKey)
			cancel()
			if err != nil {
				s.log.Error().Err(err).Msg("listen key keepalive failed")
				continue
			}
			s.log.Info().Str("response", body).Msg("listen key kept alive")
		}
	}
}

// closeListenKey tells the exchange to drop the key when a cycle ends;
// the next cycle always starts from a fresh one.
func (s *UserDataStream) closeListenKey(listenKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := s.api.CloseListenKey(ctx, listenKey); err != nil {
		s.log.Error().Err(err).Msg("listen key close failed")
	}
}

func (s *UserDataStream) labelSnapshot() AccountLabel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

func (s *UserDataStream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
