package hosts

import (
	"github.com/rs/zerolog"

	"binance-monitor/internal/pipeline"
)

// Stream is a running per-account user-data stream as the supervisor
// sees it.
type Stream interface {
	Run()
	Stop()
	SetTelegramGroup(group string)
}

// StreamFactory builds a stream for an account. Split out so tests can
// substitute fakes for the websocket machinery.
type StreamFactory interface {
	NewStream(acct Account) Stream
}

type entry struct {
	account Account
	stream  Stream
}

// Supervisor applies reconciler events to the set of running streams.
// The set is only touched from the Run goroutine (and Bootstrap before
// it starts), so it needs no lock.
type Supervisor struct {
	factory StreamFactory
	in      *pipeline.Queue[Event]
	streams []entry
	log     zerolog.Logger
}

// NewSupervisor returns a supervisor consuming events from in.
func NewSupervisor(factory StreamFactory, in *pipeline.Queue[Event], logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		factory: factory,
		in:      in,
		log:     logger.With().Str("component", "stream-supervisor").Logger(),
	}
}

// Bootstrap starts one stream per account known at startup. Call before
// Run.
func (s *Supervisor) Bootstrap(accounts []Account) {
	for _, acct := range accounts {
		s.start(acct)
	}
}

// Run consumes events forever. Intended for its own goroutine.
func (s *Supervisor) Run() {
	for {
		s.apply(s.in.Get())
	}
}

func (s *Supervisor) apply(ev Event) {
	switch ev.Change {
	case ChangeNone:
		s.start(ev.Account)

	case ChangeRemoved:
		for i, e := range s.streams {
			if e.account.SameIdentity(ev.Account) {
				e.stream.Stop()
				s.streams = append(s.streams[:i], s.streams[i+1:]...)
				s.log.Info().Str("alias", ev.Account.Alias).Msg("stream removed")
				return
			}
		}
		s.log.Warn().Str("alias", ev.Account.Alias).Msg("removal for unknown stream")

	case ChangeTelegram:
		for i, e := range s.streams {
			if e.account.SameIdentity(ev.Account) {
				s.streams[i].account.TelegramGroup = ev.Account.TelegramGroup
				e.stream.SetTelegramGroup(ev.Account.TelegramGroup)
				s.log.Info().Str("alias", ev.Account.Alias).Msg("stream telegram group updated")
				return
			}
		}
		s.log.Warn().Str("alias", ev.Account.Alias).Msg("group change for unknown stream")
	}
}

func (s *Supervisor) start(acct Account) {
	stream := s.factory.NewStream(acct)
	s.streams = append(s.streams, entry{account: acct, stream: stream})
	go stream.Run()
	s.log.Info().Str("alias", acct.Alias).Msg("stream started")
}

// Count reports the number of live streams.
func (s *Supervisor) Count() int { return len(s.streams) }
