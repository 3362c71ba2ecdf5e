package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"binance-monitor/internal/pipeline"
)

// startupGrace gives the market stream time to fill the price table
// before reloaded tasks start ticking.
const startupGrace = 15 * time.Second

// TaskRepository is the persistence the watcher needs.
type TaskRepository interface {
	InsertTask(ctx context.Context, task *ScheduledTask) error
	UpdateTaskStatus(ctx context.Context, state TaskState, requestID string, lastBegin, lastEnd *time.Time) error
	RemoveTask(ctx context.Context, requestID string) error
	LoadTasks(ctx context.Context, states []TaskState, requestID string) ([]ScheduledTask, error)
	CreateRecordsTable(ctx context.Context, username string) (string, error)
	InsertRecord(ctx context.Context, table string, result *TaskResult) error
}

// tickerSet is one operator's running tickers, grouped by request id.
type tickerSet struct {
	byRequest map[string][]*taskTicker
}

func newTickerSet() *tickerSet {
	return &tickerSet{byRequest: make(map[string][]*taskTicker)}
}

func (s *tickerSet) add(requestID string, t *taskTicker) {
	s.byRequest[requestID] = append(s.byRequest[requestID], t)
}

func (s *tickerSet) stopAll(requestID string) {
	for _, t := range s.byRequest[requestID] {
		t.halt()
	}
}

func (s *tickerSet) forget(requestID string) {
	delete(s.byRequest, requestID)
}

// Watcher consumes the scheduler queue: task status changes drive the
// ticker lifecycle, ticker results get persisted.
type Watcher struct {
	queue  *pipeline.Queue[Message]
	repo   TaskRepository
	prices PriceSource
	log    zerolog.Logger

	grace      time.Duration
	schedulers map[string]*tickerSet
	tables     map[string]string
}

// NewWatcher returns a watcher over the given queue.
func NewWatcher(queue *pipeline.Queue[Message], repo TaskRepository, prices PriceSource, logger zerolog.Logger) *Watcher {
	return &Watcher{
		queue:      queue,
		repo:       repo,
		prices:     prices,
		log:        logger.With().Str("component", "task-scheduler").Logger(),
		grace:      startupGrace,
		schedulers: make(map[string]*tickerSet),
		tables:     make(map[string]string),
	}
}

// Run reloads surviving tasks, waits out the startup grace and then
// consumes the queue forever. Intended for its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	w.reload(ctx)
	time.Sleep(w.grace)

	for {
		msg := w.queue.Get()
		switch m := msg.(type) {
		case *ScheduledTask:
			w.processTask(ctx, m)
		case *TaskResult:
			w.processResult(ctx, m)
		}
	}
}

// reload reinjects the tasks that were live when the process last
// exited.
func (w *Watcher) reload(ctx context.Context) {
	tasks, err := w.repo.LoadTasks(ctx, []TaskState{StateInitiated, StateRunning}, "")
	if err != nil {
		w.log.Error().Err(err).Msg("task reload failed")
		return
	}
	for i := range tasks {
		task := tasks[i]
		w.queue.Append(&task)
	}
	if len(tasks) > 0 {
		w.log.Info().Int("tasks", len(tasks)).Msg("reloaded surviving tasks")
	}
}

func (w *Watcher) processTask(ctx context.Context, task *ScheduledTask) {
	// time.NewTicker panics on a non-positive period; such a task never
	// reaches a ticker, whether it came from the API or a reloaded row
	if (task.Status == StateInitiated || task.Status == StateRunning) && task.PeriodSecs <= 0 {
		w.log.Error().
			Str("request_id", task.RequestID).
			Str("token", task.TokenName).
			Int("period_secs", task.PeriodSecs).
			Msg("dropping task with non-positive period")
		return
	}

	set := w.schedulers[task.Username]
	if set == nil {
		set = newTickerSet()
		w.schedulers[task.Username] = set
	}

	switch task.Status {
	case StateInitiated:
		task.Status = StateRunning
		if err := w.repo.InsertTask(ctx, task); err != nil {
			w.log.Error().Err(err).Str("request_id", task.RequestID).Msg("task insert failed")
			return
		}
		w.startTicker(set, task)

	case StateRunning:
		w.startTicker(set, task)

	case StateStopped:
		w.stopRequest(ctx, set, task.RequestID)

	case StateRemove:
		set.stopAll(task.RequestID)
		set.forget(task.RequestID)
		if err := w.repo.RemoveTask(ctx, task.RequestID); err != nil {
			w.log.Error().Err(err).Str("request_id", task.RequestID).Msg("task delete failed")
		}

	case StateRestarted:
		w.stopRequest(ctx, set, task.RequestID)
		set.forget(task.RequestID)
		w.restartRequest(ctx, task.RequestID)
	}
}

func (w *Watcher) startTicker(set *tickerSet, task *ScheduledTask) {
	t := newTaskTicker(*task, w.prices, w.queue)
	set.add(task.RequestID, t)
	go t.run()
	w.log.Info().
		Str("request_id", task.RequestID).
		Str("token", task.TokenName).
		Msg("ticker started")
}

func (w *Watcher) stopRequest(ctx context.Context, set *tickerSet, requestID string) {
	set.stopAll(requestID)
	now := time.Now().UTC()
	if err := w.repo.UpdateTaskStatus(ctx, StateStopped, requestID, nil, &now); err != nil {
		w.log.Error().Err(err).Str("request_id", requestID).Msg("task stop update failed")
	}
}

// restartRequest flips the request's stopped rows back to running and
// reinjects them.
func (w *Watcher) restartRequest(ctx context.Context, requestID string) {
	stopped, err := w.repo.LoadTasks(ctx, []TaskState{StateStopped}, requestID)
	if err != nil {
		w.log.Error().Err(err).Str("request_id", requestID).Msg("restart reload failed")
		return
	}

	now := time.Now().UTC()
	for i := range stopped {
		task := stopped[i]
		task.Status = StateRunning
		task.CurrentTime = now
		if err := w.repo.UpdateTaskStatus(ctx, StateRunning, task.RequestID, &now, nil); err != nil {
			w.log.Error().Err(err).Str("request_id", requestID).Msg("restart status update failed")
		}
		w.queue.Append(&task)
	}
}

func (w *Watcher) processResult(ctx context.Context, result *TaskResult) {
	table := w.tables[result.Username]
	if table == "" {
		created, err := w.repo.CreateRecordsTable(ctx, result.Username)
		if err != nil {
			w.log.Error().Err(err).Str("username", result.Username).Msg("records table creation failed")
			return
		}
		table = created
		w.tables[result.Username] = table
	}

	if err := w.repo.InsertRecord(ctx, table, result); err != nil {
		w.log.Error().Err(err).Str("request_id", result.RequestID).Msg("record insert failed")
	}
}
