// Package scheduler runs operator-defined monitoring tasks against the
// live price table and records their results.
package scheduler

import "time"

// TaskState is the lifecycle of a scheduled task, persisted as an int.
type TaskState int

const (
	StateUnknown TaskState = iota
	StateInitiated
	StateRunning
	StateStopped
	StateRestarted
	StateRemove
)

func (s TaskState) String() string {
	switch s {
	case StateInitiated:
		return "initiated"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateRestarted:
		return "restarted"
	case StateRemove:
		return "remove"
	}
	return "unknown"
}

// TaskType selects what a task's ticker computes, persisted as an int.
type TaskType int

const (
	TypeProfitAndLoss TaskType = iota
	TypePriceChange
)

// Directions a profit-and-loss task can monitor.
const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
	DirectionNone = "none"
)

// ScheduledTask is one monitored token of one operator request. Several
// tasks share a request id.
type ScheduledTask struct {
	Username    string
	TokenName   string
	RequestID   string
	Direction   string
	PeriodSecs  int
	ColumnID    int
	Status      TaskState
	Type        TaskType
	OrderPrice  float64
	Money       float64
	Quantity    float64
	CurrentTime time.Time
}

func (*ScheduledTask) schedulerMessage() {}

// Period returns the tick interval.
func (t *ScheduledTask) Period() time.Duration {
	return time.Duration(t.PeriodSecs) * time.Second
}

// TaskResult is one tick's computation for a task.
type TaskResult struct {
	Username     string
	TokenName    string
	RequestID    string
	Direction    string
	Time         time.Time
	Profit       float64
	MktPrice     float64
	OrderedPrice float64
	Money        float64
	Quantity     float64
	ColumnID     int
	Type         TaskType
}

func (*TaskResult) schedulerMessage() {}

// Message is what travels on the scheduler queue: either a task status
// change or a ticker result.
type Message interface{ schedulerMessage() }
