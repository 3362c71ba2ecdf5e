package scheduler

import (
	"strings"
	"time"

	"binance-monitor/internal/pipeline"
	"binance-monitor/internal/pricetable"
)

// PriceSource is the read side of the price table.
type PriceSource interface {
	Get(symbol string) (pricetable.Ticker, bool)
}

// taskTicker computes one task's result every period and feeds it back
// into the scheduler queue.
type taskTicker struct {
	task   ScheduledTask
	prices PriceSource
	out    *pipeline.Queue[Message]
	stop   chan struct{}
}

func newTaskTicker(task ScheduledTask, prices PriceSource, out *pipeline.Queue[Message]) *taskTicker {
	return &taskTicker{
		task:   task,
		prices: prices,
		out:    out,
		stop:   make(chan struct{}),
	}
}

func (t *taskTicker) run() {
	ticker := time.NewTicker(t.task.Period())
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			result := t.tick()
			t.out.Append(&result)
		}
	}
}

func (t *taskTicker) halt() {
	select {
	case <-t.stop:
	default:
		close(t.stop)
	}
}

// tick computes the current result and advances the task's logical
// clock by one period whether or not a price was available.
func (t *taskTicker) tick() TaskResult {
	result := computeResult(&t.task, t.prices)
	t.task.CurrentTime = t.task.CurrentTime.Add(t.task.Period())
	return result
}

// computeResult samples the price table for the task's token. A missing
// price yields a zero market price with no further computation. The
// first sampled price backfills a zero order price, and a zero quantity
// is derived from the allocated money.
func computeResult(task *ScheduledTask, prices PriceSource) TaskResult {
	result := TaskResult{
		Username:     task.Username,
		TokenName:    task.TokenName,
		RequestID:    task.RequestID,
		Direction:    task.Direction,
		Time:         task.CurrentTime,
		OrderedPrice: task.OrderPrice,
		Money:        task.Money,
		Quantity:     task.Quantity,
		ColumnID:     task.ColumnID,
		Type:         task.Type,
	}

	tk, ok := prices.Get(strings.ToUpper(task.TokenName))
	if !ok {
		return result
	}
	result.MktPrice = tk.Last

	if task.OrderPrice == 0 {
		task.OrderPrice = tk.Last
		result.OrderedPrice = tk.Last
	}
	if task.Quantity == 0 && task.Money > 0 && task.OrderPrice != 0 {
		task.Quantity = task.Money / task.OrderPrice
		result.Quantity = task.Quantity
	}

	switch task.Type {
	case TypeProfitAndLoss:
		switch task.Direction {
		case DirectionBuy:
			result.Profit = (tk.Last - task.OrderPrice) * task.Quantity
		case DirectionSell:
			result.Profit = (task.OrderPrice - tk.Last) * task.Quantity
		}
	case TypePriceChange:
		result.Profit = tk.Change24h()
	}
	return result
}
