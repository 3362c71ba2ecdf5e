package scheduler

import (
	"testing"
	"time"

	"binance-monitor/internal/pipeline"
	"binance-monitor/internal/pricetable"
)

type fakePrices map[string]pricetable.Ticker

func (f fakePrices) Get(symbol string) (pricetable.Ticker, bool) {
	tk, ok := f[symbol]
	return tk, ok
}

func baseTask() ScheduledTask {
	return ScheduledTask{
		Username:    "alice",
		TokenName:   "btcusdt",
		RequestID:   "req1",
		Direction:   DirectionBuy,
		PeriodSecs:  30,
		Status:      StateRunning,
		Type:        TypeProfitAndLoss,
		OrderPrice:  100,
		Quantity:    2,
		CurrentTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeMissingPrice(t *testing.T) {
	task := baseTask()
	result := computeResult(&task, fakePrices{})

	if result.MktPrice != 0 {
		t.Errorf("mkt price = %v", result.MktPrice)
	}
	if result.Profit != 0 {
		t.Errorf("profit should not be computed without a price, got %v", result.Profit)
	}
	if result.OrderedPrice != 100 || result.Quantity != 2 {
		t.Errorf("task fields must pass through: %+v", result)
	}
}

func TestComputeProfitBuy(t *testing.T) {
	task := baseTask()
	result := computeResult(&task, fakePrices{"BTCUSDT": {Last: 110}})

	if result.MktPrice != 110 {
		t.Errorf("mkt price = %v", result.MktPrice)
	}
	// (110 - 100) * 2
	if result.Profit != 20 {
		t.Errorf("profit = %v", result.Profit)
	}
}

func TestComputeProfitSell(t *testing.T) {
	task := baseTask()
	task.Direction = DirectionSell
	result := computeResult(&task, fakePrices{"BTCUSDT": {Last: 110}})

	// (100 - 110) * 2
	if result.Profit != -20 {
		t.Errorf("profit = %v", result.Profit)
	}
}

func TestComputeDefaultsOrderPriceFromMarket(t *testing.T) {
	task := baseTask()
	task.OrderPrice = 0
	result := computeResult(&task, fakePrices{"BTCUSDT": {Last: 50}})

	if result.OrderedPrice != 50 {
		t.Errorf("ordered price = %v", result.OrderedPrice)
	}
	if task.OrderPrice != 50 {
		t.Errorf("default must stick on the task, got %v", task.OrderPrice)
	}
	if result.Profit != 0 {
		t.Errorf("first sample has no move, profit = %v", result.Profit)
	}
}

func TestComputeDerivesQuantityFromMoney(t *testing.T) {
	task := baseTask()
	task.Quantity = 0
	task.Money = 500
	result := computeResult(&task, fakePrices{"BTCUSDT": {Last: 120}})

	// 500 / 100 at the configured order price
	if result.Quantity != 5 {
		t.Errorf("quantity = %v", result.Quantity)
	}
	if result.Profit != (120-100)*5 {
		t.Errorf("profit = %v", result.Profit)
	}
}

func TestComputePriceChange(t *testing.T) {
	task := baseTask()
	task.Type = TypePriceChange
	result := computeResult(&task, fakePrices{"BTCUSDT": {Last: 110, Open24h: 100}})

	if result.Profit != 10 {
		t.Errorf("price change = %v", result.Profit)
	}
}

func TestTickAdvancesClockRegardless(t *testing.T) {
	out := pipeline.NewQueue[Message]()
	task := baseTask()
	start := task.CurrentTime

	tt := newTaskTicker(task, fakePrices{}, out)
	first := tt.tick()
	second := tt.tick()

	if !first.Time.Equal(start) {
		t.Errorf("first tick time = %v", first.Time)
	}
	if want := start.Add(30 * time.Second); !second.Time.Equal(want) {
		t.Errorf("second tick time = %v, want %v", second.Time, want)
	}
}

func TestHaltIsIdempotent(t *testing.T) {
	tt := newTaskTicker(baseTask(), fakePrices{}, pipeline.NewQueue[Message]())
	tt.halt()
	tt.halt()

	select {
	case <-tt.stop:
	default:
		t.Error("stop channel should be closed")
	}
}
