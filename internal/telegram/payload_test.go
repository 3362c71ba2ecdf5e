package telegram

import (
	"strings"
	"testing"

	"binance-monitor/internal/binance"
)

func TestFormatOrderPayload(t *testing.T) {
	ev := binance.OrderEvent{
		Instrument:         "ETHBTC",
		Side:               "BUY",
		OrderType:          "LIMIT",
		Quantity:           "1.00000000",
		Price:              "0.10264410",
		ExecutionType:      "NEW",
		Status:             "NEW",
		OrderID:            "4293153",
		LastFilledQuantity: "0.00000000",
		CommissionAmount:   "0.001",
		CommissionAsset:    "BNB",
		EventTime:          "2017-07-07 05:34:18",
		TransactionTime:    "2017-07-07 05:34:18",
		CreatedTime:        "2017-07-07 05:34:18",
	}

	got := FormatEvent(ev)

	if !strings.HasPrefix(got, "Exchange:%20Binance%0A") {
		t.Errorf("payload must open with the exchange line: %q", got)
	}
	if strings.Contains(got, " ") {
		t.Error("payload must contain no literal spaces")
	}
	for _, want := range []string{
		"OrderID:%204293153%0A",
		"Token:%20ETHBTC%0A",
		"Fee:%200.001%20(%20BNB%20)%0A",
		"State:%20NEW%0A",
		"TransactionTime:%202017-07-07%2005:34:18%0A",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("payload missing %q\n%s", want, got)
		}
	}
}

func TestFormatOrderPayloadOmitsEmptyFee(t *testing.T) {
	got := FormatEvent(binance.OrderEvent{Instrument: "ETHBTC"})
	if strings.Contains(got, "Fee:") {
		t.Errorf("fee line present without a commission asset: %q", got)
	}
}

func TestFormatBalancePayload(t *testing.T) {
	got := FormatEvent(binance.BalanceEvent{
		Instrument: "BTC",
		Balance:    "100.00000000",
		ClearTime:  "2019-11-08 08:11:37",
	})

	want := "Exchange:%20Binance%0A" +
		"Type:%20BalanceUpdate%0A" +
		"Token:%20BTC%0A" +
		"Time:%202019-11-08%2008:11:37%0A" +
		"Balance:%20100.00000000%0A"
	if got != want {
		t.Errorf("payload = %q\nwant %q", got, want)
	}
}

func TestFormatAccountPositionPayload(t *testing.T) {
	got := FormatEvent(binance.AccountPositionEvent{
		Instrument:        "ETH",
		Free:              "10000.000000",
		Locked:            "0.000000",
		EventTime:         "2019-07-25 06:02:51",
		LastAccountUpdate: "2019-07-25 06:02:51",
	})

	if !strings.Contains(got, "Type:%20AccountUpdate%0A") {
		t.Errorf("payload = %q", got)
	}
	if !strings.Contains(got, "Free:%2010000.000000%0A") {
		t.Errorf("payload = %q", got)
	}
	if !strings.Contains(got, "Locked:%200.000000%0A") {
		t.Errorf("payload = %q", got)
	}
}
