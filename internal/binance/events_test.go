package binance

import "testing"

var testLabel = AccountLabel{ForAlias: "main-account", TelegramGroup: "trade alerts"}

func TestDecodeExecutionReport(t *testing.T) {
	frame := []byte(`{
		"e": "executionReport",
		"E": 1499405658658,
		"s": "ETHBTC",
		"S": "BUY",
		"o": "LIMIT",
		"f": "GTC",
		"q": "1.00000000",
		"p": "0.10264410",
		"P": "0.00000000",
		"x": "NEW",
		"X": "NEW",
		"r": "NONE",
		"i": 4293153,
		"l": "0.00000000",
		"z": "0.00000000",
		"L": "0.00000000",
		"n": "0",
		"N": null,
		"T": 1499405658657,
		"t": -1,
		"O": 1499405658657
	}`)

	events, err := decodeUserEvents(frame, testLabel)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev, ok := events[0].(OrderEvent)
	if !ok {
		t.Fatalf("expected OrderEvent, got %T", events[0])
	}
	if ev.Instrument != "ETHBTC" || ev.Side != "BUY" || ev.OrderType != "LIMIT" {
		t.Errorf("unexpected head fields: %+v", ev)
	}
	if ev.OrderID != "4293153" {
		t.Errorf("order id = %q", ev.OrderID)
	}
	if ev.TradeID != "-1" {
		t.Errorf("trade id = %q", ev.TradeID)
	}
	if ev.CommissionAsset != "" {
		t.Errorf("null commission asset should decode empty, got %q", ev.CommissionAsset)
	}
	if ev.EventTime != "2017-07-07 05:34:18" {
		t.Errorf("event time = %q", ev.EventTime)
	}
	if ev.TransactionTime != "2017-07-07 05:34:18" {
		t.Errorf("transaction time = %q", ev.TransactionTime)
	}
	if ev.ForAlias != "main-account" || ev.TelegramGroup != "trade alerts" {
		t.Errorf("label not stamped: %+v", ev.AccountLabel)
	}
}

func TestDecodeCommissionAssetForms(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"BNB"`, "BNB"},
		{"integer", `12`, "12"},
		{"float", `0.5`, "0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame := []byte(`{"e":"executionReport","N":` + tc.raw + `}`)
			events, err := decodeUserEvents(frame, testLabel)
			if err != nil {
				t.Fatal(err)
			}
			ev := events[0].(OrderEvent)
			if ev.CommissionAsset != tc.want {
				t.Errorf("got %q, want %q", ev.CommissionAsset, tc.want)
			}
		})
	}
}

func TestDecodeBalanceUpdate(t *testing.T) {
	frame := []byte(`{
		"e": "balanceUpdate",
		"E": 1573200697110,
		"a": "BTC",
		"d": "100.00000000",
		"T": 1573200697068
	}`)

	events, err := decodeUserEvents(frame, testLabel)
	if err != nil {
		t.Fatal(err)
	}
	ev, ok := events[0].(BalanceEvent)
	if !ok {
		t.Fatalf("expected BalanceEvent, got %T", events[0])
	}
	if ev.Instrument != "BTC" || ev.Balance != "100.00000000" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.EventTime != "2019-11-08 08:11:37" {
		t.Errorf("event time = %q", ev.EventTime)
	}
	if ev.ClearTime != "2019-11-08 08:11:37" {
		t.Errorf("clear time = %q", ev.ClearTime)
	}
}

func TestDecodeAccountPositionFansOut(t *testing.T) {
	frame := []byte(`{
		"e": "outboundAccountPosition",
		"E": 1564034571105,
		"u": 1564034571073,
		"B": [
			{"a": "ETH", "f": "10000.000000", "l": "0.000000"},
			{"a": "BTC", "f": "1.500000", "l": "0.250000"}
		]
	}`)

	events, err := decodeUserEvents(frame, testLabel)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected one event per asset, got %d", len(events))
	}

	first := events[0].(AccountPositionEvent)
	second := events[1].(AccountPositionEvent)
	if first.Instrument != "ETH" || first.Free != "10000.000000" {
		t.Errorf("first event: %+v", first)
	}
	if second.Instrument != "BTC" || second.Locked != "0.250000" {
		t.Errorf("second event: %+v", second)
	}
	if first.EventTime != second.EventTime {
		t.Error("events of one frame must share the event time")
	}
	if first.ForAlias != "main-account" {
		t.Errorf("label not stamped: %+v", first.AccountLabel)
	}
}

func TestDecodeUnknownEventType(t *testing.T) {
	events, err := decodeUserEvents([]byte(`{"e":"listenKeyExpired"}`), testLabel)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("unknown event should decode to nothing, got %d", len(events))
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	if _, err := decodeUserEvents([]byte(`{"e":`), testLabel); err == nil {
		t.Error("expected decode error")
	}
}
