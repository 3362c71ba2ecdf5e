package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// StreamEvent is one account-scoped event read off a user-data socket.
// The concrete types are OrderEvent, BalanceEvent and AccountPositionEvent.
type StreamEvent interface {
	streamEvent()
	Alias() string
	Group() string
}

// AccountLabel carries the owning account's alias and Telegram group.
// Every event is stamped with the labels current at decode time.
type AccountLabel struct {
	ForAlias      string
	TelegramGroup string
}

func (l AccountLabel) Alias() string { return l.ForAlias }
func (l AccountLabel) Group() string { return l.TelegramGroup }

// OrderEvent is a decoded executionReport. Numeric wire fields stay in
// their string form; timestamps are converted to UTC wall-clock text.
type OrderEvent struct {
	AccountLabel

	Instrument               string
	Side                     string
	OrderType                string
	TimeInForce              string
	Quantity                 string
	Price                    string
	StopPrice                string
	ExecutionType            string
	Status                   string
	RejectReason             string
	OrderID                  string
	LastFilledQuantity       string
	CumulativeFilledQuantity string
	LastExecutedPrice        string
	CommissionAmount         string
	CommissionAsset          string
	TradeID                  string
	EventTime                string
	TransactionTime          string
	CreatedTime              string
}

func (OrderEvent) streamEvent() {}

// BalanceEvent is a decoded balanceUpdate.
type BalanceEvent struct {
	AccountLabel

	Instrument string
	Balance    string
	EventTime  string
	ClearTime  string
}

func (BalanceEvent) streamEvent() {}

// AccountPositionEvent is one asset entry of an outboundAccountPosition.
// A single frame carrying several assets decodes into several events
// that must travel as one batch.
type AccountPositionEvent struct {
	AccountLabel

	Instrument        string
	Free              string
	Locked            string
	EventTime         string
	LastAccountUpdate string
}

func (AccountPositionEvent) streamEvent() {}

// flexString decodes a JSON value that the exchange serializes either
// as a string or as a number. Commission assets have been observed in
// both forms.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// millisToTime renders an exchange millisecond timestamp as
// "YYYY-MM-DD HH:MM:SS" in UTC, second precision.
func millisToTime(ms int64) string {
	return time.Unix(ms/1000, 0).UTC().Format("2006-01-02 15:04:05")
}

type executionReportFrame struct {
	EventTime        int64      `json:"E"`
	Symbol           string     `json:"s"`
	Side             string     `json:"S"`
	OrderType        string     `json:"o"`
	TimeInForce      string     `json:"f"`
	Quantity         string     `json:"q"`
	Price            string     `json:"p"`
	StopPrice        string     `json:"P"`
	ExecutionType    string     `json:"x"`
	Status           string     `json:"X"`
	RejectReason     string     `json:"r"`
	OrderID          int64      `json:"i"`
	LastFilledQty    string     `json:"l"`
	CumulativeQty    string     `json:"z"`
	LastExecPrice    string     `json:"L"`
	CommissionAmount string     `json:"n"`
	CommissionAsset  flexString `json:"N"`
	TransactionTime  int64      `json:"T"`
	TradeID          int64      `json:"t"`
	CreatedTime      int64      `json:"O"`
}

type balanceUpdateFrame struct {
	Asset     string `json:"a"`
	Delta     string `json:"d"`
	ClearTime int64  `json:"T"`
	EventTime int64  `json:"E"`
}

type accountPositionFrame struct {
	EventTime      int64 `json:"E"`
	LastUpdateTime int64 `json:"u"`
	Balances       []struct {
		Asset  string `json:"a"`
		Free   string `json:"f"`
		Locked string `json:"l"`
	} `json:"B"`
}

// decodeUserEvents turns one raw user-stream frame into account-labelled
// events. Unrecognized event types decode to an empty slice.
func decodeUserEvents(data []byte, label AccountLabel) ([]StreamEvent, error) {
	var head struct {
		EventType string `json:"e"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event type: %w", err)
	}

	switch head.EventType {
	case "executionReport":
		var f executionReportFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode executionReport: %w", err)
		}
		return []StreamEvent{OrderEvent{
			AccountLabel:             label,
			Instrument:               f.Symbol,
			Side:                     f.Side,
			OrderType:                f.OrderType,
			TimeInForce:              f.TimeInForce,
			Quantity:                 f.Quantity,
			Price:                    f.Price,
			StopPrice:                f.StopPrice,
			ExecutionType:            f.ExecutionType,
			Status:                   f.Status,
			RejectReason:             f.RejectReason,
			OrderID:                  strconv.FormatInt(f.OrderID, 10),
			LastFilledQuantity:       f.LastFilledQty,
			CumulativeFilledQuantity: f.CumulativeQty,
			LastExecutedPrice:        f.LastExecPrice,
			CommissionAmount:         f.CommissionAmount,
			CommissionAsset:          string(f.CommissionAsset),
			TradeID:                  strconv.FormatInt(f.TradeID, 10),
			EventTime:                millisToTime(f.EventTime),
			TransactionTime:          millisToTime(f.TransactionTime),
			CreatedTime:              millisToTime(f.CreatedTime),
		}}, nil

	case "balanceUpdate":
		var f balanceUpdateFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode balanceUpdate: %w", err)
		}
		return []StreamEvent{BalanceEvent{
			AccountLabel: label,
			Instrument:   f.Asset,
			Balance:      f.Delta,
			EventTime:    millisToTime(f.EventTime),
			ClearTime:    millisToTime(f.ClearTime),
		}}, nil

	case "outboundAccountPosition":
		var f accountPositionFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode outboundAccountPosition: %w", err)
		}
		events := make([]StreamEvent, 0, len(f.Balances))
		for _, b := range f.Balances {
			events = append(events, AccountPositionEvent{
				AccountLabel:      label,
				Instrument:        b.Asset,
				Free:              b.Free,
				Locked:            b.Locked,
				EventTime:         millisToTime(f.EventTime),
				LastAccountUpdate: millisToTime(f.LastUpdateTime),
			})
		}
		return events, nil
	}

	return nil, nil
}
