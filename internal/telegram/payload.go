// Package telegram delivers stream notifications through a bot, keeping
// a small pool of senders and a chat-name to chat-id cache.
package telegram

import (
	"strings"

	"binance-monitor/internal/binance"
)

// %0A is the encoded newline, %20 the encoded space; the message text
// is embedded in the request target.

// FormatEvent renders a stream event as the bot message text.
func FormatEvent(ev binance.StreamEvent) string {
	switch e := ev.(type) {
	case binance.OrderEvent:
		return formatOrder(e)
	case binance.BalanceEvent:
		return formatBalance(e)
	case binance.AccountPositionEvent:
		return formatAccountPosition(e)
	}
	return ""
}

func formatOrder(ev binance.OrderEvent) string {
	var b strings.Builder
	b.WriteString("Exchange: Binance%0A")
	b.WriteString("OrderID: " + ev.OrderID + "%0A")
	b.WriteString("Token: " + ev.Instrument + "%0A")
	b.WriteString("Price: " + ev.Price + "%0A")
	b.WriteString("Qty: " + ev.Quantity + "%0A")
	b.WriteString("LastFilled: " + ev.LastFilledQuantity + "%0A")
	b.WriteString("Side: " + ev.Side + "%0A")
	b.WriteString("Type: " + ev.OrderType + "%0A")
	if ev.CommissionAsset != "" {
		b.WriteString("Fee: " + ev.CommissionAmount + " ( " + ev.CommissionAsset + " )%0A")
	}
	b.WriteString("ExeType: " + ev.ExecutionType + "%0A")
	b.WriteString("State: " + ev.Status + "%0A")
	b.WriteString("CreatedTime: " + ev.CreatedTime + "%0A")
	b.WriteString("TransactionTime: " + ev.TransactionTime + "%0A")
	return encodeSpaces(b.String())
}

func formatBalance(ev binance.BalanceEvent) string {
	payload := "Exchange: Binance%0A" +
		"Type: BalanceUpdate%0A" +
		"Token: " + ev.Instrument + "%0A" +
		"Time: " + ev.ClearTime + "%0A" +
		"Balance: " + ev.Balance + "%0A"
	return encodeSpaces(payload)
}

func formatAccountPosition(ev binance.AccountPositionEvent) string {
	payload := "Exchange: Binance%0A" +
		"Type: AccountUpdate%0A" +
		"Token: " + ev.Instrument + "%0A" +
		"Free: " + ev.Free + "%0A" +
		"Locked: " + ev.Locked + "%0A" +
		"EventTime: " + ev.EventTime + "%0A" +
		"LastUpdateTime: " + ev.LastAccountUpdate + "%0A"
	return encodeSpaces(payload)
}

func encodeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "%20")
}
