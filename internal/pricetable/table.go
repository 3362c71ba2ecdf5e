// Package pricetable holds the latest observed market price for every
// known trading pair. The market stream writes into it continuously and
// the schedulers and price endpoints read from it.
package pricetable

import (
	"sort"
	"strings"
	"sync"
)

// Ticker is the latest price snapshot for one symbol.
type Ticker struct {
	Symbol  string
	Last    float64
	Open24h float64
}

// Change24h returns the percentage move of the last price against the
// 24h open. Zero when the open is unknown.
func (t Ticker) Change24h() float64 {
	if t.Open24h == 0 {
		return 0
	}
	return ((t.Last - t.Open24h) / t.Open24h) * 100.0
}

// Table is a concurrency-safe symbol -> ticker map. Lookups of absent
// symbols simply report absence; the table never errors.
type Table struct {
	mu      sync.RWMutex
	tickers map[string]Ticker
}

// NewTable returns an empty price table.
func NewTable() *Table {
	return &Table{tickers: make(map[string]Ticker)}
}

// Put stores the ticker under its uppercased symbol, replacing any
// previous snapshot.
func (t *Table) Put(tk Ticker) {
	symbol := strings.ToUpper(tk.Symbol)
	tk.Symbol = symbol

	t.mu.Lock()
	t.tickers[symbol] = tk
	t.mu.Unlock()
}

// Get returns the snapshot for a symbol. The lookup is case-insensitive.
func (t *Table) Get(symbol string) (Ticker, bool) {
	t.mu.RLock()
	tk, ok := t.tickers[strings.ToUpper(symbol)]
	t.mu.RUnlock()
	return tk, ok
}

// Symbols returns all known symbols in lexical order.
func (t *Table) Symbols() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.tickers))
	for s := range t.tickers {
		out = append(out, s)
	}
	t.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Len reports how many symbols the table currently holds.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tickers)
}
