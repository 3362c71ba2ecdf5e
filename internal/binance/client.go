package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultRestURL   = "https://api.binance.com"
	defaultStreamURL = "wss://stream.binance.com:9443"

	requestTimeout = 20 * time.Second
)

// ListenKeyAPI is the slice of the exchange REST surface the user-data
// streams need.
type ListenKeyAPI interface {
	CreateListenKey(ctx context.Context) (string, error)
	KeepAliveListenKey(ctx context.Context, listenKey string) (string, error)
	CloseListenKey(ctx context.Context, listenKey string) error
}

// Client talks to the exchange REST API. A client carries at most one
// account's API key; market-data calls need none.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient returns a client signing requests with the given API key.
// The key may be empty for public endpoints.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL:    defaultRestURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// SymbolPrice is one entry of the exchange-wide price listing.
type SymbolPrice struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price,string"`
}

// TickerPrices fetches the current price of every trading pair.
func (c *Client) TickerPrices(ctx context.Context) ([]SymbolPrice, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v3/ticker/price", "")
	if err != nil {
		return nil, err
	}

	var prices []SymbolPrice
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, fmt.Errorf("decode ticker prices: %w", err)
	}
	return prices, nil
}

// CreateListenKey opens a new user-data stream and returns its listen
// key. The key is valid for 60 minutes unless kept alive.
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v3/userDataStream", "")
	if err != nil {
		return "", err
	}

	var resp struct {
		ListenKey string `json:"listenKey"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode listen key response: %w", err)
	}
	if resp.ListenKey == "" {
		return "", fmt.Errorf("listen key missing from response: %s", truncate(body, 256))
	}
	return resp.ListenKey, nil
}

// KeepAliveListenKey extends the listen key's validity by another 60
// minutes and returns the raw response body for logging.
func (c *Client) KeepAliveListenKey(ctx context.Context, listenKey string) (string, error) {
	body, err := c.do(ctx, http.MethodPut, "/api/v3/userDataStream", listenKey)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// CloseListenKey tells the exchange to close the stream for the key.
func (c *Client) CloseListenKey(ctx context.Context, listenKey string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v3/userDataStream", listenKey)
	return err
}

func (c *Client) do(ctx context.Context, method, path, listenKey string) ([]byte, error) {
	target := c.baseURL + path
	if listenKey != "" {
		target += "?listenKey=" + url.QueryEscape(listenKey)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: status %d: %s",
			method, path, resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
