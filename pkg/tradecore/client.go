// Package tradecore provides a Go SDK for the engine's monitoring API.
package tradecore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/monitor"
)

// Client talks to a running engine's monitoring HTTP API. All endpoints are
// read-only; the SDK cannot place or cancel orders.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the monitoring API at baseURL, e.g.
// "http://localhost:8090".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Status retrieves the engine health snapshot.
func (c *Client) Status(ctx context.Context) (monitor.StatusResponse, error) {
	var out monitor.StatusResponse
	err := c.get(ctx, "/api/status", &out)
	return out, err
}

// Positions retrieves all ledger positions. If openOnly is set, closed
// positions are excluded.
func (c *Client) Positions(ctx context.Context, openOnly bool) ([]domain.Position, error) {
	path := "/api/positions"
	if openOnly {
		path += "?open=true"
	}
	var out []domain.Position
	err := c.get(ctx, path, &out)
	return out, err
}

// Ticks retrieves up to limit buffered ticks for a symbol. A zero limit
// returns the full buffered history for the symbol.
func (c *Client) Ticks(ctx context.Context, symbol string, limit int) (monitor.TicksResponse, error) {
	path := "/api/ticks/" + url.PathEscape(symbol)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out monitor.TicksResponse
	err := c.get(ctx, path, &out)
	return out, err
}

// Orders retrieves all order records, newest first.
func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	err := c.get(ctx, "/api/orders", &out)
	return out, err
}

// Order retrieves a single order record by id.
func (c *Client) Order(ctx context.Context, id string) (domain.Order, error) {
	var out domain.Order
	err := c.get(ctx, "/api/orders/"+url.PathEscape(id), &out)
	return out, err
}

// Alerts retrieves the retained alert history, oldest first.
func (c *Client) Alerts(ctx context.Context) ([]monitor.Alert, error) {
	var out []monitor.Alert
	err := c.get(ctx, "/api/alerts", &out)
	return out, err
}

// Metrics retrieves execution timings and trade performance.
func (c *Client) Metrics(ctx context.Context) (monitor.MetricsResponse, error) {
	var out monitor.MetricsResponse
	err := c.get(ctx, "/api/metrics", &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s (status %d)", path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
