// Package feed connects to an exchange WebSocket stream, normalizes trade
// messages into ticks, and pushes them into the market data buffer. The
// adapter owns the network connection; the buffer never blocks on it.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"tradecore/internal/domain"
	"tradecore/internal/marketdata"
)

// Reconnect backoff bounds.
const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// message is the exchange trade payload.
type message struct {
	Type   string  `json:"T"`
	Symbol string  `json:"s"`
	Price  float64 `json:"p"`
	Volume float64 `json:"v"`
}

// subscribeRequest is the frame sent after connecting.
type subscribeRequest struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// Config holds the feed connection parameters.
type Config struct {
	URL     string
	Symbols []string
}

// Adapter streams ticks from one exchange WebSocket endpoint into a buffer.
type Adapter struct {
	cfg    Config
	buffer *marketdata.Buffer
	log    *slog.Logger
}

// NewAdapter creates a feed adapter pushing into buffer.
func NewAdapter(cfg Config, buffer *marketdata.Buffer, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{cfg: cfg, buffer: buffer, log: log.With("component", "feed")}
}

// Run connects and streams until ctx is cancelled, reconnecting with capped
// exponential backoff after any connection failure. It returns nil on
// cancellation; a non-nil return means the URL is unusable.
func (a *Adapter) Run(ctx context.Context) error {
	if a.cfg.URL == "" {
		return fmt.Errorf("feed URL not configured")
	}

	delay := reconnectBaseDelay
	for {
		err := a.streamOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		a.log.Warn("feed disconnected, reconnecting", "error", err, "delay", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// streamOnce runs one connection lifetime: dial, subscribe, read until error.
func (a *Adapter) streamOnce(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, a.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", a.cfg.URL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "shutting down")

	if len(a.cfg.Symbols) > 0 {
		sub := subscribeRequest{Action: "subscribe", Symbols: a.cfg.Symbols}
		payload, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("encoding subscribe request: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return fmt.Errorf("subscribing: %w", err)
		}
	}
	a.log.Info("feed connected", "url", a.cfg.URL, "symbols", a.cfg.Symbols)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("reading feed: %w", err)
		}
		tick, ok, err := parseTick(data, time.Now())
		if err != nil {
			a.log.Warn("dropping malformed feed message", "error", err)
			continue
		}
		if !ok {
			continue
		}
		a.buffer.Push(tick)
	}
}

// parseTick decodes one feed message. The second return is false for
// non-trade messages (subscription acks, heartbeats) and trades with a
// non-positive price, which carry no usable data.
func parseTick(data []byte, now time.Time) (domain.Tick, bool, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Tick{}, false, fmt.Errorf("decoding feed message: %w", err)
	}
	if msg.Type != "trade" || msg.Symbol == "" || msg.Price <= 0 {
		return domain.Tick{}, false, nil
	}
	return domain.Tick{
		Timestamp: now,
		Symbol:    msg.Symbol,
		Price:     msg.Price,
		Volume:    msg.Volume,
	}, true, nil
}
