package venue

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"tradecore/internal/domain"
	"tradecore/internal/util"
)

// Compile-time interface check.
var _ Venue = (*Alpaca)(nil)

// Alpaca implements Venue against the Alpaca brokerage API. Fee and
// slippage estimates for routing are configured statically; Alpaca does
// not quote them per order.
type Alpaca struct {
	client   *alpaca.Client
	fee      float64
	slippage float64
	limiter  *util.RateLimiter
}

// NewAlpaca creates an Alpaca venue from API credentials. rateLimitPerMin
// bounds outbound API calls.
func NewAlpaca(apiKey, apiSecret, baseURL string, fee, slippage float64, rateLimitPerMin int) *Alpaca {
	return &Alpaca{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		fee:      fee,
		slippage: slippage,
		limiter:  util.NewRateLimiter(rateLimitPerMin),
	}
}

// Name returns "alpaca".
func (a *Alpaca) Name() string { return "alpaca" }

// PlaceOrder submits a day order to Alpaca and maps the response to a fill.
func (a *Alpaca) PlaceOrder(ctx context.Context, order domain.Order) (domain.Fill, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return domain.Fill{}, err
	}

	qty := decimal.NewFromFloat(order.Quantity)
	req := alpaca.PlaceOrderRequest{
		Symbol:      order.Symbol,
		Qty:         &qty,
		TimeInForce: alpaca.Day,
	}

	if order.Side == domain.OrderSideBuy {
		req.Side = alpaca.Buy
	} else {
		req.Side = alpaca.Sell
	}

	if order.Type == domain.OrderTypeLimit {
		req.Type = alpaca.Limit
		limit := decimal.NewFromFloat(order.Price)
		req.LimitPrice = &limit
	} else {
		req.Type = alpaca.Market
	}

	placed, err := a.client.PlaceOrder(req)
	if err != nil {
		return domain.Fill{}, fmt.Errorf("alpaca PlaceOrder %s: %w", order.Symbol, err)
	}

	price := order.Price
	if placed.FilledAvgPrice != nil {
		price = placed.FilledAvgPrice.InexactFloat64()
	}

	filledQty := order.Quantity
	if !placed.FilledQty.IsZero() {
		filledQty = placed.FilledQty.InexactFloat64()
	}
	if order.Side == domain.OrderSideSell {
		filledQty = -filledQty
	}

	return domain.Fill{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Quantity:  filledQty,
		Price:     price,
		Venue:     a.Name(),
		Timestamp: time.Now(),
	}, nil
}

// Quote returns the configured static fee/slippage estimate.
func (a *Alpaca) Quote(_ context.Context, _ string) (Quote, error) {
	return Quote{Venue: a.Name(), Fee: a.fee, Slippage: a.slippage}, nil
}

// Positions fetches the account's open positions from Alpaca.
func (a *Alpaca) Positions(ctx context.Context) ([]domain.Position, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	remote, err := a.client.GetPositions()
	if err != nil {
		return nil, fmt.Errorf("alpaca GetPositions: %w", err)
	}

	out := make([]domain.Position, 0, len(remote))
	for _, p := range remote {
		pos := domain.Position{
			Symbol:     p.Symbol,
			Quantity:   p.Qty.InexactFloat64(),
			EntryPrice: p.AvgEntryPrice.InexactFloat64(),
			Status:     domain.PositionStatusOpen,
			UpdatedAt:  time.Now(),
		}
		if p.MarketValue != nil {
			pos.Value = p.MarketValue.InexactFloat64()
		} else {
			pos.Value = pos.Quantity * pos.EntryPrice
		}
		out = append(out, pos)
	}
	return out, nil
}

// Equity returns the account's current equity, used to keep the risk
// gate's drawdown computation in sync with the brokerage.
func (a *Alpaca) Equity(ctx context.Context) (float64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	acct, err := a.client.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("alpaca GetAccount: %w", err)
	}
	return acct.Equity.InexactFloat64(), nil
}
