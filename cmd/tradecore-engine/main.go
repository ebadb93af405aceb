package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tradecore/internal/config"
	"tradecore/internal/domain"
	"tradecore/internal/execution"
	"tradecore/internal/feed"
	"tradecore/internal/ledger"
	"tradecore/internal/marketdata"
	"tradecore/internal/monitor"
	"tradecore/internal/risk"
	"tradecore/internal/store"
	"tradecore/internal/strategy"
	"tradecore/internal/strategy/builtins"
	"tradecore/internal/util"
	"tradecore/internal/venue"
)

const (
	reconcileInterval = 5 * time.Minute
	archiveInterval   = time.Minute
)

func main() {
	cfgPath := "config/tradecore.yaml"
	if p := os.Getenv("TRADECORE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Core state.
	buffer := marketdata.NewBuffer(cfg.Feed.BufferCapacity)
	book := ledger.New()
	hub := monitor.NewHub()
	metrics := monitor.NewMetrics()

	limits := domain.RiskLimits{
		MaxExposure:      cfg.Risk.MaxExposure,
		MaxDrawdownPct:   cfg.Risk.MaxDrawdownPct,
		RiskTolerancePct: cfg.Risk.RiskTolerancePct,
	}
	account := domain.AccountState{
		Balance:       cfg.Risk.AccountBalance,
		InitialEquity: cfg.Risk.InitialEquity,
		CurrentEquity: cfg.Risk.InitialEquity,
	}
	gate := risk.NewGate(limits, account, book, cfg.Risk.MinReturnSamples, hub, logger)

	// Audit journal.
	var journal *store.SQLiteJournal
	if cfg.Storage.JournalPath != "" {
		journal, err = store.NewSQLiteJournal(cfg.Storage.JournalPath)
		if err != nil {
			log.Fatalf("failed to open journal: %v", err)
		}
		defer journal.Close()
	}

	// Venue: live Alpaca unless running in paper mode.
	var primary venue.Venue
	if cfg.Execution.PaperMode || cfg.Alpaca.APIKey == "" {
		logger.Info("running in paper mode")
		primary = venue.NewSimulator("paper", 0.001, 0.0005, func(symbol string) (float64, bool) {
			tick, ok := buffer.Last(symbol)
			return tick.Price, ok
		})
	} else {
		primary = venue.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL,
			0.0, 0.0005, cfg.Execution.RateLimitPerMin)
	}

	engine := execution.NewEngine(
		execution.Config{
			RetryAttempts:  cfg.Execution.RetryAttempts,
			RetryBaseDelay: cfg.Execution.RetryBaseDelay(),
			TWAPSlices:     cfg.Execution.TWAPSlices,
		},
		gate, book, buffer, []venue.Venue{primary},
		journalOrNil(journal), hub, metrics, metrics, logger,
	)

	var wg sync.WaitGroup

	// Market data feed.
	if cfg.Feed.URL != "" {
		adapter := feed.NewAdapter(feed.Config{URL: cfg.Feed.URL, Symbols: cfg.Feed.Symbols}, buffer, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adapter.Run(ctx); err != nil {
				logger.Error("feed stopped", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Warn("no feed URL configured, buffer will stay empty")
	}

	// Persist alerts alongside the in-memory hub history.
	if journal != nil {
		subID, alertCh := hub.Subscribe(64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer hub.Unsubscribe(subID)
			for {
				select {
				case <-ctx.Done():
					return
				case a, ok := <-alertCh:
					if !ok {
						return
					}
					if err := journal.RecordAlert(ctx, a.Time, a.Severity, a.Message); err != nil && ctx.Err() == nil {
						logger.Warn("journaling alert", "error", err)
					}
				}
			}
		}()
	}

	// Tick archival.
	if cfg.Storage.DataDir != "" {
		ticks := store.NewParquetTickStore(cfg.Storage.DataDir)
		wg.Add(1)
		go func() {
			defer wg.Done()
			archiveTicks(ctx, ticks, buffer, logger)
		}()
	}

	// Periodic reconciliation against the venue, refreshing brokerage
	// equity first so drawdown is computed from the same snapshot.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(reconcileInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if broker, ok := primary.(*venue.Alpaca); ok {
					if equity, err := broker.Equity(ctx); err == nil {
						gate.SetCurrentEquity(equity)
					} else if ctx.Err() == nil {
						logger.Warn("fetching equity", "error", err)
					}
				}
				if err := engine.ReconcilePositions(ctx, primary.Name()); err != nil && ctx.Err() == nil {
					logger.Error("reconciliation failed", "venue", primary.Name(), "error", err)
				}
			}
		}
	}()

	// Automated trading loop.
	if cfg.Strategy.Name != "" {
		registry := strategy.NewRegistry()
		builtins.Register(registry)
		strat, err := registry.Create(cfg.Strategy.Name)
		if err != nil {
			log.Fatalf("failed to create strategy: %v", err)
		}
		logger.Info("strategy enabled", "name", strat.Name(), "interval", cfg.Strategy.Interval())
		wg.Add(1)
		go func() {
			defer wg.Done()
			runStrategy(ctx, cfg, strat, engine, gate, book, buffer, logger)
		}()
	}

	// Monitoring API.
	server := monitor.NewServer(gate, book, buffer, engine, hub, metrics, logger)
	go func() {
		if err := server.ListenAndServe(cfg.Monitor.Addr); err != nil && ctx.Err() == nil {
			logger.Error("monitor server stopped", "error", err)
			cancel()
		}
	}()

	logger.Info("engine started",
		"symbols", cfg.Feed.Symbols, "paper", cfg.Execution.PaperMode,
		"monitor", cfg.Monitor.Addr)

	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
}

// journalOrNil converts the concrete journal into the engine's interface
// without wrapping a typed nil.
func journalOrNil(j *store.SQLiteJournal) execution.Journal {
	if j == nil {
		return nil
	}
	return j
}

// archiveTicks periodically flushes newly buffered ticks to the archive.
func archiveTicks(ctx context.Context, ticks *store.ParquetTickStore, buffer *marketdata.Buffer, logger *slog.Logger) {
	ticker := time.NewTicker(archiveInterval)
	defer ticker.Stop()

	var lastFlush time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := buffer.Snapshot()
			var fresh []domain.Tick
			for _, t := range snapshot {
				if t.Timestamp.After(lastFlush) {
					fresh = append(fresh, t)
				}
			}
			if len(fresh) == 0 {
				continue
			}
			if err := ticks.WriteTicks(ctx, fresh); err != nil {
				logger.Warn("archiving ticks", "error", err)
				continue
			}
			lastFlush = fresh[len(fresh)-1].Timestamp
		}
	}
}

// runStrategy evaluates the strategy on a fixed cadence and routes entry
// and exit orders through the engine.
func runStrategy(
	ctx context.Context,
	cfg *config.Config,
	strat strategy.Strategy,
	engine *execution.Engine,
	gate *risk.Gate,
	book *ledger.Ledger,
	buffer *marketdata.Buffer,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(cfg.Strategy.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if gate.State() != risk.StateNormal {
			continue
		}

		snapshot := buffer.Snapshot()

		// Exits first so capital frees up before new entries.
		for _, pos := range book.Open() {
			if !strat.ExitCondition(snapshot, pos) {
				continue
			}
			side := domain.OrderSideSell
			if pos.Quantity < 0 {
				side = domain.OrderSideBuy
			}
			qty := pos.Quantity
			if qty < 0 {
				qty = -qty
			}
			if _, err := engine.RouteOrder(ctx, pos.Symbol, side, domain.OrderTypeMarket, qty, 0); err != nil {
				logger.Warn("exit order failed", "symbol", pos.Symbol, "error", err)
			}
		}

		for _, sig := range strat.GenerateSignals(snapshot) {
			if sig.Side != domain.SignalSideBuy {
				continue
			}
			if pos, ok := book.Get(sig.Symbol); ok && pos.Status == domain.PositionStatusOpen {
				continue
			}
			last, ok := buffer.Last(sig.Symbol)
			if !ok {
				continue
			}
			entry := last.Price
			stop := entry * (1 - cfg.Strategy.StopLossPct/100)
			qty, err := strat.PositionSize(gate.Account().Balance, entry, stop)
			if err != nil || qty <= 0 {
				continue
			}
			order, err := engine.RouteOrder(ctx, sig.Symbol, domain.OrderSideBuy, domain.OrderTypeMarket, qty, 0)
			if err != nil {
				logger.Warn("entry order failed", "symbol", sig.Symbol, "error", err)
				continue
			}
			if order.Status == domain.OrderStatusFilled {
				book.SetStopLoss(sig.Symbol, stop)
			}
		}
	}
}
