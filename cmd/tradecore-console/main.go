// tradecore-console is a terminal monitor for a running engine. It polls
// the monitoring API and redraws a compact dashboard.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tradecore/pkg/tradecore"
)

const refreshInterval = 5 * time.Second

func main() {
	baseURL := "http://localhost:8090"
	if a := os.Getenv("MONITOR_ADDR"); a != "" {
		baseURL = "http://" + a
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := tradecore.NewClient(baseURL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	printDashboard(ctx, client, logger)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			printDashboard(ctx, client, logger)
		case <-ctx.Done():
			fmt.Println("\nshutdown")
			return
		}
	}
}

func printDashboard(ctx context.Context, client *tradecore.Client, logger *slog.Logger) {
	status, err := client.Status(ctx)
	if err != nil {
		logger.Warn("fetching status", "error", err)
		return
	}

	// Clear screen and home cursor.
	fmt.Print("\033[2J\033[H")

	state := strings.ToUpper(status.RiskState)
	marker := ""
	if status.RiskState != "normal" {
		marker = "  <<< ATTENTION"
	}
	fmt.Printf("tradecore  %s\n", time.UnixMilli(status.Time).Format("15:04:05"))
	fmt.Printf("state %-10s exposure %12.2f / %-12.2f drawdown %5.2f%%%s\n",
		state, status.Exposure, status.MaxExposure, status.Drawdown*100, marker)
	fmt.Printf("equity %12.2f (initial %12.2f)  open positions %d\n\n",
		status.CurrentEquity, status.InitialEquity, status.OpenPositions)

	positions, err := client.Positions(ctx, true)
	if err != nil {
		logger.Warn("fetching positions", "error", err)
		return
	}
	if len(positions) > 0 {
		fmt.Printf("%-10s %12s %14s %12s %10s\n", "SYMBOL", "QTY", "VALUE", "ENTRY", "STOP")
		for _, p := range positions {
			fmt.Printf("%-10s %12.4f %14.2f %12.2f %10.2f\n",
				p.Symbol, p.Quantity, p.Value, p.EntryPrice, p.StopLoss)
		}
		fmt.Println()
	}

	metrics, err := client.Metrics(ctx)
	if err == nil {
		t := metrics.Trades
		fmt.Printf("trades %d  win rate %.1f%%\n", t.Executed, t.WinRate)
		for name, s := range metrics.Timings {
			fmt.Printf("  %-14s n=%-5d mean=%-12s max=%s\n", name, s.Count, s.Mean(), s.Max)
		}
	}

	alerts, err := client.Alerts(ctx)
	if err == nil && len(alerts) > 0 {
		fmt.Println("\nrecent alerts:")
		start := len(alerts) - 5
		if start < 0 {
			start = 0
		}
		for _, a := range alerts[start:] {
			fmt.Printf("  %s [%s] %s\n", a.Time.Format("15:04:05"), a.Severity, a.Message)
		}
	}
}
