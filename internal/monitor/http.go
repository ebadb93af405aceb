package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradecore/internal/domain"
	"tradecore/internal/ledger"
	"tradecore/internal/marketdata"
	"tradecore/internal/risk"
)

// OrderSource exposes order records for monitoring queries. The execution
// engine implements it.
type OrderSource interface {
	OrderStatus(id string) (domain.Order, bool)
	Orders() []domain.Order
}

// StatusResponse is the top-level engine health payload.
type StatusResponse struct {
	RiskState     string  `json:"risk_state"`
	Exposure      float64 `json:"exposure"`
	MaxExposure   float64 `json:"max_exposure"`
	Drawdown      float64 `json:"drawdown"`
	CurrentEquity float64 `json:"current_equity"`
	InitialEquity float64 `json:"initial_equity"`
	OpenPositions int     `json:"open_positions"`
	Time          int64   `json:"time"`
}

// TicksResponse carries a recent slice of buffered market data.
type TicksResponse struct {
	Symbol string        `json:"symbol,omitempty"`
	Count  int           `json:"count"`
	Ticks  []domain.Tick `json:"ticks"`
}

// MetricsResponse reports operation timings and trade outcomes.
type MetricsResponse struct {
	Timings map[string]TimingStats `json:"timings"`
	Trades  TradeStats             `json:"trades"`
}

// Server serves the read-only monitoring HTTP API. All handlers read from
// snapshots; none of them can mutate engine state.
type Server struct {
	gate    *risk.Gate
	ledger  *ledger.Ledger
	buffer  *marketdata.Buffer
	orders  OrderSource
	hub     *Hub
	metrics *Metrics
	log     *slog.Logger
}

// NewServer creates a monitoring server. orders, hub, and metrics may be nil,
// in which case the matching endpoints return empty payloads.
func NewServer(gate *risk.Gate, l *ledger.Ledger, buffer *marketdata.Buffer, orders OrderSource, hub *Hub, metrics *Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		gate:    gate,
		ledger:  l,
		buffer:  buffer,
		orders:  orders,
		hub:     hub,
		metrics: metrics,
		log:     log.With("component", "monitor"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/ticks", s.handleTicks)
	mux.HandleFunc("GET /api/ticks/{symbol}", s.handleTicks)
	mux.HandleFunc("GET /api/orders", s.handleOrders)
	mux.HandleFunc("GET /api/orders/{id}", s.handleOrder)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("monitor API listening", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	account := s.gate.Account()
	writeJSON(w, StatusResponse{
		RiskState:     string(s.gate.State()),
		Exposure:      s.gate.CalculateExposure(),
		MaxExposure:   s.gate.Limits().MaxExposure,
		Drawdown:      s.gate.CalculateDrawdown(),
		CurrentEquity: account.CurrentEquity,
		InitialEquity: account.InitialEquity,
		OpenPositions: len(s.ledger.Open()),
		Time:          time.Now().UnixMilli(),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.ledger.Snapshot()
	if r.URL.Query().Get("open") == "true" {
		positions = s.ledger.Open()
	}
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, positions)
}

func (s *Server) handleTicks(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	ticks := s.buffer.Snapshot()

	if symbol != "" {
		filtered := ticks[:0]
		for _, t := range ticks {
			if t.Symbol == symbol {
				filtered = append(filtered, t)
			}
		}
		ticks = filtered
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n < len(ticks) {
			ticks = ticks[len(ticks)-n:]
		}
	}
	if ticks == nil {
		ticks = []domain.Tick{}
	}
	writeJSON(w, TicksResponse{Symbol: symbol, Count: len(ticks), Ticks: ticks})
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.orders == nil {
		writeJSON(w, []domain.Order{})
		return
	}
	orders := s.orders.Orders()
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, orders)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if s.orders == nil {
		writeError(w, http.StatusServiceUnavailable, "order source not configured")
		return
	}
	id := r.PathValue("id")
	order, ok := s.orders.OrderStatus(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found: "+id)
		return
	}
	writeJSON(w, order)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, []Alert{})
		return
	}
	alerts := s.hub.Active()
	if alerts == nil {
		alerts = []Alert{}
	}
	writeJSON(w, alerts)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSON(w, MetricsResponse{Timings: map[string]TimingStats{}})
		return
	}
	writeJSON(w, MetricsResponse{
		Timings: s.metrics.Timings(),
		Trades:  s.metrics.Trades(),
	})
}
