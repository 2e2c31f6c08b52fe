package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"blofin-trading-bot/config"
	"blofin-trading-bot/internal/blofin"
	"blofin-trading-bot/internal/botctl"
	"blofin-trading-bot/internal/events"
	"blofin-trading-bot/internal/executor"
	"blofin-trading-bot/internal/notification"
	"blofin-trading-bot/internal/scanner"
	"blofin-trading-bot/internal/settings"
	"blofin-trading-bot/internal/trading"
)

// mockExchange is an idle exchange: no markets, no positions
type mockExchange struct{}

func (m *mockExchange) FetchCandles(symbol, timeframe string, limit int) ([]blofin.Candle, error) {
	return nil, nil
}
func (m *mockExchange) FetchTicker(symbol string) (*blofin.Ticker, error) {
	return &blofin.Ticker{Symbol: symbol, LastPrice: 1}, nil
}
func (m *mockExchange) FetchMarkets() ([]blofin.Market, error)               { return nil, nil }
func (m *mockExchange) FetchPositions(symbol string) ([]blofin.Position, error) { return nil, nil }
func (m *mockExchange) CreateOrder(params map[string]string) (*blofin.Order, error) {
	return &blofin.Order{OrderID: "1"}, nil
}
func (m *mockExchange) SetLeverage(symbol string, leverage int) error    { return nil }
func (m *mockExchange) SetMarginMode(symbol string, isolated bool) error { return nil }

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)

	logger := zerolog.Nop()
	exec := executor.New(&mockExchange{}, nil, logger)
	exec.SetRetryDelay(time.Millisecond)

	scan := scanner.New(exec, logger)
	positions := trading.NewPositionManager(exec, logger)
	store := settings.NewMemoryStore(config.DefaultSnapshot())
	notifier := notification.NewManager(false, logger)
	bus := events.NewBus()
	bot := trading.NewBot(exec, scan, positions, store, notifier, bus, logger)
	controller := botctl.New(logger)

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0}
	return NewServer(cfg, true, controller, bot, scan, store, bus, logger)
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// TestHealthEndpoint tests the liveness check
func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	w := doRequest(s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

// TestBotStartStopEndpoints tests the lifecycle contract over HTTP
func TestBotStartStopEndpoints(t *testing.T) {
	s := newTestServer()
	defer s.controller.Stop()

	if w := doRequest(s, http.MethodPost, "/api/bot/start", nil); w.Code != http.StatusOK {
		t.Fatalf("First start: expected 200, got %d", w.Code)
	}
	if w := doRequest(s, http.MethodPost, "/api/bot/start", nil); w.Code != http.StatusConflict {
		t.Errorf("Second start: expected 409, got %d", w.Code)
	}
	if w := doRequest(s, http.MethodPost, "/api/bot/stop", nil); w.Code != http.StatusOK {
		t.Errorf("Stop: expected 200, got %d", w.Code)
	}
	if w := doRequest(s, http.MethodPost, "/api/bot/stop", nil); w.Code != http.StatusConflict {
		t.Errorf("Second stop: expected 409, got %d", w.Code)
	}
}

// TestBotStatusEndpoint tests the cached status view
func TestBotStatusEndpoint(t *testing.T) {
	s := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/bot/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var status map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("Invalid status payload: %v", err)
	}
	if status["running"] != false {
		t.Errorf("Expected running=false, got %v", status["running"])
	}
	if status["open_positions"] != float64(0) {
		t.Errorf("Expected 0 open positions, got %v", status["open_positions"])
	}
}

// TestSettingsEndpoints tests reading and updating the trading parameters
func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/settings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var snap config.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Invalid settings payload: %v", err)
	}
	if snap.Timeframe != "1h" {
		t.Errorf("Expected default timeframe 1h, got %s", snap.Timeframe)
	}

	snap.Timeframe = "15m"
	snap.PositionSize = 250
	body, _ := json.Marshal(snap)

	if w := doRequest(s, http.MethodPut, "/api/settings", body); w.Code != http.StatusOK {
		t.Fatalf("Update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(s, http.MethodGet, "/api/settings", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Invalid settings payload: %v", err)
	}
	if snap.Timeframe != "15m" || snap.PositionSize != 250 {
		t.Errorf("Update not persisted: got timeframe=%s size=%f", snap.Timeframe, snap.PositionSize)
	}
}

// TestSettingsUpdateRejectsInvalid tests the validation boundary
func TestSettingsUpdateRejectsInvalid(t *testing.T) {
	s := newTestServer()

	bad := config.DefaultSnapshot()
	bad.Leverage = 0
	body, _ := json.Marshal(bad)

	if w := doRequest(s, http.MethodPut, "/api/settings", body); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid settings, got %d", w.Code)
	}
}

// TestOpportunitiesBeforeFirstScan tests the empty-state response
func TestOpportunitiesBeforeFirstScan(t *testing.T) {
	s := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/scanner/opportunities", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Invalid payload: %v", err)
	}
	if payload["scan"] != nil {
		t.Errorf("Expected nil scan before first cycle, got %v", payload["scan"])
	}
}
