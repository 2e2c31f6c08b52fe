package trading

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"blofin-trading-bot/config"
	"blofin-trading-bot/internal/blofin"
	"blofin-trading-bot/internal/events"
	"blofin-trading-bot/internal/executor"
	"blofin-trading-bot/internal/notification"
	"blofin-trading-bot/internal/scanner"
	"blofin-trading-bot/internal/settings"
)

// cycleMockExchange drives full-cycle tests. The scanner hits it from several
// goroutines at once, so all state is behind a mutex.
type cycleMockExchange struct {
	mu           sync.Mutex
	markets      []blofin.Market
	candles      map[string][]blofin.Candle
	positions    []blofin.Position
	positionsErr error
	orderErrs    map[string]error
	orders       []map[string]string
}

func (m *cycleMockExchange) FetchCandles(symbol, timeframe string, limit int) ([]blofin.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.candles[symbol], nil
}

func (m *cycleMockExchange) FetchTicker(symbol string) (*blofin.Ticker, error) {
	return &blofin.Ticker{Symbol: symbol, LastPrice: 100, QuoteVolume: 5_000_000}, nil
}

func (m *cycleMockExchange) FetchMarkets() ([]blofin.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markets, nil
}

func (m *cycleMockExchange) FetchPositions(symbol string) ([]blofin.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positions, m.positionsErr
}

func (m *cycleMockExchange) CreateOrder(params map[string]string) (*blofin.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.orderErrs[params["instId"]]; err != nil {
		return nil, err
	}
	m.orders = append(m.orders, params)
	return &blofin.Order{OrderID: "1"}, nil
}

func (m *cycleMockExchange) SetLeverage(symbol string, leverage int) error { return nil }

func (m *cycleMockExchange) SetMarginMode(symbol string, isolated bool) error { return nil }

func (m *cycleMockExchange) placedOrders() []map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]string, len(m.orders))
	copy(out, m.orders)
	return out
}

// recordingNotifier captures everything the bot sends so tests can assert on
// the notification stream
type recordingNotifier struct {
	mu  sync.Mutex
	got []notification.Notification
	ch  chan notification.Notification
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan notification.Notification, 32)}
}

func (r *recordingNotifier) Send(n *notification.Notification) error {
	r.mu.Lock()
	r.got = append(r.got, *n)
	r.mu.Unlock()

	select {
	case r.ch <- *n:
	default:
	}
	return nil
}

func (r *recordingNotifier) Name() string { return "recorder" }

func (r *recordingNotifier) IsEnabled() bool { return true }

// titles returns the titles of all recorded notifications of the given type
func (r *recordingNotifier) titles(kind notification.NotificationType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		if n.Type == kind {
			out = append(out, n.Title)
		}
	}
	return out
}

// waitFor blocks until a notification of the given type arrives or the
// deadline passes
func (r *recordingNotifier) waitFor(t *testing.T, kind notification.NotificationType, timeout time.Duration) notification.Notification {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case n := <-r.ch:
			if n.Type == kind {
				return n
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %s notification", kind)
			return notification.Notification{}
		}
	}
}

func newTestBot(mock *cycleMockExchange, snap config.Snapshot) (*Bot, *recordingNotifier) {
	exec := executor.New(mock, nil, zerolog.Nop())
	exec.SetRetryDelay(time.Millisecond)

	rec := newRecordingNotifier()
	notifier := notification.NewManager(true, zerolog.Nop())
	notifier.AddNotifier(rec)

	bot := NewBot(
		exec,
		scanner.New(exec, zerolog.Nop()),
		NewPositionManager(exec, zerolog.Nop()),
		settings.NewMemoryStore(snap),
		notifier,
		events.NewBus(),
		zerolog.Nop(),
	)
	return bot, rec
}

// breakoutCandles builds a flat series ending in an upward breakout, with the
// last candle carrying the given volume so scan ordering is deterministic
func breakoutCandles(volume float64) []blofin.Candle {
	closes := []float64{100, 100, 100, 106}
	candles := make([]blofin.Candle, len(closes))
	for i, c := range closes {
		candles[i] = blofin.Candle{Timestamp: int64(i), Close: c, Volume: 1}
	}
	candles[len(candles)-1].Volume = volume
	return candles
}

// TestRunCycleContinuesPastFailedOrder tests that a failed entry order is
// reported and skipped while the rest of the cycle's opportunities still
// execute
func TestRunCycleContinuesPastFailedOrder(t *testing.T) {
	mock := &cycleMockExchange{
		markets: []blofin.Market{
			{Symbol: "AAA-USDT", QuoteAsset: "USDT", Active: true},
			{Symbol: "BBB-USDT", QuoteAsset: "USDT", Active: true},
		},
		candles: map[string][]blofin.Candle{
			"AAA-USDT": breakoutCandles(10),
			"BBB-USDT": breakoutCandles(5),
		},
		orderErrs: map[string]error{
			"AAA-USDT": &blofin.NetworkError{Op: "create order", Err: errors.New("connection reset")},
		},
	}

	snap := testSnapshot()
	bot, rec := newTestBot(mock, snap)

	if err := bot.runCycle(context.Background(), snap); err != nil {
		t.Fatalf("runCycle failed: %v", err)
	}

	orders := mock.placedOrders()
	if len(orders) != 1 {
		t.Fatalf("Expected 1 placed order, got %d", len(orders))
	}
	if orders[0]["instId"] != "BBB-USDT" {
		t.Errorf("Expected the surviving order for BBB-USDT, got %s", orders[0]["instId"])
	}

	errTitles := rec.titles(notification.NotifyError)
	if len(errTitles) != 1 || !strings.Contains(errTitles[0], "Order Failed") {
		t.Errorf("Expected one Order Failed notification, got %v", errTitles)
	}
	if trades := rec.titles(notification.NotifyTrade); len(trades) != 1 {
		t.Errorf("Expected one trade notification, got %v", trades)
	}
}

// TestRunSurvivesFailedCycle tests that a failed cycle produces an error
// notification, backs off instead of exiting, and that cancellation still
// drains cleanly with the shutdown notification
func TestRunSurvivesFailedCycle(t *testing.T) {
	mock := &cycleMockExchange{
		positionsErr: &blofin.NetworkError{Op: "fetch positions", Err: errors.New("timeout")},
	}

	bot, rec := newTestBot(mock, testSnapshot())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bot.Run(ctx)
		close(done)
	}()

	errNote := rec.waitFor(t, notification.NotifyError, 2*time.Second)
	if !strings.Contains(errNote.Title, "Trading Cycle Failed") {
		t.Errorf("Expected cycle failure notification, got %q", errNote.Title)
	}

	// The loop must be sitting in its backoff, not exited
	select {
	case <-done:
		t.Fatal("Run exited after a failed cycle instead of backing off")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	var stopped bool
	for _, title := range rec.titles(notification.NotifyInfo) {
		if strings.Contains(title, "Bot Stopped") {
			stopped = true
		}
	}
	if !stopped {
		t.Error("Expected a shutdown notification after the loop exited")
	}
}
