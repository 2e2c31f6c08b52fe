package executor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"blofin-trading-bot/internal/blofin"
)

// Retry configuration for exchange calls
const (
	MaxRetries        = 3
	DefaultRetryDelay = 5 * time.Second
)

// Exchange is the set of exchange operations the executor wraps. Implemented
// by *blofin.Client and by mocks in tests.
type Exchange interface {
	FetchCandles(symbol, timeframe string, limit int) ([]blofin.Candle, error)
	FetchTicker(symbol string) (*blofin.Ticker, error)
	FetchMarkets() ([]blofin.Market, error)
	FetchPositions(symbol string) ([]blofin.Position, error)
	CreateOrder(params map[string]string) (*blofin.Order, error)
	SetLeverage(symbol string, leverage int) error
	SetMarginMode(symbol string, isolated bool) error
}

// ClientFactory builds a fresh exchange client, used to re-initialize the
// session after an authorization failure.
type ClientFactory func() (Exchange, error)

// Executor wraps all exchange calls in bounded retries and owns the
// reconnect-on-auth-failure logic. Safe for concurrent use: the scanner's
// worker pool shares one instance, so the live client is swapped under a
// lock.
type Executor struct {
	mu         sync.RWMutex
	ex         Exchange
	retryDelay time.Duration

	newClient  ClientFactory
	maxRetries int
	logger     zerolog.Logger
}

func New(ex Exchange, factory ClientFactory, logger zerolog.Logger) *Executor {
	return &Executor{
		ex:         ex,
		newClient:  factory,
		maxRetries: MaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     logger.With().Str("component", "executor").Logger(),
	}
}

// SetRetryDelay overrides the fixed inter-attempt delay
func (e *Executor) SetRetryDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retryDelay = d
}

// exchange returns the current client; reconnect may swap it between
// attempts
func (e *Executor) exchange() Exchange {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ex
}

func (e *Executor) delay() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.retryDelay
}

// withRetry runs fn up to maxRetries times with a fixed delay between
// attempts. Auth-indicating exchange errors trigger a client
// re-initialization before the next attempt. The final error is wrapped in a
// RetriesExhaustedError, never swallowed.
func (e *Executor) withRetry(op string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		e.logger.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", e.maxRetries).
			Msg("exchange call failed")

		if blofin.IsAuthError(err) {
			e.reconnect()
		}

		if attempt < e.maxRetries {
			time.Sleep(e.delay())
		}
	}

	return &RetriesExhaustedError{Op: op, Attempts: e.maxRetries, Err: lastErr}
}

// reconnect swaps in a freshly initialized exchange client
func (e *Executor) reconnect() {
	if e.newClient == nil {
		return
	}

	fresh, err := e.newClient()
	if err != nil {
		e.logger.Error().Err(err).Msg("client re-initialization failed")
		return
	}

	e.mu.Lock()
	e.ex = fresh
	e.mu.Unlock()
	e.logger.Info().Msg("exchange client re-initialized after auth failure")
}

// GetCandles fetches OHLCV data with retries
func (e *Executor) GetCandles(symbol, timeframe string, limit int) ([]blofin.Candle, error) {
	var candles []blofin.Candle
	err := e.withRetry("fetch candles", func() error {
		var err error
		candles, err = e.exchange().FetchCandles(symbol, timeframe, limit)
		return err
	})
	return candles, err
}

// GetTicker fetches the 24h ticker with retries
func (e *Executor) GetTicker(symbol string) (*blofin.Ticker, error) {
	var ticker *blofin.Ticker
	err := e.withRetry("fetch ticker", func() error {
		var err error
		ticker, err = e.exchange().FetchTicker(symbol)
		return err
	})
	return ticker, err
}

// GetMarkets fetches the instrument list with retries
func (e *Executor) GetMarkets() ([]blofin.Market, error) {
	var markets []blofin.Market
	err := e.withRetry("fetch markets", func() error {
		var err error
		markets, err = e.exchange().FetchMarkets()
		return err
	})
	return markets, err
}

// GetPositions fetches positions with retries, keeping only entries with a
// nonzero contract size. Pass an empty symbol for all instruments.
func (e *Executor) GetPositions(symbol string) ([]blofin.Position, error) {
	var raw []blofin.Position
	err := e.withRetry("fetch positions", func() error {
		var err error
		raw, err = e.exchange().FetchPositions(symbol)
		return err
	})
	if err != nil {
		return nil, err
	}

	open := make([]blofin.Position, 0, len(raw))
	for _, pos := range raw {
		if pos.Size > 0 {
			open = append(open, pos)
		}
	}
	return open, nil
}

// SetLeverage sets leverage for a symbol with retries
func (e *Executor) SetLeverage(symbol string, leverage int) error {
	if leverage <= 0 {
		return &ValidationError{Field: "leverage", Reason: "must be positive"}
	}

	return e.withRetry("set leverage", func() error {
		return e.exchange().SetLeverage(symbol, leverage)
	})
}

// SetMarginMode sets the margin mode for a symbol with retries
func (e *Executor) SetMarginMode(symbol string, isolated bool) error {
	return e.withRetry("set margin mode", func() error {
		return e.exchange().SetMarginMode(symbol, isolated)
	})
}
