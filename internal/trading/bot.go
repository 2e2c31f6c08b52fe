// Package trading contains the orchestrator that drives the polling cycle:
// fetch positions, scale what pulled back, scan for new entries, place
// orders, then sleep until the next candle boundary.
package trading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"blofin-trading-bot/config"
	"blofin-trading-bot/internal/blofin"
	"blofin-trading-bot/internal/events"
	"blofin-trading-bot/internal/executor"
	"blofin-trading-bot/internal/notification"
	"blofin-trading-bot/internal/scanner"
	"blofin-trading-bot/internal/settings"
	"blofin-trading-bot/internal/strategy"
)

const (
	// candleLimit is how many candles each per-symbol evaluation fetches
	candleLimit = 100

	// errorBackoff is the pause after a cycle fails before the loop resumes
	errorBackoff = 60 * time.Second

	// statusInterval is how often the periodic status notification goes out
	statusInterval = 6 * time.Hour
)

// Bot is the trading orchestrator. Run is handed to the lifecycle controller
// and is the only goroutine that talks to the exchange; the API reads cached
// state through the accessor methods.
type Bot struct {
	exec      *executor.Executor
	scanner   *scanner.Scanner
	positions *PositionManager
	settings  settings.Store
	notifier  *notification.Manager
	bus       *events.Bus
	logger    zerolog.Logger

	mu        sync.RWMutex
	held      []blofin.Position
	lastCycle time.Time
	startedAt time.Time
}

func NewBot(
	exec *executor.Executor,
	scan *scanner.Scanner,
	positions *PositionManager,
	store settings.Store,
	notifier *notification.Manager,
	bus *events.Bus,
	logger zerolog.Logger,
) *Bot {
	return &Bot{
		exec:      exec,
		scanner:   scan,
		positions: positions,
		settings:  store,
		notifier:  notifier,
		bus:       bus,
		logger:    logger.With().Str("component", "bot").Logger(),
	}
}

// Run drives trading cycles until ctx is cancelled. A failed cycle is logged,
// reported, and followed by a fixed backoff; the loop itself survives every
// error.
func (b *Bot) Run(ctx context.Context) {
	b.mu.Lock()
	b.startedAt = time.Now()
	b.mu.Unlock()

	b.logger.Info().Msg("trading loop starting")
	b.notifier.SendInfo("🤖 Bot Started", "Scanning for opportunities")
	b.bus.Publish(events.Event{Type: events.EventBotStarted, Data: map[string]interface{}{}})

	lastStatus := time.Now()

	for ctx.Err() == nil {
		snap, err := b.settings.Snapshot(ctx)
		if err != nil {
			b.cycleFailed(ctx, fmt.Errorf("error loading settings: %w", err))
			continue
		}

		if err := b.runCycle(ctx, snap); err != nil {
			b.cycleFailed(ctx, err)
			continue
		}

		if time.Since(lastStatus) >= statusInterval {
			b.sendStatus()
			lastStatus = time.Now()
		}

		wait := NextCandleWait(time.Now(), snap.Timeframe)
		b.logger.Debug().Dur("wait", wait).Str("timeframe", snap.Timeframe).Msg("sleeping until next candle")
		b.sleep(ctx, wait)
	}

	b.logger.Info().Msg("trading loop stopped")
	b.notifier.SendInfo("🛑 Bot Stopped", "Trading loop has exited")
	b.bus.Publish(events.Event{Type: events.EventBotStopped, Data: map[string]interface{}{}})
}

// cycleFailed reports the error and applies the fixed backoff
func (b *Bot) cycleFailed(ctx context.Context, err error) {
	b.logger.Error().Err(err).Msg("trading cycle failed")
	b.notifier.SendError("Trading Cycle Failed", err.Error())
	b.bus.PublishError("cycle", err)
	b.sleep(ctx, errorBackoff)
}

// runCycle executes one full pass: positions, scale-ins, scan, entries
func (b *Bot) runCycle(ctx context.Context, snap config.Snapshot) error {
	strat := strategy.NewBandStrategy(snap.SMAPeriod, snap.EMAPeriod)

	positions, err := b.exec.GetPositions("")
	if err != nil {
		return fmt.Errorf("error fetching positions: %w", err)
	}
	b.setHeld(positions)

	b.logger.Info().
		Int("open_positions", len(positions)).
		Int("max_positions", snap.MaxPositions).
		Msg("cycle started")

	// Scale existing positions that have pulled back to the opposite band
	for _, pos := range positions {
		if ctx.Err() != nil {
			return nil
		}
		plan, err := b.positions.CheckScaling(snap, strat, pos)
		if err != nil {
			b.logger.Warn().Err(err).Str("symbol", pos.Symbol).Msg("scale check failed, skipping symbol")
			continue
		}
		if plan != nil {
			b.executeScale(snap, *plan)
		}
	}

	active := make([]string, 0, len(positions))
	for _, pos := range positions {
		active = append(active, pos.Symbol)
	}

	opportunities, err := b.scanner.ScanForOpportunities(snap, active)
	if err != nil {
		return fmt.Errorf("error scanning for opportunities: %w", err)
	}
	if last := b.scanner.LastResult(); last != nil {
		b.bus.PublishScanCompleted(last.ScanID, last.SymbolsScanned, len(opportunities))
	}

	for _, opp := range opportunities {
		if ctx.Err() != nil {
			return nil
		}
		b.bus.PublishSignalFound(opp.Symbol, string(opp.Signal.Action), opp.Signal.EntryPrice, opp.Signal.UpperBand, opp.Signal.LowerBand)
		b.openPosition(snap, opp)
	}

	b.mu.Lock()
	b.lastCycle = time.Now()
	b.mu.Unlock()

	return nil
}

// openPosition sets leverage and margin mode, then places a market order
// with the signal's protective levels attached. Leverage and order placement
// are not atomic; any failure skips the symbol for this cycle.
func (b *Bot) openPosition(snap config.Snapshot, opp scanner.Opportunity) {
	symbol := opp.Symbol
	signal := opp.Signal

	if err := b.exec.SetLeverage(symbol, snap.Leverage); err != nil {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("leverage setup failed, skipping symbol")
		return
	}
	if err := b.exec.SetMarginMode(symbol, snap.Isolated); err != nil {
		b.logger.Warn().Err(err).Str("symbol", symbol).Msg("margin mode setup failed, skipping symbol")
		return
	}

	side := "buy"
	if signal.Action == strategy.ActionShort {
		side = "sell"
	}

	_, err := b.exec.CreateOrder(executor.OrderRequest{
		Symbol:     symbol,
		Type:       "market",
		Side:       side,
		AmountUSD:  snap.PositionSize,
		Leverage:   snap.Leverage,
		Isolated:   snap.Isolated,
		StopLoss:   &executor.ProtectivePrice{Price: signal.SLPrice},
		TakeProfit: &executor.ProtectivePrice{Price: signal.TPPrice},
	})
	if err != nil {
		b.logger.Error().Err(err).Str("symbol", symbol).Msg("entry order failed, skipping symbol")
		b.notifier.SendError("Order Failed", fmt.Sprintf("%s %s: %v", side, symbol, err))
		return
	}

	b.notifier.SendTradeOpened(symbol, string(signal.Action), signal.EntryPrice, signal.TPPrice, signal.SLPrice, snap.PositionSize)
	b.bus.PublishOrderPlaced(symbol, string(signal.Action), signal.EntryPrice, signal.TPPrice, signal.SLPrice, snap.PositionSize)
}

// executeScale adds to an existing position with the blended take-profit
func (b *Bot) executeScale(snap config.Snapshot, plan ScalePlan) {
	_, err := b.exec.CreateOrder(executor.OrderRequest{
		Symbol:     plan.Symbol,
		Type:       "market",
		Side:       plan.Side,
		AmountUSD:  plan.AddSizeUSD,
		Leverage:   snap.Leverage,
		Isolated:   snap.Isolated,
		TakeProfit: &executor.ProtectivePrice{Price: plan.NewTP},
	})
	if err != nil {
		b.logger.Error().Err(err).Str("symbol", plan.Symbol).Msg("scale order failed")
		b.notifier.SendError("Scale Order Failed", fmt.Sprintf("%s: %v", plan.Symbol, err))
		return
	}

	b.notifier.SendPositionScaled(plan.Symbol, plan.AddSizeUSD, plan.NewAvgEntry, plan.NewTP)
	b.bus.PublishPositionScaled(plan.Symbol, plan.AddSizeUSD, plan.NewAvgEntry, plan.NewTP)
}

// sendStatus posts the periodic heartbeat with uptime and the position book
func (b *Bot) sendStatus() {
	held := b.HeldPositions()

	b.mu.RLock()
	uptime := time.Since(b.startedAt).Round(time.Second)
	b.mu.RUnlock()

	lines := make([]string, 0, len(held))
	for _, pos := range held {
		lines = append(lines, fmt.Sprintf("%s %s %.4f @ %.4f", pos.Symbol, pos.Side, pos.Size, pos.EntryPrice))
	}

	b.notifier.SendStatus(true, uptime.String(), lines)
	b.bus.Publish(events.Event{
		Type: events.EventStatusUpdate,
		Data: map[string]interface{}{
			"uptime":         uptime.String(),
			"open_positions": len(held),
			"book":           strings.Join(lines, "; "),
		},
	})
}

// sleep blocks for d or until ctx is cancelled
func (b *Bot) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (b *Bot) setHeld(positions []blofin.Position) {
	b.mu.Lock()
	b.held = positions
	b.mu.Unlock()
}

// HeldPositions returns the positions observed at the start of the most
// recent cycle. Serves API reads without touching the exchange.
func (b *Bot) HeldPositions() []blofin.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]blofin.Position, len(b.held))
	copy(out, b.held)
	return out
}

// LastCycleTime returns when the most recent cycle completed, zero before
// the first one.
func (b *Bot) LastCycleTime() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastCycle
}
