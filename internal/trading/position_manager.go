package trading

import (
	"github.com/rs/zerolog"

	"blofin-trading-bot/config"
	"blofin-trading-bot/internal/blofin"
	"blofin-trading-bot/internal/executor"
	"blofin-trading-bot/internal/strategy"
)

// ScalePlan describes an addition to an existing position: how much to add
// and the blended take-profit that replaces the old one.
type ScalePlan struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"` // buy or sell, same side as the position
	AddSizeUSD   float64 `json:"add_size_usd"`
	CurrentPrice float64 `json:"current_price"`
	NewAvgEntry  float64 `json:"new_avg_entry"`
	NewTP        float64 `json:"new_tp"`
}

// PositionManager evaluates held positions against the band strategy and
// plans scale-in orders when price has crossed to the opposite band.
type PositionManager struct {
	exec   *executor.Executor
	logger zerolog.Logger
}

func NewPositionManager(exec *executor.Executor, logger zerolog.Logger) *PositionManager {
	return &PositionManager{
		exec:   exec,
		logger: logger.With().Str("component", "positions").Logger(),
	}
}

// positionAction maps the exchange's position side onto a strategy action
func positionAction(pos blofin.Position) strategy.Action {
	if pos.Side == "sell" {
		return strategy.ActionShort
	}
	return strategy.ActionLong
}

// CheckScaling fetches fresh candles for a held position and reports whether
// a scale-in is due. Returns nil with no error when the position should be
// left alone.
func (m *PositionManager) CheckScaling(snap config.Snapshot, strat *strategy.BandStrategy, pos blofin.Position) (*ScalePlan, error) {
	candles, err := m.exec.GetCandles(pos.Symbol, snap.Timeframe, candleLimit)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, nil
	}

	action := positionAction(pos)
	due, err := strat.ShouldScalePosition(candles, action)
	if err != nil {
		return nil, err
	}
	if !due {
		return nil, nil
	}

	price := candles[len(candles)-1].Close
	if price <= 0 {
		return nil, nil
	}

	return m.buildPlan(snap, strat, pos, action, price), nil
}

// buildPlan sizes the addition and recomputes the blended take-profit. The
// average entry is volume-weighted across the existing position and the lot
// about to be placed, so the new TP reflects the position as it will exist
// after the fill.
func (m *PositionManager) buildPlan(snap config.Snapshot, strat *strategy.BandStrategy, pos blofin.Position, action strategy.Action, price float64) *ScalePlan {
	addUSD := snap.PositionSize * snap.ScaleMultiplier

	leverage := pos.Leverage
	if leverage <= 0 {
		leverage = snap.Leverage
	}
	addQty := (addUSD * float64(leverage)) / price

	lots := []strategy.PositionLot{
		{Size: pos.Size, EntryPrice: pos.EntryPrice},
		{Size: addQty, EntryPrice: price},
	}

	totalSize := pos.Size + addQty
	avgEntry := (pos.Size*pos.EntryPrice + addQty*price) / totalSize

	side := "buy"
	if action == strategy.ActionShort {
		side = "sell"
	}
	newTP := strat.CalculateNewTP(action, price, lots)

	m.logger.Info().
		Str("symbol", pos.Symbol).
		Str("side", side).
		Float64("price", price).
		Float64("add_size_usd", addUSD).
		Float64("new_avg_entry", avgEntry).
		Float64("new_tp", newTP).
		Msg("position due for scale-in")

	return &ScalePlan{
		Symbol:       pos.Symbol,
		Side:         side,
		AddSizeUSD:   addUSD,
		CurrentPrice: price,
		NewAvgEntry:  avgEntry,
		NewTP:        newTP,
	}
}
