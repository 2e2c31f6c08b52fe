package strategy

import (
	"errors"
	"fmt"

	"blofin-trading-bot/internal/blofin"
)

// ErrInsufficientData indicates there are too few candles for the configured periods
var ErrInsufficientData = errors.New("insufficient candle data for configured periods")

// Action represents the direction of a trading signal
type Action string

const (
	ActionNone  Action = "none"
	ActionLong  Action = "long"
	ActionShort Action = "short"
)

// Signal represents a band-strategy trading signal.
// Entry, TP and SL are only set when Action is long or short.
type Signal struct {
	Action     Action  `json:"action"`
	EntryPrice float64 `json:"entry_price,omitempty"`
	TPPrice    float64 `json:"tp_price,omitempty"`
	SLPrice    float64 `json:"sl_price,omitempty"`
	UpperBand  float64 `json:"upper_band,omitempty"`
	LowerBand  float64 `json:"lower_band,omitempty"`
}

// PositionLot is the slice of an open position that matters for averaging:
// its size and the price it was entered at.
type PositionLot struct {
	Size       float64
	EntryPrice float64
}

const (
	tpPercent = 0.02 // 2% take profit from entry
	slPercent = 0.01 // 1% beyond the far band
)

// BandStrategy generates signals from the SMA/EMA band around price
type BandStrategy struct {
	smaPeriod int
	emaPeriod int
}

func NewBandStrategy(smaPeriod, emaPeriod int) *BandStrategy {
	return &BandStrategy{
		smaPeriod: smaPeriod,
		emaPeriod: emaPeriod,
	}
}

// CalculateBands returns the most recent SMA and EMA values
func (s *BandStrategy) CalculateBands(candles []blofin.Candle) (sma, ema float64, err error) {
	minLen := s.smaPeriod
	if s.emaPeriod > minLen {
		minLen = s.emaPeriod
	}
	if len(candles) < minLen {
		return 0, 0, fmt.Errorf("%w: have %d candles, need %d", ErrInsufficientData, len(candles), minLen)
	}

	return CalculateSMA(candles, s.smaPeriod), CalculateEMA(candles, s.emaPeriod), nil
}

// GetSignal evaluates the latest close against the SMA/EMA band.
// Price strictly above the upper band is a long, strictly below the lower band
// is a short; a close sitting exactly on a band produces no signal.
func (s *BandStrategy) GetSignal(candles []blofin.Candle) (Signal, error) {
	if len(candles) == 0 {
		return Signal{Action: ActionNone}, nil
	}

	sma, ema, err := s.CalculateBands(candles)
	if err != nil {
		return Signal{Action: ActionNone}, err
	}

	upper := max(sma, ema)
	lower := min(sma, ema)
	price := candles[len(candles)-1].Close

	signal := Signal{
		Action:    ActionNone,
		UpperBand: upper,
		LowerBand: lower,
	}

	switch {
	case price > upper:
		signal.Action = ActionLong
		signal.EntryPrice = price
		signal.TPPrice = price * (1 + tpPercent)
		signal.SLPrice = lower * (1 - slPercent)
	case price < lower:
		signal.Action = ActionShort
		signal.EntryPrice = price
		signal.TPPrice = price * (1 - tpPercent)
		signal.SLPrice = upper * (1 + slPercent)
	}

	return signal, nil
}

// ShouldScalePosition reports whether price has crossed to the opposite band
// from the position's side: at or below the lower band for a long, at or above
// the upper band for a short.
func (s *BandStrategy) ShouldScalePosition(candles []blofin.Candle, positionType Action) (bool, error) {
	if len(candles) == 0 {
		return false, nil
	}

	sma, ema, err := s.CalculateBands(candles)
	if err != nil {
		return false, err
	}

	price := candles[len(candles)-1].Close

	switch positionType {
	case ActionLong:
		return price <= min(sma, ema), nil
	case ActionShort:
		return price >= max(sma, ema), nil
	}

	return false, nil
}

// CalculateNewTP computes the blended take-profit after scaling: 2% from the
// volume-weighted average entry across the given lots, above it for a long
// and below it for a short. With no lots (or zero total size) it falls back
// to 2% from the current price.
func (s *BandStrategy) CalculateNewTP(positionType Action, currentPrice float64, lots []PositionLot) float64 {
	totalSize := 0.0
	weighted := 0.0
	for _, lot := range lots {
		totalSize += lot.Size
		weighted += lot.Size * lot.EntryPrice
	}

	base := currentPrice
	if totalSize > 0 {
		base = weighted / totalSize
	}

	if positionType == ActionShort {
		return base * (1 - tpPercent)
	}
	return base * (1 + tpPercent)
}
