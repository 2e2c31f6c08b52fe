package strategy

import (
	"blofin-trading-bot/internal/blofin"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// CalculateSMA calculates the Simple Moving Average over the trailing period closes
func CalculateSMA(candles []blofin.Candle, period int) float64 {
	if len(candles) < period {
		return 0
	}

	sum := 0.0
	startIdx := len(candles) - period

	for i := startIdx; i < len(candles); i++ {
		sum += candles[i].Close
	}

	return sum / float64(period)
}

// CalculateEMA calculates the Exponential Moving Average with span smoothing.
// The smoothing factor is 2/(period+1), seeded from the first close with no
// bias adjustment, so the whole series contributes to the final value.
func CalculateEMA(candles []blofin.Candle, period int) float64 {
	if len(candles) == 0 || period <= 0 {
		return 0
	}

	multiplier := 2.0 / float64(period+1)

	ema := candles[0].Close
	for i := 1; i < len(candles); i++ {
		ema = (candles[i].Close * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}
