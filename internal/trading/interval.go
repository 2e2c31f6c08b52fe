package trading

import "time"

// boundaryBuffer is added after each candle boundary so the just-closed
// candle is already available when the next cycle fetches it.
const boundaryBuffer = 2 * time.Second

// timeframeDuration maps a candle interval string to its duration. Unknown
// values fall back to one hour; config validation rejects them upstream.
func timeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// NextCandleWait returns how long to sleep from now until just after the
// next candle boundary for the given timeframe.
func NextCandleWait(now time.Time, timeframe string) time.Duration {
	interval := timeframeDuration(timeframe)
	next := now.UTC().Truncate(interval).Add(interval)
	return next.Sub(now.UTC()) + boundaryBuffer
}
