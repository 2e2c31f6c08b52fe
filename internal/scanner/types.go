package scanner

import (
	"time"

	"blofin-trading-bot/internal/strategy"
)

// CoinVolume pairs a symbol with its 24h quote volume
type CoinVolume struct {
	Symbol string  `json:"symbol"`
	Volume float64 `json:"volume"`
}

// Opportunity is a tradable signal found during a scan. Produced fresh each
// cycle and never persisted.
type Opportunity struct {
	Symbol string          `json:"symbol"`
	Signal strategy.Signal `json:"signal"`
	Volume float64         `json:"volume"` // most recent candle volume
}

// ScanResult aggregates the outcome of one scan cycle
type ScanResult struct {
	ScanID         string        `json:"scan_id"`
	StartTime      time.Time     `json:"start_time"`
	Duration       time.Duration `json:"duration"`
	SymbolsScanned int           `json:"symbols_scanned"`
	Opportunities  []Opportunity `json:"opportunities"`
}
