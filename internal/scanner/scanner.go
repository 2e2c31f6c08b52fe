package scanner

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blofin-trading-bot/config"
	"blofin-trading-bot/internal/executor"
	"blofin-trading-bot/internal/strategy"
)

const (
	// candleLimit is how many candles are fetched per symbol for signal
	// evaluation; enough history for the longest supported MA period.
	candleLimit = 100

	// workerCount bounds concurrent per-symbol exchange calls
	workerCount = 8
)

// Scanner ranks tradable symbols by 24h volume and evaluates each against the
// band strategy to produce trading opportunities.
type Scanner struct {
	exec   *executor.Executor
	logger zerolog.Logger

	mu         sync.RWMutex
	lastResult *ScanResult
}

func New(exec *executor.Executor, logger zerolog.Logger) *Scanner {
	return &Scanner{
		exec:   exec,
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// TopVolumeCoins lists active symbols quoted in the configured asset, ranked
// by descending 24h quote volume. Symbols with missing, zero, negative, or
// below-floor volume are discarded; a volume exactly at the floor is excluded.
func (s *Scanner) TopVolumeCoins(snap config.Snapshot) ([]CoinVolume, error) {
	markets, err := s.exec.GetMarkets()
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		if m.Active && m.QuoteAsset == snap.QuoteAsset {
			symbols = append(symbols, m.Symbol)
		}
	}

	s.logger.Info().
		Int("pairs", len(symbols)).
		Str("quote_asset", snap.QuoteAsset).
		Msg("ranking active pairs by volume")

	volumes := s.fetchVolumes(symbols, snap.MinQuoteVolume)

	sort.Slice(volumes, func(i, j int) bool {
		return volumes[i].Volume > volumes[j].Volume
	})

	if len(volumes) > snap.TopCoinsToScan {
		volumes = volumes[:snap.TopCoinsToScan]
	}

	for _, v := range volumes {
		s.logger.Debug().Str("symbol", v.Symbol).Float64("volume", v.Volume).Msg("top volume pair")
	}

	return volumes, nil
}

// fetchVolumes collects 24h quote volumes through a bounded worker pool,
// dropping symbols whose ticker fails or whose volume is below the floor
func (s *Scanner) fetchVolumes(symbols []string, minVolume float64) []CoinVolume {
	symbolChan := make(chan string, len(symbols))
	resultChan := make(chan CoinVolume, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolChan {
				ticker, err := s.exec.GetTicker(symbol)
				if err != nil {
					s.logger.Debug().Err(err).Str("symbol", symbol).Msg("skipping pair, no ticker data")
					continue
				}
				if ticker.QuoteVolume <= 0 || ticker.QuoteVolume <= minVolume {
					continue
				}
				resultChan <- CoinVolume{Symbol: symbol, Volume: ticker.QuoteVolume}
			}
		}()
	}

	for _, symbol := range symbols {
		symbolChan <- symbol
	}
	close(symbolChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	volumes := make([]CoinVolume, 0, len(symbols))
	for v := range resultChan {
		volumes = append(volumes, v)
	}
	return volumes
}

// ScanForOpportunities evaluates the top-volume symbols against the band
// strategy. Symbols already held are skipped, per-symbol failures are logged
// and skipped, and the result is capped at the number of free position slots.
func (s *Scanner) ScanForOpportunities(snap config.Snapshot, activeSymbols []string) ([]Opportunity, error) {
	if len(activeSymbols) >= snap.MaxPositions {
		s.logger.Info().
			Int("active", len(activeSymbols)).
			Int("max", snap.MaxPositions).
			Msg("already at maximum positions, skipping scan")
		return nil, nil
	}

	scanID := uuid.New().String()
	startTime := time.Now()
	s.logger.Info().
		Str("scan_id", scanID).
		Int("active_positions", len(activeSymbols)).
		Int("max_positions", snap.MaxPositions).
		Msg("starting scan")

	topCoins, err := s.TopVolumeCoins(snap)
	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(activeSymbols))
	for _, sym := range activeSymbols {
		held[sym] = true
	}

	candidates := make([]string, 0, len(topCoins))
	for _, coin := range topCoins {
		if held[coin.Symbol] {
			s.logger.Debug().Str("symbol", coin.Symbol).Msg("skipping, position already open")
			continue
		}
		candidates = append(candidates, coin.Symbol)
	}

	opportunities := s.evaluateSymbols(snap, candidates)

	// Highest most-recent candle volume first
	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].Volume > opportunities[j].Volume
	})

	slots := snap.MaxPositions - len(activeSymbols)
	if len(opportunities) > slots {
		opportunities = opportunities[:slots]
	}

	result := &ScanResult{
		ScanID:         scanID,
		StartTime:      startTime,
		Duration:       time.Since(startTime),
		SymbolsScanned: len(candidates),
		Opportunities:  opportunities,
	}

	s.mu.Lock()
	s.lastResult = result
	s.mu.Unlock()

	s.logger.Info().
		Str("scan_id", scanID).
		Dur("duration", result.Duration).
		Int("scanned", len(candidates)).
		Int("opportunities", len(opportunities)).
		Msg("scan completed")

	return opportunities, nil
}

// evaluateSymbols fetches candles and runs the strategy for each candidate
// through a bounded worker pool
func (s *Scanner) evaluateSymbols(snap config.Snapshot, symbols []string) []Opportunity {
	strat := strategy.NewBandStrategy(snap.SMAPeriod, snap.EMAPeriod)

	symbolChan := make(chan string, len(symbols))
	resultChan := make(chan Opportunity, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolChan {
				candles, err := s.exec.GetCandles(symbol, snap.Timeframe, candleLimit)
				if err != nil {
					s.logger.Warn().Err(err).Str("symbol", symbol).Msg("candle fetch failed, skipping symbol")
					continue
				}
				if len(candles) == 0 {
					continue
				}

				signal, err := strat.GetSignal(candles)
				if err != nil {
					s.logger.Debug().Err(err).Str("symbol", symbol).Msg("skipping symbol")
					continue
				}
				if signal.Action == strategy.ActionNone {
					continue
				}

				s.logger.Info().
					Str("symbol", symbol).
					Str("action", string(signal.Action)).
					Float64("entry", signal.EntryPrice).
					Msg("opportunity found")

				resultChan <- Opportunity{
					Symbol: symbol,
					Signal: signal,
					Volume: candles[len(candles)-1].Volume,
				}
			}
		}()
	}

	for _, symbol := range symbols {
		symbolChan <- symbol
	}
	close(symbolChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	opportunities := make([]Opportunity, 0, len(symbols))
	for opp := range resultChan {
		opportunities = append(opportunities, opp)
	}
	return opportunities
}

// LastResult returns the most recent scan result, or nil before the first scan
func (s *Scanner) LastResult() *ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastResult
}
