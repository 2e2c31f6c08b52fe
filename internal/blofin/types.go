package blofin

// Candle represents one interval's OHLCV data, timestamp in Unix milliseconds
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Ticker represents 24h ticker statistics for an instrument
type Ticker struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"`
	QuoteVolume float64 `json:"quote_volume"` // 24h volume in the quote currency
}

// Market represents a tradable instrument
type Market struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
	Active     bool   `json:"active"`
}

// Position represents an open futures position as reported by the exchange
type Position struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // buy or sell
	Size       float64 `json:"size"` // contract size, base asset units
	EntryPrice float64 `json:"entry_price"`
	Leverage   int     `json:"leverage"`
}

// Order represents a placed order as returned by the exchange
type Order struct {
	OrderID       string  `json:"order_id"`
	ClientOrderID string  `json:"client_order_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	Price         float64 `json:"price"`
	Size          float64 `json:"size"`
	Status        string  `json:"status"`
}
