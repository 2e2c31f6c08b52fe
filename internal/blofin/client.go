package blofin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client is a minimal REST client for the Blofin futures API
type Client struct {
	apiKey     string
	secretKey  string
	passphrase string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, secretKey, passphrase, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		passphrase: passphrase,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// apiResponse is the envelope every Blofin endpoint returns
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// FetchCandles fetches OHLCV data for a symbol, returned in ascending time order
func (c *Client) FetchCandles(symbol, timeframe string, limit int) ([]Candle, error) {
	params := url.Values{}
	params.Set("instId", symbol)
	params.Set("bar", timeframe)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	data, err := c.get("/api/v1/market/candles", params, false)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("error parsing candles: %w", err)
	}

	// The API returns newest first; reverse into ascending order
	candles := make([]Candle, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("malformed candle row for %s: %v", symbol, row)
		}
		ts, _ := strconv.ParseInt(row[0], 10, 64)
		candles[len(rows)-1-i] = Candle{
			Timestamp: ts,
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		}
	}

	return candles, nil
}

// rawTicker mirrors the exchange ticker payload
type rawTicker struct {
	InstID         string `json:"instId"`
	Last           string `json:"last"`
	VolCurrency24h string `json:"volCurrency24h"`
}

// FetchTicker fetches the 24h ticker for a single symbol
func (c *Client) FetchTicker(symbol string) (*Ticker, error) {
	params := url.Values{}
	params.Set("instId", symbol)

	data, err := c.get("/api/v1/market/tickers", params, false)
	if err != nil {
		return nil, err
	}

	var raw []rawTicker
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing ticker: %w", err)
	}
	if len(raw) == 0 {
		return nil, &ExchangeError{Op: "fetch ticker", Code: "404", Message: "no ticker data for " + symbol}
	}

	return &Ticker{
		Symbol:      raw[0].InstID,
		LastPrice:   parseFloat(raw[0].Last),
		QuoteVolume: parseFloat(raw[0].VolCurrency24h),
	}, nil
}

// FetchMarkets lists all tradable instruments
func (c *Client) FetchMarkets() ([]Market, error) {
	data, err := c.get("/api/v1/market/instruments", nil, false)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		InstID        string `json:"instId"`
		BaseCurrency  string `json:"baseCurrency"`
		QuoteCurrency string `json:"quoteCurrency"`
		State         string `json:"state"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing instruments: %w", err)
	}

	markets := make([]Market, len(raw))
	for i, m := range raw {
		markets[i] = Market{
			Symbol:     m.InstID,
			BaseAsset:  m.BaseCurrency,
			QuoteAsset: m.QuoteCurrency,
			Active:     strings.EqualFold(m.State, "live"),
		}
	}

	return markets, nil
}

// FetchPositions lists positions; symbol may be empty for all instruments.
// Zero-size entries are included as reported and filtered by the caller.
func (c *Client) FetchPositions(symbol string) ([]Position, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("instId", symbol)
	}

	data, err := c.get("/api/v1/account/positions", params, true)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		InstID       string `json:"instId"`
		PositionSide string `json:"positionSide"`
		Positions    string `json:"positions"`
		AveragePrice string `json:"averagePrice"`
		Leverage     string `json:"leverage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing positions: %w", err)
	}

	positions := make([]Position, len(raw))
	for i, p := range raw {
		lev, _ := strconv.Atoi(p.Leverage)
		side := "buy"
		size := parseFloat(p.Positions)
		// Net position mode reports shorts as negative sizes
		if strings.EqualFold(p.PositionSide, "short") || size < 0 {
			side = "sell"
		}
		if size < 0 {
			size = -size
		}
		positions[i] = Position{
			Symbol:     p.InstID,
			Side:       side,
			Size:       size,
			EntryPrice: parseFloat(p.AveragePrice),
			Leverage:   lev,
		}
	}

	return positions, nil
}

// CreateOrder places a new order. Params carry the full exchange parameter set
// (instId, marginMode, side, orderType, size, price, SL/TP trigger fields).
func (c *Client) CreateOrder(params map[string]string) (*Order, error) {
	data, err := c.post("/api/v1/trade/order", params)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		OrderID       string `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing order response: %w", err)
	}
	if len(raw) == 0 {
		return nil, &ExchangeError{Op: "create order", Code: "500", Message: "empty order response"}
	}

	return &Order{
		OrderID:       raw[0].OrderID,
		ClientOrderID: raw[0].ClientOrderID,
		Symbol:        params["instId"],
		Side:          params["side"],
		Type:          params["orderType"],
		Price:         parseFloat(params["price"]),
		Size:          parseFloat(params["size"]),
		Status:        "live",
	}, nil
}

// SetLeverage sets the leverage for a symbol
func (c *Client) SetLeverage(symbol string, leverage int) error {
	_, err := c.post("/api/v1/account/set-leverage", map[string]string{
		"instId":   symbol,
		"leverage": strconv.Itoa(leverage),
	})
	return err
}

// SetMarginMode sets isolated or cross margin for the account
func (c *Client) SetMarginMode(symbol string, isolated bool) error {
	mode := "cross"
	if isolated {
		mode = "isolated"
	}
	_, err := c.post("/api/v1/account/set-margin-mode", map[string]string{
		"instId":     symbol,
		"marginMode": mode,
	})
	return err
}

func (c *Client) get(path string, params url.Values, signed bool) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	query := ""
	if len(params) > 0 {
		query = params.Encode()
		endpoint += "?" + query
	}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if signed {
		c.sign(req, path, query, "")
	}

	return c.do(req, "GET "+path)
}

func (c *Client) post(path string, params map[string]string) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, path, "", string(body))

	return c.do(req, "POST "+path)
}

func (c *Client) do(req *http.Request, op string) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExchangeError{
			Op:      op,
			Code:    strconv.Itoa(resp.StatusCode),
			Message: string(body),
		}
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing response for %s: %w", op, err)
	}

	if envelope.Code != "0" {
		return nil, &ExchangeError{Op: op, Code: envelope.Code, Message: envelope.Msg}
	}

	return envelope.Data, nil
}

// sign attaches the Blofin authentication headers
func (c *Client) sign(req *http.Request, path, query, body string) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := uuid.New().String()

	prehash := path
	if query != "" {
		prehash += "?" + query
	}
	prehash += req.Method + timestamp + nonce + body

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(prehash))

	req.Header.Set("ACCESS-KEY", c.apiKey)
	req.Header.Set("ACCESS-SIGN", hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-NONCE", nonce)
	req.Header.Set("ACCESS-PASSPHRASE", c.passphrase)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
