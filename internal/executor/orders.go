package executor

import (
	"strconv"

	"github.com/google/uuid"

	"blofin-trading-bot/internal/blofin"
)

// ProtectivePrice carries a stop-loss or take-profit level to attach to an
// order.
type ProtectivePrice struct {
	Price float64 `json:"price"`
}

// OrderRequest describes an order in USD notional terms. Params is an
// extension map for exchange-specific pass-through fields; caller-supplied
// entries override the generated defaults.
type OrderRequest struct {
	Symbol     string
	Type       string // market or limit
	Side       string // buy or sell
	AmountUSD  float64
	Price      float64 // required for limit orders
	Leverage   int
	Isolated   bool
	StopLoss   *ProtectivePrice
	TakeProfit *ProtectivePrice
	Params     map[string]string
}

func (r *OrderRequest) validate() error {
	if r.Type != "market" && r.Type != "limit" {
		return &ValidationError{Field: "type", Reason: "must be market or limit, got " + r.Type}
	}
	if r.Side != "buy" && r.Side != "sell" {
		return &ValidationError{Field: "side", Reason: "must be buy or sell, got " + r.Side}
	}
	if r.AmountUSD <= 0 {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if r.Type == "limit" && r.Price <= 0 {
		return &ValidationError{Field: "price", Reason: "required for limit orders"}
	}
	return nil
}

// CreateOrder validates the request, converts the USD notional to a base
// asset quantity at the current last price, and submits the order with margin
// mode, leverage and any protective SL/TP levels attached.
func (e *Executor) CreateOrder(req OrderRequest) (*blofin.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ticker, err := e.GetTicker(req.Symbol)
	if err != nil {
		return nil, err
	}
	if ticker.LastPrice <= 0 {
		return nil, &ValidationError{Field: "price", Reason: "exchange returned non-positive last price for " + req.Symbol}
	}

	leverage := req.Leverage
	if leverage <= 0 {
		leverage = 1
	}
	quantity := (req.AmountUSD * float64(leverage)) / ticker.LastPrice

	marginMode := "cross"
	if req.Isolated {
		marginMode = "isolated"
	}

	params := map[string]string{
		"instId":        req.Symbol,
		"marginMode":    marginMode,
		"side":          req.Side,
		"orderType":     req.Type,
		"size":          formatFloat(quantity),
		"leverage":      strconv.Itoa(leverage),
		"clientOrderId": uuid.New().String(),
	}
	if req.Type == "limit" {
		params["price"] = formatFloat(req.Price)
	}
	if req.StopLoss != nil {
		params["slTriggerPrice"] = formatFloat(req.StopLoss.Price)
		params["slOrderPrice"] = formatFloat(req.StopLoss.Price)
	}
	if req.TakeProfit != nil {
		params["tpTriggerPrice"] = formatFloat(req.TakeProfit.Price)
		params["tpOrderPrice"] = formatFloat(req.TakeProfit.Price)
	}

	// Caller overrides win over generated defaults
	for k, v := range req.Params {
		params[k] = v
	}

	e.logger.Info().
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Str("type", req.Type).
		Float64("amount_usd", req.AmountUSD).
		Float64("last_price", ticker.LastPrice).
		Interface("params", params).
		Msg("submitting order")

	var order *blofin.Order
	err = e.withRetry("create order", func() error {
		var err error
		order, err = e.exchange().CreateOrder(params)
		return err
	})
	if err != nil {
		e.logger.Error().Err(err).Str("symbol", req.Symbol).Msg("order submission failed")
		return nil, err
	}

	e.logger.Info().
		Str("symbol", req.Symbol).
		Str("order_id", order.OrderID).
		Str("client_order_id", order.ClientOrderID).
		Msg("order placed")

	return order, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
