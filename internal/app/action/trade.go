package action

import (
	"math"
	"strings"

	"tilefarm/internal/domain/farm"
)

type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

type TradeResult struct {
	Success bool    `json:"success"`
	Reason  string  `json:"reason,omitempty"`
	Shares  float64 `json:"shares"`
	Total   float64 `json:"total"`
}

// Trade buys or sells shares at a price quoted by the market collaborator.
func (e Executor) Trade(st *farm.State, side TradeSide, symbol string, shares, price float64) TradeResult {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || !(shares > 0) || math.IsInf(shares, 0) {
		return TradeResult{Reason: ReasonInvalidOrder}
	}
	if !(price > 0) || math.IsInf(price, 0) {
		return TradeResult{Reason: ReasonNoPrice}
	}
	switch side {
	case TradeBuy:
		total := ceilCents(shares * price)
		if !st.Player.Debit(total) {
			return TradeResult{Reason: reasonNeed(total)}
		}
		st.Player.Stocks.Buy(symbol, shares, price)
		return TradeResult{Success: true, Shares: shares, Total: total}
	case TradeSell:
		if st.Player.Stocks.Shares(symbol)+1e-9 < shares {
			return TradeResult{Reason: ReasonNotEnoughShares}
		}
		if floorCents(shares*price) <= 0 {
			return TradeResult{Reason: ReasonInvalidOrder}
		}
		sold := st.Player.Stocks.Sell(symbol, shares)
		total := floorCents(sold * price)
		st.Player.Credit(total)
		return TradeResult{Success: true, Shares: sold, Total: total}
	}
	return TradeResult{Reason: ReasonInvalidOrder}
}

// Buys round up to the cent and sells round down, so fractional orders never
// mint money.
func ceilCents(v float64) float64 {
	return math.Ceil(v*100-1e-6) / 100
}

func floorCents(v float64) float64 {
	return math.Floor(v*100+1e-6) / 100
}
