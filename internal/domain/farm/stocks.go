package farm

import (
	"math"
	"sort"
	"strings"
)

type Lot struct {
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
}

func (l Lot) Valid() bool {
	return l.Shares > 0 && l.Price > 0 && !math.IsInf(l.Shares, 0) && !math.IsInf(l.Price, 0)
}

// Holdings maps a ticker symbol to its lots, oldest first.
type Holdings map[string][]Lot

func (h Holdings) Clone() Holdings {
	out := make(Holdings, len(h))
	for sym, lots := range h {
		out[sym] = append([]Lot(nil), lots...)
	}
	return out
}

func (h Holdings) Shares(symbol string) float64 {
	total := 0.0
	for _, l := range h[symbol] {
		total += l.Shares
	}
	return total
}

func (h Holdings) Symbols() []string {
	out := make([]string, 0, len(h))
	for sym := range h {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (h Holdings) Buy(symbol string, shares, price float64) {
	lot := Lot{Shares: shares, Price: price}
	if !lot.Valid() {
		return
	}
	h[symbol] = append(h[symbol], lot)
}

// Sell consumes lots FIFO and reports how many shares were actually removed.
func (h Holdings) Sell(symbol string, shares float64) float64 {
	if shares <= 0 {
		return 0
	}
	lots := h[symbol]
	sold := 0.0
	for len(lots) > 0 && sold < shares {
		need := shares - sold
		if lots[0].Shares <= need+1e-9 {
			sold += lots[0].Shares
			lots = lots[1:]
			continue
		}
		lots[0].Shares -= need
		sold = shares
	}
	if len(lots) == 0 {
		delete(h, symbol)
	} else {
		h[symbol] = lots
	}
	return sold
}

// Sanitize drops invalid lots, empty symbols and blank tickers.
func (h Holdings) Sanitize() Holdings {
	out := make(Holdings, len(h))
	for sym, lots := range h {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		for _, l := range lots {
			if l.Valid() {
				out[sym] = append(out[sym], l)
			}
		}
	}
	return out
}
