package staticmarket

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"tilefarm/internal/app/ports"
)

// Feed quotes prices from a fixed table. Set replaces a quote at runtime.
type Feed struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func NewFeed(prices map[string]float64) *Feed {
	f := &Feed{prices: make(map[string]float64, len(prices))}
	for sym, p := range prices {
		f.Set(sym, p)
	}
	return f
}

func (f *Feed) Price(_ context.Context, symbol string) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[normalize(symbol)]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return p, nil
}

// Set ignores non-positive prices.
func (f *Feed) Set(symbol string, price float64) {
	sym := normalize(symbol)
	if sym == "" || !(price > 0) || math.IsInf(price, 0) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[sym] = price
}

func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.prices))
	for sym := range f.prices {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
