package ports

import "context"

// PriceFeed quotes the current share price. Unknown symbols are ErrNotFound.
type PriceFeed interface {
	Price(ctx context.Context, symbol string) (float64, error)
}
