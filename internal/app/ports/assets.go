package ports

import "context"

type AssetProvider interface {
	File(ctx context.Context, path string) ([]byte, error)
}
