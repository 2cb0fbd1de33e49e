package imaging

import "context"

// Loader validates and reads an image reference.
type Loader interface {
	Load(ctx context.Context, ref string) (*Image, error)
}
