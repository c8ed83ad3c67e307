package archive

import "context"

// Store is the immutable cycle-result archive: each evaluation cycle's result
// batch is saved as one object for audit and offline charting.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
