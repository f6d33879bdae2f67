// Package artifact abstracts where document bytes physically live.
package artifact

import (
	"context"
	"io"
)

// Storage is the physical artifact port. References returned by Put are
// opaque to callers and stored on the document record.
type Storage interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	Get(ctx context.Context, reference string) (io.ReadCloser, error)
	Delete(ctx context.Context, reference string) error
}
