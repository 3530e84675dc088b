package inventory

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when no sector holds the requested product.
	ErrNotFound = errors.New("product not found")
	// ErrUnknownPolicy is returned for an admission policy other than evict or spill.
	ErrUnknownPolicy = errors.New("unknown admission policy")
	// ErrBusy is returned when the service loop does not accept a command in time.
	ErrBusy = errors.New("warehouse queue is busy")
	// ErrTimeout is returned when the service loop does not answer in time.
	ErrTimeout = errors.New("warehouse operation timed out")
	// ErrClosed is returned once the service has been closed.
	ErrClosed = errors.New("warehouse service is closed")
)
