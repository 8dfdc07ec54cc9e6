package fetcher

import (
	"context"
	"errors"

	"github.com/dimitrmo/cygaz/internal/petrol"
)

// Fetcher retrieves the current station price list for one petroleum type.
// Implementations are expected to block for network latency; callers bound
// them with a context deadline.
type Fetcher interface {
	Fetch(ctx context.Context, t petrol.Type) ([]petrol.Station, error)
}

var (
	// ErrBadStatus marks a non-2xx upstream response.
	ErrBadStatus = errors.New("fetcher: unexpected upstream status")
	// ErrPageShape marks a page that no longer matches the expected form
	// or table structure.
	ErrPageShape = errors.New("fetcher: upstream page shape changed")
)
