package market

import (
	"errors"
	"fmt"
)

// ErrNotFound means the provider has no record for the ticker.
var ErrNotFound = errors.New("ticker not found")

// ErrNoData means the ticker is known but the provider returned an empty
// result for the requested quantity.
var ErrNoData = errors.New("no data for ticker")

// ProviderError wraps a failed upstream call (network, malformed
// response, rate limit). It is never swallowed; callers see it as-is.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider: %s: %v", e.Op, e.Err) }

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
