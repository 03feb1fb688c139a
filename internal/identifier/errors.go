package identifier

import (
	"errors"
	"fmt"
)

// ErrExhausted matches every *ExhaustionError.
var ErrExhausted = errors.New("identifier space exhausted")

// ExhaustionError reports that no unique identifier was found within the
// attempt budget. Callers should abort the dependent write and report a
// retryable failure.
type ExhaustionError struct {
	Kind     Kind
	Attempts int
	Width    int
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("no unique %s identifier after %d attempts at width %d", e.Kind, e.Attempts, e.Width)
}

// Is lets errors.Is(err, ErrExhausted) match.
func (e *ExhaustionError) Is(target error) bool {
	return target == ErrExhausted
}
