package upstream

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned when Call is given no query text.
var ErrEmptyQuery = errors.New("query must not be empty")

// StatusError reports a non-2xx response from the pipeline endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}
