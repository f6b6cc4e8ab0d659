package oracle

import (
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the response carries no message content.
var ErrEmptyCompletion = errors.New("completion contained no content")

// StatusError is returned for any non-2xx answer from the endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference failed: status %d: %s", e.Code, e.Body)
}
