package normalize

import (
	"errors"
	"fmt"
)

// ErrUnparsable is returned when no JSON object can be read from the model output.
var ErrUnparsable = errors.New("model returned non-JSON or unparsable output")

// ErrMissingFields is returned for a JSON object that lacks the nutrition block.
var ErrMissingFields = fmt.Errorf("%w: nutrition object missing", ErrUnparsable)
