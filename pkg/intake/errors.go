package intake

import "fmt"

// Kind classifies a rejected upload.
type Kind int

const (
	MissingFile Kind = iota + 1
	InvalidMimeType
	FileTooLarge
	InvalidWeight
)

func (k Kind) String() string {
	switch k {
	case MissingFile:
		return "missing_file"
	case InvalidMimeType:
		return "invalid_mime_type"
	case FileTooLarge:
		return "file_too_large"
	case InvalidWeight:
		return "invalid_weight"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ValidationError is returned for bad input; no record exists when it is returned.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(k Kind) *ValidationError {
	return &ValidationError{Kind: k, Message: messages[k]}
}

var messages = map[Kind]string{
	MissingFile:     "No image file uploaded",
	InvalidMimeType: "Only image files are allowed.",
	FileTooLarge:    "File too large. Maximum size is 5MB.",
	InvalidWeight:   "Valid weight is required",
}

// Invalid builds the ValidationError for k, for callers that detect a problem
// before Accept runs (for example an oversized request body).
func Invalid(k Kind) *ValidationError { return invalid(k) }
