package ocr

import "errors"

// ErrNoText is returned when the photo carries no readable label text.
var ErrNoText = errors.New("no label text detected")
