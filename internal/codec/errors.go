package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedInput is returned when fewer bytes remain than a header
	// field requires.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrInvalidEncoding is returned when a text field is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid UTF-8 in text field")

	// ErrUnencodableText is returned by EncodeStrict when a text field
	// contains a byte that the decoder treats as a delimiter.
	ErrUnencodableText = errors.New("text field contains a delimiter byte")
)

// DecodeError describes where in the buffer decoding failed.
type DecodeError struct {
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
