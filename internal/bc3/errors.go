package bc3

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyFile is returned when the input buffer has no bytes.
	ErrEmptyFile = errors.New("bc3: empty file")
	// ErrEncoding is the sentinel wrapped by every *EncodingError.
	ErrEncoding = errors.New("bc3: cannot decode file")
	// ErrNoData is returned when a parse yields neither items nor prices.
	ErrNoData = errors.New("bc3: no budget data found")
)

// EncodingError reports that none of the tried codepages produced usable text.
type EncodingError struct {
	Tried  []string // codepage names, in the order attempted
	Reason string   // why the last attempt was rejected
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("%v (tried %s): %s", ErrEncoding, strings.Join(e.Tried, ", "), e.Reason)
}

// Unwrap lets errors.Is match ErrEncoding.
func (e *EncodingError) Unwrap() error { return ErrEncoding }
