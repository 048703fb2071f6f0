package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a read or patch would leave the arena.
	ErrOutOfBounds = errors.New("stream: access out of bounds")
	// ErrNoCodec is returned for Go types without a registered codec.
	ErrNoCodec = errors.New("stream: no codec registered")
	// ErrUnresolvedToken is returned when a token is persisted before its
	// node stream offset is known.
	ErrUnresolvedToken = errors.New("stream: token has no offset")
)

// FormatError reports data that is well within bounds but is not something a
// writer could have produced.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("stream: malformed data at offset %d: %s", e.Offset, e.Msg)
}

func formatErrorf(offset int, format string, args ...any) error {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
