package history

import "errors"

var (
	// ErrInvalidArgument is returned when a limit or old-entry count is out of range.
	// The call has no effect.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidContent is returned by Unescape for a line that is not valid UTF-8.
	// Load reports it per line and keeps going.
	ErrInvalidContent = errors.New("invalid content")
)
