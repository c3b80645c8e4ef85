package runid

import "errors"

var (
	// ErrInvalidLength is returned when a RunID string or byte slice has the wrong length.
	ErrInvalidLength = errors.New("runid: invalid length")

	// ErrInvalidCharacter is returned when a RunID string contains a non-Base32 character.
	ErrInvalidCharacter = errors.New("runid: invalid character")
)
