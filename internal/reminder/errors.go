package reminder

import "errors"

// Validation errors are surfaced to the caller verbatim so the
// conversational layer can render a correctable message. Anything else is
// an internal failure.
var (
	ErrTextEmpty   = errors.New("reminder text is empty")
	ErrTextTooLong = errors.New("reminder text exceeds 500 characters")
	ErrPastTime    = errors.New("remind time must be in the future")
)

// IsValidation reports whether err is a user-correctable validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTextEmpty) ||
		errors.Is(err, ErrTextTooLong) ||
		errors.Is(err, ErrPastTime)
}
