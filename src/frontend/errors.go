package frontend

import "errors"

var (
	errUnterminatedEscape = errors.New("unterminated escape sequence")
	errBadHexEscape       = errors.New("invalid \\x escape sequence")
	errBadEscape          = errors.New("invalid escape sequence")
)
