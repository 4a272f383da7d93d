package uri

import (
	"errors"
	"strconv"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("uri: syntax error")

// Error describes a URI that could not be parsed or decoded.
type Error struct {
	Msg   string
	Input string
}

func (e *Error) Error() string {
	return "uri: " + e.Msg + ": " + strconv.Quote(e.Input)
}

func (e *Error) Unwrap() error { return ErrSyntax }

func syntaxError(msg, input string) error {
	return &Error{Msg: msg, Input: input}
}
