package uri

import (
	"strings"
)

// Reserved sets for the individual URI components. Bytes in the set of the
// component being encoded are always escaped.
const (
	ReservedPath       = "?#"
	ReservedQuery      = "?#/:;+@"
	ReservedQueryParam = "?#/:;+@&="
	ReservedFragment   = ""
)

// illegal bytes are escaped in every component.
const illegal = "%<>{}|\\\"^`!*'()$,[]"

const (
	upperHex = "0123456789ABCDEF"
	lowerHex = "0123456789abcdef"
)

// Encode percent-encodes s. Unreserved bytes ([A-Za-z0-9-_.~]) pass through;
// control bytes, space, non-ASCII bytes, illegal bytes and bytes in reserved
// become %XX, with upper- or lower-case hex digits.
func Encode(s, reserved string, upper bool) string {
	if !needsEscape(s, reserved) {
		return s
	}
	return string(AppendEncode(make([]byte, 0, len(s)+8), s, reserved, upper))
}

// AppendEncode appends the encoding of s to dst.
func AppendEncode(dst []byte, s, reserved string, upper bool) []byte {
	hex := lowerHex
	if upper {
		hex = upperHex
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldEscape(c, reserved) {
			dst = append(dst, '%', hex[c>>4], hex[c&0x0f])
		} else {
			dst = append(dst, c)
		}
	}
	return dst
}

func needsEscape(s, reserved string) bool {
	for i := 0; i < len(s); i++ {
		if shouldEscape(s[i], reserved) {
			return true
		}
	}
	return false
}

func shouldEscape(c byte, reserved string) bool {
	if isUnreserved(c) {
		return false
	}
	return c <= 0x20 || c >= 0x7f ||
		strings.IndexByte(illegal, c) >= 0 ||
		strings.IndexByte(reserved, c) >= 0
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// Decode reverses Encode. With plusAsSpace set, '+' decodes to a space.
// A '%' not followed by two hex digits is an error.
func Decode(s string, plusAsSpace bool) (string, error) {
	if strings.IndexByte(s, '%') < 0 && (!plusAsSpace || strings.IndexByte(s, '+') < 0) {
		return s, nil
	}

	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+' && plusAsSpace:
			c = ' '
		case c == '%':
			if i+1 >= len(s) {
				return "", syntaxError("no hex digit following percent sign", s)
			}
			if i+2 >= len(s) {
				return "", syntaxError("two hex digits must follow percent sign", s)
			}
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if !ok1 || !ok2 {
				return "", syntaxError("not a hex digit", s)
			}
			c = hi<<4 | lo
			i += 2
		}
		b = append(b, c)
	}
	return string(b), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
