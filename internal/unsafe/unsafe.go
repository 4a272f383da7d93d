// Package unsafe holds the zero-copy conversions the request parser relies on.
// Every view returned here aliases its input; the input must stay unmodified
// for as long as the view is in use.
package unsafe

import (
	"unsafe"
)

// B2S returns a string that shares memory with b.
func B2S(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// S2B returns a byte slice that shares memory with s.
// The returned slice must never be written to.
func S2B(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// EqualFold reports whether b and s are equal under ASCII case folding.
// It does not allocate.
func EqualFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		if lower(b[i]) != lower(s[i]) {
			return false
		}
	}
	return true
}

// HasPrefixFold reports whether b begins with prefix under ASCII case folding.
func HasPrefixFold(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && EqualFold(b[:len(prefix)], prefix)
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
