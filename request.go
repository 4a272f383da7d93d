package nstd

import (
	"github.com/Ptomaine/nstd-sub001/internal/httpparser"
)

// Request is a parsed request. Its strings and slices alias the raw bytes
// owned by the Ctx it belongs to and are only valid during dispatch.
type Request = httpparser.Parser

// HeaderField is one request header line.
type HeaderField = httpparser.Field

// Method identifies a request method.
type Method = httpparser.Method

// Request methods
const (
	MethodUnknown = httpparser.MethodUnknown
	MethodConnect = httpparser.MethodConnect
	MethodDelete  = httpparser.MethodDelete
	MethodGet     = httpparser.MethodGet
	MethodHead    = httpparser.MethodHead
	MethodOptions = httpparser.MethodOptions
	MethodPatch   = httpparser.MethodPatch
	MethodPost    = httpparser.MethodPost
	MethodPut     = httpparser.MethodPut
	MethodTrace   = httpparser.MethodTrace
)

// methodCount sizes per-method tables.
const methodCount = int(httpparser.MethodTrace) + 1

// ParseRequest parses raw. The result aliases raw.
func ParseRequest(raw []byte) *Request {
	return httpparser.New(raw)
}

// ParseMethod maps a wire method name to its Method.
func ParseMethod(name string) Method {
	return httpparser.ParseMethodName(name)
}
