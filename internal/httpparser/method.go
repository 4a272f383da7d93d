package httpparser

import (
	"encoding/binary"
)

// Method identifies a request method.
type Method uint8

// Request methods
const (
	MethodUnknown Method = iota
	MethodConnect
	MethodDelete
	MethodGet
	MethodHead
	MethodOptions
	MethodPatch
	MethodPost
	MethodPut
	MethodTrace
)

var methodNames = [...]string{
	MethodUnknown: "UNKNOWN",
	MethodConnect: "CONNECT",
	MethodDelete:  "DELETE",
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodOptions: "OPTIONS",
	MethodPatch:   "PATCH",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodTrace:   "TRACE",
}

// String returns the wire name of m.
func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return methodNames[MethodUnknown]
}

// ParseMethodName maps a wire name to its Method. Matching is exact.
func ParseMethodName(name string) Method {
	for m := MethodConnect; m <= MethodTrace; m++ {
		if methodNames[m] == name {
			return m
		}
	}
	return MethodUnknown
}

// Little-endian views of the leading and trailing bytes of every method,
// including the separating space.
const (
	headGET  = uint32('G') | uint32('E')<<8 | uint32('T')<<16 | uint32(' ')<<24
	headPUT  = uint32('P') | uint32('U')<<8 | uint32('T')<<16 | uint32(' ')<<24
	headPOST = uint32('P') | uint32('O')<<8 | uint32('S')<<16 | uint32('T')<<24
	headHEAD = uint32('H') | uint32('E')<<8 | uint32('A')<<16 | uint32('D')<<24
	headPATC = uint32('P') | uint32('A')<<8 | uint32('T')<<16 | uint32('C')<<24
	headTRAC = uint32('T') | uint32('R')<<8 | uint32('A')<<16 | uint32('C')<<24
	headDELE = uint32('D') | uint32('E')<<8 | uint32('L')<<16 | uint32('E')<<24
	headCONN = uint32('C') | uint32('O')<<8 | uint32('N')<<16 | uint32('N')<<24
	headOPTI = uint32('O') | uint32('P')<<8 | uint32('T')<<16 | uint32('I')<<24

	tailPATCH   = uint16('H') | uint16(' ')<<8
	tailTRACE   = uint16('E') | uint16(' ')<<8
	tailDELETE  = uint32('E') | uint32('T')<<8 | uint32('E')<<16 | uint32(' ')<<24
	tailCONNECT = uint32('E') | uint32('C')<<8 | uint32('T')<<16 | uint32(' ')<<24
	tailOPTIONS = uint32('O') | uint32('N')<<8 | uint32('S')<<16 | uint32(' ')<<24
)

// detectMethod matches the start of b against the method table and returns
// the method together with the offset just past its trailing space.
func detectMethod(b []byte) (Method, int) {
	if len(b) < 5 {
		return MethodUnknown, 0
	}

	le := binary.LittleEndian
	switch le.Uint32(b) {
	case headGET:
		return MethodGet, 4
	case headPUT:
		return MethodPut, 4
	case headPOST:
		if b[4] == ' ' {
			return MethodPost, 5
		}
	case headHEAD:
		if b[4] == ' ' {
			return MethodHead, 5
		}
	case headPATC:
		if len(b) >= 6 && le.Uint16(b[4:]) == tailPATCH {
			return MethodPatch, 6
		}
	case headTRAC:
		if len(b) >= 6 && le.Uint16(b[4:]) == tailTRACE {
			return MethodTrace, 6
		}
	case headDELE:
		if len(b) >= 7 && le.Uint32(b[3:]) == tailDELETE {
			return MethodDelete, 7
		}
	case headCONN:
		if len(b) >= 8 && le.Uint32(b[4:]) == tailCONNECT {
			return MethodConnect, 8
		}
	case headOPTI:
		if len(b) >= 8 && le.Uint32(b[4:]) == tailOPTIONS {
			return MethodOptions, 8
		}
	}
	return MethodUnknown, 0
}
