package httpparser

import (
	"bytes"
	"strconv"

	"github.com/evanphx/wildcat"

	"github.com/Ptomaine/nstd-sub001/internal/pool"
	"github.com/Ptomaine/nstd-sub001/internal/unsafe"
)

// DefaultMaxHeaderBytes bounds the header block the Framer waits for.
const DefaultMaxHeaderBytes = 1 << 20

var (
	// headerEnd terminates the header block
	headerEnd = []byte("\r\n\r\n")

	// contentLengthName is looked up with wildcat
	contentLengthName = []byte("Content-Length")
)

// headerParsers reuses wildcat parsers across frames. Parse never shrinks
// Headers, so returned parsers drop every slot and the request line.
var headerParsers = pool.NewWithReset(func() *wildcat.HTTPParser {
	return wildcat.NewHTTPParser()
}, func(hp *wildcat.HTTPParser) {
	clear(hp.Headers)
	hp.Method, hp.Path, hp.Version = nil, nil, nil
})

// Framer finds request boundaries in a connection's inbound stream.
// It is safe for concurrent use.
type Framer struct {
	maxHeaderBytes int
}

// NewFramer returns a Framer that stops waiting for a header block once
// maxHeaderBytes bytes have arrived. A non-positive limit selects
// DefaultMaxHeaderBytes.
func NewFramer(maxHeaderBytes int) *Framer {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}
	return &Framer{maxHeaderBytes: maxHeaderBytes}
}

// Frame returns the length of the first request in data, or 0 when more
// bytes are needed.
//
// A request is its header block plus Content-Length body bytes. Header
// blocks wildcat rejects are scanned line by line instead; blocks that
// outgrow the limit are framed as they are and left to the Parser to refuse.
func (f *Framer) Frame(data []byte) int {
	end := bytes.Index(data, headerEnd)
	if end < 0 {
		if len(data) > f.maxHeaderBytes {
			return len(data)
		}
		return 0
	}
	head := end + len(headerEnd)

	n := contentLength(findHeader(data[:head], contentLengthName))
	if n <= 0 {
		return head
	}
	if len(data)-head < n {
		return 0
	}
	return head + n
}

// findHeader returns the value of the header named name in block, using
// wildcat when it accepts the block.
func findHeader(block, name []byte) []byte {
	hp := headerParsers.Get()
	defer headerParsers.Put(hp)

	if _, err := hp.Parse(block); err != nil {
		return scanHeader(block, name)
	}
	return hp.FindHeader(name)
}

// contentLength parses a Content-Length value. Missing or invalid values
// count as no body.
func contentLength(val []byte) int {
	if len(val) == 0 {
		return 0
	}
	// fast path for short lengths
	if len(val) <= 3 {
		n := 0
		for _, c := range val {
			if c < '0' || c > '9' {
				return 0
			}
			n = n*10 + int(c-'0')
		}
		return n
	}
	n, err := strconv.ParseInt(unsafe.B2S(bytes.TrimSpace(val)), 10, 31)
	if err != nil || n < 0 {
		return 0
	}
	return int(n)
}

// scanHeader returns the value of the first header line named name.
func scanHeader(block, name []byte) []byte {
	for len(block) > 0 {
		line := block
		if i := bytes.IndexByte(block, '\n'); i >= 0 {
			line, block = block[:i], block[i+1:]
		} else {
			block = nil
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 || !bytes.EqualFold(line[:colon], name) {
			continue
		}
		return bytes.TrimSpace(line[colon+1:])
	}
	return nil
}
