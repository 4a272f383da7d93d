package nstd

import (
	"mime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"

	"github.com/Ptomaine/nstd-sub001/internal/pool"
)

// Common header constants to avoid allocations
var (
	// httpVersion prefixes every status line
	httpVersion = []byte("HTTP/1.1 ")

	// crlf ends every header line
	crlf = []byte("\r\n")

	// contentLengthPrefix is the prefix for the Content-Length header
	contentLengthPrefix = []byte("Content-Length: ")

	// contentEncodingGzip marks compressed bodies
	contentEncodingGzip = []byte("Content-Encoding: gzip\r\nVary: Accept-Encoding\r\n")

	// dateHeaderPrefix is the prefix for the Date header
	dateHeaderPrefix = []byte("Date: ")
)

// Response builds the wire form of one HTTP response.
//
// Headers and body accumulate until the first call to Bytes (or
// PrepareResponseData), which builds the buffer once and caches it. Later
// mutations are ignored.
type Response struct {
	code   int
	header *bytebufferpool.ByteBuffer
	body   *bytebufferpool.ByteBuffer

	hasContentType bool
	gzip           bool
	gzipLevel      int

	data []byte
}

// NewResponse creates a response with status code. A code missing from the
// status table produces no status line.
func NewResponse(code int) *Response {
	return &Response{
		code:   code,
		header: bytebufferpool.Get(),
		body:   bytebufferpool.Get(),
	}
}

// StatusCode returns the status code the response was created with.
func (r *Response) StatusCode() int { return r.code }

// Prepared reports whether the wire buffer has been built.
func (r *Response) Prepared() bool { return r.data != nil }

// AddHeader appends "name: value". CR and LF are removed from both.
func (r *Response) AddHeader(name, value string) *Response {
	if r.data != nil {
		return r
	}
	appendClean(r.header, name)
	r.header.B = append(r.header.B, ':', ' ')
	appendClean(r.header, value)
	r.header.B = append(r.header.B, crlf...)
	if strings.EqualFold(name, "Content-Type") {
		r.hasContentType = true
	}
	return r
}

// AddRawHeader appends line as is, adding the line terminator if missing.
func (r *Response) AddRawHeader(line string) *Response {
	if r.data != nil {
		return r
	}
	line = strings.TrimRight(line, "\r\n")
	r.header.B = append(r.header.B, line...)
	r.header.B = append(r.header.B, crlf...)
	if len(line) > 13 && strings.EqualFold(line[:13], "Content-Type:") {
		r.hasContentType = true
	}
	return r
}

// AddContentTypeHeader adds a Content-Type header. media is either a full
// media type ("text/html") or a file extension with or without the dot
// ("html", ".png"), looked up in the system media type table. Unknown
// extensions map to application/octet-stream. An optional charset replaces
// any parameters of the looked up type.
func (r *Response) AddContentTypeHeader(media string, charset ...string) *Response {
	ct := media
	if !strings.Contains(media, "/") {
		ext := media
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ct = mime.TypeByExtension(ext); ct == "" {
			ct = "application/octet-stream"
		}
	}
	if len(charset) > 0 && charset[0] != "" {
		base, _, _ := strings.Cut(ct, ";")
		ct = strings.TrimSpace(base) + "; charset=" + charset[0]
	}
	return r.AddHeader("Content-Type", ct)
}

// AddDateHeader adds a Date header with the current time, at one second
// resolution.
func (r *Response) AddDateHeader() *Response {
	if r.data != nil {
		return r
	}
	r.header.B = append(r.header.B, getDateHeader()...)
	return r
}

// Write appends p to the body.
func (r *Response) Write(p []byte) (int, error) {
	if r.data != nil {
		return 0, ErrResponsePrepared
	}
	return r.body.Write(p)
}

// WriteString appends s to the body.
func (r *Response) WriteString(s string) (int, error) {
	if r.data != nil {
		return 0, ErrResponsePrepared
	}
	return r.body.WriteString(s)
}

// SetBody replaces the body with a copy of b.
func (r *Response) SetBody(b []byte) *Response {
	if r.data != nil {
		return r
	}
	r.body.Set(b)
	return r
}

// BodyLen returns the length of the uncompressed body.
func (r *Response) BodyLen() int {
	if r.body == nil {
		return 0
	}
	return r.body.Len()
}

// JSON encodes v as the body and adds an application/json Content-Type
// unless one was already set.
func (r *Response) JSON(v any) error {
	if r.data != nil {
		return ErrResponsePrepared
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !r.hasContentType {
		r.AddContentTypeHeader("application/json", "utf-8")
	}
	r.body.Set(data)
	return nil
}

// Gzip compresses the body with level when the response is prepared.
func (r *Response) Gzip(level int) *Response {
	if r.data != nil {
		return r
	}
	r.gzip = true
	r.gzipLevel = level
	return r
}

// Bytes returns the wire form of the response.
func (r *Response) Bytes() []byte { return r.PrepareResponseData() }

// PrepareResponseData builds the wire buffer on first use and returns the
// cached buffer afterwards. Content-Length is only sent for non-empty
// bodies.
func (r *Response) PrepareResponseData() []byte {
	if r.data != nil {
		return r.data
	}

	body := r.body.B
	encoded := false
	var zipped *bytebufferpool.ByteBuffer
	if r.gzip && len(body) > 0 {
		zipped = bytebufferpool.Get()
		if err := compressBody(zipped, body, r.gzipLevel); err == nil {
			body = zipped.B
			encoded = true
		}
	}

	reason := StatusText(r.code)
	size := len(r.header.B) + len(body) + 64
	out := make([]byte, 0, size)
	if reason != "" {
		out = append(out, httpVersion...)
		out = strconv.AppendInt(out, int64(r.code), 10)
		out = append(out, ' ')
		out = append(out, reason...)
		out = append(out, crlf...)
	}
	out = append(out, r.header.B...)
	if encoded {
		out = append(out, contentEncodingGzip...)
	}
	if len(body) > 0 {
		out = append(out, contentLengthPrefix...)
		out = strconv.AppendInt(out, int64(len(body)), 10)
		out = append(out, crlf...)
	}
	out = append(out, crlf...)
	out = append(out, body...)
	r.data = out

	if zipped != nil {
		bytebufferpool.Put(zipped)
	}
	bytebufferpool.Put(r.header)
	bytebufferpool.Put(r.body)
	r.header, r.body = nil, nil
	return out
}

// Send prepares the response and hands it to conn. onComplete may be nil.
func (r *Response) Send(conn Connection, onComplete func(error)) error {
	return conn.AsyncWrite(WriteRequest{Buffer: r.PrepareResponseData(), OnComplete: onComplete})
}

// appendClean appends s without CR and LF.
func appendClean(b *bytebufferpool.ByteBuffer, s string) {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c != '\r' && c != '\n' {
			b.B = append(b.B, c)
		}
	}
}

// gzipWriters holds one writer pool per compression level
var gzipWriters [gzip.BestCompression - gzip.HuffmanOnly + 1]*pool.Pool[*gzip.Writer]

func init() {
	for i := range gzipWriters {
		level := i + gzip.HuffmanOnly
		gzipWriters[i] = pool.New(func() *gzip.Writer {
			w, _ := gzip.NewWriterLevel(nil, level)
			return w
		})
	}
}

func compressBody(dst *bytebufferpool.ByteBuffer, body []byte, level int) error {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	p := gzipWriters[level-gzip.HuffmanOnly]
	w := p.Get()
	defer p.Put(w)

	w.Reset(dst)
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.Close()
}

// Date header caching to avoid expensive time formatting on every response
var (
	// cachedDateHeader stores the pre-formatted Date header
	cachedDateHeader []byte

	// lastDateUpdate tracks when the cached date was last updated
	lastDateUpdate int64

	// dateMutex protects access to the cached date header
	dateMutex sync.RWMutex
)

// getDateHeader returns a formatted date header, using a cached version if possible
func getDateHeader() []byte {
	now := time.Now()
	sec := now.Unix()

	dateMutex.RLock()
	if sec == lastDateUpdate && cachedDateHeader != nil {
		header := cachedDateHeader
		dateMutex.RUnlock()
		return header
	}
	dateMutex.RUnlock()

	dateMutex.Lock()
	defer dateMutex.Unlock()

	// Check again in case another goroutine updated while we were waiting
	if sec == lastDateUpdate && cachedDateHeader != nil {
		return cachedDateHeader
	}

	// a fresh slice each second; readers may still hold the previous one
	header := make([]byte, 0, len(dateHeaderPrefix)+29+len(crlf))
	header = append(header, dateHeaderPrefix...)
	header = now.UTC().AppendFormat(header, "Mon, 02 Jan 2006 15:04:05 GMT")
	header = append(header, crlf...)

	cachedDateHeader = header
	lastDateUpdate = sec
	return header
}
