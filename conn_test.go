package nstd

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ptomaine/nstd-sub001/log"
)

// fakeConn records what the manager does with a connection.
type fakeConn struct {
	addr string

	mu           sync.Mutex
	writes       [][]byte
	reads        int
	pending      func(ok bool, buf []byte)
	maxBytes     int
	disconnected bool
	writeErr     error
}

func newFakeConn() *fakeConn {
	return &fakeConn{addr: "192.0.2.10:40000"}
}

func (f *fakeConn) AsyncRead(maxBytes int, onRead func(ok bool, buf []byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	f.pending = onRead
	f.maxBytes = maxBytes
}

func (f *fakeConn) AsyncWrite(req WriteRequest) error {
	f.mu.Lock()
	if f.writeErr != nil {
		f.mu.Unlock()
		return f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), req.Buffer...))
	f.mu.Unlock()
	if req.OnComplete != nil {
		req.OnComplete(nil)
	}
	return nil
}

func (f *fakeConn) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

func (f *fakeConn) RemoteAddr() string { return f.addr }

// deliver completes the parked read.
func (f *fakeConn) deliver(ok bool, raw string) {
	f.mu.Lock()
	onRead := f.pending
	f.pending = nil
	f.mu.Unlock()
	if onRead != nil {
		onRead(ok, []byte(raw))
	}
}

func (f *fakeConn) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.writes...)
}

func (f *fakeConn) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *fakeConn) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// wireResponse is a response split into its parts.
type wireResponse struct {
	statusLine string
	status     int
	headers    map[string]string
	body       string
}

func parseWire(t *testing.T, raw []byte) wireResponse {
	t.Helper()

	head, body, found := bytes.Cut(raw, []byte("\r\n\r\n"))
	require.True(t, found, "response without header terminator: %q", raw)

	lines := strings.Split(string(head), "\r\n")
	r := wireResponse{headers: map[string]string{}, body: string(body)}
	if strings.HasPrefix(lines[0], "HTTP/") {
		r.statusLine = lines[0]
		fields := strings.SplitN(lines[0], " ", 3)
		require.Len(t, fields, 3)
		code, err := strconv.Atoi(fields[1])
		require.NoError(t, err)
		r.status = code
		lines = lines[1:]
	}
	for _, line := range lines {
		if line == "" {
			continue
		}
		name, value, _ := strings.Cut(line, ": ")
		r.headers[name] = value
	}
	return r
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = log.New(io.Discard, log.DebugLevel)
	return cfg
}

func newTestManager(t *testing.T, cfg ...Config) *Manager {
	t.Helper()
	c := testConfig()
	if len(cfg) > 0 {
		c = cfg[0]
		if c.Logger == nil {
			c.Logger = log.New(io.Discard, log.DebugLevel)
		}
	}
	m, err := NewManager(c)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}
