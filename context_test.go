package nstd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCtx(t *testing.T, raw string) (*Ctx, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	c := acquireCtx(newTestManager(t), conn, []byte(raw))
	t.Cleanup(func() { releaseCtx(c) })
	u, err := c.request.ResourceURI()
	if err == nil {
		c.uri = u
		c.resource = u.Path()
	}
	return c, conn
}

func TestCtxRequestAccessors(t *testing.T) {
	c, _ := newTestCtx(t, "GET /search?q=go+lang&page=2&q=again HTTP/1.1\r\nHost: example.com\r\nuser-agent: test\r\n\r\n")

	assert.Equal(t, MethodGet, c.Method())
	assert.True(t, c.Request().IsGet())
	assert.Equal(t, "/search", c.Resource())
	assert.Equal(t, "example.com", c.URI().Host())
	assert.Equal(t, "test", c.Header("User-Agent"))
	assert.Equal(t, "go lang", c.Query("q"))
	assert.Equal(t, "2", c.Query("page"))
	assert.Equal(t, "", c.Query("missing"))

	params, err := c.QueryParameters()
	require.NoError(t, err)
	assert.Len(t, params, 3)

	assert.Equal(t, "192.0.2.10:40000", c.RemoteAddr())
	assert.NotNil(t, c.Manager())
	assert.NotNil(t, c.Conn())
	assert.Empty(t, c.Body())
	assert.Equal(t, "", c.Capture(0))
	assert.Equal(t, "", c.Capture(-1))
}

func TestCtxBodyJSON(t *testing.T) {
	c, _ := newTestCtx(t, "POST /items HTTP/1.1\r\nContent-Type: application/json\r\n\r\n{\"name\":\"lamp\",\"qty\":3}")

	v, err := c.BodyJSON()
	require.NoError(t, err)
	assert.Equal(t, "lamp", string(v.GetStringBytes("name")))
	assert.Equal(t, 3, v.GetInt("qty"))

	// a JSON body is not turned into a query
	assert.Empty(t, c.URI().RawQuery())

	bad, _ := newTestCtx(t, "POST /items HTTP/1.1\r\nContent-Type: application/json\r\n\r\n{broken")
	_, err = bad.BodyJSON()
	assert.Error(t, err)
}

func TestCtxAcceptsGzip(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{"gzip", true},
		{"deflate, gzip;q=0.5", true},
		{"GZIP", true},
		{"br, gzip;q=0", false},
		{"br", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			raw := "GET / HTTP/1.1\r\n"
			if tt.header != "" {
				raw += "Accept-Encoding: " + tt.header + "\r\n"
			}
			c, _ := newTestCtx(t, raw+"\r\n")
			assert.Equal(t, tt.want, c.AcceptsGzip())
		})
	}
}

func TestCtxLocals(t *testing.T) {
	c, _ := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")

	assert.Nil(t, c.Locals("user"))
	assert.Equal(t, "ann", c.Locals("user", "ann"))
	assert.Equal(t, "ann", c.Locals("user"))
}

func TestCtxSendOnce(t *testing.T) {
	c, conn := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")

	assert.False(t, c.Completed())
	assert.False(t, c.Sent())
	require.NoError(t, c.String(StatusAccepted, "queued %d", 3))
	assert.True(t, c.Completed())
	assert.True(t, c.Sent())
	assert.Equal(t, StatusAccepted, c.StatusCode())

	assert.ErrorIs(t, c.JSON(StatusOK, "again"), ErrResponseSent)
	assert.ErrorIs(t, c.Send(NewResponse(StatusOK)), ErrResponseSent)

	writes := conn.written()
	require.Len(t, writes, 1)
	r := parseWire(t, writes[0])
	assert.Equal(t, 202, r.status)
	assert.Equal(t, "queued 3", r.body)
	assert.Equal(t, "text/plain; charset=utf-8", r.headers["Content-Type"])
}

func TestCtxStringWithoutArgs(t *testing.T) {
	c, conn := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, c.String(StatusOK, "plain text"))
	assert.Equal(t, "plain text", parseWire(t, conn.written()[0]).body)
}

func TestCtxStringPercent(t *testing.T) {
	c, conn := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, c.String(StatusOK, "%d%%", 100))
	assert.Equal(t, "100%", parseWire(t, conn.written()[0]).body)
}

func TestCtxJSON(t *testing.T) {
	c, conn := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")
	require.NoError(t, c.JSON(StatusOK, struct {
		Name string `json:"name"`
	}{"nstd"}))

	r := parseWire(t, conn.written()[0])
	assert.JSONEq(t, `{"name":"nstd"}`, r.body)
	assert.Equal(t, "application/json; charset=utf-8", r.headers["Content-Type"])

	c2, _ := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")
	assert.Error(t, c2.JSON(StatusOK, func() {}))
	assert.False(t, c2.Sent())
}

func TestCtxComplete(t *testing.T) {
	c, conn := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")
	c.Complete()
	assert.True(t, c.Completed())
	assert.False(t, c.Sent())
	assert.Empty(t, conn.written())
}

func TestCtxPoolReset(t *testing.T) {
	c := acquireCtx(nil, newFakeConn(), []byte("GET /a HTTP/1.1\r\n\r\n"))
	c.Locals("k", "v")
	c.captures = []string{"x"}
	c.Complete()
	releaseCtx(c)

	assert.False(t, c.Completed())
	assert.Nil(t, c.Captures())
	assert.Nil(t, c.Locals("k"))
	assert.False(t, c.Request().OK())
	assert.Nil(t, c.Conn())
}

func TestCtxSetHeaders(t *testing.T) {
	c, conn := newTestCtx(t, "GET / HTTP/1.1\r\n\r\n")
	c.Set("Vary", "Origin")
	c.Set("X-Request", "1")
	c.Set("vary", "Accept")
	assert.Equal(t, "Accept", c.ResponseHeader("Vary"))
	assert.Equal(t, "", c.ResponseHeader("X-Missing"))

	require.NoError(t, c.String(StatusOK, "ok"))
	r := parseWire(t, conn.written()[0])
	assert.Equal(t, "Accept", r.headers["Vary"])
	assert.Equal(t, "1", r.headers["X-Request"])
}
