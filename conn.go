package nstd

// WriteRequest is one buffer handed to Connection.AsyncWrite. OnComplete,
// when set, runs once the transport has flushed or failed the write.
type WriteRequest struct {
	Buffer     []byte
	OnComplete func(err error)
}

// Connection is the transport side of one client connection.
//
// AsyncRead delivers the next complete request to onRead, exactly once;
// ok is false when the connection closed or the request could not be read.
// Ownership of buf passes to the callee.
type Connection interface {
	AsyncRead(maxBytes int, onRead func(ok bool, buf []byte))
	AsyncWrite(req WriteRequest) error
	Disconnect() error
	RemoteAddr() string
}
