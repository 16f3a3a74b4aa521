package core

type SessionID string

// LineConn abstracts a transport endpoint that carries protocol lines.
// Owned by the adapter; the adapter must make Close idempotent.
type LineConn interface {
	// Send writes one line; the transport adds its own terminator.
	Send(line string) error
	Close() error
	RemoteAddr() string
}
