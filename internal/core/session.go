package core

import (
	"github.com/dkeye/chatrelay/internal/domain"
	"github.com/dkeye/chatrelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Session is the server side of one connection.
// Only the event loop goroutine may touch it.
type Session struct {
	ID    SessionID
	Nick  domain.Nick
	State domain.State
	// Room is empty unless State is domain.StateInside.
	Room domain.RoomName

	conn   LineConn
	framer *protocol.Framer
	err    error
	onFail func(*Session)
}

// NewSession binds a connection to a fresh unregistered session. onFail is
// called once, on the first failed write.
func NewSession(id SessionID, conn LineConn, framer *protocol.Framer, onFail func(*Session)) *Session {
	if framer == nil {
		framer = protocol.NewFramer(protocol.ModeLegacy)
	}
	return &Session{
		ID:     id,
		State:  domain.StateInit,
		conn:   conn,
		framer: framer,
		onFail: onFail,
	}
}

func (s *Session) Conn() LineConn { return s.conn }

// Frame feeds one read chunk to the session's framer.
func (s *Session) Frame(chunk []byte) []string { return s.framer.Feed(chunk) }

// Send writes a line unless an earlier write already failed.
func (s *Session) Send(line string) bool {
	if s.err != nil {
		return false
	}
	if err := s.conn.Send(line); err != nil {
		s.err = err
		log.Warn().Err(err).Str("module", "core.session").Str("sid", string(s.ID)).Msg("write failed")
		if s.onFail != nil {
			s.onFail(s)
		}
		return false
	}
	return true
}

// Err returns the first write error, if any.
func (s *Session) Err() error { return s.err }

// Label is the nickname, or the session id while unregistered. Used in logs.
func (s *Session) Label() string {
	if s.Nick != "" {
		return string(s.Nick)
	}
	return string(s.ID)
}
