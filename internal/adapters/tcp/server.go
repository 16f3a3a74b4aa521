// Package tcp is the stream-socket transport of the relay. Each accepted
// connection gets one reader goroutine that turns blocking reads into loop
// events; all writes are made by the event loop through LineConn.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/rs/zerolog/log"
)

const DefaultReadBuffer = 16384

type Options struct {
	ReadBuffer   int
	WriteTimeout time.Duration
}

type Server struct {
	ln   net.Listener
	loop *app.Loop
	opts Options
}

// Listen binds addr. A bind failure is returned to the caller, which is
// expected to treat it as fatal.
func Listen(addr string, loop *app.Loop, opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return NewServer(ln, loop, opts), nil
}

func NewServer(ln net.Listener, loop *app.Loop, opts Options) *Server {
	if opts.ReadBuffer <= 0 {
		opts.ReadBuffer = DefaultReadBuffer
	}
	return &Server{ln: ln, loop: loop, opts: opts}
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is cancelled. Connections still open
// at that point are closed too.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	defer stop()

	log.Info().Str("module", "adapters.tcp").Str("addr", s.ln.Addr().String()).Msg("listening")
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				log.Warn().Err(err).Str("module", "adapters.tcp").Msg("accept timeout")
				time.Sleep(50 * time.Millisecond)
				continue
			}
			log.Error().Err(err).Str("module", "adapters.tcp").Msg("accept failed")
			return fmt.Errorf("accept: %w", err)
		}
		log.Info().Str("module", "adapters.tcp").Str("remote", conn.RemoteAddr().String()).Msg("got connection")
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	c := newTCPConn(conn, s.opts.WriteTimeout)
	sid, err := s.loop.Open(c)
	if err != nil {
		_ = c.Close()
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	s.readPump(sid, c)
}

func (s *Server) readPump(sid core.SessionID, c *tcpConn) {
	buf := make([]byte, s.opts.ReadBuffer)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !s.loop.Data(sid, chunk) {
				_ = c.Close()
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				err = nil
			}
			s.loop.Closed(sid, err)
			return
		}
	}
}

// tcpConn is the LineConn of one socket. Send is only called by the event
// loop; Close may race with it and is idempotent.
type tcpConn struct {
	conn         net.Conn
	writeTimeout time.Duration
	remote       string

	once     sync.Once
	closeErr error
}

func newTCPConn(conn net.Conn, writeTimeout time.Duration) *tcpConn {
	return &tcpConn{conn: conn, writeTimeout: writeTimeout, remote: conn.RemoteAddr().String()}
}

func (c *tcpConn) Send(line string) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

func (c *tcpConn) Close() error {
	c.once.Do(func() { c.closeErr = c.conn.Close() })
	return c.closeErr
}

func (c *tcpConn) RemoteAddr() string { return c.remote }
