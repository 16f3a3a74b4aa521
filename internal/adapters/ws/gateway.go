// Package ws lets browsers speak the chat line protocol over WebSocket.
// One text frame in is one read chunk; one line out is one text frame.
package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const closeGrace = time.Second

type Options struct {
	ReadLimit    int64
	WriteTimeout time.Duration
}

type Gateway struct {
	loop     *app.Loop
	opts     Options
	upgrader websocket.Upgrader
}

func NewGateway(loop *app.Loop, opts Options) *Gateway {
	return &Gateway{
		loop: loop,
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle upgrades the request and pumps frames into the loop until the
// socket is closed by either side.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	if g.opts.ReadLimit > 0 {
		ws.SetReadLimit(g.opts.ReadLimit)
	}

	c := &wsConn{conn: ws, writeTimeout: g.opts.WriteTimeout, remote: ws.RemoteAddr().String()}
	sid, err := g.loop.Open(c)
	if err != nil {
		_ = c.Close()
		return
	}
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Str("remote", c.remote).Msg("new WS connection")
	g.readPump(sid, c)
}

func (g *Gateway) readPump(sid core.SessionID, c *wsConn) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				err = nil
			}
			g.loop.Closed(sid, err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		if !g.loop.Data(sid, data) {
			_ = c.Close()
			return
		}
	}
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	remote       string

	once     sync.Once
	closeErr error
}

func (c *wsConn) Send(line string) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) Close() error {
	c.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *wsConn) RemoteAddr() string { return c.remote }
