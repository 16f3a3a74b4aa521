package app

import (
	"context"
	"errors"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/dkeye/chatrelay/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrLoopStopped = errors.New("event loop stopped")

type eventKind int

const (
	evOpen eventKind = iota
	evData
	evClosed
)

type event struct {
	kind eventKind
	sid  core.SessionID
	conn core.LineConn
	data []byte
	err  error
}

type Options struct {
	Framing    protocol.Mode
	QueueSize  int
	MaxNickLen int
	Metrics    *metrics.Metrics
}

// Loop is the single owner of all chat state. Transports post readiness
// events from any goroutine; Run applies them one at a time, so a read is
// framed, dispatched and written out completely before the next is looked at.
type Loop struct {
	events  chan event
	queries chan func()
	done    chan struct{}

	registry   *Registry
	dispatcher *Dispatcher
	framing    protocol.Mode
	metrics    *metrics.Metrics

	// sessions whose write failed during the current event
	reap []*core.Session
}

func NewLoop(opts Options) *Loop {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	reg := NewRegistry(NewRoomManager())
	return &Loop{
		events:   make(chan event, opts.QueueSize),
		queries:  make(chan func()),
		done:     make(chan struct{}),
		registry: reg,
		dispatcher: &Dispatcher{
			Registry:   reg,
			Metrics:    opts.Metrics,
			MaxNickLen: opts.MaxNickLen,
		},
		framing: opts.Framing,
		metrics: opts.Metrics,
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Open announces a new connection and returns its session id.
func (l *Loop) Open(conn core.LineConn) (core.SessionID, error) {
	sid := core.SessionID(uuid.NewString())
	if !l.post(event{kind: evOpen, sid: sid, conn: conn}) {
		return "", ErrLoopStopped
	}
	return sid, nil
}

// Data hands one read chunk to the loop. The loop keeps chunk; callers must
// not reuse it.
func (l *Loop) Data(sid core.SessionID, chunk []byte) bool {
	return l.post(event{kind: evData, sid: sid, data: chunk})
}

// Closed reports EOF or a read error. err is nil for an orderly EOF.
func (l *Loop) Closed(sid core.SessionID, err error) {
	l.post(event{kind: evClosed, sid: sid, err: err})
}

func (l *Loop) post(ev event) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.events <- ev:
	case <-l.done:
		return false
	}
	// The send can win against a concurrent shutdown whose drain has already
	// finished; nobody would close that connection.
	select {
	case <-l.done:
		if ev.kind == evOpen {
			_ = ev.conn.Close()
		}
		return false
	default:
		return true
	}
}

// Snapshot returns a consistent view of rooms and users, computed on the
// loop goroutine.
func (l *Loop) Snapshot(ctx context.Context) (core.Snapshot, error) {
	res := make(chan core.Snapshot, 1)
	q := func() { res <- l.registry.Snapshot() }
	select {
	case l.queries <- q:
	case <-l.done:
		return core.Snapshot{}, ErrLoopStopped
	case <-ctx.Done():
		return core.Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-res:
		return snap, nil
	case <-ctx.Done():
		return core.Snapshot{}, ctx.Err()
	}
}

// Run processes events until ctx is cancelled, then closes every connection.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().Str("module", "app.loop").Str("framing", string(l.framing)).Msg("event loop started")
	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return nil
		case ev := <-l.events:
			l.handle(ev)
			l.drain()
		case q := <-l.queries:
			q()
		}
	}
}

func (l *Loop) handle(ev event) {
	switch ev.kind {
	case evOpen:
		s := core.NewSession(ev.sid, ev.conn, protocol.NewFramer(l.framing), l.markFailed)
		l.registry.Add(s)
		l.metrics.ConnOpened()
		log.Info().Str("module", "app.loop").Str("sid", string(s.ID)).Str("remote", ev.conn.RemoteAddr()).Msg("connection opened")
	case evData:
		s, ok := l.registry.Session(ev.sid)
		if !ok {
			return
		}
		for _, msg := range s.Frame(ev.data) {
			if s.Err() != nil {
				return
			}
			if l.dispatcher.Dispatch(s, msg) {
				l.drop(s, nil)
				return
			}
		}
	case evClosed:
		s, ok := l.registry.Session(ev.sid)
		if !ok {
			return
		}
		l.drop(s, ev.err)
	}
}

func (l *Loop) markFailed(s *core.Session) {
	l.reap = append(l.reap, s)
}

// drain tears down sessions whose writes failed. Their LEFT broadcasts may
// fail further writes, so loop until the queue is empty.
func (l *Loop) drain() {
	for len(l.reap) > 0 {
		s := l.reap[0]
		l.reap = l.reap[1:]
		l.drop(s, s.Err())
	}
	l.reap = nil
}

func (l *Loop) drop(s *core.Session, cause error) {
	if !l.registry.Has(s) {
		return
	}
	l.dispatcher.Disconnect(s)
	l.registry.Remove(s)
	if err := s.Conn().Close(); err != nil {
		log.Debug().Err(err).Str("module", "app.loop").Str("sid", string(s.ID)).Msg("close")
	}
	l.metrics.ConnClosed()
	ev := log.Info()
	if cause != nil {
		ev = log.Warn().Err(cause)
	}
	ev.Str("module", "app.loop").Str("sid", string(s.ID)).Str("remote", s.Conn().RemoteAddr()).Msg("connection closed")
}

func (l *Loop) shutdown() {
	close(l.done)
	sessions := l.registry.Sessions()
	for _, s := range sessions {
		_ = s.Conn().Close()
		l.registry.Remove(s)
		l.metrics.ConnClosed()
	}
	// Connections announced but never processed.
	for {
		select {
		case ev := <-l.events:
			if ev.kind == evOpen {
				_ = ev.conn.Close()
			}
		default:
			log.Info().Str("module", "app.loop").Int("closed", len(sessions)).Msg("event loop stopped")
			return
		}
	}
}
