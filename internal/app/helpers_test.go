package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/protocol"
)

var errBrokenPipe = errors.New("broken pipe")

// testConn records written lines. Safe for use from the loop goroutine and
// the test goroutine at once.
type testConn struct {
	mu     sync.Mutex
	lines  []string
	fail   bool
	closed bool

	ch       chan string
	closedCh chan struct{}
}

func newTestConn() *testConn {
	return &testConn{ch: make(chan string, 64), closedCh: make(chan struct{})}
}

func (c *testConn) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail || c.closed {
		return errBrokenPipe
	}
	c.lines = append(c.lines, line)
	c.ch <- line
	return nil
}

func (c *testConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
	}
	return nil
}

func (c *testConn) RemoteAddr() string { return "test" }

func (c *testConn) setFail() {
	c.mu.Lock()
	c.fail = true
	c.mu.Unlock()
}

func (c *testConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// take returns the lines written since the last call.
func (c *testConn) take() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.lines
	c.lines = nil
	for len(c.ch) > 0 {
		<-c.ch
	}
	return out
}

func (c *testConn) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-c.ch:
		if got != want {
			t.Fatalf("Expected line %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %q", want)
	}
}

func (c *testConn) expectClosed(t *testing.T) {
	t.Helper()
	select {
	case <-c.closedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for connection close")
	}
}

func (c *testConn) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case got := <-c.ch:
		t.Fatalf("Expected no line, got %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

type fixture struct {
	reg  *Registry
	disp *Dispatcher
	seq  int
}

func newFixture() *fixture {
	reg := NewRegistry(nil)
	return &fixture{reg: reg, disp: &Dispatcher{Registry: reg}}
}

func (f *fixture) connect() (*core.Session, *testConn) {
	f.seq++
	conn := newTestConn()
	s := core.NewSession(core.SessionID(string(rune('a'+f.seq-1))), conn, protocol.NewFramer(protocol.ModeLegacy), nil)
	f.reg.Add(s)
	return s, conn
}

func equalLines(t *testing.T, who string, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %q, got %q", who, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %q, got %q", who, want, got)
		}
	}
}
