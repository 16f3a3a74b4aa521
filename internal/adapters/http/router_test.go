package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/chatrelay/internal/adapters/ws"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/metrics"
	"github.com/gorilla/websocket"
)

type stubState struct {
	snap core.Snapshot
	err  error
}

func (s stubState) Snapshot(context.Context) (core.Snapshot, error) { return s.snap, s.err }

func testConfig() *config.Config { return &config.Config{Mode: "release"} }

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	r := SetupRouter(testConfig(), stubState{}, nil, nil)
	rr := get(t, r, "/healthz")
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated request id")
	}
}

func TestRoomsAndUsers(t *testing.T) {
	state := stubState{snap: core.Snapshot{
		Rooms: []core.RoomInfo{{Name: "lobby", MemberCount: 1, Members: []string{"alice"}}},
		Users: []core.UserInfo{{ID: "x", Nick: "alice", State: "inside", Room: "lobby"}},
	}}
	r := SetupRouter(testConfig(), state, nil, nil)

	rr := get(t, r, "/api/rooms")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var rooms struct {
		Rooms []core.RoomInfo `json:"rooms"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rooms.Rooms) != 1 || rooms.Rooms[0].Name != "lobby" || rooms.Rooms[0].MemberCount != 1 {
		t.Errorf("Unexpected rooms: %+v", rooms)
	}

	rr = get(t, r, "/api/users")
	var users struct {
		Users []core.UserInfo `json:"users"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users.Users) != 1 || users.Users[0].Nick != "alice" {
		t.Errorf("Unexpected users: %+v", users)
	}
}

func TestSnapshotErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: app.ErrLoopStopped, want: http.StatusServiceUnavailable},
		{err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{err: errors.New("boom"), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		r := SetupRouter(testConfig(), stubState{err: tt.err}, nil, nil)
		if rr := get(t, r, "/api/rooms"); rr.Code != tt.want {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rr.Code)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	r := SetupRouter(testConfig(), stubState{}, nil, metrics.New())
	rr := get(t, r, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "chatrelay_connections_active") {
		t.Errorf("Expected metrics output, got %d:\n%s", rr.Code, rr.Body.String())
	}
	if rr := get(t, SetupRouter(testConfig(), stubState{}, nil, nil), "/metrics"); rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without metrics, got %d", rr.Code)
	}
}

func TestLiveLoopOverWebSocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := app.NewLoop(app.Options{})
	go func() { _ = loop.Run(ctx) }()

	gw := ws.NewGateway(loop, ws.Options{WriteTimeout: time.Second})
	srv := httptest.NewServer(SetupRouter(testConfig(), loop, gw, nil))
	defer srv.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	for _, line := range []string{"/nick alice", "/join lobby"} {
		if err := c.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			t.Fatal(err)
		}
	}
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, want := range []string{"OK", "JOINED alice", "OK"} {
		_, data, err := c.ReadMessage()
		if err != nil || string(data) != want {
			t.Fatalf("Expected %q, got %q (%v)", want, data, err)
		}
	}

	resp, err := srv.Client().Get(srv.URL + "/api/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var rooms struct {
		Rooms []core.RoomInfo `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatal(err)
	}
	if len(rooms.Rooms) != 1 || rooms.Rooms[0].Members[0] != "alice" {
		t.Errorf("Expected alice in lobby, got %+v", rooms)
	}
}
