package verse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
)

// captureDispatcher records everything the session emits, in order.
type captureDispatcher struct {
	events chan event.Event
}

func newCaptureDispatcher() *captureDispatcher {
	return &captureDispatcher{events: make(chan event.Event, 64)}
}

func (d *captureDispatcher) Dispatch(ev event.Event) { d.events <- ev }

func (d *captureDispatcher) next(t *testing.T) event.Event {
	t.Helper()
	select {
	case ev := <-d.events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func newStreamConfig() *infra.Config {
	cfg := &infra.Config{}
	cfg.Node.URL = "http://node.example.com"
	cfg.Node.GameID = "game-123"
	cfg.Node.APIKey = "test-key"
	cfg.Stream.ReadTimeoutSec = 5
	cfg.Stream.PingIntervalSec = 1
	return cfg
}

// streamServer upgrades one connection, verifies the handshake frame, and
// hands the socket to the test body.
func streamServer(t *testing.T, body func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read handshake: %v", err)
			return
		}
		var hs handshakeFrame
		if err := json.Unmarshal(msg, &hs); err != nil {
			t.Errorf("decode handshake: %v", err)
			return
		}
		if hs.Type != "handshake" || hs.GameID != "game-123" {
			t.Errorf("handshake = %+v", hs)
			return
		}

		body(conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/ws"
}

func TestBuildStreamURL(t *testing.T) {
	cases := []struct {
		node, want string
	}{
		{"http://node.example.com", "wss://node.example.com/ws?api_key=k1"},
		{"https://node.example.com", "wss://node.example.com/ws?api_key=k1"},
		{"http://node.example.com/", "wss://node.example.com/ws?api_key=k1"},
		{"https://node.example.com///", "wss://node.example.com/ws?api_key=k1"},
		{"https://node.example.com:8443", "wss://node.example.com:8443/ws?api_key=k1"},
	}
	for _, tc := range cases {
		got, err := BuildStreamURL(tc.node, "k1")
		if err != nil {
			t.Errorf("BuildStreamURL(%q): %v", tc.node, err)
			continue
		}
		if got != tc.want {
			t.Errorf("BuildStreamURL(%q) = %q, want %q", tc.node, got, tc.want)
		}
	}

	if _, err := BuildStreamURL("ftp://node", "k1"); !errors.Is(err, ErrConfigurationInvalid) {
		t.Errorf("non-http scheme: err = %v", err)
	}

	got, err := BuildStreamURL("http://node", "a b&c")
	if err != nil || !strings.HasSuffix(got, "api_key=a+b%26c") {
		t.Errorf("key escaping: %q, %v", got, err)
	}
}

func TestConnectRefusesIncompleteConfig(t *testing.T) {
	cfg := newStreamConfig()
	cfg.Node.APIKey = ""
	d := newCaptureDispatcher()
	s := NewSession(cfg, d)

	err := s.Connect(context.Background())
	if !errors.Is(err, ErrConfigurationInvalid) {
		t.Fatalf("err = %v, want ErrConfigurationInvalid", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %v after refused connect", s.State())
	}
	select {
	case ev := <-d.events:
		t.Errorf("unexpected event %T after refused connect", ev)
	default:
	}
}

func TestConnectHandshakeAndFrameOrder(t *testing.T) {
	frames := []string{
		`{"type":"balance_update","data":{"address":"a","balance":1}}`,
		`{"type":"transfer_complete","data":{"asset_id":"x"}}`,
		`not even json`,
	}
	done := make(chan struct{})
	srv := streamServer(t, func(conn *websocket.Conn) {
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				t.Errorf("write frame: %v", err)
			}
		}
		<-done
	})
	defer srv.Close()
	defer close(done)

	d := newCaptureDispatcher()
	s := NewSession(newStreamConfig(), d)
	s.urlOverride = wsURL(srv)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	if !s.IsConnected() {
		t.Fatal("not connected after Connect")
	}

	cs, ok := d.next(t).(event.ConnectionStateEvent)
	if !ok || !cs.Success {
		t.Fatalf("first event = %+v, want successful ConnectionStateEvent", cs)
	}

	for i, want := range frames {
		ev := d.next(t)
		raw, ok := ev.(*event.RawMessageEvent)
		if !ok {
			t.Fatalf("event %d = %T, want RawMessageEvent", i, ev)
		}
		if string(raw.Raw) != want {
			t.Errorf("frame %d = %q, want %q", i, raw.Raw, want)
		}
	}

	// A frame the stream cannot decode is the router's problem, never a
	// reason to drop the connection.
	if s.State() != StateConnected {
		t.Errorf("state = %v after malformed frame", s.State())
	}
}

func TestServerCloseReported(t *testing.T) {
	srv := streamServer(t, func(conn *websocket.Conn) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4000, "maintenance"),
			time.Now().Add(time.Second))
	})
	defer srv.Close()

	d := newCaptureDispatcher()
	s := NewSession(newStreamConfig(), d)
	s.urlOverride = wsURL(srv)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if cs := d.next(t).(event.ConnectionStateEvent); !cs.Success {
		t.Fatalf("first event = %+v", cs)
	}

	cs, ok := d.next(t).(event.ConnectionStateEvent)
	if !ok || cs.Success {
		t.Fatalf("second event = %+v, want disconnect notification", cs)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.State() != StateDisconnected && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.State() != StateDisconnected {
		t.Fatalf("state = %v after server close", s.State())
	}
	if info := s.LastClose(); info.Code != 4000 || info.Reason != "maintenance" {
		t.Errorf("LastClose = %+v", info)
	}
}

func TestDisconnectIsDeterministic(t *testing.T) {
	hold := make(chan struct{})
	srv := streamServer(t, func(conn *websocket.Conn) {
		<-hold
	})
	defer srv.Close()
	defer close(hold)

	d := newCaptureDispatcher()
	s := NewSession(newStreamConfig(), d)
	s.urlOverride = wsURL(srv)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if cs := d.next(t).(event.ConnectionStateEvent); !cs.Success {
		t.Fatalf("connect event = %+v", cs)
	}

	s.Disconnect()

	if s.State() != StateDisconnected {
		t.Errorf("state = %v after Disconnect", s.State())
	}
	if err := s.Send([]byte(`{"type":"ping"}`)); !errors.Is(err, ErrTransportError) {
		t.Errorf("Send after Disconnect: err = %v", err)
	}

	// Teardown is quiet: no failure notification for a deliberate close.
	select {
	case ev := <-d.events:
		t.Errorf("unexpected event after Disconnect: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}

	if info := s.LastClose(); !info.Clean {
		t.Errorf("LastClose = %+v, want clean close", info)
	}
}

func TestSendWhileConnected(t *testing.T) {
	got := make(chan string, 1)
	srv := streamServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read: %v", err)
			return
		}
		got <- string(msg)
	})
	defer srv.Close()

	d := newCaptureDispatcher()
	s := NewSession(newStreamConfig(), d)
	s.urlOverride = wsURL(srv)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Disconnect()

	if err := s.Send([]byte(`{"type":"subscribe","channel":"assets"}`)); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case msg := <-got:
		if !strings.Contains(msg, "subscribe") {
			t.Errorf("server received %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestConnectWithZeroIntervals(t *testing.T) {
	// A Config assembled by hand may leave the stream timings zero; the
	// session must run without pings or read deadlines instead of dying.
	done := make(chan struct{})
	srv := streamServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome"}`)); err != nil {
			t.Errorf("write frame: %v", err)
		}
		<-done
	})
	defer srv.Close()
	defer close(done)

	cfg := newStreamConfig()
	cfg.Stream.ReadTimeoutSec = 0
	cfg.Stream.PingIntervalSec = 0

	d := newCaptureDispatcher()
	s := NewSession(cfg, d)
	s.urlOverride = wsURL(srv)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if cs := d.next(t).(event.ConnectionStateEvent); !cs.Success {
		t.Fatalf("connect event = %+v", cs)
	}
	raw, ok := d.next(t).(*event.RawMessageEvent)
	if !ok || string(raw.Raw) != `{"type":"welcome"}` {
		t.Fatalf("frame = %+v", raw)
	}

	// No instant read-deadline expiry: the stream stays up.
	time.Sleep(200 * time.Millisecond)
	if s.State() != StateConnected {
		t.Fatalf("state = %v with zero timings", s.State())
	}

	s.Disconnect()
	if info := s.LastClose(); !info.Clean {
		t.Errorf("LastClose = %+v, want clean close", info)
	}
}

func TestConnectDialFailure(t *testing.T) {
	d := newCaptureDispatcher()
	s := NewSession(newStreamConfig(), d)
	s.urlOverride = "ws://127.0.0.1:1/ws"

	err := s.Connect(context.Background())
	if !errors.Is(err, ErrTransportError) {
		t.Fatalf("err = %v, want ErrTransportError", err)
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %v after failed dial", s.State())
	}
	cs, ok := d.next(t).(event.ConnectionStateEvent)
	if !ok || cs.Success {
		t.Errorf("event = %+v, want failure notification", cs)
	}
}
