package verse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
)

// SessionState is the stream connection lifecycle.
type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateAwaitingHandshakeAck
	StateConnected
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateAwaitingHandshakeAck:
		return "AwaitingHandshakeAck"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// handshakeFrame is the first frame sent after the socket opens. It binds
// the stream to one game id; the node drops streams that skip it.
type handshakeFrame struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
}

// CloseInfo records how the last stream ended.
type CloseInfo struct {
	Code   int
	Reason string
	Clean  bool
}

// Session owns the push stream to the node. Inbound frames are forwarded to
// the dispatch loop untouched; decoding and routing happen there. A session
// never reconnects on its own: when the stream drops the caller decides.
type Session struct {
	cfg        *infra.Config
	dispatcher Dispatcher

	mu        sync.RWMutex
	state     SessionState
	conn      *websocket.Conn
	cancel    context.CancelFunc
	lastClose CloseInfo

	writeMu sync.Mutex
	wg      sync.WaitGroup

	// urlOverride bypasses BuildStreamURL. Tests only.
	urlOverride string
}

// NewSession builds a stream session. Connect must be called before any
// frames flow.
func NewSession(cfg *infra.Config, dispatcher Dispatcher) *Session {
	return &Session{cfg: cfg, dispatcher: dispatcher}
}

// BuildStreamURL derives the push endpoint from the node's HTTP base URL.
// Both http and https bases map to wss; trailing slashes are stripped so
// "http://host///" and "http://host" produce the same endpoint.
func BuildStreamURL(nodeURL, apiKey string) (string, error) {
	base := strings.TrimRight(nodeURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "wss://" + strings.TrimPrefix(base, "http://")
	default:
		return "", fmt.Errorf("%w: node url %q has no http(s) scheme", ErrConfigurationInvalid, nodeURL)
	}
	return base + "/ws?api_key=" + url.QueryEscape(apiKey), nil
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the stream is up.
func (s *Session) IsConnected() bool { return s.State() == StateConnected }

// LastClose reports how the previous stream ended. Zero value until the
// first disconnect.
func (s *Session) LastClose() CloseInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastClose
}

// StatusDescription renders the connection state for logs and UIs.
func (s *Session) StatusDescription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateConnected {
		return fmt.Sprintf("Connected to %s", s.cfg.Node.URL)
	}
	if s.lastClose.Code != 0 {
		return fmt.Sprintf("%s (close %d: %s)", s.state, s.lastClose.Code, s.lastClose.Reason)
	}
	return s.state.String()
}

// Connect dials the stream, performs the handshake, and starts the read
// loop. Synchronous: on return the session is either Connected or back to
// Disconnected with an error. Refuses to dial on incomplete configuration.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.Node.APIKey == "" || s.cfg.Node.GameID == "" || s.cfg.Node.URL == "" {
		return fmt.Errorf("%w: stream requires node url, game id, and api key", ErrConfigurationInvalid)
	}

	// A live session is torn down first so callers can force a fresh dial.
	s.Disconnect()

	streamURL := s.urlOverride
	if streamURL == "" {
		var err error
		streamURL, err = BuildStreamURL(s.cfg.Node.URL, s.cfg.Node.APIKey)
		if err != nil {
			return err
		}
	}

	s.setState(StateConnecting)
	slog.Info("stream connecting", "endpoint", redactKey(streamURL))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		s.setState(StateDisconnected)
		s.notify(false, err.Error())
		return fmt.Errorf("%w: dial stream: %v", ErrTransportError, err)
	}

	s.setState(StateAwaitingHandshakeAck)

	hs, _ := json.Marshal(handshakeFrame{Type: "handshake", GameID: s.cfg.Node.GameID})
	s.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, hs)
	s.writeMu.Unlock()
	if err != nil {
		conn.Close()
		s.setState(StateDisconnected)
		s.notify(false, "handshake write failed")
		return fmt.Errorf("%w: handshake: %v", ErrTransportError, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.state = StateConnected
	s.lastClose = CloseInfo{}
	s.mu.Unlock()

	s.notify(true, "")

	s.wg.Add(1)
	go s.readLoop(runCtx, conn)

	// A hand-built Config may leave the interval zero; no ping loop then.
	if interval := time.Duration(s.cfg.Stream.PingIntervalSec) * time.Second; interval > 0 {
		s.wg.Add(1)
		go s.pingLoop(runCtx, conn, interval)
	}

	slog.Info("stream connected", "game_id", s.cfg.Node.GameID)
	return nil
}

// Disconnect tears the stream down deterministically: after it returns no
// further frames or state events are delivered.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn, cancel := s.conn, s.cancel
	s.conn, s.cancel = nil, nil
	wasUp := s.state != StateDisconnected
	s.state = StateDisconnected
	if wasUp && s.lastClose.Code == 0 {
		s.lastClose = CloseInfo{Code: websocket.CloseNormalClosure, Reason: "client disconnect", Clean: true}
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		s.writeMu.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		conn.Close()
	}
	s.wg.Wait()
}

// Send writes one text frame to the stream.
func (s *Session) Send(message []byte) error {
	s.mu.RLock()
	conn, state := s.conn, s.state
	s.mu.RUnlock()
	if state != StateConnected || conn == nil {
		return fmt.Errorf("%w: stream not connected", ErrTransportError)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return fmt.Errorf("%w: stream write: %v", ErrTransportError, err)
	}
	return nil
}

// readLoop forwards every inbound frame to the dispatch loop until the
// stream dies or Disconnect cancels it.
func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer s.wg.Done()

	// With no read timeout configured the stream blocks indefinitely
	// rather than expiring on an instant deadline.
	readTimeout := time.Duration(s.cfg.Stream.ReadTimeoutSec) * time.Second
	if readTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}

	for {
		if readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return // deliberate teardown, already reported
			}
			s.handleReadError(err)
			return
		}

		ev := event.AcquireRawMessageEvent()
		ev.Ts = time.Now().UnixMicro()
		ev.Raw = append(ev.Raw, msg...)
		s.dispatcher.Dispatch(ev)
	}
}

// pingLoop keeps intermediaries from idling the stream out.
func (s *Session) pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			s.writeMu.Unlock()
			if err != nil {
				return // read loop will observe the broken socket
			}
		}
	}
}

// handleReadError records how the stream ended and reports the drop.
func (s *Session) handleReadError(err error) {
	info := CloseInfo{Code: websocket.CloseAbnormalClosure, Reason: err.Error()}
	if ce, ok := err.(*websocket.CloseError); ok {
		info = CloseInfo{Code: ce.Code, Reason: ce.Text, Clean: ce.Code == websocket.CloseNormalClosure}
	}

	s.mu.Lock()
	if s.conn == nil {
		// Disconnect raced us; it already settled the state.
		s.mu.Unlock()
		return
	}
	conn, cancel := s.conn, s.cancel
	s.conn, s.cancel = nil, nil
	s.state = StateDisconnected
	s.lastClose = info
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	conn.Close()
	slog.Warn("stream dropped", "code", info.Code, "reason", info.Reason)
	s.notify(false, info.Reason)
}

func (s *Session) setState(st SessionState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) notify(success bool, reason string) {
	s.dispatcher.Dispatch(event.ConnectionStateEvent{
		BaseEvent: event.BaseEvent{Ts: time.Now().UnixMicro()},
		Success:   success,
		Reason:    reason,
	})
}

// redactKey masks the api_key query parameter for logging.
func redactKey(streamURL string) string {
	if i := strings.Index(streamURL, "api_key="); i >= 0 {
		return streamURL[:i] + "api_key=***"
	}
	return streamURL
}
