// Package dispatch implements the client side of the chat socket: a
// state machine that owns the websocket connection, sends user message
// frames, and dispatches inbound frames by type.
//
// The dispatcher reconnects forever on a fixed 3-second delay, one
// attempt per drop, no backoff growth. There is no client-side response
// timeout: only an arriving frame clears the pending indicator.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fernwey/atlas-travel-agent/internal/wire"
)

// ReconnectDelay is the fixed wait between reconnect attempts.
const ReconnectDelay = 3 * time.Second

// OfflineNotice is the canned text a UI should show when the user tries
// to send while the socket is down. The message is not queued.
const OfflineNotice = "抱歉，服务暂时不可用，请稍后重试。"

var (
	// ErrEmptyMessage rejects whitespace-only input before any frame is built.
	ErrEmptyMessage = errors.New("empty message")

	// ErrNotConnected rejects sends while the socket is down.
	ErrNotConnected = errors.New("not connected")
)

// ConnState is the connection status of the dispatcher.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventKind classifies dispatcher events delivered to the UI.
type EventKind int

const (
	// KindState reports a connection state change.
	KindState EventKind = iota

	// KindResponse carries an assistant reply to append to history.
	KindResponse

	// KindError carries a server error frame; show a transient notice,
	// append nothing.
	KindError

	// KindStatus carries a progress indicator update.
	KindStatus

	// KindNotice carries a locally generated transient notice.
	KindNotice
)

func (k EventKind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	case KindStatus:
		return "status"
	default:
		return "notice"
	}
}

// Event is one item on the dispatcher's event channel.
type Event struct {
	Kind    EventKind
	State   ConnState // KindState only
	Content string
	At      time.Time
}

// WSURL derives the chat endpoint from a page URL. The scheme mirrors
// the page scheme (http becomes ws, https becomes wss) and the path is
// always /ws. A bare host:port is treated as http.
func WSURL(serverURL string) (string, error) {
	if !strings.Contains(serverURL, "://") {
		serverURL = "http://" + serverURL
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""

	return u.String(), nil
}

// Dispatcher owns the websocket connection for one chat session.
type Dispatcher struct {
	url    string
	logger *slog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	state   atomic.Int32
	pending atomic.Bool

	events chan Event

	// reconnectDelay is ReconnectDelay; tests shorten it.
	reconnectDelay time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a dispatcher for the chat server at serverURL (a page URL
// such as http://localhost:8080; the ws scheme and /ws path are derived).
// Call Start to begin connecting.
func New(serverURL string, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	wsURL, err := WSURL(serverURL)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		url:            wsURL,
		logger:         logger,
		events:         make(chan Event, 64),
		reconnectDelay: ReconnectDelay,
	}, nil
}

// Start begins connecting in the background. State changes and inbound
// frames arrive on Events until Close is called or ctx ends.
func (d *Dispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.run(runCtx)
}

// State returns the current connection state.
func (d *Dispatcher) State() ConnState {
	return ConnState(d.state.Load())
}

// Pending reports whether a request is outstanding. Only an arriving
// frame clears it; there is no timeout.
func (d *Dispatcher) Pending() bool {
	return d.pending.Load()
}

// Events returns the channel the UI consumes.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Send transmits one user message. Whitespace-only input is rejected
// before any frame is built. Sends while disconnected are rejected, not
// queued. A successful send sets the pending indicator; the dispatcher
// does not enforce single-flight, that is the UI's convention.
func (d *Dispatcher) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if d.State() != StateConnected {
		return ErrNotConnected
	}

	frame := wire.NewMessage(text)
	data, err := frame.Encode()
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	d.connMu.Lock()
	conn := d.conn
	if conn == nil {
		d.connMu.Unlock()
		return ErrNotConnected
	}
	err = conn.WriteMessage(websocket.TextMessage, data)
	d.connMu.Unlock()
	if err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	d.pending.Store(true)
	return nil
}

// Close stops reconnecting, tears down the connection, and waits for the
// background goroutine to exit.
func (d *Dispatcher) Close() error {
	if d.cancel != nil {
		d.cancel()
	}

	d.connMu.Lock()
	conn := d.conn
	d.conn = nil
	d.connMu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	if d.done != nil {
		<-d.done
	}
	return err
}

// run is the connect loop: dial, serve the connection until it drops,
// wait the fixed delay, repeat.
func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	for {
		if ctx.Err() != nil {
			return
		}
		d.setState(StateConnecting)

		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.DialContext(ctx, d.url, nil)
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Debug("dial failed", "url", d.url, "error", err)
			}
			d.setState(StateDisconnected)
			if !sleepCtx(ctx, d.reconnectDelay) {
				return
			}
			continue
		}

		d.connMu.Lock()
		d.conn = conn
		d.connMu.Unlock()
		d.setState(StateConnected)
		d.logger.Info("connected", "url", d.url)

		d.readLoop(ctx, conn)

		d.connMu.Lock()
		d.conn = nil
		d.connMu.Unlock()
		conn.Close()
		d.setState(StateDisconnected)

		// One reconnect attempt per drop, after the fixed delay.
		if !sleepCtx(ctx, d.reconnectDelay) {
			return
		}
	}
}

// readLoop reads frames until the connection fails. Malformed payloads
// surface a notice and keep the connection; they never crash the loop.
func (d *Dispatcher) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				d.logger.Debug("socket closed")
			} else if ctx.Err() == nil {
				d.logger.Warn("socket read failed", "error", err)
			}
			return
		}

		frame, err := wire.Decode(data)
		if err != nil {
			d.pending.Store(false)
			d.emit(Event{Kind: KindNotice, Content: "收到无法解析的消息", At: time.Now()})
			continue
		}
		d.dispatch(frame)
	}
}

// dispatch routes one inbound frame by type.
func (d *Dispatcher) dispatch(f wire.Frame) {
	now := time.Now()

	switch f.Type {
	case wire.TypeResponse:
		d.pending.Store(false)
		d.emit(Event{Kind: KindResponse, Content: f.Content, At: now})

	case wire.TypeError:
		d.pending.Store(false)
		d.emit(Event{Kind: KindError, Content: f.Content, At: now})

	case wire.TypeStatus:
		// Status only moves the indicator; pending is untouched.
		d.emit(Event{Kind: KindStatus, Content: f.Content, At: now})

	default:
		d.pending.Store(false)
		d.emit(Event{Kind: KindNotice, Content: "收到未知类型的消息", At: now})
	}
}

func (d *Dispatcher) setState(s ConnState) {
	old := ConnState(d.state.Swap(int32(s)))
	if old == s {
		return
	}
	d.emit(Event{Kind: KindState, State: s, At: time.Now()})
}

func (d *Dispatcher) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("event channel full, dropping event", "kind", ev.Kind)
	}
}

// sleepCtx sleeps for dur or until ctx is cancelled. Returns false if cancelled.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
