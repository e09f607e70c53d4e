package chatlink

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/chatlink/chatlink-go/chatlink/internal"
)

// Client owns exactly one logical session at a time: the transport handle,
// the reconnect timer and the state machine driving them. It is safe for
// concurrent use; callbacks may call back into the client (including Close).
type Client struct {
	cfg        Config
	logger     zerolog.Logger
	dispatcher Dispatcher

	mu      sync.Mutex
	state   ConnectionState
	attempt int
	conn    *internal.Conn
	timer   *time.Timer

	// gen identifies the current session. Every dial and every Close bumps
	// it; callbacks carrying a stale gen belong to a superseded session and
	// are ignored. Handle identity, not state name, decides staleness.
	gen uint64
}

// NewClient constructs a client with the provided config. Use DefaultConfig()
// as a starting point. The config is not re-read after construction.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		logger: zerolog.Nop(),
		state:  StateIdle,
	}
}

// SetLogger overrides the logger (optional, defaults to a no-op).
func (c *Client) SetLogger(l zerolog.Logger) { c.logger = l }

// OnMessage registers the callback for incoming chat messages.
func (c *Client) OnMessage(fn func(ChatMessage)) { c.dispatcher.SetOnMessage(fn) }

// OnConnect registers the callback fired once per successful open.
func (c *Client) OnConnect(fn func()) { c.dispatcher.SetOnConnect(fn) }

// OnDisconnect registers the callback fired when an open session ends.
func (c *Client) OnDisconnect(fn func()) { c.dispatcher.SetOnDisconnect(fn) }

// OnError registers the callback for terminal errors. Only the
// reconnect-exhaustion error is delivered here; transient failures surface
// as state changes and protocol errors are logged and dropped.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// OnStateChange registers the callback fired on every state transition.
func (c *Client) OnStateChange(fn func(StateEvent)) { c.dispatcher.SetOnStateChange(fn) }

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt returns the current reconnect attempt count. It resets to zero on
// every successful open.
func (c *Client) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Open starts the session. Configuration errors are returned synchronously
// with no state change. Open is idempotent: a call while already connecting
// or open is a no-op. The handshake runs asynchronously; its outcome is
// reported through the dispatch callbacks.
func (c *Client) Open(ctx context.Context) error {
	if err := c.cfg.validate(); err != nil {
		return err
	}
	target, err := sessionURL(c.cfg.BaseURL, c.cfg.RoomID, c.cfg.Token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	switch c.state {
	case StateConnecting, StateOpen, StateClosing:
		c.mu.Unlock()
		return nil
	case StateIdle, StateFailed:
		// Fresh open starts the policy over.
		c.attempt = 0
	case StateReconnectWait:
		// Manual open preempts the pending timer.
		c.clearTimerLocked()
	}
	prev := c.state
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.emitState(prev, StateConnecting, nil)
	go c.dial(ctx, target, gen)
	return nil
}

// Send hands content to the transport. It returns true once the write
// succeeded, false when no session is open or the write fails. Content is
// never buffered or retried.
func (c *Client) Send(content string) bool {
	c.mu.Lock()
	conn := c.conn
	open := c.state == StateOpen && conn != nil
	c.mu.Unlock()
	if !open {
		return false
	}

	data, err := EncodeContent(content)
	if err != nil {
		c.logger.Warn().Err(err).Msg("encode outgoing content")
		return false
	}
	if err := conn.Write(context.Background(), data); err != nil {
		c.logger.Warn().Err(err).Msg("write failed")
		return false
	}
	return true
}

// Close tears the session down. It is safe from any state, from within
// callbacks, and on repeat calls. A pending reconnect timer is cancelled and
// the policy is marked exhausted so a raced timer cannot start a new attempt
// after a manual close.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateIdle && c.conn == nil && c.timer == nil {
		c.mu.Unlock()
		return nil
	}
	c.clearTimerLocked()
	c.attempt = c.cfg.MaxReconnectTries
	c.gen++
	conn := c.conn
	c.conn = nil
	prev := c.state
	c.state = StateClosing
	c.mu.Unlock()

	var err error
	if conn != nil {
		// Normal closure is the manual-close sentinel: the session ended on
		// purpose and must not be rescheduled.
		err = conn.Close(websocket.StatusNormalClosure, "client close")
	}

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()

	c.logger.Debug().Str("from", prev.String()).Msg("closed")
	c.emitState(prev, StateClosing, nil)
	c.emitState(StateClosing, StateIdle, nil)
	if prev == StateOpen {
		c.dispatcher.fireDisconnect()
	}
	return err
}

// dial performs the transport handshake for session gen.
func (c *Client) dial(ctx context.Context, target string, gen uint64) {
	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	c.logger.Debug().Str("url", target).Uint64("gen", gen).Msg("dialing")
	ws, _, err := websocket.Dial(dialCtx, target, nil)
	if err != nil {
		c.sessionEnded(gen, WrapError(ErrorConnection, "handshake failed", err))
		return
	}
	conn := internal.NewConn(ws, c.cfg.ReadTimeout, c.cfg.WriteTimeout)

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		// Superseded while dialing (manual close or a newer open).
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		return
	}
	c.conn = conn
	c.attempt = 0
	prev := c.state
	c.state = StateOpen
	c.mu.Unlock()

	c.logger.Info().Str("room", c.cfg.RoomID).Msg("connected")
	c.emitState(prev, StateOpen, nil)
	c.dispatcher.fireConnect()
	c.readLoop(conn, gen)
}

// readLoop consumes frames until the session ends. It runs on the dial
// goroutine, which serializes OnConnect, OnMessage and the close handling of
// one session.
func (c *Client) readLoop(conn *internal.Conn, gen uint64) {
	for {
		data, err := conn.Read(context.Background())
		if err != nil {
			c.sessionEnded(gen, err)
			return
		}
		c.handleFrame(conn, gen, data)
	}
}

func (c *Client) handleFrame(conn *internal.Conn, gen uint64, data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping frame")
		return
	}
	switch frame.Type {
	case FrameTypePing:
		c.mu.Lock()
		live := c.gen == gen && c.state == StateOpen
		c.mu.Unlock()
		if !live {
			return
		}
		if err := conn.Write(context.Background(), encodePong()); err != nil {
			c.logger.Warn().Err(err).Msg("pong write failed")
		}
	case FrameTypePong:
		// Keepalive reply, nothing to do.
	case FrameTypeMessage:
		msg, err := frame.ChatMessage()
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping frame")
			return
		}
		c.dispatcher.fireMessage(msg)
	default:
		c.logger.Warn().Str("type", frame.Type).Msg("dropping unrecognized frame")
	}
}

// sessionEnded handles every way session gen can die: handshake failure,
// read error, abnormal close, or a server-initiated clean close. Stale
// generations are ignored; Close handles its own teardown.
func (c *Client) sessionEnded(gen uint64, cause error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.conn = nil
	wasOpen := prev == StateOpen

	if wasOpen && websocket.CloseStatus(cause) == websocket.StatusNormalClosure {
		// Server closed cleanly: no reconnect.
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Info().Msg("server closed session")
		c.emitState(prev, StateIdle, nil)
		c.dispatcher.fireDisconnect()
		return
	}

	if c.attempt < c.cfg.MaxReconnectTries {
		c.attempt++
		attempt := c.attempt
		c.state = StateReconnectWait
		g := c.gen
		c.timer = time.AfterFunc(c.cfg.ReconnectDelay, func() { c.redial(g) })
		c.mu.Unlock()

		c.logger.Warn().Err(cause).
			Int("attempt", attempt).
			Int("max", c.cfg.MaxReconnectTries).
			Dur("delay", c.cfg.ReconnectDelay).
			Msg("session lost, reconnect scheduled")
		c.emitState(prev, StateReconnectWait, cause)
		if wasOpen {
			c.dispatcher.fireDisconnect()
		}
		return
	}

	c.state = StateFailed
	c.mu.Unlock()

	err := WrapError(ErrorReconnectExhausted, "reconnect attempts exhausted", cause)
	c.logger.Error().Err(cause).Int("attempts", c.cfg.MaxReconnectTries).Msg("giving up")
	c.emitState(prev, StateFailed, err)
	if wasOpen {
		c.dispatcher.fireDisconnect()
	}
	c.dispatcher.fireError(err)
}

// redial runs when the reconnect timer fires. A manual close or open that
// happened in the meantime leaves the timer stale; the gen and state checks
// make it a no-op.
func (c *Client) redial(g uint64) {
	c.mu.Lock()
	if c.gen != g || c.state != StateReconnectWait {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	target, err := sessionURL(c.cfg.BaseURL, c.cfg.RoomID, c.cfg.Token)
	if err != nil {
		c.sessionEnded(gen, err)
		return
	}
	c.emitState(StateReconnectWait, StateConnecting, nil)
	c.dial(context.Background(), target, gen)
}

func (c *Client) clearTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) emitState(from, to ConnectionState, err error) {
	if from == to {
		return
	}
	c.dispatcher.fireStateChange(StateEvent{From: from, To: to, Err: err})
}

// sessionURL derives the websocket endpoint from the configured base
// address: http becomes ws, https becomes wss, and the room and token ride
// in the query string.
func sessionURL(base, roomID, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", WrapError(ErrorInvalidConfig, "invalid base URL", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", NewError(ErrorInvalidConfig, "unsupported scheme: "+u.Scheme)
	}
	u.Path = "/ws"
	q := url.Values{}
	q.Set("roomId", roomID)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
