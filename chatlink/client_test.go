package chatlink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer upgrades every request and hands the connection to handler.
// upgrades counts accepted sessions.
type wsServer struct {
	srv      *httptest.Server
	upgrades atomic.Int32
}

func newWSServer(t *testing.T, handler func(*websocket.Conn)) *wsServer {
	t.Helper()
	s := &wsServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		s.upgrades.Add(1)
		handler(conn)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func holdOpen(conn *websocket.Conn) {
	// Block until the peer or the test server goes away.
	_, _, _ = conn.Read(context.Background())
	_ = conn.CloseNow()
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.RoomID = "7"
	cfg.Token = "abc"
	cfg.ReconnectDelay = 25 * time.Millisecond
	return cfg
}

// recorder collects dispatch activity for assertions.
type recorder struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	messages    []ChatMessage
	errors      []error
	transitions []StateEvent
}

func (r *recorder) attach(c *Client) {
	c.OnConnect(func() {
		r.mu.Lock()
		r.connects++
		r.mu.Unlock()
	})
	c.OnDisconnect(func() {
		r.mu.Lock()
		r.disconnects++
		r.mu.Unlock()
	})
	c.OnMessage(func(m ChatMessage) {
		r.mu.Lock()
		r.messages = append(r.messages, m)
		r.mu.Unlock()
	})
	c.OnError(func(err error) {
		r.mu.Lock()
		r.errors = append(r.errors, err)
		r.mu.Unlock()
	})
	c.OnStateChange(func(ev StateEvent) {
		r.mu.Lock()
		r.transitions = append(r.transitions, ev)
		r.mu.Unlock()
	})
}

func (r *recorder) snapshot() (connects, disconnects, msgs, errs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects, r.disconnects, len(r.messages), len(r.errors)
}

func (r *recorder) sawTransition(from, to ConnectionState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.transitions {
		if ev.From == from && ev.To == to {
			return true
		}
	}
	return false
}

func TestOpenConfigError(t *testing.T) {
	cfg := testConfig("http://localhost:1")
	cfg.Token = ""
	c := NewClient(cfg)

	err := c.Open(context.Background())
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Equal(t, StateIdle, c.State())
}

func TestOpenIsIdempotent(t *testing.T) {
	s := newWSServer(t, holdOpen)

	c := NewClient(testConfig(s.srv.URL))
	rec := &recorder{}
	rec.attach(c)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Open(context.Background()))
	require.NoError(t, c.Open(context.Background()))

	require.Eventually(t, func() bool { return c.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond) // a duplicate dial would land here

	connects, _, _, _ := rec.snapshot()
	assert.Equal(t, 1, connects)
	assert.Equal(t, int32(1), s.upgrades.Load())
}

func TestPingAnsweredWithPong(t *testing.T) {
	pongCh := make(chan []byte, 1)
	s := newWSServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
			return
		}
		if _, data, err := conn.Read(ctx); err == nil {
			pongCh <- data
		}
		holdOpen(conn)
	})

	c := NewClient(testConfig(s.srv.URL))
	rec := &recorder{}
	rec.attach(c)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Open(context.Background()))

	select {
	case data := <-pongCh:
		assert.JSONEq(t, `{"type":"pong"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no pong received")
	}

	_, _, msgs, _ := rec.snapshot()
	assert.Zero(t, msgs, "control frames must not reach OnMessage")
}

func TestIncomingMessageDispatched(t *testing.T) {
	s := newWSServer(t, func(conn *websocket.Conn) {
		ctx := context.Background()
		frame := `{"type":"message","room_id":7,"sender_id":3,"username":"alice","content":"hi","ts":1700000000000}`
		_ = conn.Write(ctx, websocket.MessageText, []byte(frame))
		// Malformed and unrecognized frames are dropped without breaking the session.
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"presence"}`))
		_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"message","room_id":7,"sender_id":4,"username":"bob","content":"still here","ts":1700000001000}`))
		holdOpen(conn)
	})

	c := NewClient(testConfig(s.srv.URL))
	rec := &recorder{}
	rec.attach(c)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Open(context.Background()))
	require.Eventually(t, func() bool {
		_, _, msgs, _ := rec.snapshot()
		return msgs == 2
	}, 2*time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "alice", rec.messages[0].Username)
	assert.Equal(t, "hi", rec.messages[0].Content)
	assert.Equal(t, "bob", rec.messages[1].Username)
	assert.Equal(t, StateOpen, c.State(), "protocol errors must not affect connection state")
}

func TestSendRequiresOpenSession(t *testing.T) {
	c := NewClient(testConfig("http://localhost:1"))
	assert.False(t, c.Send("x"), "send in idle state")

	received := make(chan []byte, 1)
	s := newWSServer(t, func(conn *websocket.Conn) {
		if _, data, err := conn.Read(context.Background()); err == nil {
			received <- data
		}
		holdOpen(conn)
	})

	c = NewClient(testConfig(s.srv.URL))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Open(context.Background()))
	require.Eventually(t, func() bool { return c.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)

	assert.True(t, c.Send("hello"))
	select {
	case data := <-received:
		assert.JSONEq(t, `{"content":"hello"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the send")
	}

	require.NoError(t, c.Close())
	assert.False(t, c.Send("after close"))
}

func TestAbnormalCloseReconnects(t *testing.T) {
	var n atomic.Int32
	s := newWSServer(t, func(conn *websocket.Conn) {
		if n.Add(1) == 1 {
			// Drop without a close frame, as an abrupt 1006 disconnect.
			_ = conn.CloseNow()
			return
		}
		holdOpen(conn)
	})

	c := NewClient(testConfig(s.srv.URL))
	rec := &recorder{}
	rec.attach(c)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Open(context.Background()))

	require.Eventually(t, func() bool {
		connects, disconnects, _, _ := rec.snapshot()
		return connects == 2 && disconnects == 1 && c.State() == StateOpen
	}, 3*time.Second, 5*time.Millisecond)

	assert.True(t, rec.sawTransition(StateOpen, StateReconnectWait))
	assert.True(t, rec.sawTransition(StateReconnectWait, StateConnecting))
	assert.Zero(t, c.Attempt(), "attempt resets on successful open")
	assert.Equal(t, int32(2), s.upgrades.Load())

	_, _, _, errs := rec.snapshot()
	assert.Zero(t, errs, "transient failures are not surfaced as errors")
}

func TestManualCloseSuppressesReconnect(t *testing.T) {
	s := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.CloseNow()
	})

	cfg := testConfig(s.srv.URL)
	cfg.ReconnectDelay = 100 * time.Millisecond
	c := NewClient(cfg)
	rec := &recorder{}
	rec.attach(c)

	require.NoError(t, c.Open(context.Background()))
	require.Eventually(t, func() bool { return c.State() == StateReconnectWait }, 2*time.Second, 5*time.Millisecond)

	upgradesBefore := s.upgrades.Load()
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "repeat close is a no-op")
	assert.Equal(t, StateIdle, c.State())

	time.Sleep(300 * time.Millisecond) // well past the pending timer
	assert.Equal(t, upgradesBefore, s.upgrades.Load(), "manual close must cancel the pending reconnect")
	assert.Equal(t, StateIdle, c.State())
}

func TestReconnectExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.ReconnectDelay = 10 * time.Millisecond
	cfg.MaxReconnectTries = 3
	c := NewClient(cfg)
	rec := &recorder{}
	rec.attach(c)

	require.NoError(t, c.Open(context.Background()))
	require.Eventually(t, func() bool { return c.State() == StateFailed }, 3*time.Second, 5*time.Millisecond)

	// Terminal: no further attempts are scheduled.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, StateFailed, c.State())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errors, 1, "exactly one exhaustion error")
	assert.True(t, IsExhausted(rec.errors[0]))
	assert.Zero(t, rec.disconnects, "session never opened")
}

func TestServerNormalCloseLandsIdle(t *testing.T) {
	s := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	})

	c := NewClient(testConfig(s.srv.URL))
	rec := &recorder{}
	rec.attach(c)

	require.NoError(t, c.Open(context.Background()))
	require.Eventually(t, func() bool {
		_, disconnects, _, _ := rec.snapshot()
		return disconnects == 1 && c.State() == StateIdle
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), s.upgrades.Load(), "clean close does not reconnect")
}

func TestCloseFromWithinCallback(t *testing.T) {
	s := newWSServer(t, func(conn *websocket.Conn) {
		frame := `{"type":"message","room_id":7,"sender_id":3,"username":"alice","content":"bye","ts":1}`
		_ = conn.Write(context.Background(), websocket.MessageText, []byte(frame))
		holdOpen(conn)
	})

	c := NewClient(testConfig(s.srv.URL))
	done := make(chan struct{})
	c.OnMessage(func(ChatMessage) {
		_ = c.Close()
		close(done)
	})

	require.NoError(t, c.Open(context.Background()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close from callback deadlocked")
	}
	require.Eventually(t, func() bool { return c.State() == StateIdle }, 2*time.Second, 5*time.Millisecond)
}

func TestSessionURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://chat.example.com", "ws://chat.example.com/ws?roomId=7&token=abc"},
		{"https://chat.example.com", "wss://chat.example.com/ws?roomId=7&token=abc"},
		{"wss://chat.example.com", "wss://chat.example.com/ws?roomId=7&token=abc"},
	}
	for _, tt := range tests {
		got, err := sessionURL(tt.base, "7", "abc")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := sessionURL("ftp://chat.example.com", "7", "abc")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))

	got, err := sessionURL("http://chat.example.com", "room 1", "a&b")
	require.NoError(t, err)
	assert.Equal(t, "ws://chat.example.com/ws?roomId=room+1&token=a%26b", got)
}
