package chatlink

import "time"

// Config controls how the client connects. It is immutable for the lifetime
// of one Client; connecting to a different room or with a different token
// requires constructing a new Client.
type Config struct {
	// BaseURL is the server address with an http or https scheme. The
	// websocket endpoint is derived from it (ws/wss, path /ws).
	BaseURL string

	// RoomID identifies the room to join. Required.
	RoomID string

	// Token authenticates the session. Required.
	Token string

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	// ReconnectDelay is the fixed pause before each automatic reconnect
	// attempt. The delay is constant: no backoff, no jitter.
	ReconnectDelay time.Duration

	// MaxReconnectTries caps consecutive failed attempts. Once reached the
	// client enters StateFailed and stays there.
	MaxReconnectTries int
}

// DefaultConfig returns sensible defaults. Set a timeout to 0 to disable it.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReconnectDelay:    3 * time.Second,
		MaxReconnectTries: 5,
	}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return NewError(ErrorInvalidConfig, "empty base URL")
	}
	if c.RoomID == "" {
		return NewError(ErrorInvalidConfig, "empty room id")
	}
	if c.Token == "" {
		return NewError(ErrorInvalidConfig, "empty token")
	}
	return nil
}
