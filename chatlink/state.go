package chatlink

// ConnectionState represents the current state of the session. Exactly one
// state holds at any instant; transitions are serialized by the client.
type ConnectionState int

const (
	// StateIdle means no session exists and none is being established.
	StateIdle ConnectionState = iota

	// StateConnecting means a transport handshake is in flight.
	StateConnecting

	// StateOpen means the session is established and Send is available.
	StateOpen

	// StateReconnectWait means an abnormal close occurred and a reconnect
	// timer is pending.
	StateReconnectWait

	// StateClosing is the transient state while Close tears the session down.
	StateClosing

	// StateFailed means the reconnection policy is exhausted. Terminal: the
	// client takes no further automatic action.
	StateFailed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnectWait:
		return "reconnect_wait"
	case StateClosing:
		return "closing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateEvent is delivered to the OnStateChange callback on every transition.
type StateEvent struct {
	From ConnectionState
	To   ConnectionState

	// Err is the cause of the transition, if any. Set on entry to
	// StateReconnectWait (the abnormal close) and StateFailed (the
	// exhaustion error).
	Err error
}
