package domain

// SessionState is the lifecycle state of one streaming connection
type SessionState int

const (
	SessionConnecting SessionState = iota
	SessionStreaming
	SessionCancelled
	SessionEnded
	SessionFailed
)

func (s SessionState) String() string {
	switch s {
	case SessionConnecting:
		return "connecting"
	case SessionStreaming:
		return "streaming"
	case SessionCancelled:
		return "cancelled"
	case SessionEnded:
		return "ended"
	case SessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final
func (s SessionState) Terminal() bool {
	return s == SessionCancelled || s == SessionEnded || s == SessionFailed
}

// Live reports whether a session in this state still owns a connection
func (s SessionState) Live() bool {
	return s == SessionConnecting || s == SessionStreaming
}
