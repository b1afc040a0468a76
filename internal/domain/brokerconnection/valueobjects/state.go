package valueobjects

// State is the lifecycle state reported for a connection. It is derived from
// the stored fields and the caller's clock, never persisted.
type State string

const (
	StatePendingAuth       State = "pending_auth"
	StateAuthenticated     State = "authenticated"
	StateTokenExpiringSoon State = "token_expiring_soon"
	StateTokenExpired      State = "token_expired"
	StateDisconnected      State = "disconnected"
)

// IsUsable reports whether the trading API can be called in this state.
func (s State) IsUsable() bool {
	return s == StateAuthenticated || s == StateTokenExpiringSoon
}

func (s State) String() string {
	return string(s)
}
