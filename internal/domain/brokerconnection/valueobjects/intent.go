package valueobjects

import "fmt"

// Intent records why a login flow was started. It round-trips through the
// broker redirect so the callback knows what the user asked for.
type Intent string

const (
	IntentInitial   Intent = "initial"
	IntentReconnect Intent = "reconnect"
	IntentRefresh   Intent = "refresh"
)

// ParseIntent validates an intent. An empty string yields IntentInitial.
func ParseIntent(s string) (Intent, error) {
	if s == "" {
		return IntentInitial, nil
	}
	i := Intent(s)
	if !i.IsValid() {
		return "", fmt.Errorf("invalid intent: %q", s)
	}
	return i, nil
}

func (i Intent) IsValid() bool {
	switch i {
	case IntentInitial, IntentReconnect, IntentRefresh:
		return true
	default:
		return false
	}
}

func (i Intent) String() string {
	return string(i)
}
