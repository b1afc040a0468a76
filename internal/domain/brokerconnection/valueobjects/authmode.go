package valueobjects

// AuthMode describes how a broker session is established.
type AuthMode string

const (
	// AuthModeOAuthRedirect requires a browser login and a request token exchange.
	AuthModeOAuthRedirect AuthMode = "oauth_redirect"
	// AuthModeDirect uses the API key pair as the session itself.
	AuthModeDirect AuthMode = "direct"
)

func (m AuthMode) IsValid() bool {
	return m == AuthModeOAuthRedirect || m == AuthModeDirect
}

func (m AuthMode) String() string {
	return string(m)
}
