// Package broker defines the per-broker capability contract and the registry
// that selects an implementation by broker name.
package broker

import (
	"context"
	"net/url"
	"time"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
)

// CallbackStatusSuccess is the normalized status of a completed broker login.
const CallbackStatusSuccess = "success"

// Credentials is a decrypted API key pair. It must never be logged or stored.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Session is the result of a successful token exchange.
type Session struct {
	AccessToken  string
	PublicToken  string
	BrokerUserID string
	Profile      *brokerconnection.Profile
}

// CallbackParams is a broker login redirect normalized to the values the
// coordinator needs.
type CallbackParams struct {
	RequestToken string
	Status       string
	ConnectionID string
	Intent       vo.Intent
}

// Entry is one position or holding as reported by a broker, before aggregation.
// PnL is nil when the broker did not report it.
type Entry struct {
	Symbol       string
	Exchange     string
	Quantity     float64
	AveragePrice float64
	CurrentPrice float64
	PnL          *float64
	Product      string
}

// Capability is everything the application needs to know about one broker.
type Capability interface {
	Name() vo.BrokerName
	AuthMode() vo.AuthMode

	// LoginURL returns the broker login page whose redirect carries
	// connectionID and intent back to the callback.
	LoginURL(creds Credentials, connectionID string, intent vo.Intent) (string, error)
	// ParseCallback normalizes the redirect query string.
	ParseCallback(query url.Values) (CallbackParams, error)
	// ExchangeRequestToken trades a one-time request token for a session.
	ExchangeRequestToken(ctx context.Context, creds Credentials, requestToken string) (*Session, error)
	// DirectSession builds the implicit session of a direct broker.
	DirectSession(creds Credentials) (*Session, error)
	// SessionExpiry returns when a session issued at now expires, or nil if it never does.
	SessionExpiry(now time.Time) *time.Time

	// NewClient builds a trading API handle for one connection.
	NewClient(creds Credentials, accessToken string) (Client, error)
}

// Client is a broker trading API handle bound to one connection's session.
type Client interface {
	GetProfile(ctx context.Context) (*brokerconnection.Profile, error)
	GetPositions(ctx context.Context) ([]Entry, error)
	GetHoldings(ctx context.Context) ([]Entry, error)
}
