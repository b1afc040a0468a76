package dto

import (
	"time"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/shared/mapper"
)

// CreateBrokerConnectionRequest represents a request to connect a broker account
type CreateBrokerConnectionRequest struct {
	BrokerName     string `json:"broker_name" binding:"required,broker"`
	APIKey         string `json:"api_key" binding:"required,max=256"`
	APISecret      string `json:"api_secret" binding:"required,max=256"`
	BrokerUserID   string `json:"broker_user_id,omitempty" binding:"max=64"`
	ConnectionName string `json:"connection_name,omitempty" binding:"max=100"`
}

// CreateBrokerConnectionResponse is returned after a connection is stored.
// LoginURL is set for brokers that require a browser login.
type CreateBrokerConnectionResponse struct {
	ConnectionID string `json:"connection_id"`
	WebhookURL   string `json:"webhook_url"`
	RequiresAuth bool   `json:"requires_auth"`
	LoginURL     string `json:"login_url,omitempty"`
}

// LoginURLResponse carries the broker login page for a reconnect.
type LoginURLResponse struct {
	ConnectionID string `json:"connection_id"`
	LoginURL     string `json:"login_url"`
	Intent       string `json:"intent"`
}

// BrokerConnectionResponse represents a broker connection in API responses.
// Credentials and tokens are never included.
type BrokerConnectionResponse struct {
	ID                   string                    `json:"id"`
	BrokerName           string                    `json:"broker_name"`
	ConnectionName       string                    `json:"connection_name"`
	BrokerUserID         string                    `json:"broker_user_id,omitempty"`
	State                string                    `json:"state"`
	IsActive             bool                      `json:"is_active"`
	IsAuthenticated      bool                      `json:"is_authenticated"`
	TokenExpired         bool                      `json:"token_expired"`
	NeedsTokenRefresh    bool                      `json:"needs_token_refresh"`
	AccessTokenExpiresAt *time.Time                `json:"access_token_expires_at,omitempty"`
	WebhookURL           string                    `json:"webhook_url"`
	Profile              *brokerconnection.Profile `json:"profile,omitempty"`
	LastSync             *time.Time                `json:"last_sync,omitempty"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

// ToBrokerConnectionResponse converts a connection, deriving state as seen at now.
func ToBrokerConnectionResponse(conn *brokerconnection.BrokerConnection, webhookBaseURL string, now time.Time) *BrokerConnectionResponse {
	if conn == nil {
		return nil
	}
	return &BrokerConnectionResponse{
		ID:                   conn.SID(),
		BrokerName:           conn.BrokerName().String(),
		ConnectionName:       conn.ConnectionName(),
		BrokerUserID:         conn.BrokerUserID(),
		State:                conn.State(now).String(),
		IsActive:             conn.IsActive(),
		IsAuthenticated:      conn.IsAuthenticated(),
		TokenExpired:         conn.TokenExpired(now),
		NeedsTokenRefresh:    conn.NeedsTokenRefresh(now),
		AccessTokenExpiresAt: conn.AccessTokenExpiresAt(),
		WebhookURL:           conn.WebhookURL(webhookBaseURL),
		Profile:              conn.Profile(),
		LastSync:             conn.LastSync(),
		CreatedAt:            conn.CreatedAt(),
		UpdatedAt:            conn.UpdatedAt(),
	}
}

// ToBrokerConnectionResponses converts a list of connections.
func ToBrokerConnectionResponses(conns []*brokerconnection.BrokerConnection, webhookBaseURL string, now time.Time) []*BrokerConnectionResponse {
	out := mapper.MapSlice(conns, func(conn *brokerconnection.BrokerConnection) *BrokerConnectionResponse {
		return ToBrokerConnectionResponse(conn, webhookBaseURL, now)
	})
	if out == nil {
		out = []*BrokerConnectionResponse{}
	}
	return out
}

// ListBrokerConnectionsResponse wraps the connections of one user.
type ListBrokerConnectionsResponse struct {
	Items       []*BrokerConnectionResponse `json:"items"`
	Total       int                         `json:"total"`
	ActiveCount int                         `json:"active_count"`
	MaxActive   int                         `json:"max_active"`
}

// TestConnectionResponse reports the profile fetched by a live test call.
type TestConnectionResponse struct {
	ConnectionID string                   `json:"connection_id"`
	Profile      brokerconnection.Profile `json:"profile"`
	LastSync     time.Time                `json:"last_sync"`
}

// BrokerInfo describes a supported broker.
type BrokerInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	AuthMode       string `json:"auth_mode"`
	Timezone       string `json:"timezone,omitempty"`
	SessionCutover string `json:"session_cutover,omitempty"`
	DocsURL        string `json:"docs_url,omitempty"`
}

// CallbackResult summarizes a completed broker login.
type CallbackResult struct {
	ConnectionID   string     `json:"connection_id"`
	ConnectionName string     `json:"connection_name"`
	BrokerName     string     `json:"broker_name"`
	Intent         string     `json:"intent"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}
