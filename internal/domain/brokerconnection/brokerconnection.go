// Package brokerconnection provides the domain model binding a user to a
// broker account's credentials and session state.
package brokerconnection

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
)

const (
	// MaxActivePerUser is the hard cap on active connections owned by one user.
	MaxActivePerUser = 5

	// RefreshWindow is how long before expiry a token is reported as expiring soon.
	RefreshWindow = time.Hour
)

// Profile is the snapshot of the broker account captured on the last
// successful profile call.
type Profile struct {
	UserName string `json:"user_name"`
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Broker   string `json:"broker"`
}

// BrokerConnection represents the broker connection aggregate root.
// Credential fields always hold vault ciphertext.
type BrokerConnection struct {
	id     uint
	sid    string // bc_xxx
	userID uint

	brokerName     vo.BrokerName
	connectionName string
	brokerUserID   string

	apiKeyEncrypted      string
	apiSecretEncrypted   string
	accessTokenEncrypted string
	publicTokenEncrypted string
	accessTokenExpiresAt *time.Time

	isActive  bool
	webhookID string
	profile   *Profile
	lastSync  *time.Time

	createdAt time.Time
	updatedAt time.Time
}

// NewBrokerConnection creates an active connection awaiting authentication.
func NewBrokerConnection(
	userID uint,
	brokerName vo.BrokerName,
	connectionName string,
	apiKeyEncrypted string,
	apiSecretEncrypted string,
	brokerUserID string,
	webhookID string,
	now time.Time,
	sidGenerator func() (string, error),
) (*BrokerConnection, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !brokerName.IsValid() {
		return nil, fmt.Errorf("unsupported broker: %s", brokerName)
	}
	if apiKeyEncrypted == "" || apiSecretEncrypted == "" {
		return nil, fmt.Errorf("encrypted API credentials are required")
	}
	if webhookID == "" {
		return nil, fmt.Errorf("webhook ID is required")
	}

	sid, err := sidGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to generate SID: %w", err)
	}

	connectionName = strings.TrimSpace(connectionName)
	if connectionName == "" {
		connectionName = DefaultConnectionName(brokerName, now)
	}

	now = now.UTC()
	return &BrokerConnection{
		sid:                sid,
		userID:             userID,
		brokerName:         brokerName,
		connectionName:     connectionName,
		brokerUserID:       brokerUserID,
		apiKeyEncrypted:    apiKeyEncrypted,
		apiSecretEncrypted: apiSecretEncrypted,
		isActive:           true,
		webhookID:          webhookID,
		createdAt:          now,
		updatedAt:          now,
	}, nil
}

// ReconstructBrokerConnection reconstructs a broker connection from persistence.
func ReconstructBrokerConnection(
	id uint,
	sid string,
	userID uint,
	brokerName vo.BrokerName,
	connectionName string,
	brokerUserID string,
	apiKeyEncrypted string,
	apiSecretEncrypted string,
	accessTokenEncrypted string,
	publicTokenEncrypted string,
	accessTokenExpiresAt *time.Time,
	isActive bool,
	webhookID string,
	profile *Profile,
	lastSync *time.Time,
	createdAt, updatedAt time.Time,
) (*BrokerConnection, error) {
	if id == 0 {
		return nil, fmt.Errorf("broker connection ID cannot be zero")
	}
	if sid == "" {
		return nil, fmt.Errorf("broker connection SID is required")
	}
	if !brokerName.IsValid() {
		return nil, fmt.Errorf("unsupported broker: %s", brokerName)
	}

	return &BrokerConnection{
		id:                   id,
		sid:                  sid,
		userID:               userID,
		brokerName:           brokerName,
		connectionName:       connectionName,
		brokerUserID:         brokerUserID,
		apiKeyEncrypted:      apiKeyEncrypted,
		apiSecretEncrypted:   apiSecretEncrypted,
		accessTokenEncrypted: accessTokenEncrypted,
		publicTokenEncrypted: publicTokenEncrypted,
		accessTokenExpiresAt: accessTokenExpiresAt,
		isActive:             isActive,
		webhookID:            webhookID,
		profile:              profile,
		lastSync:             lastSync,
		createdAt:            createdAt,
		updatedAt:            updatedAt,
	}, nil
}

// DefaultConnectionName builds "<Broker> Connection <timestamp>".
func DefaultConnectionName(brokerName vo.BrokerName, now time.Time) string {
	title := cases.Title(language.English).String(brokerName.String())
	return fmt.Sprintf("%s Connection %s", title, now.UTC().Format("2006-01-02 15:04:05"))
}

// Getters

func (c *BrokerConnection) ID() uint {
	return c.id
}

func (c *BrokerConnection) SID() string {
	return c.sid
}

func (c *BrokerConnection) UserID() uint {
	return c.userID
}

func (c *BrokerConnection) BrokerName() vo.BrokerName {
	return c.brokerName
}

func (c *BrokerConnection) ConnectionName() string {
	return c.connectionName
}

func (c *BrokerConnection) BrokerUserID() string {
	return c.brokerUserID
}

func (c *BrokerConnection) APIKeyEncrypted() string {
	return c.apiKeyEncrypted
}

func (c *BrokerConnection) APISecretEncrypted() string {
	return c.apiSecretEncrypted
}

func (c *BrokerConnection) AccessTokenEncrypted() string {
	return c.accessTokenEncrypted
}

func (c *BrokerConnection) PublicTokenEncrypted() string {
	return c.publicTokenEncrypted
}

func (c *BrokerConnection) AccessTokenExpiresAt() *time.Time {
	return c.accessTokenExpiresAt
}

func (c *BrokerConnection) IsActive() bool {
	return c.isActive
}

func (c *BrokerConnection) WebhookID() string {
	return c.webhookID
}

func (c *BrokerConnection) Profile() *Profile {
	return c.profile
}

func (c *BrokerConnection) LastSync() *time.Time {
	return c.lastSync
}

func (c *BrokerConnection) CreatedAt() time.Time {
	return c.createdAt
}

func (c *BrokerConnection) UpdatedAt() time.Time {
	return c.updatedAt
}

// SetID sets the internal ID after persistence.
func (c *BrokerConnection) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("broker connection ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("broker connection ID cannot be zero")
	}
	c.id = id
	return nil
}

// Derived state

// HasCredentials reports whether both halves of the API key pair are stored.
func (c *BrokerConnection) HasCredentials() bool {
	return c.apiKeyEncrypted != "" && c.apiSecretEncrypted != ""
}

// IsAuthenticated reports whether an access token has been stored.
func (c *BrokerConnection) IsAuthenticated() bool {
	return c.accessTokenEncrypted != ""
}

// TokenExpired reports whether the stored token expiry lies before now.
// A connection without an expiry never expires.
func (c *BrokerConnection) TokenExpired(now time.Time) bool {
	return c.accessTokenExpiresAt != nil && c.accessTokenExpiresAt.Before(now)
}

// NeedsTokenRefresh reports whether the token expires within RefreshWindow.
func (c *BrokerConnection) NeedsTokenRefresh(now time.Time) bool {
	if c.accessTokenExpiresAt == nil {
		return false
	}
	remaining := c.accessTokenExpiresAt.Sub(now)
	return remaining >= 0 && remaining < RefreshWindow
}

// State derives the lifecycle state as seen at now.
func (c *BrokerConnection) State(now time.Time) vo.State {
	switch {
	case !c.isActive:
		return vo.StateDisconnected
	case !c.IsAuthenticated():
		return vo.StatePendingAuth
	case c.TokenExpired(now):
		return vo.StateTokenExpired
	case c.NeedsTokenRefresh(now):
		return vo.StateTokenExpiringSoon
	default:
		return vo.StateAuthenticated
	}
}

// IsUsable reports whether the connection can serve live data at now.
func (c *BrokerConnection) IsUsable(now time.Time) bool {
	return c.State(now).IsUsable()
}

// WebhookURL returns {base}/webhook/{userId}/{webhookId}.
func (c *BrokerConnection) WebhookURL(base string) string {
	return fmt.Sprintf("%s/webhook/%d/%s", strings.TrimRight(base, "/"), c.userID, c.webhookID)
}

// Mutations

// Authenticate stores a freshly issued session. expiresAt is nil for sessions
// that do not expire.
func (c *BrokerConnection) Authenticate(
	accessTokenEncrypted string,
	publicTokenEncrypted string,
	expiresAt *time.Time,
	brokerUserID string,
	now time.Time,
) error {
	if accessTokenEncrypted == "" {
		return fmt.Errorf("access token is required")
	}
	c.accessTokenEncrypted = accessTokenEncrypted
	c.publicTokenEncrypted = publicTokenEncrypted
	if expiresAt != nil {
		utc := expiresAt.UTC()
		c.accessTokenExpiresAt = &utc
	} else {
		c.accessTokenExpiresAt = nil
	}
	if brokerUserID != "" {
		c.brokerUserID = brokerUserID
	}
	c.isActive = true
	c.updatedAt = now.UTC()
	return nil
}

// Disconnect deactivates the connection and clears the token expiry.
// Disconnecting an inactive connection is a no-op.
func (c *BrokerConnection) Disconnect(now time.Time) {
	if !c.isActive && c.accessTokenExpiresAt == nil {
		return
	}
	c.isActive = false
	c.accessTokenExpiresAt = nil
	c.updatedAt = now.UTC()
}

// RecordProfile stores the latest broker profile and marks the sync time.
func (c *BrokerConnection) RecordProfile(profile Profile, now time.Time) {
	now = now.UTC()
	c.profile = &profile
	if profile.UserID != "" {
		c.brokerUserID = profile.UserID
	}
	c.lastSync = &now
	c.updatedAt = now
}
