package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/autotraderhub/autotrader/internal/shared/constants"
)

// BrokerConnectionModel represents the database persistence model for broker connections.
// Credential columns hold vault ciphertext only.
type BrokerConnectionModel struct {
	ID                   uint           `gorm:"primarykey"`
	SID                  string         `gorm:"column:sid;not null;size:50;uniqueIndex:idx_broker_connection_sid"`
	UserID               uint           `gorm:"not null;index:idx_broker_connections_user_active,priority:1"`
	BrokerName           string         `gorm:"not null;size:20"`
	ConnectionName       string         `gorm:"not null;size:100"`
	BrokerUserID         string         `gorm:"column:broker_user_id;size:100"`
	APIKeyEncrypted      string         `gorm:"column:api_key_encrypted;type:text;not null"`
	APISecretEncrypted   string         `gorm:"column:api_secret_encrypted;type:text;not null"`
	AccessTokenEncrypted *string        `gorm:"column:access_token_encrypted;type:text"`
	PublicTokenEncrypted *string        `gorm:"column:public_token_encrypted;type:text"`
	AccessTokenExpiresAt *int64         `gorm:"column:access_token_expires_at"` // epoch seconds
	IsActive             bool           `gorm:"not null;default:true;index:idx_broker_connections_user_active,priority:2"`
	WebhookID            string         `gorm:"column:webhook_id;not null;size:36;uniqueIndex:idx_broker_connection_webhook_id"`
	Profile              datatypes.JSON `gorm:"column:profile"`
	LastSync             *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName specifies the table name for GORM.
func (BrokerConnectionModel) TableName() string {
	return constants.TableBrokerConnections
}
