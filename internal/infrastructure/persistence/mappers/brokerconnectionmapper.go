package mappers

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/persistence/models"
	"github.com/autotraderhub/autotrader/internal/shared/mapper"
)

// BrokerConnectionMapper provides mapping between domain and persistence models.
type BrokerConnectionMapper struct{}

// NewBrokerConnectionMapper creates a new mapper.
func NewBrokerConnectionMapper() *BrokerConnectionMapper {
	return &BrokerConnectionMapper{}
}

// ToModel converts a domain entity to a persistence model.
func (m *BrokerConnectionMapper) ToModel(conn *brokerconnection.BrokerConnection) (*models.BrokerConnectionModel, error) {
	if conn == nil {
		return nil, nil
	}

	var profileJSON datatypes.JSON
	if conn.Profile() != nil {
		b, err := json.Marshal(conn.Profile())
		if err != nil {
			return nil, fmt.Errorf("failed to serialize profile: %w", err)
		}
		profileJSON = b
	}

	var expiresAt *int64
	if t := conn.AccessTokenExpiresAt(); t != nil {
		v := t.Unix()
		expiresAt = &v
	}

	return &models.BrokerConnectionModel{
		ID:                   conn.ID(),
		SID:                  conn.SID(),
		UserID:               conn.UserID(),
		BrokerName:           conn.BrokerName().String(),
		ConnectionName:       conn.ConnectionName(),
		BrokerUserID:         conn.BrokerUserID(),
		APIKeyEncrypted:      conn.APIKeyEncrypted(),
		APISecretEncrypted:   conn.APISecretEncrypted(),
		AccessTokenEncrypted: nullableString(conn.AccessTokenEncrypted()),
		PublicTokenEncrypted: nullableString(conn.PublicTokenEncrypted()),
		AccessTokenExpiresAt: expiresAt,
		IsActive:             conn.IsActive(),
		WebhookID:            conn.WebhookID(),
		Profile:              profileJSON,
		LastSync:             conn.LastSync(),
		CreatedAt:            conn.CreatedAt(),
		UpdatedAt:            conn.UpdatedAt(),
	}, nil
}

// ToDomain converts a persistence model to a domain entity.
func (m *BrokerConnectionMapper) ToDomain(model *models.BrokerConnectionModel) (*brokerconnection.BrokerConnection, error) {
	if model == nil {
		return nil, nil
	}

	var profile *brokerconnection.Profile
	if len(model.Profile) > 0 && string(model.Profile) != "null" {
		profile = &brokerconnection.Profile{}
		if err := json.Unmarshal(model.Profile, profile); err != nil {
			return nil, fmt.Errorf("failed to parse profile: %w", err)
		}
	}

	var expiresAt *time.Time
	if model.AccessTokenExpiresAt != nil {
		t := time.Unix(*model.AccessTokenExpiresAt, 0).UTC()
		expiresAt = &t
	}

	return brokerconnection.ReconstructBrokerConnection(
		model.ID,
		model.SID,
		model.UserID,
		vo.BrokerName(model.BrokerName),
		model.ConnectionName,
		model.BrokerUserID,
		model.APIKeyEncrypted,
		model.APISecretEncrypted,
		derefString(model.AccessTokenEncrypted),
		derefString(model.PublicTokenEncrypted),
		expiresAt,
		model.IsActive,
		model.WebhookID,
		profile,
		model.LastSync,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

// ToDomainList converts persistence models to domain entities.
func (m *BrokerConnectionMapper) ToDomainList(modelList []*models.BrokerConnectionModel) ([]*brokerconnection.BrokerConnection, error) {
	return mapper.MapSlicePtrWithID(modelList, m.ToDomain, func(model *models.BrokerConnectionModel) string {
		return model.SID
	})
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
