package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/persistence/mappers"
	"github.com/autotraderhub/autotrader/internal/infrastructure/persistence/models"
	"github.com/autotraderhub/autotrader/internal/shared/db"
	apperrors "github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// BrokerConnectionRepository implements the brokerconnection.Repository interface.
// Every method joins the transaction carried by ctx when one is present.
type BrokerConnectionRepository struct {
	db     *gorm.DB
	mapper *mappers.BrokerConnectionMapper
	logger logger.Interface
}

var _ brokerconnection.Repository = (*BrokerConnectionRepository)(nil)

// NewBrokerConnectionRepository creates a new repository.
func NewBrokerConnectionRepository(gdb *gorm.DB, log logger.Interface) *BrokerConnectionRepository {
	return &BrokerConnectionRepository{
		db:     gdb,
		mapper: mappers.NewBrokerConnectionMapper(),
		logger: log,
	}
}

func (r *BrokerConnectionRepository) conn(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db)
}

// Create persists a new broker connection.
func (r *BrokerConnectionRepository) Create(ctx context.Context, conn *brokerconnection.BrokerConnection) error {
	model, err := r.mapper.ToModel(conn)
	if err != nil {
		return fmt.Errorf("failed to map connection to model: %w", err)
	}

	if err := r.conn(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create broker connection: %w", err)
	}

	if err := conn.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set connection ID: %w", err)
	}

	return nil
}

// GetBySID retrieves a broker connection by SID.
func (r *BrokerConnectionRepository) GetBySID(ctx context.Context, sid string) (*brokerconnection.BrokerConnection, error) {
	var model models.BrokerConnectionModel
	if err := r.conn(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("broker connection not found", sid)
		}
		return nil, fmt.Errorf("failed to get broker connection: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// GetBySIDAndUser retrieves a broker connection owned by userID.
func (r *BrokerConnectionRepository) GetBySIDAndUser(ctx context.Context, sid string, userID uint) (*brokerconnection.BrokerConnection, error) {
	var model models.BrokerConnectionModel
	if err := r.conn(ctx).Where("sid = ? AND user_id = ?", sid, userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("broker connection not found", sid)
		}
		return nil, fmt.Errorf("failed to get broker connection: %w", err)
	}

	return r.mapper.ToDomain(&model)
}

// Update saves every mutable column of the connection. broker_name is never written.
func (r *BrokerConnectionRepository) Update(ctx context.Context, conn *brokerconnection.BrokerConnection) error {
	model, err := r.mapper.ToModel(conn)
	if err != nil {
		return fmt.Errorf("failed to map connection to model: %w", err)
	}

	err = r.conn(ctx).
		Model(&models.BrokerConnectionModel{}).
		Where("id = ?", model.ID).
		Select(
			"connection_name", "broker_user_id",
			"api_key_encrypted", "api_secret_encrypted",
			"access_token_encrypted", "public_token_encrypted", "access_token_expires_at",
			"is_active", "profile", "last_sync", "updated_at",
		).
		Updates(model).Error
	if err != nil {
		return fmt.Errorf("failed to update broker connection: %w", err)
	}

	return nil
}

// ListByUser returns all connections of a user, newest first.
func (r *BrokerConnectionRepository) ListByUser(ctx context.Context, userID uint) ([]*brokerconnection.BrokerConnection, error) {
	var modelList []*models.BrokerConnectionModel
	if err := r.conn(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list broker connections: %w", err)
	}

	return r.mapper.ToDomainList(modelList)
}

// ListActiveByUser returns the active connections of a user, newest first.
func (r *BrokerConnectionRepository) ListActiveByUser(ctx context.Context, userID uint) ([]*brokerconnection.BrokerConnection, error) {
	var modelList []*models.BrokerConnectionModel
	if err := r.conn(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC, id DESC").
		Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to list active broker connections: %w", err)
	}

	return r.mapper.ToDomainList(modelList)
}

// CountActiveByUser counts the active connections of a user.
func (r *BrokerConnectionRepository) CountActiveByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.BrokerConnectionModel{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count active broker connections: %w", err)
	}
	return count, nil
}

// DeleteBySIDAndUser hard-deletes a connection owned by userID.
func (r *BrokerConnectionRepository) DeleteBySIDAndUser(ctx context.Context, sid string, userID uint) error {
	result := r.conn(ctx).
		Where("sid = ? AND user_id = ?", sid, userID).
		Delete(&models.BrokerConnectionModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete broker connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("broker connection not found", sid)
	}

	r.logger.Infow("broker connection deleted", "connection_id", sid, "user_id", userID)
	return nil
}
