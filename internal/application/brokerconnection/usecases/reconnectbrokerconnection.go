package usecases

import (
	"context"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// ReconnectBrokerConnectionCommand asks for a fresh broker login.
// Intent is "reconnect" (default) or "refresh".
type ReconnectBrokerConnectionCommand struct {
	UserID       uint
	ConnectionID string
	Intent       string
}

// ReconnectBrokerConnectionUseCase builds a login URL for an existing
// connection. It never mutates the connection; the callback does.
type ReconnectBrokerConnectionUseCase struct {
	repo     brokerconnection.Repository
	registry services.CapabilityRegistry
	cipher   vault.Cipher
	logger   logger.Interface
}

// NewReconnectBrokerConnectionUseCase creates a new ReconnectBrokerConnectionUseCase
func NewReconnectBrokerConnectionUseCase(
	repo brokerconnection.Repository,
	registry services.CapabilityRegistry,
	cipher vault.Cipher,
	logger logger.Interface,
) *ReconnectBrokerConnectionUseCase {
	return &ReconnectBrokerConnectionUseCase{
		repo:     repo,
		registry: registry,
		cipher:   cipher,
		logger:   logger,
	}
}

// Execute returns the broker login URL carrying the connection and intent.
func (uc *ReconnectBrokerConnectionUseCase) Execute(ctx context.Context, cmd ReconnectBrokerConnectionCommand) (*dto.LoginURLResponse, error) {
	intent := vo.IntentReconnect
	if cmd.Intent != "" {
		parsed, err := vo.ParseIntent(cmd.Intent)
		if err != nil || parsed == vo.IntentInitial {
			return nil, errors.NewValidationError("intent must be reconnect or refresh", cmd.Intent)
		}
		intent = parsed
	}

	conn, err := uc.repo.GetBySIDAndUser(ctx, cmd.ConnectionID, cmd.UserID)
	if err != nil {
		return nil, err
	}

	capability, err := uc.registry.Get(conn.BrokerName())
	if err != nil {
		return nil, err
	}
	if capability.AuthMode() == vo.AuthModeDirect {
		return nil, errors.NewUnsupportedOperationError(conn.BrokerName().String(), "reconnect")
	}

	creds, err := services.DecryptCredentials(uc.cipher, conn)
	if err != nil {
		uc.logger.Warnw("cannot reconnect without stored credentials", "sid", conn.SID())
		return nil, err
	}

	loginURL, err := capability.LoginURL(creds, conn.SID(), intent)
	if err != nil {
		uc.logger.Errorw("failed to build broker login URL", "sid", conn.SID(), "error", err)
		return nil, err
	}

	uc.logger.Infow("broker reconnect initiated", "sid", conn.SID(), "intent", intent)

	return &dto.LoginURLResponse{
		ConnectionID: conn.SID(),
		LoginURL:     loginURL,
		Intent:       intent.String(),
	}, nil
}
