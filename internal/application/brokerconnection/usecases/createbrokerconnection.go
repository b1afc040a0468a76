package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/id"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// CreateBrokerConnectionCommand carries plaintext credentials from the request.
// They are encrypted before anything is stored.
type CreateBrokerConnectionCommand struct {
	UserID         uint
	BrokerName     string
	APIKey         string
	APISecret      string
	BrokerUserID   string
	ConnectionName string
}

// CreateBrokerConnectionUseCase stores a new connection and starts its login.
type CreateBrokerConnectionUseCase struct {
	repo           brokerconnection.Repository
	registry       services.CapabilityRegistry
	cipher         vault.Cipher
	locker         lock.Locker
	txMgr          TransactionManager
	events         *services.EventEmitter
	webhookBaseURL string
	maxActive      int
	now            func() time.Time
	logger         logger.Interface
}

// NewCreateBrokerConnectionUseCase creates a new CreateBrokerConnectionUseCase.
// A maxActive of zero uses brokerconnection.MaxActivePerUser.
func NewCreateBrokerConnectionUseCase(
	repo brokerconnection.Repository,
	registry services.CapabilityRegistry,
	cipher vault.Cipher,
	locker lock.Locker,
	txMgr TransactionManager,
	events *services.EventEmitter,
	webhookBaseURL string,
	maxActive int,
	logger logger.Interface,
) *CreateBrokerConnectionUseCase {
	if maxActive <= 0 {
		maxActive = brokerconnection.MaxActivePerUser
	}
	return &CreateBrokerConnectionUseCase{
		repo:           repo,
		registry:       registry,
		cipher:         cipher,
		locker:         locker,
		txMgr:          txMgr,
		events:         events,
		webhookBaseURL: webhookBaseURL,
		maxActive:      maxActive,
		now:            time.Now,
		logger:         logger,
	}
}

// SetClock overrides the time source.
func (uc *CreateBrokerConnectionUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Execute validates, encrypts and persists a connection. Redirect-login
// brokers get a login URL; direct brokers are authenticated immediately.
func (uc *CreateBrokerConnectionUseCase) Execute(ctx context.Context, cmd CreateBrokerConnectionCommand) (*dto.CreateBrokerConnectionResponse, error) {
	if cmd.UserID == 0 {
		return nil, errors.NewUnauthorizedError("user not authenticated")
	}

	brokerName, err := vo.ParseBrokerName(cmd.BrokerName)
	if err != nil {
		return nil, errors.NewValidationError("unsupported broker", cmd.BrokerName)
	}
	capability, err := uc.registry.Get(brokerName)
	if err != nil {
		return nil, err
	}

	creds := broker.Credentials{
		APIKey:    strings.TrimSpace(cmd.APIKey),
		APISecret: strings.TrimSpace(cmd.APISecret),
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, errors.NewValidationError("api_key and api_secret are required")
	}

	if err := uc.cipher.SelfTest(); err != nil {
		uc.logger.Errorw("credential vault self-test failed", "error", err)
		return nil, errors.NewEncryptionFailureError(err)
	}

	apiKeyEnc, err := uc.cipher.Encrypt(creds.APIKey)
	if err != nil {
		return nil, errors.NewEncryptionFailureError(err)
	}
	apiSecretEnc, err := uc.cipher.Encrypt(creds.APISecret)
	if err != nil {
		return nil, errors.NewEncryptionFailureError(err)
	}

	now := uc.now()
	var (
		conn     *brokerconnection.BrokerConnection
		loginURL string
	)

	err = lockErr(lock.WithLock(ctx, uc.locker, lock.UserKey(cmd.UserID), func(ctx context.Context) error {
		return uc.txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
			active, err := uc.repo.CountActiveByUser(ctx, cmd.UserID)
			if err != nil {
				return fmt.Errorf("failed to count active connections: %w", err)
			}
			if active >= int64(uc.maxActive) {
				return errors.NewLimitExceededError(uc.maxActive)
			}

			conn, err = brokerconnection.NewBrokerConnection(
				cmd.UserID,
				brokerName,
				cmd.ConnectionName,
				apiKeyEnc,
				apiSecretEnc,
				strings.TrimSpace(cmd.BrokerUserID),
				uuid.NewString(),
				now,
				id.NewBrokerConnectionID,
			)
			if err != nil {
				return errors.NewValidationError(err.Error())
			}

			if capability.AuthMode() == vo.AuthModeDirect {
				if err := uc.authenticateDirect(capability, conn, creds, now); err != nil {
					return err
				}
			} else {
				loginURL, err = capability.LoginURL(creds, conn.SID(), vo.IntentInitial)
				if err != nil {
					return fmt.Errorf("failed to build login URL: %w", err)
				}
			}

			if err := uc.repo.Create(ctx, conn); err != nil {
				return fmt.Errorf("failed to save broker connection: %w", err)
			}
			return nil
		})
	}))
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeLimitExceeded) {
			uc.logger.Warnw("broker connection limit reached", "user_id", cmd.UserID, "limit", uc.maxActive)
		} else {
			uc.logger.Errorw("failed to create broker connection", "user_id", cmd.UserID, "broker", brokerName, "error", err)
		}
		return nil, err
	}

	uc.logger.Infow("broker connection created",
		"sid", conn.SID(),
		"user_id", conn.UserID(),
		"broker", brokerName,
		"auth_mode", capability.AuthMode(),
	)
	uc.events.Emit(brokerconnection.EventConnectionCreated, conn, now)

	return &dto.CreateBrokerConnectionResponse{
		ConnectionID: conn.SID(),
		WebhookURL:   conn.WebhookURL(uc.webhookBaseURL),
		RequiresAuth: !conn.IsAuthenticated(),
		LoginURL:     loginURL,
	}, nil
}

func (uc *CreateBrokerConnectionUseCase) authenticateDirect(capability broker.Capability, conn *brokerconnection.BrokerConnection, creds broker.Credentials, now time.Time) error {
	session, err := capability.DirectSession(creds)
	if err != nil {
		return err
	}
	accessEnc, err := uc.cipher.Encrypt(session.AccessToken)
	if err != nil {
		return errors.NewEncryptionFailureError(err)
	}
	return conn.Authenticate(accessEnc, "", capability.SessionExpiry(now), session.BrokerUserID, now)
}
