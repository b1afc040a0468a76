package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// CallbackError is a failed broker login. Code selects the page shown to the user.
type CallbackError struct {
	Code  constants.CallbackErrorCode
	Cause error
}

func (e *CallbackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("broker callback failed (%s): %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("broker callback failed (%s)", e.Code)
}

func (e *CallbackError) Unwrap() error {
	return e.Cause
}

func callbackFailure(code constants.CallbackErrorCode, cause error) *CallbackError {
	return &CallbackError{Code: code, Cause: cause}
}

// CompleteBrokerCallbackCommand is the raw redirect from a broker login.
type CompleteBrokerCallbackCommand struct {
	BrokerName string
	Query      url.Values
}

// CompleteBrokerCallbackUseCase exchanges a request token and stores the session.
type CompleteBrokerCallbackUseCase struct {
	repo     brokerconnection.Repository
	registry services.CapabilityRegistry
	cipher   vault.Cipher
	locker    lock.Locker
	txMgr     TransactionManager
	cache     services.ClientCache
	events    *services.EventEmitter
	maxActive int
	now       func() time.Time
	logger    logger.Interface
}

// NewCompleteBrokerCallbackUseCase creates a new CompleteBrokerCallbackUseCase.
// A maxActive of zero uses brokerconnection.MaxActivePerUser.
func NewCompleteBrokerCallbackUseCase(
	repo brokerconnection.Repository,
	registry services.CapabilityRegistry,
	cipher vault.Cipher,
	locker lock.Locker,
	txMgr TransactionManager,
	cache services.ClientCache,
	events *services.EventEmitter,
	maxActive int,
	logger logger.Interface,
) *CompleteBrokerCallbackUseCase {
	if maxActive <= 0 {
		maxActive = brokerconnection.MaxActivePerUser
	}
	return &CompleteBrokerCallbackUseCase{
		repo:      repo,
		registry:  registry,
		cipher:    cipher,
		locker:    locker,
		txMgr:     txMgr,
		cache:     cache,
		events:    events,
		maxActive: maxActive,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the time source.
func (uc *CompleteBrokerCallbackUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// Execute validates the redirect, exchanges the request token and persists
// the encrypted session. All failures are returned as *CallbackError and
// leave the stored connection unchanged.
func (uc *CompleteBrokerCallbackUseCase) Execute(ctx context.Context, cmd CompleteBrokerCallbackCommand) (*dto.CallbackResult, error) {
	brokerName, err := vo.ParseBrokerName(cmd.BrokerName)
	if err != nil {
		return nil, callbackFailure(constants.CallbackErrorUnsupported, err)
	}
	capability, err := uc.registry.Get(brokerName)
	if err != nil {
		return nil, callbackFailure(constants.CallbackErrorUnsupported, err)
	}
	if capability.AuthMode() != vo.AuthModeOAuthRedirect {
		return nil, callbackFailure(constants.CallbackErrorUnsupported, nil)
	}

	params, err := capability.ParseCallback(cmd.Query)
	if err != nil {
		uc.logger.Warnw("rejected broker callback", "broker", brokerName, "error", err)
		return nil, callbackFailure(constants.CallbackErrorInvalidState, err)
	}
	if !strings.EqualFold(params.Status, broker.CallbackStatusSuccess) {
		uc.logger.Infow("broker login not successful", "broker", brokerName, "status", params.Status, "sid", params.ConnectionID)
		return nil, callbackFailure(constants.CallbackErrorDenied, nil)
	}
	if params.RequestToken == "" {
		return nil, callbackFailure(constants.CallbackErrorMissingToken, nil)
	}
	if params.ConnectionID == "" {
		return nil, callbackFailure(constants.CallbackErrorUnknownConn, nil)
	}

	var (
		conn *brokerconnection.BrokerConnection
		now  time.Time
	)
	err = lock.WithLock(ctx, uc.locker, lock.ConnectionKey(params.ConnectionID), func(ctx context.Context) error {
		var err error
		conn, err = uc.repo.GetBySID(ctx, params.ConnectionID)
		if err != nil {
			if errors.IsNotFoundError(err) {
				return callbackFailure(constants.CallbackErrorUnknownConn, err)
			}
			return callbackFailure(constants.CallbackErrorStorageFailed, err)
		}
		if conn.BrokerName() != brokerName {
			return callbackFailure(constants.CallbackErrorUnknownConn, nil)
		}

		creds, err := services.DecryptCredentials(uc.cipher, conn)
		if err != nil {
			return callbackFailure(constants.CallbackErrorStorageFailed, err)
		}

		exchangeAndStore := func(ctx context.Context) error {
			session, err := capability.ExchangeRequestToken(ctx, creds, params.RequestToken)
			if err != nil {
				return callbackFailure(constants.CallbackErrorExchangeFailed, err)
			}

			now = uc.now()
			if err := uc.storeSession(ctx, conn, capability, session, now); err != nil {
				return callbackFailure(constants.CallbackErrorStorageFailed, err)
			}
			return nil
		}

		if conn.IsActive() {
			err = exchangeAndStore(ctx)
		} else {
			// reactivation counts against the same cap as create
			err = lock.WithLock(ctx, uc.locker, lock.UserKey(conn.UserID()), func(ctx context.Context) error {
				return uc.txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
					active, err := uc.repo.CountActiveByUser(ctx, conn.UserID())
					if err != nil {
						return callbackFailure(constants.CallbackErrorStorageFailed, err)
					}
					if active >= int64(uc.maxActive) {
						return callbackFailure(constants.CallbackErrorLimitExceeded, errors.NewLimitExceededError(uc.maxActive))
					}
					return exchangeAndStore(ctx)
				})
			})
		}
		if err != nil {
			return err
		}
		uc.cache.Invalidate(conn.SID())
		return nil
	})
	if err != nil {
		var cbErr *CallbackError
		if !stderrors.As(err, &cbErr) {
			err = callbackFailure(constants.CallbackErrorStorageFailed, err)
		}
		uc.logger.Warnw("broker callback failed", "broker", brokerName, "sid", params.ConnectionID, "error", err)
		return nil, err
	}

	uc.logger.Infow("broker connection authenticated",
		"sid", conn.SID(),
		"user_id", conn.UserID(),
		"broker", brokerName,
		"intent", params.Intent,
		"expires_at", conn.AccessTokenExpiresAt(),
	)
	uc.events.Emit(brokerconnection.EventConnectionAuthenticated, conn, now)

	return &dto.CallbackResult{
		ConnectionID:   conn.SID(),
		ConnectionName: conn.ConnectionName(),
		BrokerName:     brokerName.String(),
		Intent:         params.Intent.String(),
		ExpiresAt:      conn.AccessTokenExpiresAt(),
	}, nil
}

// storeSession encrypts both tokens before touching the aggregate so a vault
// failure leaves nothing half-written.
func (uc *CompleteBrokerCallbackUseCase) storeSession(
	ctx context.Context,
	conn *brokerconnection.BrokerConnection,
	capability broker.Capability,
	session *broker.Session,
	now time.Time,
) error {
	accessEnc, err := uc.cipher.Encrypt(session.AccessToken)
	if err != nil {
		return errors.NewEncryptionFailureError(err)
	}
	publicEnc := ""
	if session.PublicToken != "" {
		publicEnc, err = uc.cipher.Encrypt(session.PublicToken)
		if err != nil {
			return errors.NewEncryptionFailureError(err)
		}
	}

	if err := conn.Authenticate(accessEnc, publicEnc, capability.SessionExpiry(now), session.BrokerUserID, now); err != nil {
		return err
	}
	if session.Profile != nil {
		conn.RecordProfile(*session.Profile, now)
	}

	if err := uc.repo.Update(ctx, conn); err != nil {
		return fmt.Errorf("failed to save broker session: %w", err)
	}
	return nil
}
