package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Broker connection error types
const (
	ErrorTypeLimitExceeded        ErrorType = "limit_exceeded"
	ErrorTypeEncryptionFailure    ErrorType = "encryption_failure"
	ErrorTypeMissingCredentials   ErrorType = "missing_credentials"
	ErrorTypeTokenExpired         ErrorType = "token_expired"
	ErrorTypeNotAuthenticated     ErrorType = "not_authenticated"
	ErrorTypeUnsupportedOperation ErrorType = "unsupported_operation"
	ErrorTypeUpstreamFailure      ErrorType = "upstream_failure"
	ErrorTypeAuthenticationFailed ErrorType = "authentication_failed"
)

// BrokerError is an AppError raised while operating on a broker connection.
type BrokerError struct {
	*AppError
	// Broker is the lower-cased broker name the failure relates to, if any
	Broker string
	// ShouldLog is false for expected conditions such as an expired session
	ShouldLog bool
	// cause is the underlying error, never rendered to API callers
	cause error
}

// Error implements the error interface
func (e *BrokerError) Error() string {
	return e.AppError.Error()
}

// Unwrap exposes the AppError so GetAppError works through the chain.
func (e *BrokerError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.AppError, e.cause}
	}
	return []error{e.AppError}
}

// NewLimitExceededError is returned when a user already has the maximum number of active connections.
func NewLimitExceededError(limit int) *BrokerError {
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeLimitExceeded,
			Message: "Broker connection limit reached",
			Code:    http.StatusConflict,
			Details: fmt.Sprintf("a user may hold at most %d active broker connections", limit),
		},
		ShouldLog: false,
	}
}

// NewEncryptionFailureError wraps a vault failure. The cause is kept for logging only.
func NewEncryptionFailureError(cause error) *BrokerError {
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeEncryptionFailure,
			Message: "Credential encryption failed",
			Code:    http.StatusInternalServerError,
		},
		ShouldLog: true,
		cause:     cause,
	}
}

// NewMissingCredentialsError is returned when stored API credentials are absent or undecryptable.
func NewMissingCredentialsError(broker string) *BrokerError {
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeMissingCredentials,
			Message: "Stored API credentials are missing",
			Code:    http.StatusUnprocessableEntity,
			Details: "Delete this connection and add it again with your API key and secret",
		},
		Broker:    broker,
		ShouldLog: true,
	}
}

// NewBrokerTokenExpiredError is returned when a broker session existed and has lapsed.
func NewBrokerTokenExpiredError(broker string) *BrokerError {
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeTokenExpired,
			Message: fmt.Sprintf("%s session has expired", broker),
			Code:    http.StatusUnauthorized,
			Details: "Reconnect the broker account to continue",
		},
		Broker:    broker,
		ShouldLog: false,
	}
}

// NewNotAuthenticatedError is returned when no broker session was ever issued.
func NewNotAuthenticatedError(broker string) *BrokerError {
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeNotAuthenticated,
			Message: fmt.Sprintf("%s connection is not authenticated", broker),
			Code:    http.StatusUnauthorized,
			Details: "Complete the broker login first",
		},
		Broker:    broker,
		ShouldLog: false,
	}
}

// NewUnsupportedOperationError is returned when a broker does not implement a capability.
func NewUnsupportedOperationError(broker, operation string) *BrokerError {
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeUnsupportedOperation,
			Message: fmt.Sprintf("%s is not supported for %s", operation, broker),
			Code:    http.StatusNotImplemented,
		},
		Broker:    broker,
		ShouldLog: false,
	}
}

// NewUpstreamFailureError wraps a failed broker API call with the upstream message attached.
func NewUpstreamFailureError(broker string, cause error) *BrokerError {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeUpstreamFailure,
			Message: fmt.Sprintf("%s API call failed", broker),
			Code:    http.StatusBadGateway,
			Details: detail,
		},
		Broker:    broker,
		ShouldLog: true,
		cause:     cause,
	}
}

// NewAuthenticationFailedError is returned when a broker rejects a request token exchange.
func NewAuthenticationFailedError(broker string, cause error) *BrokerError {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &BrokerError{
		AppError: &AppError{
			Type:    ErrorTypeAuthenticationFailed,
			Message: fmt.Sprintf("%s authentication failed", broker),
			Code:    http.StatusUnauthorized,
			Details: detail,
		},
		Broker:    broker,
		ShouldLog: true,
		cause:     cause,
	}
}

// GetBrokerError extracts a BrokerError from the error chain.
func GetBrokerError(err error) *BrokerError {
	var brokerErr *BrokerError
	if stderrors.As(err, &brokerErr) {
		return brokerErr
	}
	return nil
}

// ShouldLogBrokerError returns false for expected broker conditions.
func ShouldLogBrokerError(err error) bool {
	if brokerErr := GetBrokerError(err); brokerErr != nil {
		return brokerErr.ShouldLog
	}
	return true
}
