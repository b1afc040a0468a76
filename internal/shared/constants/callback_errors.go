package constants

// CallbackErrorCode identifies why a broker login callback could not complete.
type CallbackErrorCode string

const (
	CallbackErrorDenied         CallbackErrorCode = "denied"
	CallbackErrorMissingToken   CallbackErrorCode = "missing_request_token"
	CallbackErrorInvalidState   CallbackErrorCode = "invalid_state"
	CallbackErrorUnknownConn    CallbackErrorCode = "unknown_connection"
	CallbackErrorExchangeFailed CallbackErrorCode = "exchange_failed"
	CallbackErrorStorageFailed  CallbackErrorCode = "storage_failed"
	CallbackErrorUnsupported    CallbackErrorCode = "unsupported_broker"
	CallbackErrorLimitExceeded  CallbackErrorCode = "limit_exceeded"
)

// CallbackErrorMessages maps error codes to user-facing messages.
var CallbackErrorMessages = map[CallbackErrorCode]string{
	CallbackErrorDenied:         "The broker login was cancelled or rejected.",
	CallbackErrorMissingToken:   "The broker did not return a login token.",
	CallbackErrorInvalidState:   "This login link is invalid or has expired.",
	CallbackErrorUnknownConn:    "The broker connection for this login no longer exists.",
	CallbackErrorExchangeFailed: "The broker rejected the login token.",
	CallbackErrorStorageFailed:  "Your session could not be saved.",
	CallbackErrorUnsupported:    "This broker does not use browser login.",
	CallbackErrorLimitExceeded:  "You already have the maximum number of active broker connections. Disconnect one and try again.",
}

// GetCallbackErrorMessage returns a user-facing message for code.
func GetCallbackErrorMessage(code CallbackErrorCode) string {
	if msg, ok := CallbackErrorMessages[code]; ok {
		return msg
	}
	return "An unexpected error occurred while connecting your broker."
}
