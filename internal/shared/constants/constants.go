package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyRequestID = "request_id"

	// Query parameters carried through broker redirects
	QueryConnectionID = "connection_id"
	QueryIntent       = "intent"

	// Filter value selecting every connection
	ConnectionFilterAll = "all"

	// Database table names
	TableBrokerConnections = "broker_connections"
	TableCasbinRule        = "casbin_rule"

	// Event drivers
	EventDriverRedis = "redis"
	EventDriverAMQP  = "amqp"
	EventDriverNone  = "none"
)
