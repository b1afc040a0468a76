package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// WebhookBaseURL is the public origin of the alert ingestion endpoint
	WebhookBaseURL string `mapstructure:"webhook_base_url"`
	// Timezone is used when nothing broker-specific applies
	Timezone string `mapstructure:"timezone"`
	// DashboardURL is linked from the broker callback page
	DashboardURL string `mapstructure:"dashboard_url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
	// CasbinModelPath overrides the built-in RBAC model when set
	CasbinModelPath string `mapstructure:"casbin_model_path"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// VaultConfig holds the process-wide credential encryption key.
type VaultConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

// UpstoxConfig holds the OAuth application registered with Upstox.
type UpstoxConfig struct {
	RedirectURL string `mapstructure:"redirect_url"`
	AuthURL     string `mapstructure:"auth_url"`
	TokenURL    string `mapstructure:"token_url"`
	APIBaseURL  string `mapstructure:"api_base_url"`
	StateSecret string `mapstructure:"state_secret"`
}

// ZerodhaConfig points the Kite client at an API host; the redirect URL is the
// one registered on the Kite developer console for each API key.
type ZerodhaConfig struct {
	BaseURI string `mapstructure:"base_uri"`
}

type AlpacaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type BrokersConfig struct {
	Zerodha     ZerodhaConfig `mapstructure:"zerodha"`
	Upstox      UpstoxConfig  `mapstructure:"upstox"`
	Alpaca      AlpacaConfig  `mapstructure:"alpaca"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// ConnectionConfig bounds the connection lifecycle.
type ConnectionConfig struct {
	MaxActivePerUser int           `mapstructure:"max_active_per_user"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	LockWait         time.Duration `mapstructure:"lock_wait"`
}

type AggregatorConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// EventsConfig selects the connection event publisher: redis, amqp or none.
type EventsConfig struct {
	Driver   string         `mapstructure:"driver"`
	Channel  string         `mapstructure:"channel"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RateLimitConfig struct {
	ConnectPerMinute int `mapstructure:"connect_per_minute"`
	ConnectPerHour   int `mapstructure:"connect_per_hour"`
}
