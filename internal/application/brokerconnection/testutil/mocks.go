// Package testutil provides mock implementations for testing the broker
// connection and portfolio application layers.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// =====================================================================
// Repository
// =====================================================================

// MockBrokerConnectionRepository is an in-memory brokerconnection.Repository.
// It stores copies so unsaved mutations never leak into later reads.
type MockBrokerConnectionRepository struct {
	mu     sync.RWMutex
	rows   map[string]*brokerconnection.BrokerConnection
	nextID uint

	// Error injection for testing
	CreateError error
	UpdateError error
	ListError   error

	UpdateCalls int
}

// NewMockBrokerConnectionRepository creates an empty repository.
func NewMockBrokerConnectionRepository() *MockBrokerConnectionRepository {
	return &MockBrokerConnectionRepository{
		rows: make(map[string]*brokerconnection.BrokerConnection),
	}
}

func clone(c *brokerconnection.BrokerConnection) *brokerconnection.BrokerConnection {
	var profile *brokerconnection.Profile
	if p := c.Profile(); p != nil {
		cp := *p
		profile = &cp
	}
	out, err := brokerconnection.ReconstructBrokerConnection(
		c.ID(), c.SID(), c.UserID(), c.BrokerName(), c.ConnectionName(), c.BrokerUserID(),
		c.APIKeyEncrypted(), c.APISecretEncrypted(), c.AccessTokenEncrypted(), c.PublicTokenEncrypted(),
		copyTime(c.AccessTokenExpiresAt()), c.IsActive(), c.WebhookID(), profile, copyTime(c.LastSync()),
		c.CreatedAt(), c.UpdatedAt(),
	)
	if err != nil {
		panic(err)
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func notFound(sid string) error {
	return errors.NewNotFoundError("broker connection not found", sid)
}

// Create stores conn and assigns its ID.
func (m *MockBrokerConnectionRepository) Create(ctx context.Context, conn *brokerconnection.BrokerConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return m.CreateError
	}
	for _, existing := range m.rows {
		if existing.WebhookID() == conn.WebhookID() {
			return errors.NewConflictError("webhook id already in use")
		}
	}

	m.nextID++
	if err := conn.SetID(m.nextID); err != nil {
		return err
	}
	m.rows[conn.SID()] = clone(conn)
	return nil
}

// Add seeds a connection, assigning an ID when unset.
func (m *MockBrokerConnectionRepository) Add(conn *brokerconnection.BrokerConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn.ID() == 0 {
		m.nextID++
		_ = conn.SetID(m.nextID)
	}
	m.rows[conn.SID()] = clone(conn)
}

// Stored returns the persisted copy of sid, or nil.
func (m *MockBrokerConnectionRepository) Stored(sid string) *brokerconnection.BrokerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.rows[sid]; ok {
		return clone(c)
	}
	return nil
}

// GetBySID retrieves a connection regardless of owner.
func (m *MockBrokerConnectionRepository) GetBySID(ctx context.Context, sid string) (*brokerconnection.BrokerConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.rows[sid]
	if !ok {
		return nil, notFound(sid)
	}
	return clone(c), nil
}

// GetBySIDAndUser retrieves a connection owned by userID.
func (m *MockBrokerConnectionRepository) GetBySIDAndUser(ctx context.Context, sid string, userID uint) (*brokerconnection.BrokerConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.rows[sid]
	if !ok || c.UserID() != userID {
		return nil, notFound(sid)
	}
	return clone(c), nil
}

// Update replaces the stored copy.
func (m *MockBrokerConnectionRepository) Update(ctx context.Context, conn *brokerconnection.BrokerConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.rows[conn.SID()]; !ok {
		return notFound(conn.SID())
	}
	m.rows[conn.SID()] = clone(conn)
	return nil
}

func (m *MockBrokerConnectionRepository) list(userID uint, activeOnly bool) []*brokerconnection.BrokerConnection {
	out := make([]*brokerconnection.BrokerConnection, 0)
	for _, c := range m.rows {
		if c.UserID() != userID || (activeOnly && !c.IsActive()) {
			continue
		}
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() > out[j].ID() })
	return out
}

// ListByUser returns all connections of a user, newest first.
func (m *MockBrokerConnectionRepository) ListByUser(ctx context.Context, userID uint) ([]*brokerconnection.BrokerConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.list(userID, false), nil
}

// ListActiveByUser returns the active connections of a user, newest first.
func (m *MockBrokerConnectionRepository) ListActiveByUser(ctx context.Context, userID uint) ([]*brokerconnection.BrokerConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.list(userID, true), nil
}

// CountActiveByUser counts the active connections of a user.
func (m *MockBrokerConnectionRepository) CountActiveByUser(ctx context.Context, userID uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.list(userID, true))), nil
}

// DeleteBySIDAndUser removes a connection owned by userID.
func (m *MockBrokerConnectionRepository) DeleteBySIDAndUser(ctx context.Context, sid string, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.rows[sid]
	if !ok || c.UserID() != userID {
		return notFound(sid)
	}
	delete(m.rows, sid)
	return nil
}

// =====================================================================
// Transactions
// =====================================================================

// MockTransactionManager runs fn inline and counts invocations.
type MockTransactionManager struct {
	mu    sync.Mutex
	Calls int
}

// RunInTransaction calls fn with ctx.
func (m *MockTransactionManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	return fn(ctx)
}

// =====================================================================
// Vault
// =====================================================================

// MockCipher is a reversible stand-in for the credential vault.
type MockCipher struct {
	SelfTestError error
	EncryptError  error
}

const cipherPrefix = "sealed:"

// Encrypt prefixes the plaintext.
func (m *MockCipher) Encrypt(plaintext string) (string, error) {
	if m.EncryptError != nil {
		return "", m.EncryptError
	}
	if plaintext == "" {
		return "", fmt.Errorf("empty input")
	}
	return cipherPrefix + plaintext, nil
}

// Decrypt strips the prefix added by Encrypt.
func (m *MockCipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, cipherPrefix) {
		return "", fmt.Errorf("authentication failed")
	}
	return strings.TrimPrefix(ciphertext, cipherPrefix), nil
}

// SelfTest returns SelfTestError.
func (m *MockCipher) SelfTest() error {
	return m.SelfTestError
}

// Seal is Encrypt without the error, for seeding fixtures.
func Seal(plaintext string) string {
	return cipherPrefix + plaintext
}

// =====================================================================
// Broker capability
// =====================================================================

// MockCapability is a broker.Capability whose behavior is set per test.
type MockCapability struct {
	BrokerName vo.BrokerName
	Mode       vo.AuthMode
	Expiry     func(now time.Time) *time.Time

	LoginURLFunc      func(creds broker.Credentials, connectionID string, intent vo.Intent) (string, error)
	ParseCallbackFunc func(query url.Values) (broker.CallbackParams, error)
	ExchangeFunc      func(ctx context.Context, creds broker.Credentials, requestToken string) (*broker.Session, error)
	NewClientFunc     func(creds broker.Credentials, accessToken string) (broker.Client, error)

	mu            sync.Mutex
	ExchangeCalls int
}

// NewOAuthCapability returns a redirect-login capability with working defaults.
func NewOAuthCapability(name vo.BrokerName) *MockCapability {
	return &MockCapability{BrokerName: name, Mode: vo.AuthModeOAuthRedirect}
}

// NewDirectCapability returns a direct capability with working defaults.
func NewDirectCapability(name vo.BrokerName) *MockCapability {
	return &MockCapability{BrokerName: name, Mode: vo.AuthModeDirect}
}

func (m *MockCapability) Name() vo.BrokerName {
	return m.BrokerName
}

func (m *MockCapability) AuthMode() vo.AuthMode {
	return m.Mode
}

func (m *MockCapability) LoginURL(creds broker.Credentials, connectionID string, intent vo.Intent) (string, error) {
	if m.Mode == vo.AuthModeDirect {
		return "", errors.NewUnsupportedOperationError(m.BrokerName.String(), "login")
	}
	if m.LoginURLFunc != nil {
		return m.LoginURLFunc(creds, connectionID, intent)
	}
	q := url.Values{}
	q.Set("api_key", creds.APIKey)
	q.Set("connection_id", connectionID)
	q.Set("intent", intent.String())
	return "https://login.example.com/" + m.BrokerName.String() + "?" + q.Encode(), nil
}

func (m *MockCapability) ParseCallback(query url.Values) (broker.CallbackParams, error) {
	if m.ParseCallbackFunc != nil {
		return m.ParseCallbackFunc(query)
	}
	intent, err := vo.ParseIntent(query.Get("intent"))
	if err != nil {
		return broker.CallbackParams{}, errors.NewValidationError("invalid intent")
	}
	return broker.CallbackParams{
		RequestToken: query.Get("request_token"),
		Status:       query.Get("status"),
		ConnectionID: query.Get("connection_id"),
		Intent:       intent,
	}, nil
}

func (m *MockCapability) ExchangeRequestToken(ctx context.Context, creds broker.Credentials, requestToken string) (*broker.Session, error) {
	m.mu.Lock()
	m.ExchangeCalls++
	m.mu.Unlock()

	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, creds, requestToken)
	}
	return &broker.Session{AccessToken: "access-" + requestToken, PublicToken: "public-" + requestToken, BrokerUserID: "BRK1"}, nil
}

func (m *MockCapability) DirectSession(creds broker.Credentials) (*broker.Session, error) {
	if m.Mode != vo.AuthModeDirect {
		return nil, errors.NewUnsupportedOperationError(m.BrokerName.String(), "direct session")
	}
	return &broker.Session{AccessToken: "implicit:" + creds.APIKey}, nil
}

func (m *MockCapability) SessionExpiry(now time.Time) *time.Time {
	if m.Expiry != nil {
		return m.Expiry(now)
	}
	return nil
}

func (m *MockCapability) NewClient(creds broker.Credentials, accessToken string) (broker.Client, error) {
	if m.NewClientFunc != nil {
		return m.NewClientFunc(creds, accessToken)
	}
	return &MockClient{}, nil
}

// MockRegistry resolves capabilities from a map.
type MockRegistry map[vo.BrokerName]broker.Capability

// NewMockRegistry indexes caps by name.
func NewMockRegistry(caps ...broker.Capability) MockRegistry {
	r := make(MockRegistry, len(caps))
	for _, c := range caps {
		r[c.Name()] = c
	}
	return r
}

// Get returns the capability for name.
func (r MockRegistry) Get(name vo.BrokerName) (broker.Capability, error) {
	c, ok := r[name]
	if !ok {
		return nil, errors.NewValidationError("unsupported broker", name.String())
	}
	return c, nil
}

// MockClient is a broker.Client whose calls are set per test.
type MockClient struct {
	ProfileFunc   func(ctx context.Context) (*brokerconnection.Profile, error)
	PositionsFunc func(ctx context.Context) ([]broker.Entry, error)
	HoldingsFunc  func(ctx context.Context) ([]broker.Entry, error)
}

func (m *MockClient) GetProfile(ctx context.Context) (*brokerconnection.Profile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx)
	}
	return &brokerconnection.Profile{UserName: "Test User", UserID: "BRK1", Broker: "TEST"}, nil
}

func (m *MockClient) GetPositions(ctx context.Context) ([]broker.Entry, error) {
	if m.PositionsFunc != nil {
		return m.PositionsFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) GetHoldings(ctx context.Context) ([]broker.Entry, error) {
	if m.HoldingsFunc != nil {
		return m.HoldingsFunc(ctx)
	}
	return nil, nil
}

// =====================================================================
// Events
// =====================================================================

// MockEventPublisher records published events.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []brokerconnection.ConnectionEvent
	Err    error
}

// Publish records event and returns Err.
func (m *MockEventPublisher) Publish(ctx context.Context, event brokerconnection.ConnectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.Err
}

// Events returns a copy of the recorded events.
func (m *MockEventPublisher) Events() []brokerconnection.ConnectionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]brokerconnection.ConnectionEvent(nil), m.events...)
}

// HasEvent reports whether an event of type t was published for sid.
func (m *MockEventPublisher) HasEvent(t brokerconnection.EventType, sid string) bool {
	for _, e := range m.Events() {
		if e.Type == t && e.ConnectionID == sid {
			return true
		}
	}
	return false
}

// =====================================================================
// Logger
// =====================================================================

// MockLogger is a mock implementation of logger.Interface for testing.
type MockLogger struct {
	mu      sync.RWMutex
	entries []LogEntry
}

// LogEntry records a log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewMockLogger creates a new mock logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{entries: make([]LogEntry, 0)}
}

func (m *MockLogger) Debug(msg string, args ...any) {
	m.log("DEBUG", msg, args...)
}

func (m *MockLogger) Info(msg string, args ...any) {
	m.log("INFO", msg, args...)
}

func (m *MockLogger) Warn(msg string, args ...any) {
	m.log("WARN", msg, args...)
}

func (m *MockLogger) Error(msg string, args ...any) {
	m.log("ERROR", msg, args...)
}

func (m *MockLogger) With(args ...any) logger.Interface {
	return m
}

func (m *MockLogger) Named(name string) logger.Interface {
	return m
}

func (m *MockLogger) Debugw(msg string, keysAndValues ...interface{}) {
	m.log("DEBUG", msg, keysAndValues...)
}

func (m *MockLogger) Infow(msg string, keysAndValues ...interface{}) {
	m.log("INFO", msg, keysAndValues...)
}

func (m *MockLogger) Warnw(msg string, keysAndValues ...interface{}) {
	m.log("WARN", msg, keysAndValues...)
}

func (m *MockLogger) Errorw(msg string, keysAndValues ...interface{}) {
	m.log("ERROR", msg, keysAndValues...)
}

func (m *MockLogger) log(level, msg string, fields ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := LogEntry{Level: level, Message: msg, Fields: make(map[string]interface{})}
	for i := 0; i < len(fields)-1; i += 2 {
		if key, ok := fields[i].(string); ok {
			entry.Fields[key] = fields[i+1]
		}
	}
	m.entries = append(m.entries, entry)
}

// GetEntries returns all logged entries.
func (m *MockLogger) GetEntries() []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]LogEntry(nil), m.entries...)
}
