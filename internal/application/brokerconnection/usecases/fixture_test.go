package usecases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/testutil"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/biztime"
	"github.com/autotraderhub/autotrader/internal/shared/id"
)

const webhookBase = "https://hooks.example.com"

// 14:30 in Asia/Kolkata
var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo      *testutil.MockBrokerConnectionRepository
	cipher    *testutil.MockCipher
	zerodha   *testutil.MockCapability
	alpaca    *testutil.MockCapability
	registry  testutil.MockRegistry
	locker    *lock.MemoryLocker
	tx        *testutil.MockTransactionManager
	cache     *broker.ClientCache
	publisher *testutil.MockEventPublisher
	events    *services.EventEmitter
	logger    *testutil.MockLogger
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cutover, err := biztime.ParseCutover("06:00", "Asia/Kolkata")
	require.NoError(t, err)

	zerodha := testutil.NewOAuthCapability(vo.BrokerZerodha)
	zerodha.Expiry = func(now time.Time) *time.Time {
		at := cutover.NextDayUTC(now)
		return &at
	}

	f := &fixture{
		repo:      testutil.NewMockBrokerConnectionRepository(),
		cipher:    &testutil.MockCipher{},
		zerodha:   zerodha,
		alpaca:    testutil.NewDirectCapability(vo.BrokerAlpaca),
		locker:    lock.NewMemoryLocker(lock.Options{Wait: 2 * time.Second}),
		tx:        &testutil.MockTransactionManager{},
		cache:     broker.NewClientCache(),
		publisher: &testutil.MockEventPublisher{},
		logger:    testutil.NewMockLogger(),
		now:       fixedNow,
	}
	f.registry = testutil.NewMockRegistry(f.zerodha, f.alpaca)
	f.events = services.NewEventEmitter(f.publisher, f.logger)
	return f
}

func (f *fixture) clock() time.Time {
	return f.now
}

func (f *fixture) clientProvider() *services.ClientProvider {
	return services.NewClientProvider(f.registry, f.cipher, f.cache, f.clock)
}

func (f *fixture) createUseCase() *CreateBrokerConnectionUseCase {
	uc := NewCreateBrokerConnectionUseCase(f.repo, f.registry, f.cipher, f.locker, f.tx, f.events, webhookBase, 0, f.logger)
	uc.SetClock(f.clock)
	return uc
}

func (f *fixture) callbackUseCase() *CompleteBrokerCallbackUseCase {
	uc := NewCompleteBrokerCallbackUseCase(f.repo, f.registry, f.cipher, f.locker, f.tx, f.cache, f.events, 0, f.logger)
	uc.SetClock(f.clock)
	return uc
}

// seed stores a connection. A non-nil expiresAt (or authenticated) stores a session.
func (f *fixture) seed(t *testing.T, userID uint, name vo.BrokerName, authenticated bool, expiresAt *time.Time) *brokerconnection.BrokerConnection {
	t.Helper()

	webhookID, err := id.Generate(24)
	require.NoError(t, err)

	conn, err := brokerconnection.NewBrokerConnection(
		userID, name, "", testutil.Seal("api-key"), testutil.Seal("api-secret"), "", webhookID, f.now.Add(-time.Hour), id.NewBrokerConnectionID,
	)
	require.NoError(t, err)

	if authenticated || expiresAt != nil {
		require.NoError(t, conn.Authenticate(testutil.Seal("access-token"), "", expiresAt, "", f.now.Add(-time.Hour)))
	}
	f.repo.Add(conn)
	return conn
}

func timePtr(t time.Time) *time.Time {
	return &t
}
