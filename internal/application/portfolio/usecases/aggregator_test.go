package usecases

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/services"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/testutil"
	"github.com/autotraderhub/autotrader/internal/application/portfolio/dto"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/id"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type portfolioFixture struct {
	repo     *testutil.MockBrokerConnectionRepository
	registry testutil.MockRegistry
	clients  *services.ClientProvider
	locker   *lock.MemoryLocker
	// positions returned per access token
	positions map[string]func(ctx context.Context) ([]broker.Entry, error)
}

func newPortfolioFixture(t *testing.T) *portfolioFixture {
	t.Helper()

	f := &portfolioFixture{
		repo:      testutil.NewMockBrokerConnectionRepository(),
		locker:    lock.NewMemoryLocker(lock.Options{Wait: time.Second}),
		positions: make(map[string]func(ctx context.Context) ([]broker.Entry, error)),
	}

	newClient := func(creds broker.Credentials, token string) (broker.Client, error) {
		fetch := f.positions[token]
		return &testutil.MockClient{PositionsFunc: fetch, HoldingsFunc: fetch}, nil
	}
	zerodha := testutil.NewOAuthCapability(vo.BrokerZerodha)
	zerodha.NewClientFunc = newClient
	alpaca := testutil.NewDirectCapability(vo.BrokerAlpaca)
	alpaca.NewClientFunc = newClient

	f.registry = testutil.NewMockRegistry(zerodha, alpaca)
	f.clients = services.NewClientProvider(f.registry, &testutil.MockCipher{}, broker.NewClientCache(), func() time.Time { return fixedNow })
	return f
}

// seed stores an authenticated connection whose client returns fetch.
func (f *portfolioFixture) seed(t *testing.T, userID uint, name vo.BrokerName, expiresAt *time.Time, fetch func(ctx context.Context) ([]broker.Entry, error)) *brokerconnection.BrokerConnection {
	t.Helper()

	webhookID, err := id.Generate(24)
	require.NoError(t, err)
	conn, err := brokerconnection.NewBrokerConnection(userID, name, "", testutil.Seal("k"), testutil.Seal("s"), "", webhookID, fixedNow.Add(-time.Hour), id.NewBrokerConnectionID)
	require.NoError(t, err)

	token := "tok-" + webhookID
	require.NoError(t, conn.Authenticate(testutil.Seal(token), "", expiresAt, "", fixedNow.Add(-time.Hour)))
	f.positions[token] = fetch
	f.repo.Add(conn)
	return conn
}

func (f *portfolioFixture) positionsUseCase(cfg AggregatorConfig) *GetPositionsUseCase {
	uc := NewGetPositionsUseCase(f.repo, f.clients, f.locker, cfg, testutil.NewMockLogger())
	uc.SetClock(func() time.Time { return fixedNow })
	return uc
}

func returns(entries ...broker.Entry) func(ctx context.Context) ([]broker.Entry, error) {
	return func(context.Context) ([]broker.Entry, error) {
		return entries, nil
	}
}

func pnl(v float64) *float64 {
	return &v
}

func TestGetPositions_OneFailingAdapterDoesNotFailAggregate(t *testing.T) {
	f := newPortfolioFixture(t)
	later := fixedNow.Add(6 * time.Hour)

	a := f.seed(t, 7, vo.BrokerZerodha, &later, returns(broker.Entry{Symbol: "INFY", Quantity: 10, AveragePrice: 1500, CurrentPrice: 1510, PnL: pnl(100)}))
	b := f.seed(t, 7, vo.BrokerZerodha, &later, func(context.Context) ([]broker.Entry, error) {
		return nil, errors.NewUpstreamFailureError("zerodha", fmt.Errorf("gateway timeout"))
	})
	c := f.seed(t, 7, vo.BrokerAlpaca, nil, returns(broker.Entry{Symbol: "AAPL", Quantity: 2, AveragePrice: 180, CurrentPrice: 190, PnL: pnl(20)}))

	resp, err := f.positionsUseCase(AggregatorConfig{}).Execute(context.Background(), PortfolioQuery{UserID: 7})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	require.Len(t, resp.Status, 3)
	assert.True(t, resp.Status[a.SID()].OK)
	assert.True(t, resp.Status[c.SID()].OK)
	assert.False(t, resp.Status[b.SID()].OK)
	assert.Equal(t, "upstream_failure", resp.Status[b.SID()].Error)

	symbols := []string{resp.Items[0].Symbol, resp.Items[1].Symbol}
	assert.ElementsMatch(t, []string{"INFY", "AAPL"}, symbols)
}

func TestGetPositions_ExpiredConnectionIsReportedWithoutCall(t *testing.T) {
	f := newPortfolioFixture(t)
	expired := fixedNow.Add(-time.Minute)

	var calls atomic.Int32
	conn := f.seed(t, 7, vo.BrokerZerodha, &expired, func(context.Context) ([]broker.Entry, error) {
		calls.Add(1)
		return nil, nil
	})

	resp, err := f.positionsUseCase(AggregatorConfig{}).Execute(context.Background(), PortfolioQuery{UserID: 7})
	require.NoError(t, err)

	assert.Empty(t, resp.Items)
	assert.Equal(t, "token_expired", resp.Status[conn.SID()].Error)
	assert.False(t, resp.Status[conn.SID()].OK)
	assert.Equal(t, int32(0), calls.Load())
}

// listSignalRepo reports when the aggregator has taken its connection snapshot.
type listSignalRepo struct {
	*testutil.MockBrokerConnectionRepository
	listed chan struct{}
}

func (r *listSignalRepo) ListActiveByUser(ctx context.Context, userID uint) ([]*brokerconnection.BrokerConnection, error) {
	conns, err := r.MockBrokerConnectionRepository.ListActiveByUser(ctx, userID)
	close(r.listed)
	return conns, err
}

func TestGetPositions_UsesTokenStoredWhileWaitingForLock(t *testing.T) {
	f := newPortfolioFixture(t)
	later := fixedNow.Add(6 * time.Hour)

	conn := f.seed(t, 7, vo.BrokerZerodha, &later, func(context.Context) ([]broker.Entry, error) {
		return nil, errors.NewUpstreamFailureError("zerodha", fmt.Errorf("token rotated out"))
	})
	f.positions["tok-new"] = returns(broker.Entry{Symbol: "TCS", Quantity: 3, AveragePrice: 4000, CurrentPrice: 4100})

	repo := &listSignalRepo{MockBrokerConnectionRepository: f.repo, listed: make(chan struct{})}
	uc := NewGetPositionsUseCase(repo, f.clients, f.locker, AggregatorConfig{CallTimeout: 5 * time.Second}, testutil.NewMockLogger())
	uc.SetClock(func() time.Time { return fixedNow })

	release, err := f.locker.Lock(context.Background(), lock.ConnectionKey(conn.SID()))
	require.NoError(t, err)

	type result struct {
		resp *dto.PortfolioResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := uc.Execute(context.Background(), PortfolioQuery{UserID: 7})
		done <- result{resp, err}
	}()

	<-repo.listed
	require.NoError(t, conn.Authenticate(testutil.Seal("tok-new"), "", &later, "", fixedNow))
	f.repo.Add(conn)
	release()

	res := <-done
	require.NoError(t, res.err)
	st := res.resp.Status[conn.SID()]
	assert.True(t, st.OK, "status %+v", st)
	require.Len(t, res.resp.Items, 1)
	assert.Equal(t, "TCS", res.resp.Items[0].Symbol)
}

func TestGetPositions_ConnectionDisconnectedWhileWaitingForLock(t *testing.T) {
	f := newPortfolioFixture(t)
	later := fixedNow.Add(6 * time.Hour)

	var calls atomic.Int32
	conn := f.seed(t, 7, vo.BrokerZerodha, &later, func(context.Context) ([]broker.Entry, error) {
		calls.Add(1)
		return nil, nil
	})

	repo := &listSignalRepo{MockBrokerConnectionRepository: f.repo, listed: make(chan struct{})}
	uc := NewGetPositionsUseCase(repo, f.clients, f.locker, AggregatorConfig{CallTimeout: 5 * time.Second}, testutil.NewMockLogger())
	uc.SetClock(func() time.Time { return fixedNow })

	release, err := f.locker.Lock(context.Background(), lock.ConnectionKey(conn.SID()))
	require.NoError(t, err)

	done := make(chan *dto.PortfolioResponse, 1)
	go func() {
		resp, _ := uc.Execute(context.Background(), PortfolioQuery{UserID: 7})
		done <- resp
	}()

	<-repo.listed
	conn.Disconnect(fixedNow)
	f.repo.Add(conn)
	release()

	resp := <-done
	require.NotNil(t, resp)
	assert.False(t, resp.Status[conn.SID()].OK)
	assert.Equal(t, "not_authenticated", resp.Status[conn.SID()].Error)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGetPositions_Normalization(t *testing.T) {
	f := newPortfolioFixture(t)
	conn := f.seed(t, 7, vo.BrokerAlpaca, nil, returns(
		broker.Entry{Symbol: "LONG", Exchange: "NSE", Quantity: 10, AveragePrice: 100, CurrentPrice: 110, Product: "CNC"},
		broker.Entry{Symbol: "SHORT", Exchange: "NSE", Quantity: -5, AveragePrice: 200, CurrentPrice: 190},
		broker.Entry{Symbol: "FLAT", Quantity: 0, AveragePrice: 50, CurrentPrice: 55},
		broker.Entry{Symbol: "REPORTED", Quantity: 1, AveragePrice: 0, CurrentPrice: 10, PnL: pnl(3.333)},
	))

	resp, err := f.positionsUseCase(AggregatorConfig{}).Execute(context.Background(), PortfolioQuery{UserID: 7})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3, "zero quantity entries are dropped")
	assert.Equal(t, 3, resp.Status[conn.SID()].Count)

	bySymbol := map[string]int{}
	for i, e := range resp.Items {
		bySymbol[e.Symbol] = i
	}

	long := resp.Items[bySymbol["LONG"]]
	assert.Equal(t, 100.0, long.PnL)
	assert.Equal(t, 10.0, long.PnLPercentage)
	assert.Equal(t, conn.SID(), long.ConnectionID)
	assert.Equal(t, "alpaca", long.BrokerName)
	assert.Equal(t, fixedNow, long.LastUpdated)

	short := resp.Items[bySymbol["SHORT"]]
	assert.Equal(t, 50.0, short.PnL)
	assert.Equal(t, 5.0, short.PnLPercentage)

	reported := resp.Items[bySymbol["REPORTED"]]
	assert.Equal(t, 3.33, reported.PnL)
	assert.Equal(t, 0.0, reported.PnLPercentage)
}

func TestGetPositions_ConnectionFilter(t *testing.T) {
	f := newPortfolioFixture(t)
	a := f.seed(t, 7, vo.BrokerAlpaca, nil, returns(broker.Entry{Symbol: "A", Quantity: 1, AveragePrice: 1, CurrentPrice: 1}))
	f.seed(t, 7, vo.BrokerAlpaca, nil, returns(broker.Entry{Symbol: "B", Quantity: 1, AveragePrice: 1, CurrentPrice: 1}))
	other := f.seed(t, 8, vo.BrokerAlpaca, nil, returns())

	uc := f.positionsUseCase(AggregatorConfig{})

	resp, err := uc.Execute(context.Background(), PortfolioQuery{UserID: 7, ConnectionID: a.SID()})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "A", resp.Items[0].Symbol)

	resp, err = uc.Execute(context.Background(), PortfolioQuery{UserID: 7, ConnectionID: "all"})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)

	_, err = uc.Execute(context.Background(), PortfolioQuery{UserID: 7, ConnectionID: other.SID()})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestGetPositions_SlowBrokerTimesOut(t *testing.T) {
	f := newPortfolioFixture(t)
	slow := f.seed(t, 7, vo.BrokerAlpaca, nil, func(ctx context.Context) ([]broker.Entry, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	fast := f.seed(t, 7, vo.BrokerAlpaca, nil, returns(broker.Entry{Symbol: "F", Quantity: 1, AveragePrice: 1, CurrentPrice: 2}))

	resp, err := f.positionsUseCase(AggregatorConfig{CallTimeout: 50 * time.Millisecond}).Execute(context.Background(), PortfolioQuery{UserID: 7})
	require.NoError(t, err)

	assert.Equal(t, "timeout", resp.Status[slow.SID()].Error)
	assert.True(t, resp.Status[fast.SID()].OK)
	assert.Len(t, resp.Items, 1)
}

func TestGetPositions_BoundsConcurrency(t *testing.T) {
	f := newPortfolioFixture(t)

	var inFlight, peak atomic.Int32
	fetch := func(context.Context) ([]broker.Entry, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}
	for i := 0; i < 5; i++ {
		f.seed(t, 7, vo.BrokerAlpaca, nil, fetch)
	}

	resp, err := f.positionsUseCase(AggregatorConfig{MaxConcurrency: 2}).Execute(context.Background(), PortfolioQuery{UserID: 7})
	require.NoError(t, err)
	assert.Len(t, resp.Status, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestGetHoldings_UsesHoldingsBook(t *testing.T) {
	f := newPortfolioFixture(t)
	f.seed(t, 7, vo.BrokerAlpaca, nil, returns(broker.Entry{Symbol: "H", Quantity: 3, AveragePrice: 10, CurrentPrice: 12}))

	uc := NewGetHoldingsUseCase(f.repo, f.clients, f.locker, AggregatorConfig{}, testutil.NewMockLogger())
	uc.SetClock(func() time.Time { return fixedNow })

	resp, err := uc.Execute(context.Background(), PortfolioQuery{UserID: 7})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 6.0, resp.Items[0].PnL)
}
