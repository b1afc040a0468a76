package usecases

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/autotraderhub/autotrader/internal/application/portfolio/dto"
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/lock"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

const (
	defaultMaxConcurrency = 4
	defaultCallTimeout    = 10 * time.Second

	statusTimeout  = "timeout"
	statusUpstream = string(errors.ErrorTypeUpstreamFailure)
)

// ClientSource builds trading API handles for stored connections.
type ClientSource interface {
	ClientFor(conn *brokerconnection.BrokerConnection) (broker.Client, error)
	Invalidate(sid string)
}

// AggregatorConfig bounds the fan-out.
type AggregatorConfig struct {
	MaxConcurrency int
	CallTimeout    time.Duration
}

// PortfolioQuery selects whose portfolio to aggregate. ConnectionID narrows
// the result to one connection; empty or "all" selects every connection.
type PortfolioQuery struct {
	UserID       uint
	ConnectionID string
}

type fetchFunc func(ctx context.Context, client broker.Client) ([]broker.Entry, error)

// aggregator fetches entries from every usable connection of a user. One
// connection failing is reported in the status map and never fails the call.
type aggregator struct {
	repo    brokerconnection.Repository
	clients ClientSource
	locker  lock.Locker
	cfg     AggregatorConfig
	now     func() time.Time
	logger  logger.Interface
}

func newAggregator(repo brokerconnection.Repository, clients ClientSource, locker lock.Locker, cfg AggregatorConfig, logger logger.Interface) *aggregator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &aggregator{
		repo:    repo,
		clients: clients,
		locker:  locker,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

func (a *aggregator) aggregate(ctx context.Context, q PortfolioQuery, kind string, fetch fetchFunc) (*dto.PortfolioResponse, error) {
	targets, err := a.selectConnections(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([][]dto.PortfolioEntry, len(targets))
	status := make(map[string]dto.ConnectionStatus, len(targets))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(a.cfg.MaxConcurrency)

	for i, conn := range targets {
		base := dto.ConnectionStatus{
			BrokerName:     conn.BrokerName().String(),
			ConnectionName: conn.ConnectionName(),
		}

		g.Go(func() error {
			entries, current, err := a.fetchOne(ctx, q.UserID, conn.SID(), fetch)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				base.Error, base.Message = describeFailure(err)
				status[conn.SID()] = base
				a.logger.Warnw("broker fetch failed",
					"kind", kind,
					"sid", conn.SID(),
					"broker", conn.BrokerName(),
					"error", err,
				)
				return nil
			}

			results[i] = normalize(entries, current, a.now())
			base.OK = true
			base.Count = len(results[i])
			status[conn.SID()] = base
			return nil
		})
	}
	_ = g.Wait()

	items := make([]dto.PortfolioEntry, 0)
	for _, r := range results {
		items = append(items, r...)
	}

	return &dto.PortfolioResponse{Items: items, Status: status}, nil
}

func (a *aggregator) selectConnections(ctx context.Context, q PortfolioQuery) ([]*brokerconnection.BrokerConnection, error) {
	conns, err := a.repo.ListActiveByUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	filter := q.ConnectionID
	if filter == constants.ConnectionFilterAll {
		filter = ""
	}

	out := make([]*brokerconnection.BrokerConnection, 0, len(conns))
	found := false
	for _, c := range conns {
		if filter != "" && c.SID() != filter {
			continue
		}
		found = true
		if c.IsAuthenticated() {
			out = append(out, c)
		}
	}
	if filter != "" && !found {
		return nil, errors.NewNotFoundError("broker connection not found", filter)
	}
	return out, nil
}

// fetchOne reloads the connection under its lock so the token used for the
// call is the one stored at that moment, never a snapshot taken before a
// concurrent rotation.
func (a *aggregator) fetchOne(ctx context.Context, userID uint, sid string, fetch fetchFunc) ([]broker.Entry, *brokerconnection.BrokerConnection, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	var (
		entries []broker.Entry
		conn    *brokerconnection.BrokerConnection
	)
	err := lock.WithLock(callCtx, a.locker, lock.ConnectionKey(sid), func(ctx context.Context) error {
		var err error
		conn, err = a.repo.GetBySIDAndUser(ctx, sid, userID)
		if err != nil {
			return err
		}

		name := conn.BrokerName().String()
		if !conn.IsActive() || !conn.IsAuthenticated() {
			return errors.NewNotAuthenticatedError(name)
		}
		if conn.TokenExpired(a.now()) {
			return errors.NewBrokerTokenExpiredError(name)
		}

		client, err := a.clients.ClientFor(conn)
		if err != nil {
			return err
		}
		entries, err = fetch(ctx, client)
		if errors.IsType(err, errors.ErrorTypeTokenExpired) {
			a.clients.Invalidate(sid)
		}
		return err
	})
	return entries, conn, err
}

func describeFailure(err error) (code, message string) {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, lock.ErrLockTimeout) {
		return statusTimeout, "Broker did not respond in time"
	}
	if appErr := errors.GetAppError(err); appErr != nil {
		return string(appErr.Type), appErr.Message
	}
	return statusUpstream, "Broker request failed"
}

// normalize drops flat entries and fills in P&L where the broker left it out.
func normalize(entries []broker.Entry, conn *brokerconnection.BrokerConnection, at time.Time) []dto.PortfolioEntry {
	out := make([]dto.PortfolioEntry, 0, len(entries))
	for _, e := range entries {
		if e.Quantity == 0 {
			continue
		}

		qty := decimal.NewFromFloat(e.Quantity)
		avg := decimal.NewFromFloat(e.AveragePrice)
		investment := qty.Abs().Mul(avg)

		var pnl decimal.Decimal
		if e.PnL != nil {
			pnl = decimal.NewFromFloat(*e.PnL)
		} else {
			current := qty.Abs().Mul(decimal.NewFromFloat(e.CurrentPrice))
			pnl = current.Sub(investment).Mul(decimal.NewFromInt(int64(qty.Sign())))
		}

		pct := decimal.Zero
		if !investment.IsZero() {
			pct = pnl.Div(investment).Mul(decimal.NewFromInt(100))
		}

		out = append(out, dto.PortfolioEntry{
			Symbol:         e.Symbol,
			Exchange:       e.Exchange,
			Quantity:       e.Quantity,
			AveragePrice:   e.AveragePrice,
			CurrentPrice:   e.CurrentPrice,
			PnL:            pnl.Round(2).InexactFloat64(),
			PnLPercentage:  pct.Round(2).InexactFloat64(),
			Product:        e.Product,
			LastUpdated:    at.UTC(),
			BrokerName:     conn.BrokerName().String(),
			ConnectionID:   conn.SID(),
			ConnectionName: conn.ConnectionName(),
		})
	}
	return out
}
