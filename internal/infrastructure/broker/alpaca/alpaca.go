// Package alpaca implements the Alpaca direct-key capability.
package alpaca

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	apperrors "github.com/autotraderhub/autotrader/internal/shared/errors"
)

// implicitSessionPrefix marks the stored session of a direct connection. The
// key pair itself authorizes every call.
const implicitSessionPrefix = "implicit:"

// Config holds Alpaca settings.
type Config struct {
	BaseURL string
}

// Capability is the Alpaca broker. It has no login flow and sessions never expire.
type Capability struct {
	cfg Config
}

var _ broker.Capability = (*Capability)(nil)

// New creates the Alpaca capability.
func New(cfg Config) *Capability {
	return &Capability{cfg: cfg}
}

func (c *Capability) Name() vo.BrokerName {
	return vo.BrokerAlpaca
}

func (c *Capability) AuthMode() vo.AuthMode {
	return vo.AuthModeDirect
}

func (c *Capability) unsupported(op string) error {
	return apperrors.NewUnsupportedOperationError(c.Name().String(), op)
}

func (c *Capability) LoginURL(broker.Credentials, string, vo.Intent) (string, error) {
	return "", c.unsupported("browser login")
}

func (c *Capability) ParseCallback(url.Values) (broker.CallbackParams, error) {
	return broker.CallbackParams{}, c.unsupported("login callback")
}

func (c *Capability) ExchangeRequestToken(context.Context, broker.Credentials, string) (*broker.Session, error) {
	return nil, c.unsupported("token exchange")
}

// DirectSession returns the implicit session bound to the key ID.
func (c *Capability) DirectSession(creds broker.Credentials) (*broker.Session, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, apperrors.NewMissingCredentialsError(c.Name().String())
	}
	return &broker.Session{AccessToken: implicitSessionPrefix + creds.APIKey}, nil
}

func (c *Capability) SessionExpiry(time.Time) *time.Time {
	return nil
}

// NewClient builds a REST client from the key pair.
func (c *Capability) NewClient(creds broker.Credentials, _ string) (broker.Client, error) {
	if creds.APIKey == "" || creds.APISecret == "" {
		return nil, apperrors.NewMissingCredentialsError(c.Name().String())
	}
	return &client{api: alpacaapi.NewClient(alpacaapi.ClientOpts{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
		BaseURL:   c.cfg.BaseURL,
	})}, nil
}

type client struct {
	api *alpacaapi.Client
}

func (a *client) GetProfile(ctx context.Context) (*brokerconnection.Profile, error) {
	acct, err := a.api.GetAccount()
	if err != nil {
		return nil, mapError(err)
	}
	return &brokerconnection.Profile{
		UserName: acct.AccountNumber,
		UserID:   acct.ID,
		Broker:   "ALPACA",
	}, nil
}

func (a *client) GetPositions(ctx context.Context) ([]broker.Entry, error) {
	positions, err := a.api.GetPositions()
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]broker.Entry, 0, len(positions))
	for _, p := range positions {
		out = append(out, toEntry(p))
	}
	return out, nil
}

// GetHoldings reports the same book as GetPositions. Alpaca does not split
// delivery holdings from open positions.
func (a *client) GetHoldings(ctx context.Context) ([]broker.Entry, error) {
	return a.GetPositions(ctx)
}

func toEntry(p alpacaapi.Position) broker.Entry {
	e := broker.Entry{
		Symbol:       p.Symbol,
		Exchange:     p.Exchange,
		Quantity:     p.Qty.InexactFloat64(),
		AveragePrice: p.AvgEntryPrice.InexactFloat64(),
		Product:      p.Side,
	}
	if p.CurrentPrice != nil {
		e.CurrentPrice = p.CurrentPrice.InexactFloat64()
	}
	if p.UnrealizedPL != nil {
		pnl := p.UnrealizedPL.Round(2).InexactFloat64()
		e.PnL = &pnl
	}
	return e
}

// mapError turns a 401/403 into a missing-credentials error; everything else is upstream.
func mapError(err error) error {
	var apiErr *alpacaapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return apperrors.NewMissingCredentialsError(vo.BrokerAlpaca.String())
		}
	}
	return err
}
