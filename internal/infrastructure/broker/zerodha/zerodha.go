// Package zerodha implements the Kite Connect capability.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/shared/biztime"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	apperrors "github.com/autotraderhub/autotrader/internal/shared/errors"
)

// Config holds Kite Connect settings.
type Config struct {
	// BaseURI overrides the Kite API root, mainly for tests.
	BaseURI     string
	HTTPTimeout time.Duration
}

// Capability is the Zerodha Kite Connect broker.
type Capability struct {
	cfg     Config
	cutover biztime.DailyCutover
	httpc   *http.Client
}

var _ broker.Capability = (*Capability)(nil)

// New creates the Zerodha capability. Kite sessions end at the catalog cutover.
func New(cfg Config, entry broker.CatalogEntry) (*Capability, error) {
	cutover, ok, err := entry.Cutover()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("zerodha: catalog entry has no session cutover")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &Capability{
		cfg:     cfg,
		cutover: cutover,
		httpc:   &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

func (c *Capability) Name() vo.BrokerName {
	return vo.BrokerZerodha
}

func (c *Capability) AuthMode() vo.AuthMode {
	return vo.AuthModeOAuthRedirect
}

func (c *Capability) kite(apiKey string) *kiteconnect.Client {
	kc := kiteconnect.New(apiKey)
	kc.SetHTTPClient(c.httpc)
	if c.cfg.BaseURI != "" {
		kc.SetBaseURI(c.cfg.BaseURI)
	}
	return kc
}

// LoginURL appends redirect_params so Kite echoes the connection and intent
// back on the registered redirect URL.
func (c *Capability) LoginURL(creds broker.Credentials, connectionID string, intent vo.Intent) (string, error) {
	if creds.APIKey == "" {
		return "", apperrors.NewMissingCredentialsError(c.Name().String())
	}
	params := url.Values{}
	params.Set(constants.QueryConnectionID, connectionID)
	params.Set(constants.QueryIntent, intent.String())

	return c.kite(creds.APIKey).GetLoginURL() + "&redirect_params=" + url.QueryEscape(params.Encode()), nil
}

// ParseCallback reads request_token, status and the echoed redirect params.
func (c *Capability) ParseCallback(query url.Values) (broker.CallbackParams, error) {
	intent, err := vo.ParseIntent(query.Get(constants.QueryIntent))
	if err != nil {
		return broker.CallbackParams{}, apperrors.NewValidationError("invalid intent", query.Get(constants.QueryIntent))
	}
	return broker.CallbackParams{
		RequestToken: query.Get("request_token"),
		Status:       strings.ToLower(query.Get("status")),
		ConnectionID: query.Get(constants.QueryConnectionID),
		Intent:       intent,
	}, nil
}

// ExchangeRequestToken calls /session/token with the request token checksum.
func (c *Capability) ExchangeRequestToken(ctx context.Context, creds broker.Credentials, requestToken string) (*broker.Session, error) {
	session, err := c.kite(creds.APIKey).GenerateSession(requestToken, creds.APISecret)
	if err != nil {
		return nil, apperrors.NewAuthenticationFailedError(c.Name().String(), err)
	}
	if session.AccessToken == "" {
		return nil, apperrors.NewAuthenticationFailedError(c.Name().String(), errors.New("empty access token"))
	}

	return &broker.Session{
		AccessToken:  session.AccessToken,
		PublicToken:  session.PublicToken,
		BrokerUserID: session.UserID,
		Profile: &brokerconnection.Profile{
			UserName: session.UserName,
			UserID:   session.UserID,
			Email:    session.Email,
			Broker:   session.Broker,
		},
	}, nil
}

func (c *Capability) DirectSession(broker.Credentials) (*broker.Session, error) {
	return nil, apperrors.NewUnsupportedOperationError(c.Name().String(), "direct session")
}

// SessionExpiry returns the next-day cutover in IST.
func (c *Capability) SessionExpiry(now time.Time) *time.Time {
	t := c.cutover.NextDayUTC(now)
	return &t
}

// NewClient binds a Kite client to the stored access token.
func (c *Capability) NewClient(creds broker.Credentials, accessToken string) (broker.Client, error) {
	if creds.APIKey == "" {
		return nil, apperrors.NewMissingCredentialsError(c.Name().String())
	}
	if accessToken == "" {
		return nil, apperrors.NewNotAuthenticatedError(c.Name().String())
	}
	kc := c.kite(creds.APIKey)
	kc.SetAccessToken(accessToken)
	return &client{kc: kc}, nil
}

type client struct {
	kc *kiteconnect.Client
}

func (k *client) GetProfile(ctx context.Context) (*brokerconnection.Profile, error) {
	p, err := k.kc.GetUserProfile()
	if err != nil {
		return nil, mapError(err)
	}
	return &brokerconnection.Profile{
		UserName: p.UserName,
		UserID:   p.UserID,
		Email:    p.Email,
		Broker:   p.Broker,
	}, nil
}

// GetPositions returns the net book.
func (k *client) GetPositions(ctx context.Context) ([]broker.Entry, error) {
	positions, err := k.kc.GetPositions()
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]broker.Entry, 0, len(positions.Net))
	for _, p := range positions.Net {
		pnl := p.PnL
		out = append(out, broker.Entry{
			Symbol:       p.Tradingsymbol,
			Exchange:     p.Exchange,
			Quantity:     float64(p.Quantity),
			AveragePrice: p.AveragePrice,
			CurrentPrice: p.LastPrice,
			PnL:          &pnl,
			Product:      p.Product,
		})
	}
	return out, nil
}

func (k *client) GetHoldings(ctx context.Context) ([]broker.Entry, error) {
	holdings, err := k.kc.GetHoldings()
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]broker.Entry, 0, len(holdings))
	for _, h := range holdings {
		pnl := h.PnL
		out = append(out, broker.Entry{
			Symbol:       h.Tradingsymbol,
			Exchange:     h.Exchange,
			Quantity:     float64(h.Quantity),
			AveragePrice: h.AveragePrice,
			CurrentPrice: h.LastPrice,
			PnL:          &pnl,
			Product:      h.Product,
		})
	}
	return out, nil
}

// mapError turns a Kite TokenException into a token-expired error.
func mapError(err error) error {
	var kerr kiteconnect.Error
	if errors.As(err, &kerr) && kerr.ErrorType == kiteconnect.TokenError {
		return apperrors.NewBrokerTokenExpiredError(vo.BrokerZerodha.String())
	}
	return err
}
