// Package upstox implements the Upstox v2 capability on top of the standard
// OAuth2 authorization code flow.
package upstox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/shared/biztime"
	apperrors "github.com/autotraderhub/autotrader/internal/shared/errors"
)

// Config holds Upstox app settings.
type Config struct {
	RedirectURL string
	AuthURL     string
	TokenURL    string
	APIBaseURL  string
	// StateSecret signs the OAuth state parameter.
	StateSecret string
	HTTPTimeout time.Duration
}

// Capability is the Upstox broker.
type Capability struct {
	cfg     Config
	cutover biztime.DailyCutover
	state   *stateSigner
	httpc   *http.Client
}

var _ broker.Capability = (*Capability)(nil)

// New creates the Upstox capability.
func New(cfg Config, entry broker.CatalogEntry, now func() time.Time) (*Capability, error) {
	cutover, ok, err := entry.Cutover()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("upstox: catalog entry has no session cutover")
	}
	if cfg.StateSecret == "" {
		return nil, fmt.Errorf("upstox: state secret is required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &Capability{
		cfg:     cfg,
		cutover: cutover,
		state:   &stateSigner{secret: []byte(cfg.StateSecret), now: now},
		httpc:   &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

func (c *Capability) Name() vo.BrokerName {
	return vo.BrokerUpstox
}

func (c *Capability) AuthMode() vo.AuthMode {
	return vo.AuthModeOAuthRedirect
}

func (c *Capability) oauthConfig(creds broker.Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.APIKey,
		ClientSecret: creds.APISecret,
		RedirectURL:  c.cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthURL,
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Capability) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpc)
}

// LoginURL builds the authorization dialog URL with a signed state.
func (c *Capability) LoginURL(creds broker.Credentials, connectionID string, intent vo.Intent) (string, error) {
	if creds.APIKey == "" {
		return "", apperrors.NewMissingCredentialsError(c.Name().String())
	}
	state, err := c.state.sign(connectionID, intent)
	if err != nil {
		return "", err
	}
	return c.oauthConfig(creds).AuthCodeURL(state), nil
}

// ParseCallback verifies the state and maps `code` to the request token.
// Upstox reports a refusal through `error` rather than a status field.
func (c *Capability) ParseCallback(query url.Values) (broker.CallbackParams, error) {
	claims, err := c.state.verify(query.Get("state"))
	if err != nil {
		return broker.CallbackParams{}, apperrors.NewValidationError("invalid oauth state", err.Error())
	}

	status := broker.CallbackStatusSuccess
	if e := query.Get("error"); e != "" {
		status = strings.ToLower(e)
	}

	return broker.CallbackParams{
		RequestToken: query.Get("code"),
		Status:       status,
		ConnectionID: claims.ConnectionID,
		Intent:       claims.Intent,
	}, nil
}

// ExchangeRequestToken redeems the authorization code.
func (c *Capability) ExchangeRequestToken(ctx context.Context, creds broker.Credentials, requestToken string) (*broker.Session, error) {
	token, err := c.oauthConfig(creds).Exchange(c.withHTTPClient(ctx), requestToken)
	if err != nil {
		return nil, apperrors.NewAuthenticationFailedError(c.Name().String(), err)
	}
	if token.AccessToken == "" {
		return nil, apperrors.NewAuthenticationFailedError(c.Name().String(), errors.New("empty access token"))
	}

	userID, _ := token.Extra("user_id").(string)
	userName, _ := token.Extra("user_name").(string)
	email, _ := token.Extra("email").(string)
	brk, _ := token.Extra("broker").(string)

	return &broker.Session{
		AccessToken:  token.AccessToken,
		BrokerUserID: userID,
		Profile: &brokerconnection.Profile{
			UserName: userName,
			UserID:   userID,
			Email:    email,
			Broker:   brk,
		},
	}, nil
}

func (c *Capability) DirectSession(broker.Credentials) (*broker.Session, error) {
	return nil, apperrors.NewUnsupportedOperationError(c.Name().String(), "direct session")
}

// SessionExpiry returns the next-day 03:30 IST cutover.
func (c *Capability) SessionExpiry(now time.Time) *time.Time {
	t := c.cutover.NextDayUTC(now)
	return &t
}

// NewClient returns an API handle authorized with the stored bearer token.
func (c *Capability) NewClient(creds broker.Credentials, accessToken string) (broker.Client, error) {
	if accessToken == "" {
		return nil, apperrors.NewNotAuthenticatedError(c.Name().String())
	}
	ctx := c.withHTTPClient(context.Background())
	httpc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	httpc.Timeout = c.cfg.HTTPTimeout
	return &client{http: httpc, baseURL: strings.TrimRight(c.cfg.APIBaseURL, "/")}, nil
}

type client struct {
	http    *http.Client
	baseURL string
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		ErrorCode string `json:"errorCode"`
		Message   string `json:"message"`
	} `json:"errors"`
}

type profileData struct {
	Email    string `json:"email"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Broker   string `json:"broker"`
}

type entryData struct {
	TradingSymbol string   `json:"trading_symbol"`
	Tradingsymbol string   `json:"tradingsymbol"`
	Exchange      string   `json:"exchange"`
	Product       string   `json:"product"`
	Quantity      float64  `json:"quantity"`
	AveragePrice  float64  `json:"average_price"`
	LastPrice     float64  `json:"last_price"`
	PnL           *float64 `json:"pnl"`
}

func (e entryData) toEntry() broker.Entry {
	symbol := e.TradingSymbol
	if symbol == "" {
		symbol = e.Tradingsymbol
	}
	return broker.Entry{
		Symbol:       symbol,
		Exchange:     e.Exchange,
		Quantity:     e.Quantity,
		AveragePrice: e.AveragePrice,
		CurrentPrice: e.LastPrice,
		PnL:          e.PnL,
		Product:      e.Product,
	}
}

func (u *client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstox request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.NewBrokerTokenExpiredError(vo.BrokerUpstox.String())
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("upstox %s: status %d: %w", path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || env.Status != "success" {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if len(env.Errors) > 0 {
			msg = env.Errors[0].Message
		}
		return fmt.Errorf("upstox %s: %s", path, msg)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("upstox %s: decode data: %w", path, err)
	}
	return nil
}

func (u *client) GetProfile(ctx context.Context) (*brokerconnection.Profile, error) {
	var p profileData
	if err := u.get(ctx, "/user/profile", &p); err != nil {
		return nil, err
	}
	return &brokerconnection.Profile{UserName: p.UserName, UserID: p.UserID, Email: p.Email, Broker: p.Broker}, nil
}

func (u *client) GetPositions(ctx context.Context) ([]broker.Entry, error) {
	return u.entries(ctx, "/portfolio/short-term-positions")
}

func (u *client) GetHoldings(ctx context.Context) ([]broker.Entry, error) {
	return u.entries(ctx, "/portfolio/long-term-holdings")
}

func (u *client) entries(ctx context.Context, path string) ([]broker.Entry, error) {
	var rows []entryData
	if err := u.get(ctx, path, &rows); err != nil {
		return nil, err
	}
	out := make([]broker.Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntry())
	}
	return out, nil
}
