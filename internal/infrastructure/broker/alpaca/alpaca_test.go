package alpaca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	apperrors "github.com/autotraderhub/autotrader/internal/shared/errors"
)

var creds = broker.Credentials{APIKey: "PKTEST", APISecret: "secret"}

func newAlpacaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/positions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PKTEST", r.Header.Get("APCA-API-KEY-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"symbol":"AAPL","exchange":"NASDAQ","qty":"3","avg_entry_price":"180.5","side":"long",
			"current_price":"190.25","unrealized_pl":"29.251","cost_basis":"541.5","market_value":"570.75"}]`))
	})
	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"acct-uuid","account_number":"PA123","status":"ACTIVE","currency":"USD"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCapability_IsDirect(t *testing.T) {
	c := New(Config{})

	assert.Equal(t, vo.AuthModeDirect, c.AuthMode())
	assert.Nil(t, c.SessionExpiry(time.Now()))

	_, err := c.LoginURL(creds, "bc_1", vo.IntentReconnect)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnsupportedOperation))
	_, err = c.ParseCallback(url.Values{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnsupportedOperation))
	_, err = c.ExchangeRequestToken(context.Background(), creds, "rt")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnsupportedOperation))
}

func TestCapability_DirectSession(t *testing.T) {
	c := New(Config{})

	session, err := c.DirectSession(creds)
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotContains(t, session.AccessToken, creds.APISecret)

	_, err = c.DirectSession(broker.Credentials{APIKey: "PK"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMissingCredentials))
}

func TestClient_PositionsAndProfile(t *testing.T) {
	srv := newAlpacaServer(t)
	c := New(Config{BaseURL: srv.URL})

	cl, err := c.NewClient(creds, "ignored")
	require.NoError(t, err)

	positions, err := cl.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, 3.0, positions[0].Quantity)
	assert.Equal(t, 190.25, positions[0].CurrentPrice)
	require.NotNil(t, positions[0].PnL)
	assert.Equal(t, 29.25, *positions[0].PnL)

	holdings, err := cl.GetHoldings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, positions, holdings)

	profile, err := cl.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PA123", profile.UserName)
	assert.Equal(t, "acct-uuid", profile.UserID)
}
