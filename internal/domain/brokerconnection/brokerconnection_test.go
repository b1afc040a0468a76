package brokerconnection

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func fixedSID(sid string) func() (string, error) {
	return func() (string, error) { return sid, nil }
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestConnection(t *testing.T, broker vo.BrokerName) *BrokerConnection {
	t.Helper()
	conn, err := NewBrokerConnection(7, broker, "", "enc-key", "enc-secret", "AB1234", "0d5c0a52-0000-4000-8000-000000000001", testNow, fixedSID("bc_test"))
	require.NoError(t, err)
	return conn
}

func withExpiry(t *testing.T, expiresAt time.Time) *BrokerConnection {
	t.Helper()
	conn := newTestConnection(t, vo.BrokerZerodha)
	require.NoError(t, conn.Authenticate("enc-access", "enc-public", &expiresAt, "", testNow))
	return conn
}

// ---------------------------------------------------------------------------
// Constructor
// ---------------------------------------------------------------------------

func TestNewBrokerConnection_Defaults(t *testing.T) {
	conn := newTestConnection(t, vo.BrokerZerodha)

	assert.Equal(t, "bc_test", conn.SID())
	assert.True(t, conn.IsActive())
	assert.False(t, conn.IsAuthenticated())
	assert.Nil(t, conn.AccessTokenExpiresAt())
	assert.Equal(t, "Zerodha Connection 2026-03-10 09:00:00", conn.ConnectionName())
	assert.Equal(t, vo.StatePendingAuth, conn.State(testNow))
}

func TestNewBrokerConnection_Validation(t *testing.T) {
	tests := []struct {
		name    string
		userID  uint
		broker  vo.BrokerName
		key     string
		webhook string
		sidGen  func() (string, error)
	}{
		{"missing user", 0, vo.BrokerUpstox, "k", "w", fixedSID("bc_1")},
		{"unknown broker", 1, vo.BrokerName("etrade"), "k", "w", fixedSID("bc_1")},
		{"missing key", 1, vo.BrokerUpstox, "", "w", fixedSID("bc_1")},
		{"missing webhook", 1, vo.BrokerUpstox, "k", "", fixedSID("bc_1")},
		{"sid failure", 1, vo.BrokerUpstox, "k", "w", func() (string, error) { return "", fmt.Errorf("entropy") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBrokerConnection(tt.userID, tt.broker, "x", tt.key, "s", "", tt.webhook, testNow, tt.sidGen)
			assert.Error(t, err)
		})
	}
}

func TestNewBrokerConnection_KeepsExplicitName(t *testing.T) {
	conn, err := NewBrokerConnection(1, vo.BrokerAlpaca, "  Paper account ", "k", "s", "", "w", testNow, fixedSID("bc_1"))
	require.NoError(t, err)
	assert.Equal(t, "Paper account", conn.ConnectionName())
}

// ---------------------------------------------------------------------------
// Derived state
// ---------------------------------------------------------------------------

func TestBrokerConnection_ExpiryWindows(t *testing.T) {
	tests := []struct {
		name        string
		expiresIn   time.Duration
		wantExpired bool
		wantRefresh bool
		wantState   vo.State
	}{
		{"thirty minutes left", 30 * time.Minute, false, true, vo.StateTokenExpiringSoon},
		{"exactly at expiry", 0, false, true, vo.StateTokenExpiringSoon},
		{"just under an hour", 59*time.Minute + 59*time.Second, false, true, vo.StateTokenExpiringSoon},
		{"exactly one hour", time.Hour, false, false, vo.StateAuthenticated},
		{"one day left", 24 * time.Hour, false, false, vo.StateAuthenticated},
		{"expired a second ago", -time.Second, true, false, vo.StateTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := withExpiry(t, testNow.Add(tt.expiresIn))

			assert.True(t, conn.IsAuthenticated())
			assert.Equal(t, tt.wantExpired, conn.TokenExpired(testNow))
			assert.Equal(t, tt.wantRefresh, conn.NeedsTokenRefresh(testNow))
			assert.Equal(t, tt.wantState, conn.State(testNow))
		})
	}
}

func TestBrokerConnection_NoExpiryNeverExpires(t *testing.T) {
	conn := newTestConnection(t, vo.BrokerAlpaca)
	require.NoError(t, conn.Authenticate("enc-session", "", nil, "", testNow))

	far := testNow.AddDate(5, 0, 0)
	assert.False(t, conn.TokenExpired(far))
	assert.False(t, conn.NeedsTokenRefresh(far))
	assert.Equal(t, vo.StateAuthenticated, conn.State(far))
}

func TestBrokerConnection_WebhookURL(t *testing.T) {
	conn := newTestConnection(t, vo.BrokerUpstox)

	url := conn.WebhookURL("https://hooks.example.com/")
	assert.Equal(t, "https://hooks.example.com/webhook/7/"+conn.WebhookID(), url)

	require.NoError(t, conn.Authenticate("a", "", nil, "", testNow))
	conn.Disconnect(testNow)
	assert.Equal(t, url, conn.WebhookURL("https://hooks.example.com"))
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

func TestBrokerConnection_Authenticate(t *testing.T) {
	conn := newTestConnection(t, vo.BrokerZerodha)
	conn.Disconnect(testNow)

	ist := time.FixedZone("IST", 5*3600+1800)
	expires := time.Date(2026, 3, 11, 6, 0, 0, 0, ist)
	require.NoError(t, conn.Authenticate("enc-access", "enc-public", &expires, "ZX9", testNow))

	assert.True(t, conn.IsActive())
	assert.Equal(t, "ZX9", conn.BrokerUserID())
	assert.Equal(t, time.UTC, conn.AccessTokenExpiresAt().Location())
	assert.True(t, conn.AccessTokenExpiresAt().Equal(expires))

	assert.Error(t, conn.Authenticate("", "", nil, "", testNow))
}

func TestBrokerConnection_DisconnectIsIdempotent(t *testing.T) {
	conn := withExpiry(t, testNow.Add(2*time.Hour))

	later := testNow.Add(time.Minute)
	conn.Disconnect(later)
	assert.False(t, conn.IsActive())
	assert.Nil(t, conn.AccessTokenExpiresAt())
	assert.Equal(t, later, conn.UpdatedAt())

	conn.Disconnect(later.Add(time.Hour))
	assert.Equal(t, later, conn.UpdatedAt())
	assert.Equal(t, vo.StateDisconnected, conn.State(later))
}

func TestBrokerConnection_RecordProfile(t *testing.T) {
	conn := newTestConnection(t, vo.BrokerZerodha)

	conn.RecordProfile(Profile{UserName: "Asha", UserID: "QX11", Email: "a@example.com", Broker: "ZERODHA"}, testNow)

	require.NotNil(t, conn.Profile())
	assert.Equal(t, "Asha", conn.Profile().UserName)
	assert.Equal(t, "QX11", conn.BrokerUserID())
	require.NotNil(t, conn.LastSync())
	assert.True(t, conn.LastSync().Equal(testNow))
}

func TestDefaultConnectionName(t *testing.T) {
	name := DefaultConnectionName(vo.BrokerUpstox, testNow)
	assert.True(t, strings.HasPrefix(name, "Upstox Connection "))
}
