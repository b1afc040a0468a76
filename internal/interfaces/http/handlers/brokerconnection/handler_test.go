package brokerconnection

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/usecases"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/testutil"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
	"github.com/autotraderhub/autotrader/internal/shared/services/markdown"
)

func TestMain(m *testing.M) {
	if err := RegisterValidators(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// =====================================================================
// Mock use cases
// =====================================================================

type mockCreateUC struct {
	got    usecases.CreateBrokerConnectionCommand
	result *dto.CreateBrokerConnectionResponse
	err    error
}

func (m *mockCreateUC) Execute(ctx context.Context, cmd usecases.CreateBrokerConnectionCommand) (*dto.CreateBrokerConnectionResponse, error) {
	m.got = cmd
	return m.result, m.err
}

type mockListUC struct {
	result *dto.ListBrokerConnectionsResponse
	err    error
}

func (m *mockListUC) Execute(ctx context.Context, userID uint) (*dto.ListBrokerConnectionsResponse, error) {
	return m.result, m.err
}

// mockConnectionUC serves get, disconnect and test, which share a signature shape.
type mockConnectionUC struct {
	gotSID  string
	gotUser uint
	result  *dto.BrokerConnectionResponse
	err     error
}

func (m *mockConnectionUC) Execute(ctx context.Context, sid string, userID uint) (*dto.BrokerConnectionResponse, error) {
	m.gotSID, m.gotUser = sid, userID
	return m.result, m.err
}

type mockReconnectUC struct {
	got    usecases.ReconnectBrokerConnectionCommand
	result *dto.LoginURLResponse
	err    error
}

func (m *mockReconnectUC) Execute(ctx context.Context, cmd usecases.ReconnectBrokerConnectionCommand) (*dto.LoginURLResponse, error) {
	m.got = cmd
	return m.result, m.err
}

type mockDeleteUC struct {
	gotSID string
	err    error
}

func (m *mockDeleteUC) Execute(ctx context.Context, sid string, userID uint) error {
	m.gotSID = sid
	return m.err
}

type mockTestUC struct {
	result *dto.TestConnectionResponse
	err    error
}

func (m *mockTestUC) Execute(ctx context.Context, sid string, userID uint) (*dto.TestConnectionResponse, error) {
	return m.result, m.err
}

type mockCallbackUC struct {
	got    usecases.CompleteBrokerCallbackCommand
	result *dto.CallbackResult
	err    error
}

func (m *mockCallbackUC) Execute(ctx context.Context, cmd usecases.CompleteBrokerCallbackCommand) (*dto.CallbackResult, error) {
	m.got = cmd
	return m.result, m.err
}

type mockBrokersUC struct {
	result []dto.BrokerInfo
}

func (m *mockBrokersUC) Execute() []dto.BrokerInfo {
	return m.result
}

type handlerMocks struct {
	create     *mockCreateUC
	list       *mockListUC
	get        *mockConnectionUC
	reconnect  *mockReconnectUC
	disconnect *mockConnectionUC
	delete     *mockDeleteUC
	test       *mockTestUC
	callback   *mockCallbackUC
	brokers    *mockBrokersUC
}

func newTestHandler() (*Handler, *handlerMocks) {
	m := &handlerMocks{
		create:     &mockCreateUC{},
		list:       &mockListUC{},
		get:        &mockConnectionUC{},
		reconnect:  &mockReconnectUC{},
		disconnect: &mockConnectionUC{},
		delete:     &mockDeleteUC{},
		test:       &mockTestUC{},
		callback:   &mockCallbackUC{},
		brokers:    &mockBrokersUC{},
	}
	h := NewHandler(
		m.create, m.list, m.get, m.reconnect, m.disconnect, m.delete, m.test, m.callback, m.brokers,
		markdown.NewService(), "https://app.example.com/dashboard", testutil.NewMockLogger(),
	)
	return h, m
}

func parseAPI(t *testing.T, body []byte) testutil.APIResponse {
	t.Helper()
	var resp testutil.APIResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

// =====================================================================
// Create
// =====================================================================

func TestCreateConnection_Success(t *testing.T) {
	h, m := newTestHandler()
	m.create.result = &dto.CreateBrokerConnectionResponse{
		ConnectionID: "bc_abc123",
		WebhookURL:   "https://hooks.example.com/webhook/7/x",
		RequiresAuth: true,
		LoginURL:     "https://kite.zerodha.com/connect/login?v=3",
	}

	c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections", map[string]string{
		"broker_name": "Zerodha",
		"api_key":     "key",
		"api_secret":  "secret",
	})
	testutil.SetAuthContext(c, 7)

	h.CreateConnection(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := parseAPI(t, w.Body.Bytes())
	assert.True(t, resp.Success)

	var data dto.CreateBrokerConnectionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "bc_abc123", data.ConnectionID)
	assert.True(t, data.RequiresAuth)

	assert.Equal(t, uint(7), m.create.got.UserID)
	assert.Equal(t, "Zerodha", m.create.got.BrokerName)
	assert.Equal(t, "secret", m.create.got.APISecret)
}

func TestCreateConnection_RejectsInvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"unknown broker", map[string]string{"broker_name": "etrade", "api_key": "k", "api_secret": "s"}},
		{"missing key", map[string]string{"broker_name": "upstox", "api_secret": "s"}},
		{"missing secret", map[string]string{"broker_name": "alpaca", "api_key": "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newTestHandler()
			c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections", tt.body)
			testutil.SetAuthContext(c, 7)

			h.CreateConnection(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := parseAPI(t, w.Body.Bytes())
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(errors.ErrorTypeValidation), resp.Error.Type)
			assert.Empty(t, m.create.got.UserID)
		})
	}
}

func TestCreateConnection_RequiresAuth(t *testing.T) {
	h, _ := newTestHandler()
	c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections", map[string]string{"broker_name": "zerodha"})

	h.CreateConnection(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateConnection_LimitExceeded(t *testing.T) {
	h, m := newTestHandler()
	m.create.err = errors.NewLimitExceededError(5)

	c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections", map[string]string{
		"broker_name": "alpaca", "api_key": "k", "api_secret": "s",
	})
	testutil.SetAuthContext(c, 7)

	h.CreateConnection(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := parseAPI(t, w.Body.Bytes())
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.ErrorTypeLimitExceeded), resp.Error.Type)
}

// =====================================================================
// Read and lifecycle
// =====================================================================

func TestListConnections(t *testing.T) {
	h, m := newTestHandler()
	m.list.result = &dto.ListBrokerConnectionsResponse{
		Items:     []*dto.BrokerConnectionResponse{{ID: "bc_1", BrokerName: "upstox"}},
		Total:     1,
		MaxActive: 5,
	}

	c, w := testutil.NewTestContext(http.MethodGet, "/broker-connections", nil)
	testutil.SetAuthContext(c, 7)

	h.ListConnections(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var data dto.ListBrokerConnectionsResponse
	require.NoError(t, json.Unmarshal(parseAPI(t, w.Body.Bytes()).Data, &data))
	assert.Len(t, data.Items, 1)
	assert.Equal(t, 5, data.MaxActive)
}

func TestGetConnection(t *testing.T) {
	tests := []struct {
		name       string
		sid        string
		ucErr      error
		wantStatus int
	}{
		{"found", "bc_abc123", nil, http.StatusOK},
		{"wrong prefix", "node_abc123", nil, http.StatusBadRequest},
		{"not owned", "bc_abc123", errors.NewNotFoundError("broker connection not found"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newTestHandler()
			m.get.result = &dto.BrokerConnectionResponse{ID: tt.sid}
			m.get.err = tt.ucErr

			c, w := testutil.NewTestContext(http.MethodGet, "/broker-connections/"+tt.sid, nil)
			testutil.SetAuthContext(c, 7)
			testutil.SetURLParam(c, "id", tt.sid)

			h.GetConnection(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.sid, m.get.gotSID)
				assert.Equal(t, uint(7), m.get.gotUser)
			}
		})
	}
}

func TestReconnect_PassesIntent(t *testing.T) {
	h, m := newTestHandler()
	m.reconnect.result = &dto.LoginURLResponse{ConnectionID: "bc_abc123", LoginURL: "https://login", Intent: "refresh"}

	c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections/bc_abc123/reconnect", nil)
	testutil.SetAuthContext(c, 7)
	testutil.SetURLParam(c, "id", "bc_abc123")
	testutil.SetQueryParams(c, map[string]string{constants.QueryIntent: "refresh"})

	h.Reconnect(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refresh", m.reconnect.got.Intent)
	assert.Equal(t, "bc_abc123", m.reconnect.got.ConnectionID)
	assert.Equal(t, uint(7), m.reconnect.got.UserID)
}

func TestReconnect_DirectBrokerUnsupported(t *testing.T) {
	h, m := newTestHandler()
	m.reconnect.err = errors.NewUnsupportedOperationError("alpaca", "reconnect")

	c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections/bc_abc123/reconnect", nil)
	testutil.SetAuthContext(c, 7)
	testutil.SetURLParam(c, "id", "bc_abc123")

	h.Reconnect(c)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestDisconnect(t *testing.T) {
	h, m := newTestHandler()
	m.disconnect.result = &dto.BrokerConnectionResponse{ID: "bc_abc123", State: "disconnected"}

	c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections/bc_abc123/disconnect", nil)
	testutil.SetAuthContext(c, 7)
	testutil.SetURLParam(c, "id", "bc_abc123")

	h.Disconnect(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bc_abc123", m.disconnect.gotSID)
}

func TestDeleteConnection(t *testing.T) {
	h, m := newTestHandler()

	c, _ := testutil.NewTestContext(http.MethodDelete, "/broker-connections/bc_abc123", nil)
	testutil.SetAuthContext(c, 7)
	testutil.SetURLParam(c, "id", "bc_abc123")

	h.DeleteConnection(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "bc_abc123", m.delete.gotSID)
}

func TestTestConnection_UpstreamFailure(t *testing.T) {
	h, m := newTestHandler()
	m.test.err = errors.NewUpstreamFailureError("zerodha", fmt.Errorf("Incorrect `api_key` or `access_token`."))

	c, w := testutil.NewTestContext(http.MethodPost, "/broker-connections/bc_abc123/test", nil)
	testutil.SetAuthContext(c, 7)
	testutil.SetURLParam(c, "id", "bc_abc123")

	h.TestConnection(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := parseAPI(t, w.Body.Bytes())
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.ErrorTypeUpstreamFailure), resp.Error.Type)
}

func TestListBrokers(t *testing.T) {
	h, m := newTestHandler()
	m.brokers.result = []dto.BrokerInfo{
		{Name: "alpaca", DisplayName: "Alpaca", AuthMode: "direct"},
		{Name: "zerodha", DisplayName: "Zerodha", AuthMode: "oauth_redirect"},
	}

	c, w := testutil.NewTestContext(http.MethodGet, "/brokers", nil)

	h.ListBrokers(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var data []dto.BrokerInfo
	require.NoError(t, json.Unmarshal(parseAPI(t, w.Body.Bytes()).Data, &data))
	assert.Len(t, data, 2)
}

// =====================================================================
// Callback page
// =====================================================================

func TestCallback_SuccessPage(t *testing.T) {
	h, m := newTestHandler()
	expires := time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC)
	m.callback.result = &dto.CallbackResult{
		ConnectionID:   "bc_abc123",
		ConnectionName: "<script>alert(1)</script> Main",
		BrokerName:     "zerodha",
		Intent:         "initial",
		ExpiresAt:      &expires,
	}

	c, w := testutil.NewTestContext(http.MethodGet, "/broker-connections/callback/zerodha?status=success&request_token=rt", nil)
	testutil.SetURLParam(c, "broker", "zerodha")

	h.Callback(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, "Broker connected")
	assert.Contains(t, body, "ZERODHA")
	assert.Contains(t, body, "https://app.example.com/dashboard")
	assert.NotContains(t, body, "<script>")

	assert.Equal(t, "zerodha", m.callback.got.BrokerName)
	assert.Equal(t, "rt", m.callback.got.Query.Get("request_token"))
}

func TestCallback_FailurePages(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantText   string
	}{
		{
			name:       "user cancelled",
			err:        &usecases.CallbackError{Code: constants.CallbackErrorDenied},
			wantStatus: http.StatusBadRequest,
			wantText:   constants.GetCallbackErrorMessage(constants.CallbackErrorDenied),
		},
		{
			name:       "connection deleted",
			err:        &usecases.CallbackError{Code: constants.CallbackErrorUnknownConn},
			wantStatus: http.StatusNotFound,
			wantText:   constants.GetCallbackErrorMessage(constants.CallbackErrorUnknownConn),
		},
		{
			name:       "exchange rejected",
			err:        &usecases.CallbackError{Code: constants.CallbackErrorExchangeFailed, Cause: fmt.Errorf("token invalid")},
			wantStatus: http.StatusBadGateway,
			wantText:   constants.GetCallbackErrorMessage(constants.CallbackErrorExchangeFailed),
		},
		{
			name:       "active limit reached",
			err:        &usecases.CallbackError{Code: constants.CallbackErrorLimitExceeded},
			wantStatus: http.StatusConflict,
			wantText:   constants.GetCallbackErrorMessage(constants.CallbackErrorLimitExceeded),
		},
		{
			name:       "unclassified error",
			err:        fmt.Errorf("lock wait timed out"),
			wantStatus: http.StatusInternalServerError,
			wantText:   "dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newTestHandler()
			m.callback.err = tt.err

			c, w := testutil.NewTestContext(http.MethodGet, "/broker-connections/callback/upstox", nil)
			testutil.SetURLParam(c, "broker", "upstox")

			h.Callback(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, "Broker login failed")
			assert.Contains(t, body, tt.wantText)
			assert.NotContains(t, body, "token invalid")
		})
	}
}

func TestCallback_NoDashboardLinkWhenUnset(t *testing.T) {
	h, m := newTestHandler()
	h.dashboardURL = ""
	m.callback.err = &usecases.CallbackError{Code: constants.CallbackErrorInvalidState}

	c, w := testutil.NewTestContext(http.MethodGet, "/broker-connections/callback/upstox", nil)
	testutil.SetURLParam(c, "broker", "upstox")

	h.Callback(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "<a ")
}

