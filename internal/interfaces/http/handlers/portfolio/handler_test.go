package portfolio

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/application/portfolio/dto"
	"github.com/autotraderhub/autotrader/internal/application/portfolio/usecases"
	"github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/testutil"
	"github.com/autotraderhub/autotrader/internal/shared/constants"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

type mockPortfolioUC struct {
	calls  int
	got    usecases.PortfolioQuery
	result *dto.PortfolioResponse
	err    error
}

func (m *mockPortfolioUC) Execute(ctx context.Context, q usecases.PortfolioQuery) (*dto.PortfolioResponse, error) {
	m.calls++
	m.got = q
	return m.result, m.err
}

func samplePortfolio() *dto.PortfolioResponse {
	return &dto.PortfolioResponse{
		Items: []dto.PortfolioEntry{
			{Symbol: "INFY", Exchange: "NSE", Quantity: 10, BrokerName: "zerodha", ConnectionID: "bc_a"},
		},
		Status: map[string]dto.ConnectionStatus{
			"bc_a": {OK: true, BrokerName: "zerodha", Count: 1},
			"bc_b": {OK: false, BrokerName: "upstox", Error: "token_expired"},
		},
	}
}

func TestGetPositions(t *testing.T) {
	tests := []struct {
		name       string
		query      map[string]string
		wantStatus int
		wantCalled bool
		wantConnID string
	}{
		{"all connections by default", nil, http.StatusOK, true, ""},
		{"explicit all", map[string]string{constants.QueryConnectionID: "all"}, http.StatusOK, true, "all"},
		{"single connection", map[string]string{constants.QueryConnectionID: "bc_abc123"}, http.StatusOK, true, "bc_abc123"},
		{"malformed connection", map[string]string{constants.QueryConnectionID: "abc"}, http.StatusBadRequest, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positions := &mockPortfolioUC{result: samplePortfolio()}
			h := NewHandler(positions, &mockPortfolioUC{}, testutil.NewMockLogger())

			c, w := testutil.NewTestContext(http.MethodGet, "/portfolio/positions", nil)
			testutil.SetAuthContext(c, 7)
			if tt.query != nil {
				testutil.SetQueryParams(c, tt.query)
			}

			h.GetPositions(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, positions.calls == 1)
			if tt.wantCalled {
				assert.Equal(t, uint(7), positions.got.UserID)
				assert.Equal(t, tt.wantConnID, positions.got.ConnectionID)
			}
		})
	}
}

func TestGetPositions_ReportsPartialFailure(t *testing.T) {
	h := NewHandler(&mockPortfolioUC{result: samplePortfolio()}, &mockPortfolioUC{}, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/portfolio/positions", nil)
	testutil.SetAuthContext(c, 7)

	h.GetPositions(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))

	var data dto.PortfolioResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Len(t, data.Items, 1)
	assert.True(t, data.Status["bc_a"].OK)
	assert.False(t, data.Status["bc_b"].OK)
	assert.Equal(t, "token_expired", data.Status["bc_b"].Error)
}

func TestGetHoldings_UsesHoldingsUseCase(t *testing.T) {
	positions := &mockPortfolioUC{}
	holdings := &mockPortfolioUC{result: &dto.PortfolioResponse{Items: []dto.PortfolioEntry{}, Status: map[string]dto.ConnectionStatus{}}}
	h := NewHandler(positions, holdings, testutil.NewMockLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/portfolio/holdings", nil)
	testutil.SetAuthContext(c, 3)

	h.GetHoldings(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, holdings.calls)
	assert.Zero(t, positions.calls)
}

func TestGetHoldings_Errors(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		h := NewHandler(&mockPortfolioUC{}, &mockPortfolioUC{}, testutil.NewMockLogger())
		c, w := testutil.NewTestContext(http.MethodGet, "/portfolio/holdings", nil)

		h.GetHoldings(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown connection", func(t *testing.T) {
		holdings := &mockPortfolioUC{err: errors.NewNotFoundError("broker connection not found")}
		h := NewHandler(&mockPortfolioUC{}, holdings, testutil.NewMockLogger())
		c, w := testutil.NewTestContext(http.MethodGet, "/portfolio/holdings", nil)
		testutil.SetAuthContext(c, 3)
		testutil.SetQueryParams(c, map[string]string{constants.QueryConnectionID: "bc_gone"})

		h.GetHoldings(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
