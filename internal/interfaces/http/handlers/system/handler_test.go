package system

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/interfaces/http/handlers/testutil"
)

type healthBody struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

func TestHealthCheck(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return fmt.Errorf("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantState  string
	}{
		{"no dependencies", nil, http.StatusOK, "healthy"},
		{"all up", map[string]Pinger{"database": ok, "redis": ok}, http.StatusOK, "healthy"},
		{"redis down", map[string]Pinger{"database": ok, "redis": down}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.checks, testutil.NewMockLogger())
			c, w := testutil.NewTestContext(http.MethodGet, "/health", nil)

			h.HealthCheck(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body healthBody
			require.NoError(t, testutil.ParseResponse(w, &body))
			assert.Equal(t, tt.wantState, body.Status)
			assert.Len(t, body.Dependencies, len(tt.checks))
		})
	}
}

func TestVersion(t *testing.T) {
	h := NewHandler(nil, testutil.NewMockLogger())
	c, w := testutil.NewTestContext(http.MethodGet, "/version", nil)

	h.Version(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version"`)
}
