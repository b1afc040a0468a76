package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker/alpaca"
)

func TestListBrokers(t *testing.T) {
	catalog, err := broker.LoadCatalog()
	require.NoError(t, err)

	registry := broker.NewRegistry(catalog, alpaca.New(alpaca.Config{}))
	got := NewListBrokersUseCase(registry).Execute()

	require.Len(t, got, 1)
	assert.Equal(t, "alpaca", got[0].Name)
	assert.Equal(t, "direct", got[0].AuthMode)
	assert.Empty(t, got[0].SessionCutover)
}
