package brokerconnection

import (
	"context"

	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/dto"
	"github.com/autotraderhub/autotrader/internal/application/brokerconnection/usecases"
)

// Use case interfaces for Handler - enables unit testing with mocks.

type createConnectionUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateBrokerConnectionCommand) (*dto.CreateBrokerConnectionResponse, error)
}

type listConnectionsUseCase interface {
	Execute(ctx context.Context, userID uint) (*dto.ListBrokerConnectionsResponse, error)
}

type getConnectionUseCase interface {
	Execute(ctx context.Context, sid string, userID uint) (*dto.BrokerConnectionResponse, error)
}

type reconnectConnectionUseCase interface {
	Execute(ctx context.Context, cmd usecases.ReconnectBrokerConnectionCommand) (*dto.LoginURLResponse, error)
}

type disconnectConnectionUseCase interface {
	Execute(ctx context.Context, sid string, userID uint) (*dto.BrokerConnectionResponse, error)
}

type deleteConnectionUseCase interface {
	Execute(ctx context.Context, sid string, userID uint) error
}

type testConnectionUseCase interface {
	Execute(ctx context.Context, sid string, userID uint) (*dto.TestConnectionResponse, error)
}

type completeCallbackUseCase interface {
	Execute(ctx context.Context, cmd usecases.CompleteBrokerCallbackCommand) (*dto.CallbackResult, error)
}

type listBrokersUseCase interface {
	Execute() []dto.BrokerInfo
}
