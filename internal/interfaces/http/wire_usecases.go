package http

import (
	bcUsecases "github.com/autotraderhub/autotrader/internal/application/brokerconnection/usecases"
	portfolioUsecases "github.com/autotraderhub/autotrader/internal/application/portfolio/usecases"
	shareddb "github.com/autotraderhub/autotrader/internal/shared/db"
)

// allUseCases holds the use case instances that back the HTTP handlers.
type allUseCases struct {
	// Broker connections
	createConnectionUC     *bcUsecases.CreateBrokerConnectionUseCase
	listConnectionsUC      *bcUsecases.ListBrokerConnectionsUseCase
	getConnectionUC        *bcUsecases.GetBrokerConnectionUseCase
	reconnectConnectionUC  *bcUsecases.ReconnectBrokerConnectionUseCase
	disconnectConnectionUC *bcUsecases.DisconnectBrokerConnectionUseCase
	deleteConnectionUC     *bcUsecases.DeleteBrokerConnectionUseCase
	testConnectionUC       *bcUsecases.TestBrokerConnectionUseCase
	completeCallbackUC     *bcUsecases.CompleteBrokerCallbackUseCase
	listBrokersUC          *bcUsecases.ListBrokersUseCase

	// Portfolio
	getPositionsUC *portfolioUsecases.GetPositionsUseCase
	getHoldingsUC  *portfolioUsecases.GetHoldingsUseCase
}

func (c *Container) newUseCases() *allUseCases {
	cfg := c.cfg
	log := c.log
	repo := c.repos.brokerConnectionRepo
	txMgr := shareddb.NewTransactionManager(c.db)

	webhookBaseURL := cfg.Server.WebhookBaseURL
	maxActive := cfg.Connection.MaxActivePerUser

	aggCfg := portfolioUsecases.AggregatorConfig{
		MaxConcurrency: cfg.Aggregator.MaxConcurrency,
		CallTimeout:    cfg.Aggregator.CallTimeout,
	}

	return &allUseCases{
		createConnectionUC: bcUsecases.NewCreateBrokerConnectionUseCase(
			repo, c.registry, c.cipher, c.locker, txMgr, c.events, webhookBaseURL, maxActive, log,
		),
		listConnectionsUC: bcUsecases.NewListBrokerConnectionsUseCase(repo, webhookBaseURL, maxActive, log),
		getConnectionUC:   bcUsecases.NewGetBrokerConnectionUseCase(repo, webhookBaseURL, log),
		reconnectConnectionUC: bcUsecases.NewReconnectBrokerConnectionUseCase(
			repo, c.registry, c.cipher, log,
		),
		disconnectConnectionUC: bcUsecases.NewDisconnectBrokerConnectionUseCase(
			repo, c.locker, c.clientCache, c.events, webhookBaseURL, log,
		),
		deleteConnectionUC: bcUsecases.NewDeleteBrokerConnectionUseCase(
			repo, c.locker, c.clientCache, c.events, log,
		),
		testConnectionUC: bcUsecases.NewTestBrokerConnectionUseCase(repo, c.clientProvider, c.locker, log),
		completeCallbackUC: bcUsecases.NewCompleteBrokerCallbackUseCase(
			repo, c.registry, c.cipher, c.locker, txMgr, c.clientCache, c.events, maxActive, log,
		),
		listBrokersUC: bcUsecases.NewListBrokersUseCase(c.registry),

		getPositionsUC: portfolioUsecases.NewGetPositionsUseCase(repo, c.clientProvider, c.locker, aggCfg, log),
		getHoldingsUC:  portfolioUsecases.NewGetHoldingsUseCase(repo, c.clientProvider, c.locker, aggCfg, log),
	}
}
