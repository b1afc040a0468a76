package http

import (
	"gorm.io/gorm"

	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/repository"
	"github.com/autotraderhub/autotrader/internal/shared/logger"
)

// repositories holds all repository instances used by the application.
type repositories struct {
	brokerConnectionRepo brokerconnection.Repository
}

// newRepositories creates all repository instances from the database connection.
func newRepositories(db *gorm.DB, log logger.Interface) *repositories {
	return &repositories{
		brokerConnectionRepo: repository.NewBrokerConnectionRepository(db, log),
	}
}
