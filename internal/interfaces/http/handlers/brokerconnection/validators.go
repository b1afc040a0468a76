package brokerconnection

import (
	"github.com/go-playground/validator/v10"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/shared/utils"
)

// RegisterValidators installs the binding tags used by request DTOs.
// It must run before the first request is bound.
func RegisterValidators() error {
	return utils.RegisterValidators(map[string]validator.Func{
		"broker": func(fl validator.FieldLevel) bool {
			_, err := vo.ParseBrokerName(fl.Field().String())
			return err == nil
		},
	})
}
