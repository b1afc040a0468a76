package utils

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

var registerOnce sync.Once

// RegisterValidators installs custom tags on gin's binding validator and
// reports field names by their JSON tag. Extra tags are registered once per
// process; later calls are no-ops.
func RegisterValidators(tags map[string]validator.Func) error {
	var regErr error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			regErr = fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		for tag, fn := range tags {
			if err := v.RegisterValidation(tag, fn); err != nil {
				regErr = fmt.Errorf("failed to register %s validator: %w", tag, err)
				return
			}
		}
	})
	return regErr
}

// BindingError converts a gin binding failure into a ValidationError.
func BindingError(err error) error {
	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fe))
		}
		return errors.NewValidationError("Validation failed", strings.Join(messages, "; "))
	}
	return errors.NewValidationError("Invalid request body")
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	case "broker":
		return fmt.Sprintf("%s is not a supported broker", field)
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}
