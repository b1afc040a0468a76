package utils

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

type bindTarget struct {
	Broker string `json:"broker_name" binding:"required,broker"`
	Name   string `json:"connection_name" binding:"max=5"`
}

func init() {
	gin.SetMode(gin.TestMode)
	_ = RegisterValidators(map[string]validator.Func{
		"broker": func(fl validator.FieldLevel) bool {
			return fl.Field().String() == "zerodha"
		},
	})
}

func bind(t *testing.T, body string) error {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var target bindTarget
	return c.ShouldBindJSON(&target)
}

func TestBindingError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantDetails string
	}{
		{"missing broker", `{}`, "broker_name is required"},
		{"unknown broker", `{"broker_name":"etrade"}`, "broker_name is not a supported broker"},
		{"name too long", `{"broker_name":"zerodha","connection_name":"abcdefgh"}`, "connection_name must be at most 5 characters long"},
		{"malformed json", `{"broker_name":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bind(t, tt.body)
			require.Error(t, err)

			appErr := errors.GetAppError(BindingError(err))
			require.NotNil(t, appErr)
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
			assert.Equal(t, 400, appErr.Code)
			if tt.wantDetails != "" {
				assert.Contains(t, appErr.Details, tt.wantDetails)
			}
		})
	}
}

func TestBindingError_ValidBody(t *testing.T) {
	assert.NoError(t, bind(t, `{"broker_name":"zerodha","connection_name":"abc"}`))
}
