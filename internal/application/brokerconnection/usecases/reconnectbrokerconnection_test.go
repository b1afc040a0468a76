package usecases

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

func TestReconnectBrokerConnection(t *testing.T) {
	tests := []struct {
		name       string
		broker     vo.BrokerName
		userID     uint
		intent     string
		wantIntent string
		wantType   errors.ErrorType
	}{
		{name: "default intent", broker: vo.BrokerZerodha, userID: 7, wantIntent: "reconnect"},
		{name: "refresh intent", broker: vo.BrokerZerodha, userID: 7, intent: "refresh", wantIntent: "refresh"},
		{name: "initial intent rejected", broker: vo.BrokerZerodha, userID: 7, intent: "initial", wantType: errors.ErrorTypeValidation},
		{name: "other owner", broker: vo.BrokerZerodha, userID: 99, wantType: errors.ErrorTypeNotFound},
		{name: "direct broker", broker: vo.BrokerAlpaca, userID: 7, wantType: errors.ErrorTypeUnsupportedOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			conn := f.seed(t, 7, tt.broker, tt.broker == vo.BrokerAlpaca, nil)
			before := f.repo.Stored(conn.SID())

			uc := NewReconnectBrokerConnectionUseCase(f.repo, f.registry, f.cipher, f.logger)
			resp, err := uc.Execute(context.Background(), ReconnectBrokerConnectionCommand{
				UserID:       tt.userID,
				ConnectionID: conn.SID(),
				Intent:       tt.intent,
			})

			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.wantType), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantIntent, resp.Intent)

				u, err := url.Parse(resp.LoginURL)
				require.NoError(t, err)
				assert.Equal(t, conn.SID(), u.Query().Get("connection_id"))
				assert.Equal(t, tt.wantIntent, u.Query().Get("intent"))
				assert.Equal(t, "api-key", u.Query().Get("api_key"))
			}

			// reconnect never mutates the stored connection
			assert.Equal(t, 0, f.repo.UpdateCalls)
			after := f.repo.Stored(conn.SID())
			assert.Equal(t, before.UpdatedAt(), after.UpdatedAt())
			assert.Equal(t, before.AccessTokenEncrypted(), after.AccessTokenEncrypted())
		})
	}
}

func TestReconnectBrokerConnection_UndecryptableCredentials(t *testing.T) {
	f := newFixture(t)
	conn := f.seed(t, 7, vo.BrokerZerodha, false, nil)

	uc := NewReconnectBrokerConnectionUseCase(f.repo, f.registry, rotatedCipher{}, f.logger)

	_, err := uc.Execute(context.Background(), ReconnectBrokerConnectionCommand{UserID: 7, ConnectionID: conn.SID()})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingCredentials))
	assert.Equal(t, 422, errors.GetAppError(err).Code)
}

// rotatedCipher fails every decryption, as after a master key change.
type rotatedCipher struct{}

func (rotatedCipher) Encrypt(plaintext string) (string, error) {
	return "x", nil
}

func (rotatedCipher) Decrypt(ciphertext string) (string, error) {
	return "", assert.AnError
}

func (rotatedCipher) SelfTest() error {
	return nil
}
