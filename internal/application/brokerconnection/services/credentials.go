// Package services holds the pieces shared by the broker connection and
// portfolio use cases: credential decryption, trading API handles and
// lifecycle event emission.
package services

import (
	"github.com/autotraderhub/autotrader/internal/domain/brokerconnection"
	"github.com/autotraderhub/autotrader/internal/infrastructure/broker"
	"github.com/autotraderhub/autotrader/internal/infrastructure/vault"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

// DecryptCredentials opens the stored API key pair of conn. Absent or
// undecryptable values are reported as missing credentials.
func DecryptCredentials(cipher vault.Cipher, conn *brokerconnection.BrokerConnection) (broker.Credentials, error) {
	name := conn.BrokerName().String()
	if !conn.HasCredentials() {
		return broker.Credentials{}, errors.NewMissingCredentialsError(name)
	}

	apiKey, err := cipher.Decrypt(conn.APIKeyEncrypted())
	if err != nil || apiKey == "" {
		return broker.Credentials{}, errors.NewMissingCredentialsError(name)
	}
	apiSecret, err := cipher.Decrypt(conn.APISecretEncrypted())
	if err != nil || apiSecret == "" {
		return broker.Credentials{}, errors.NewMissingCredentialsError(name)
	}

	return broker.Credentials{APIKey: apiKey, APISecret: apiSecret}, nil
}

// DecryptAccessToken opens the stored session token of conn.
func DecryptAccessToken(cipher vault.Cipher, conn *brokerconnection.BrokerConnection) (string, error) {
	name := conn.BrokerName().String()
	if !conn.IsAuthenticated() {
		return "", errors.NewNotAuthenticatedError(name)
	}
	token, err := cipher.Decrypt(conn.AccessTokenEncrypted())
	if err != nil {
		return "", errors.NewNotAuthenticatedError(name)
	}
	return token, nil
}
