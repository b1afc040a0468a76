package upstox

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
)

const stateIssuer = "autotrader-upstox-login"

// stateClaims is the signed OAuth state. It carries the connection and intent
// through the Upstox redirect, which only echoes `state` and `code`. It has no
// expiry: the login window is bounded by the browser and by Upstox's one-time code.
type stateClaims struct {
	ConnectionID string    `json:"cid"`
	Intent       vo.Intent `json:"intent"`
	jwt.RegisteredClaims
}

type stateSigner struct {
	secret []byte
	now    func() time.Time
}

func (s *stateSigner) sign(connectionID string, intent vo.Intent) (string, error) {
	now := s.now()
	claims := stateClaims{
		ConnectionID: connectionID,
		Intent:       intent,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign oauth state: %w", err)
	}
	return signed, nil
}

func (s *stateSigner) verify(state string) (*stateClaims, error) {
	if state == "" {
		return nil, errors.New("missing oauth state")
	}

	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth state: %w", err)
	}
	if claims.ConnectionID == "" || !claims.Intent.IsValid() {
		return nil, errors.New("incomplete oauth state")
	}
	return claims, nil
}
