// Package valueobjects provides value objects for the broker connection domain.
package valueobjects

import (
	"fmt"
	"strings"
)

// BrokerName identifies a supported brokerage. Values are always lower-case.
type BrokerName string

const (
	BrokerZerodha BrokerName = "zerodha"
	BrokerUpstox  BrokerName = "upstox"
	BrokerAlpaca  BrokerName = "alpaca"
)

// SupportedBrokers lists every broker the system can connect to.
var SupportedBrokers = []BrokerName{BrokerZerodha, BrokerUpstox, BrokerAlpaca}

// ParseBrokerName normalizes and validates a broker identifier.
func ParseBrokerName(s string) (BrokerName, error) {
	b := BrokerName(strings.ToLower(strings.TrimSpace(s)))
	if !b.IsValid() {
		return "", fmt.Errorf("unsupported broker: %q", s)
	}
	return b, nil
}

// IsValid checks if the broker name is in the supported set.
func (b BrokerName) IsValid() bool {
	switch b {
	case BrokerZerodha, BrokerUpstox, BrokerAlpaca:
		return true
	default:
		return false
	}
}

func (b BrokerName) String() string {
	return string(b)
}
