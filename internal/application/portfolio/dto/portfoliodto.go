package dto

import "time"

// PortfolioEntry is one normalized position or holding.
type PortfolioEntry struct {
	Symbol         string    `json:"symbol"`
	Exchange       string    `json:"exchange"`
	Quantity       float64   `json:"quantity"`
	AveragePrice   float64   `json:"average_price"`
	CurrentPrice   float64   `json:"current_price"`
	PnL            float64   `json:"pnl"`
	PnLPercentage  float64   `json:"pnl_percentage"`
	Product        string    `json:"product,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
	BrokerName     string    `json:"broker_name"`
	ConnectionID   string    `json:"connection_id"`
	ConnectionName string    `json:"connection_name"`
}

// ConnectionStatus reports how one connection contributed to an aggregate.
type ConnectionStatus struct {
	OK             bool   `json:"ok"`
	BrokerName     string `json:"broker_name"`
	ConnectionName string `json:"connection_name"`
	Count          int    `json:"count"`
	Error          string `json:"error,omitempty"`
	Message        string `json:"message,omitempty"`
}

// PortfolioResponse is the aggregate across a user's connections. Status is
// keyed by connection ID.
type PortfolioResponse struct {
	Items  []PortfolioEntry            `json:"items"`
	Status map[string]ConnectionStatus `json:"status"`
}
