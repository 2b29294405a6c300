package events

import (
	"github.com/shopspring/decimal"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PriceUpdatedData contains data for PriceUpdated events
type PriceUpdatedData struct {
	Prices  map[string]decimal.Decimal `json:"prices"`
	Changes map[string]int             `json:"changes"`
	// Neutral is set when the randomness source failed and every change is zero
	Neutral bool `json:"neutral"`
}

// EventType returns the event type for PriceUpdatedData
func (d *PriceUpdatedData) EventType() EventType {
	return PriceUpdated
}

// TickSkippedData contains data for TickSkipped events
type TickSkippedData struct {
	Reason string `json:"reason"`
}

// EventType returns the event type for TickSkippedData
func (d *TickSkippedData) EventType() EventType {
	return TickSkipped
}

// AccountCreatedData contains data for AccountCreated events
type AccountCreatedData struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
}

// EventType returns the event type for AccountCreatedData
func (d *AccountCreatedData) EventType() EventType {
	return AccountCreated
}

// TradeExecutedData contains data for TradeExecuted events
type TradeExecutedData struct {
	TradeID      string          `json:"trade_id"`
	UserID       string          `json:"user_id"`
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// EventType returns the event type for TradeExecutedData
func (d *TradeExecutedData) EventType() EventType {
	return TradeExecuted
}

// HoldingSplitData is one entry of AnalyticsUpdatedData.Splits
type HoldingSplitData struct {
	Symbol     string          `json:"symbol"`
	Percentage decimal.Decimal `json:"percentage"`
}

// AnalyticsUpdatedData contains data for AnalyticsUpdated events
type AnalyticsUpdatedData struct {
	UserID        string             `json:"user_id"`
	Balance       decimal.Decimal    `json:"balance"`
	TotalInvested decimal.Decimal    `json:"total_invested"`
	TotalValue    decimal.Decimal    `json:"total_value"`
	Splits        []HoldingSplitData `json:"splits"`
}

// EventType returns the event type for AnalyticsUpdatedData
func (d *AnalyticsUpdatedData) EventType() EventType {
	return AnalyticsUpdated
}

// SessionData contains data for SessionOpened and SessionClosed events
type SessionData struct {
	UserID string `json:"user_id"`
	Closed bool   `json:"closed"`
}

// EventType returns SessionClosed or SessionOpened depending on Closed
func (d *SessionData) EventType() EventType {
	if d.Closed {
		return SessionClosed
	}
	return SessionOpened
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
