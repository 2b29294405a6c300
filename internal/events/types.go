// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	ErrorOccurred EventType = "ERROR_OCCURRED"

	// Price table
	PriceUpdated EventType = "PRICE_UPDATED"
	TickSkipped  EventType = "TICK_SKIPPED"

	// Accounts and ledger
	AccountCreated   EventType = "ACCOUNT_CREATED"
	TradeExecuted    EventType = "TRADE_EXECUTED"
	AnalyticsUpdated EventType = "ANALYTICS_UPDATED"

	// Sessions
	SessionOpened EventType = "SESSION_OPENED"
	SessionClosed EventType = "SESSION_CLOSED"
)

// AllTypes lists every event type a stream subscriber can filter on
var AllTypes = []EventType{
	ErrorOccurred,
	PriceUpdated,
	TickSkipped,
	AccountCreated,
	TradeExecuted,
	AnalyticsUpdated,
	SessionOpened,
	SessionClosed,
}
