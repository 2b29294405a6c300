package events

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionData_EventType(t *testing.T) {
	assert.Equal(t, SessionOpened, (&SessionData{UserID: "u"}).EventType())
	assert.Equal(t, SessionClosed, (&SessionData{UserID: "u", Closed: true}).EventType())
}

func TestBus_SubscribeEmitUnsubscribe(t *testing.T) {
	bus := NewBus()

	var received atomic.Int32
	id := bus.Subscribe(PriceUpdated, func(event *Event) {
		received.Add(1)
		assert.Equal(t, PriceUpdated, event.Type)
		assert.Equal(t, "reconcile", event.Module)
	})
	assert.Equal(t, 1, bus.SubscriberCount(PriceUpdated))

	bus.Emit(PriceUpdated, "reconcile", nil)
	bus.Emit(TradeExecuted, "ledger", nil)
	assert.Equal(t, int32(1), received.Load())

	bus.Unsubscribe(id)
	assert.Equal(t, 0, bus.SubscriberCount(PriceUpdated))

	bus.Emit(PriceUpdated, "reconcile", nil)
	assert.Equal(t, int32(1), received.Load())

	// Unknown ids are ignored
	bus.Unsubscribe(12345)
}

func TestBus_UnsubscribeKeepsOtherHandlers(t *testing.T) {
	bus := NewBus()

	var first, second atomic.Int32
	id1 := bus.Subscribe(TradeExecuted, func(*Event) { first.Add(1) })
	bus.Subscribe(TradeExecuted, func(*Event) { second.Add(1) })

	bus.Unsubscribe(id1)
	bus.Emit(TradeExecuted, "ledger", nil)

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestManager_EmitTypedFlattensData(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var got *Event
	bus.Subscribe(TradeExecuted, func(event *Event) { got = event })

	manager.EmitTyped("ledger", &TradeExecutedData{
		TradeID:      "t-1",
		UserID:       "alice",
		Symbol:       "SigmaStock",
		Side:         "BUY",
		Quantity:     10,
		Price:        decimal.NewFromInt(100),
		BalanceAfter: decimal.NewFromInt(9000),
	})

	require.NotNil(t, got)
	assert.Equal(t, "alice", got.UserID())
	assert.Equal(t, "SigmaStock", got.Data["symbol"])
	assert.EqualValues(t, 10, got.Data["quantity"])
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var got *Event
	bus.Subscribe(ErrorOccurred, func(event *Event) { got = event })

	manager.EmitError("reconcile", errors.New("price store down"), map[string]interface{}{"attempt": 3})

	require.NotNil(t, got)
	assert.Equal(t, "price store down", got.Data["error"])
	assert.Equal(t, "", got.UserID())
}
