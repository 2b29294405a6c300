package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/events"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeWait = 10 * time.Second

// PriceEntries lists the live price table
type PriceEntries interface {
	Entries() []domain.PriceEntry
}

// PricesMessage is pushed to websocket clients on connect and after every tick
type PricesMessage struct {
	Type      string              `json:"type"`
	Prices    []domain.PriceEntry `json:"prices"`
	Timestamp string              `json:"timestamp"`
}

// PricesStreamHandler pushes the price table to websocket clients.
// No session is required; prices are public.
type PricesStreamHandler struct {
	table    PriceEntries
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewPricesStreamHandler creates a new price stream handler
func NewPricesStreamHandler(table PriceEntries, eventBus *events.Bus, log zerolog.Logger) *PricesStreamHandler {
	return &PricesStreamHandler{
		table:    table,
		eventBus: eventBus,
		log:      log.With().Str("component", "prices_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/ws/prices websocket upgrades
func (h *PricesStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is open for the REST API as well
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients only listen; CloseRead discards their frames and cancels ctx on close
	ctx := conn.CloseRead(r.Context())

	// A pending signal means "send the latest table"; ticks coalesce
	updated := make(chan struct{}, 1)
	id := h.eventBus.Subscribe(events.PriceUpdated, func(*events.Event) {
		select {
		case updated <- struct{}{}:
		default:
		}
	})
	defer h.eventBus.Unsubscribe(id)

	h.log.Debug().Msg("Price stream client connected")

	if err := h.send(ctx, conn); err != nil {
		h.logClosed(err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Msg("Price stream client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-updated:
			if err := h.send(ctx, conn); err != nil {
				h.logClosed(err)
				return
			}
		}
	}
}

func (h *PricesStreamHandler) send(ctx context.Context, conn *websocket.Conn) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return wsjson.Write(writeCtx, conn, PricesMessage{
		Type:      "prices",
		Prices:    h.table.Entries(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (h *PricesStreamHandler) logClosed(err error) {
	if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		h.log.Debug().Err(err).Msg("Price stream closed")
		return
	}
	h.log.Warn().Err(err).Msg("Failed to write to price stream")
}
