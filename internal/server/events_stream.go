package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/stonks/internal/events"
	"github.com/aristath/stonks/internal/modules/identity"
	"github.com/rs/zerolog"
)

const (
	streamBufferSize  = 100
	heartbeatInterval = 30 * time.Second
)

// publicEventTypes reach every session; all other streamed types only reach
// the session whose user they name
var publicEventTypes = map[events.EventType]bool{
	events.PriceUpdated: true,
	events.TickSkipped:  true,
}

// streamedEventTypes are the types a client may subscribe to
var streamedEventTypes = []events.EventType{
	events.PriceUpdated,
	events.TickSkipped,
	events.AccountCreated,
	events.TradeExecuted,
	events.AnalyticsUpdated,
	events.SessionClosed,
}

// EventsStreamHandler streams bus events to one logged-in session over SSE
type EventsStreamHandler struct {
	eventBus  *events.Bus
	heartbeat time.Duration
	log       zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		heartbeat: heartbeatInterval,
		log:       log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
// The stream ends when the client disconnects or its session is closed.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	types, err := parseTypesFilter(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	log := h.log.With().Str("user_id", session.UserID).Logger()
	log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	eventChan := make(chan *events.Event, streamBufferSize)
	handler := func(event *events.Event) {
		if !publicEventTypes[event.Type] && event.UserID() != session.UserID {
			return
		}
		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}

	ids := make([]events.SubscriptionID, 0, len(types))
	for _, eventType := range types {
		ids = append(ids, h.eventBus.Subscribe(eventType, handler))
	}
	defer func() {
		for _, id := range ids {
			h.eventBus.Unsubscribe(id)
		}
	}()

	h.write(w, flusher, map[string]interface{}{
		"type":    "connected",
		"user_id": session.UserID,
	})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info().Msg("Client disconnected from event stream")
			return

		case <-session.Done():
			h.write(w, flusher, map[string]interface{}{"type": "session_closed"})
			log.Info().Msg("Session closed, ending event stream")
			return

		case event := <-eventChan:
			h.write(w, flusher, map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

		case <-heartbeat.C:
			h.write(w, flusher, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			})
		}
	}
}

// write sends one SSE message (default message event)
func (h *EventsStreamHandler) write(w http.ResponseWriter, flusher http.Flusher, event map[string]interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"error":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// parseTypesFilter returns the requested event types, or every streamed type
// when filter is empty
func parseTypesFilter(filter string) ([]events.EventType, error) {
	if strings.TrimSpace(filter) == "" {
		return streamedEventTypes, nil
	}

	allowed := make(map[events.EventType]bool, len(streamedEventTypes))
	for _, t := range streamedEventTypes {
		allowed[t] = true
	}

	seen := make(map[events.EventType]bool)
	var types []events.EventType
	for _, raw := range strings.Split(filter, ",") {
		t := events.EventType(strings.ToUpper(strings.TrimSpace(raw)))
		if t == "" || seen[t] {
			continue
		}
		if !allowed[t] {
			return nil, fmt.Errorf("unknown event type %q", raw)
		}
		seen[t] = true
		types = append(types, t)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("unknown event type %q", filter)
	}
	return types, nil
}
