package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/folio/internal/events"
)

const (
	streamBuffer       = 100
	streamWriteTimeout = 5 * time.Second
)

// connectedMessage is the first frame every client receives.
type connectedMessage struct {
	Type  string             `json:"type"`
	Types []events.EventType `json:"types"`
}

// EventsStreamHandler forwards bus events to websocket clients.
type EventsStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus: bus,
		log: log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws. The optional types query parameter
// is a comma separated filter of event types.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	types := parseTypes(r.URL.Query().Get("types"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// Client messages are ignored; the returned context ends when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	eventChan := make(chan *events.Event, streamBuffer)
	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	for _, t := range types {
		unsubscribe := h.bus.Subscribe(t, handler)
		defer unsubscribe()
	}

	h.log.Info().Int("types", len(types)).Msg("Client connected to event stream")

	if err := h.write(ctx, conn, connectedMessage{Type: "CONNECTED", Types: types}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			if err := h.write(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Failed to write event")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) write(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, v)
}

// parseTypes resolves a filter string against the known event types.
// Unknown names are ignored; an empty filter selects every type.
func parseTypes(filter string) []events.EventType {
	if strings.TrimSpace(filter) == "" {
		return events.AllTypes
	}

	known := make(map[events.EventType]bool, len(events.AllTypes))
	for _, t := range events.AllTypes {
		known[t] = true
	}

	var out []events.EventType
	seen := make(map[events.EventType]bool)
	for _, part := range strings.Split(filter, ",") {
		t := events.EventType(strings.ToUpper(strings.TrimSpace(part)))
		if known[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return events.AllTypes
	}
	return out
}
