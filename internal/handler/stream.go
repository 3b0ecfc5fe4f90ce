package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/eduinstitute/liveclass-server/internal/fanout"
	"github.com/eduinstitute/liveclass-server/internal/service"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsPongTimeout  = 2 * fanout.HeartbeatInterval
)

// StreamHandler streams a session room's events over SSE or WebSocket.
type StreamHandler struct {
	broker   *fanout.Broker
	sessions *service.LiveSessionService
	upgrader websocket.Upgrader
}

// NewStreamHandler accepts WebSocket handshakes from allowedOrigins; an
// empty list or "*" allows any origin.
func NewStreamHandler(broker *fanout.Broker, sessions *service.LiveSessionService, allowedOrigins []string) *StreamHandler {
	return &StreamHandler{
		broker:   broker,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// snapshot is sent first so a client never waits for the first change.
func (h *StreamHandler) snapshot(r *http.Request, id string) (fanout.Event, error) {
	view, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		return fanout.Event{}, err
	}

	data, err := json.Marshal(fanout.EnrollmentUpdate{
		SessionID:       view.ID,
		EnrolledCount:   view.EnrolledCount,
		MaxParticipants: view.MaxParticipants,
	})
	if err != nil {
		return fanout.Event{}, err
	}
	return fanout.Event{Type: "connected", Data: data}, nil
}

// GET /live-sessions/{id}/events
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	initial, err := h.snapshot(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	room := fanout.SessionRoom(id)
	client := h.broker.Subscribe(room)
	defer h.broker.Unsubscribe(client)

	if err := writeSSE(w, flusher, initial); err != nil {
		return
	}

	ctx := r.Context()
	heartbeat := time.NewTicker(fanout.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("room", room).Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Debug().Str("room", room).Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := writeSSE(w, flusher, event); err != nil {
				log.Debug().Err(err).Str("room", room).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event fanout.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// GET /live-sessions/{id}/ws
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	initial, err := h.snapshot(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	room := fanout.SessionRoom(id)
	client := h.broker.Subscribe(room)
	defer h.broker.Unsubscribe(client)

	// Clients only listen; the read loop exists to see pongs and close frames.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeWS(conn, initial); err != nil {
		return
	}

	ping := time.NewTicker(fanout.HeartbeatInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			log.Debug().Str("room", room).Msg("websocket closed by client")
			return

		case <-client.Done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(wsWriteTimeout))
			return

		case event := <-client.Events:
			if err := writeWS(conn, event); err != nil {
				log.Debug().Err(err).Str("room", room).Msg("failed to send websocket event")
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func writeWS(conn *websocket.Conn, event fanout.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}
