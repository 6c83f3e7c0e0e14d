package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

const streamWriteTimeout = 10 * time.Second

// HandleStream handles GET /api/research/stream.
// It upgrades to a websocket and sends one JSON text message per finished run.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake completes so no event is missed
	events, unsubscribe := h.service.Subscribe()
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is open for the API as well
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// The stream is one-way; CloseRead handles control frames and
	// cancels ctx once the client goes away.
	ctx := conn.CloseRead(r.Context())

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Run stream client connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "")
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error().Err(err).Msg("Failed to encode run event")
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Run stream client dropped")
				return
			}
		}
	}
}
