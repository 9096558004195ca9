package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pavelanni/memorylane/internal/evasive"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type pointerPayload struct {
	Pointer evasive.Vec `json:"pointer"`
	Center  evasive.Vec `json:"center"`
}

type displacementPayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Armed bool    `json:"armed"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// handlePointerWS streams pointer positions to the session's evasive widget
// and answers each one with the offset to draw the widget at.
func (h *Handler) handlePointerWS(w http.ResponseWriter, r *http.Request) {
	sess, err := h.currentSession(r)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(4096)

	for {
		var in inboundMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ws read error", "session", sess.ID, "error", err)
			}
			return
		}

		var out any
		switch in.Type {
		case "pointer":
			var p pointerPayload
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				out = outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "invalid pointer payload"}}
				break
			}
			d, armed := sess.PointerMoved(p.Pointer, p.Center)
			out = outboundMessage[displacementPayload]{
				Type:    "displacement",
				Payload: displacementPayload{X: d.X, Y: d.Y, Armed: armed},
			}
		default:
			out = outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}

		if err := conn.WriteJSON(out); err != nil {
			slog.Debug("ws write error", "session", sess.ID, "error", err)
			return
		}
	}
}
