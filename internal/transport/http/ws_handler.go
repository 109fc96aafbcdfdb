package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

var errUnsupportedMessage = errors.New("unsupported message type")

// serveWS upgrades to a websocket and handles each message on its own:
// "question" generates a question, "answer" reconciles a submission.
// No state is kept between messages.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("ws read ended", slog.Any("error", err))
			}
			return
		}

		var out outboundMessage
		switch inbound.Type {
		case "question":
			q, err := h.trivia.NextQuestion(ctx)
			if err != nil {
				out = h.wsError(r, err)
				break
			}
			out = outboundMessage{Type: "question", Payload: newQuestionView(q)}
		case "answer":
			var req submitRequest
			if err := json.Unmarshal(inbound.Payload, &req); err != nil {
				out = h.wsError(r, malformed(err))
				break
			}
			res, err := h.trivia.Reconcile(ctx, req.submission())
			if err != nil {
				out = h.wsError(r, err)
				break
			}
			out = outboundMessage{Type: "answerResult", Payload: res}
		default:
			out = h.wsError(r, malformed(errUnsupportedMessage))
		}

		if err := conn.WriteJSON(out); err != nil {
			h.log.Warn("ws write failed", slog.Any("error", err))
			return
		}
	}
}

func (h *Handler) wsError(r *http.Request, err error) outboundMessage {
	_, code, msg := h.describe(r, err)
	return outboundMessage{Type: "error", Payload: errorResponse{Error: code, Message: msg}}
}
