package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"proctor/internal/proctoring/capture"
	"proctor/internal/proctoring/models"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
	"proctor/pkg/platform/httputil"
	"proctor/pkg/requestcontext"
)

const writeWait = 5 * time.Second

// streamMessage is a text message from the candidate's browser. Binary
// messages are encoded video frames.
type streamMessage struct {
	Type string `json:"type"`
	AudioRequest
	Event     string         `json:"event,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type streamError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// HandleStream handles GET /proctoring/sessions/{sessionID}/stream. Frames
// and audio are queued for the session's monitoring loops; client events are
// applied immediately. The server pushes a status snapshot every interval
// and closes the socket when the session stops.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if _, live := h.sessions.Status(sessionID); !live {
		httputil.WriteError(w, models.SessionNotFound(sessionID))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	out := make(chan any, 8)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		h.readStream(ctx, conn, sessionID, out)
	}()
	h.writeStream(ctx, conn, sessionID, out, readDone)
}

func (h *Handler) readStream(ctx context.Context, conn *websocket.Conn, sessionID id.SessionID, out chan<- any) {
	reply := func(v any) {
		select {
		case out <- v:
		default:
		}
	}
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.DebugContext(ctx, "stream read ended",
					"session_id", sessionID,
					"error", err,
				)
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			err = h.sessions.PushFrame(sessionID, models.Frame{Data: data, CapturedAt: time.Now()})
		case websocket.TextMessage:
			var res any
			res, err = h.handleStreamText(ctx, sessionID, data)
			if res != nil {
				reply(res)
			}
		}

		switch {
		case err == nil, errors.Is(err, capture.ErrFull):
		case errors.Is(err, models.ErrSessionNotFound):
			return
		default:
			reply(streamError{Error: string(dErrors.CodeOf(err)), ErrorDescription: dErrors.MessageOf(err)})
		}
	}
}

func (h *Handler) handleStreamText(ctx context.Context, sessionID id.SessionID, data []byte) (any, error) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid stream message")
	}
	switch msg.Type {
	case "audio":
		if err := msg.AudioRequest.Validate(); err != nil {
			return nil, err
		}
		chunk := msg.Chunk()
		if chunk.CapturedAt.IsZero() {
			chunk.CapturedAt = time.Now()
		}
		return nil, h.sessions.PushAudio(sessionID, chunk)
	case "event":
		ev := EventRequest{Type: msg.Event, Timestamp: msg.Timestamp, Metadata: msg.Metadata}
		if err := ev.Validate(); err != nil {
			return nil, err
		}
		res, err := h.sessions.InjectSignal(ctx, sessionID, ev.signalType, ev.Timestamp, ev.Metadata)
		if err != nil {
			return nil, err
		}
		return res, nil
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown stream message type: "+msg.Type)
	}
}

func (h *Handler) writeStream(ctx context.Context, conn *websocket.Conn, sessionID id.SessionID, out <-chan any, readDone <-chan struct{}) {
	ticker := time.NewTicker(h.statusEvery)
	defer ticker.Stop()

	write := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(v) == nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case v := <-out:
			if !write(v) {
				return
			}
		case <-ticker.C:
			st, live := h.sessions.Status(sessionID)
			if !live {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session stopped"))
				return
			}
			if !write(st) {
				return
			}
		}
	}
}
