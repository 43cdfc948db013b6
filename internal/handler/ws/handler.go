// Package ws provides a persistent chat socket for transports that keep one
// connection open per client instead of polling the REST endpoint.
package ws

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/avelesov/neyra/internal/model/persona"
	"github.com/avelesov/neyra/internal/ratelimit"
	"github.com/avelesov/neyra/internal/service/dialog"
)

// Handler upgrades connections and relays frames to the dialog router.
type Handler struct {
	dialogSvc *dialog.Service
	limiter   *ratelimit.Limiter
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

// New creates the websocket handler.
func New(dialogSvc *dialog.Service, limiter *ratelimit.Limiter, logger zerolog.Logger) *Handler {
	return &Handler{
		dialogSvc: dialogSvc,
		limiter:   limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// RegisterRoutes registers the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleChat)
}

type inboundFrame struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

type outboundFrame struct {
	Reply     string `json:"reply,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var in inboundFrame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		if in.UserID == "" || in.Text == "" {
			h.write(conn, outboundFrame{Error: "userId and text are required"})
			continue
		}
		if h.limiter != nil && !h.limiter.Allow(in.UserID) {
			h.write(conn, outboundFrame{Error: "rate limit exceeded, slow down"})
			continue
		}

		reply, err := h.dialogSvc.HandleMessage(ctx, in.UserID, in.Text)
		if err != nil {
			h.write(conn, outboundFrame{Error: userFacing(err)})
			continue
		}
		h.write(conn, outboundFrame{Reply: reply})
	}
}

func (h *Handler) write(conn *websocket.Conn, frame outboundFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.Warn().Err(err).Msg("websocket write failed")
	}
}

func userFacing(err error) string {
	switch {
	case errors.Is(err, dialog.ErrUnknownModel),
		errors.Is(err, dialog.ErrEmptyMessage),
		errors.Is(err, persona.ErrUnknown):
		return err.Error()
	case errors.Is(err, dialog.ErrBackendFailed):
		return "Sorry, I could not reach the language model. Please try again in a moment."
	default:
		return "Sorry, I could not process that message. Please try again."
	}
}
