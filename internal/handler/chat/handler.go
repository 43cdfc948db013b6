// Package chat exposes the dialog router over HTTP.
package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelesov/neyra/internal/export"
	"github.com/avelesov/neyra/internal/model/persona"
	"github.com/avelesov/neyra/internal/ratelimit"
	"github.com/avelesov/neyra/internal/service/dialog"
	"github.com/avelesov/neyra/internal/store"
	"github.com/avelesov/neyra/pkg/httpx"
)

// FailureReply is the user-facing text shown when the backend failed after
// the bounded retry.
const FailureReply = "Sorry, I could not reach the language model. Please try again in a moment."

// Handler wires dialog operations to HTTP routes.
type Handler struct {
	dialogSvc *dialog.Service
	limiter   *ratelimit.Limiter
}

// New creates the chat handler.
func New(dialogSvc *dialog.Service, limiter *ratelimit.Limiter) *Handler {
	return &Handler{dialogSvc: dialogSvc, limiter: limiter}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.handleMessage)
	r.Get("/history/{userID}", h.handleHistory)
	r.Get("/export/{userID}", h.handleExport)
	r.Post("/reset/{userID}", h.handleReset)
	r.Get("/models", h.handleListModels)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"userId"`
		Text   string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.UserID == "" || payload.Text == "" {
		httpx.RespondError(w, http.StatusBadRequest, "userId and text are required")
		return
	}

	if h.limiter != nil && !h.limiter.Allow(payload.UserID) {
		httpx.RespondError(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
		return
	}

	reply, err := h.dialogSvc.HandleMessage(r.Context(), payload.UserID, payload.Text)
	if err != nil {
		respondDialogError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	exchanges, err := h.dialogSvc.History(r.Context(), userID)
	if err != nil {
		respondDialogError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"userId":    userID,
		"exchanges": exchanges,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	format := r.URL.Query().Get("format")

	exporter, err := export.NewExporter(format)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.dialogSvc.Export(r.Context(), userID, format)
	if err != nil {
		respondDialogError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(exporter.Extension()))
	w.Header().Set("Content-Disposition", `attachment; filename="`+userID+"."+exporter.Extension()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	keepRouting := r.URL.Query().Get("full") != "true"

	if err := h.dialogSvc.Reset(r.Context(), userID, keepRouting); err != nil {
		respondDialogError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.dialogSvc.ListModels(r.Context())
	if err != nil {
		respondDialogError(w, err)
		return
	}

	httpx.RespondJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}

func respondDialogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dialog.ErrUnknownModel), errors.Is(err, persona.ErrUnknown),
		errors.Is(err, dialog.ErrEmptyMessage):
		httpx.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dialog.ErrBackendFailed):
		httpx.RespondError(w, http.StatusBadGateway, FailureReply)
	case errors.Is(err, store.ErrUnavailable):
		httpx.RespondError(w, http.StatusServiceUnavailable, "conversation storage is unavailable")
	default:
		httpx.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

func contentTypeFor(ext string) string {
	switch ext {
	case "json":
		return "application/json"
	case "jsonl":
		return "application/x-ndjson"
	case "md":
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
