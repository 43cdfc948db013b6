// Package persona exposes the persona registry over HTTP.
package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelesov/neyra/internal/model/persona"
	"github.com/avelesov/neyra/pkg/httpx"
)

// Handler serves persona lookups.
type Handler struct {
	personas persona.Store
}

// New creates the persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes registers the persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
	r.Get("/personas/{personaID}", h.handleGetPersona)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	httpx.RespondJSON(w, http.StatusOK, h.personas.List())
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personaID")
	p, ok := h.personas.FindByID(id)
	if !ok {
		httpx.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	httpx.RespondJSON(w, http.StatusOK, p)
}
