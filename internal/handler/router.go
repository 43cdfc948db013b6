// Package handler wires HTTP routes to core services.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	chathandler "github.com/avelesov/neyra/internal/handler/chat"
	personahandler "github.com/avelesov/neyra/internal/handler/persona"
	wshandler "github.com/avelesov/neyra/internal/handler/ws"
	personaModel "github.com/avelesov/neyra/internal/model/persona"
	"github.com/avelesov/neyra/internal/ratelimit"
	"github.com/avelesov/neyra/internal/service/dialog"
)

// NewRouter builds the HTTP surface over the dialog service.
func NewRouter(dialogSvc *dialog.Service, personas personaModel.Store, limiter *ratelimit.Limiter, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	chatHandler := chathandler.New(dialogSvc, limiter)
	personaHandler := personahandler.New(personas)
	wsHandler := wshandler.New(dialogSvc, limiter, logger)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		personaHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}

// requestLogger logs one line per request through the service logger.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
