package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/avelesov/neyra/internal/backend"
	arkbackend "github.com/avelesov/neyra/internal/backend/ark"
	"github.com/avelesov/neyra/internal/backend/deepseek"
	"github.com/avelesov/neyra/internal/backend/gigachat"
	"github.com/avelesov/neyra/internal/config"
	"github.com/avelesov/neyra/internal/handler"
	"github.com/avelesov/neyra/internal/model/persona"
	"github.com/avelesov/neyra/internal/ratelimit"
	"github.com/avelesov/neyra/internal/service/dialog"
	"github.com/avelesov/neyra/internal/store"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		logger.Debug().Err(err).Msg("no .env file, using system environment")
	}

	if err := run(ctx, logger); err != nil {
		logger.Fatal().Err(err).Msg("service failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	st, err := store.OpenSQLite(cfg.Store.Path, cfg.Store.Retention)
	if err != nil {
		return errors.Wrap(err, "open context store")
	}
	defer st.Close()

	personas, err := loadPersonas(cfg.Dialog.PersonaFile)
	if err != nil {
		return err
	}

	adapters, err := buildAdapters(ctx, cfg, logger)
	if err != nil {
		return err
	}
	for _, a := range adapters {
		logger.Info().Str("model", a.Name()).Msg("backend adapter registered")
	}

	dialogSvc, err := dialog.NewService(st, personas, adapters, dialog.DefaultDetector, dialog.Config{
		DefaultModel:   cfg.Dialog.DefaultModel,
		DefaultPersona: cfg.Dialog.DefaultPersona,
		WindowSize:     cfg.Dialog.WindowSize,
		CacheTTL:       cfg.Dialog.CacheTTL,
	}, logger)
	if err != nil {
		return errors.Wrap(err, "create dialog service")
	}

	limiter := ratelimit.New(cfg.RateLimit.GlobalPerSecond, cfg.RateLimit.UserPerMinute)
	router := handler.NewRouter(dialogSvc, personas, limiter, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		err := dialogSvc.RunEviction(groupCtx, time.Minute)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return group.Wait()
}

func loadPersonas(path string) (persona.Store, error) {
	if path == "" {
		return persona.NewMemoryStore(persona.Seed()), nil
	}
	personas, err := persona.LoadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load persona file")
	}
	return personas, nil
}

func buildAdapters(ctx context.Context, cfg *config.Config, logger zerolog.Logger) ([]backend.Adapter, error) {
	var adapters []backend.Adapter

	if cfg.GigaChat.Enabled() {
		adapters = append(adapters, gigachat.New(gigachat.Config{
			AuthKey:     cfg.GigaChat.AuthKey,
			Scope:       cfg.GigaChat.Scope,
			Model:       cfg.GigaChat.Model,
			InsecureTLS: cfg.GigaChat.InsecureTLS,
		}, logger))
	}

	if cfg.DeepSeek.Enabled() {
		adapters = append(adapters, deepseek.New(deepseek.Config{
			APIKey:  cfg.DeepSeek.APIKey,
			BaseURL: cfg.DeepSeek.BaseURL,
			Model:   cfg.DeepSeek.Model,
		}, logger))
	}

	if cfg.Ark.Enabled() {
		arkClient, err := arkbackend.New(ctx, arkbackend.Config{
			APIKey:  cfg.Ark.APIKey,
			BaseURL: cfg.Ark.BaseURL,
			Region:  cfg.Ark.Region,
			Model:   cfg.Ark.Model,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "create ark adapter")
		}
		adapters = append(adapters, arkClient)
	}

	if len(adapters) == 0 {
		return nil, errors.New("no backend adapters configured")
	}
	return adapters, nil
}
