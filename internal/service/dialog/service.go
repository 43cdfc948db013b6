// Package dialog implements the session/model router: per-user conversation
// state, directive handling, context-window assembly, backend invocation
// with bounded retry, and durable persistence of every exchange.
package dialog

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/avelesov/neyra/internal/backend"
	"github.com/avelesov/neyra/internal/export"
	"github.com/avelesov/neyra/internal/model/chat"
	"github.com/avelesov/neyra/internal/model/persona"
	"github.com/avelesov/neyra/internal/store"
)

var (
	// ErrUnknownModel reports a model directive naming no registered adapter.
	ErrUnknownModel = errors.New("unknown model")
	// ErrEmptyMessage reports a blank inbound message.
	ErrEmptyMessage = errors.New("empty message")
	// ErrBackendFailed reports that the backend call failed after the
	// bounded retry. The user exchange stays recorded; no assistant
	// exchange is written.
	ErrBackendFailed = errors.New("backend call failed")
)

// Config carries the router's routing defaults and window policy.
type Config struct {
	DefaultModel   string
	DefaultPersona string
	// WindowSize bounds how many prior exchanges are sent as context.
	WindowSize int
	// CacheTTL bounds how long an idle session stays in the memory cache.
	CacheTTL time.Duration
	// CatalogTTL bounds how long the merged model catalog is cached.
	CatalogTTL time.Duration
}

// Service is the session/model router.
type Service struct {
	store    store.Store
	personas persona.Store
	adapters map[string]backend.Adapter
	detect   Detector
	cfg      Config
	logger   zerolog.Logger

	locks *keyedMutex
	cache *sessionCache

	catalog *modelCatalog
}

// NewService wires the router. The adapter registered under
// cfg.DefaultModel handles sessions that never issued a model directive.
func NewService(st store.Store, personas persona.Store, adapters []backend.Adapter, detect Detector, cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 10
	}
	if cfg.DefaultPersona == "" {
		cfg.DefaultPersona = persona.DefaultID
	}
	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = time.Hour
	}
	if detect == nil {
		detect = DefaultDetector
	}

	byName := make(map[string]backend.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	if _, ok := byName[cfg.DefaultModel]; !ok {
		return nil, errors.Errorf("default model %q has no registered adapter", cfg.DefaultModel)
	}
	if _, ok := personas.FindByID(cfg.DefaultPersona); !ok {
		return nil, errors.Errorf("default persona %q is not registered", cfg.DefaultPersona)
	}

	return &Service{
		store:    st,
		personas: personas,
		adapters: byName,
		detect:   detect,
		cfg:      cfg,
		logger:   logger.With().Str("component", "dialog").Logger(),
		locks:    newKeyedMutex(),
		cache:    newSessionCache(cfg.CacheTTL),
		catalog:  newModelCatalog(cfg.CatalogTTL),
	}, nil
}

// HandleMessage processes one inbound message for a user: directives mutate
// routing state, everything else becomes a conversational turn. Messages
// from the same user are serialized; distinct users proceed in parallel.
func (s *Service) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	if len(text) == 0 {
		return "", ErrEmptyMessage
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.resolveSession(ctx, userID)
	if err != nil {
		return "", err
	}

	if d, ok := s.detect(text); ok {
		return s.applyDirective(ctx, sess, d)
	}

	return s.handleTurn(ctx, sess, text)
}

// handleTurn runs the append → assemble → invoke → persist sequence under
// the caller-held user lock.
func (s *Service) handleTurn(ctx context.Context, sess chat.Session, text string) (string, error) {
	userEx, err := s.store.Append(ctx, chat.Exchange{
		UserID:      sess.UserID,
		Role:        chat.RoleUser,
		Content:     text,
		ModelUsed:   sess.ActiveModel,
		PersonaUsed: sess.ActivePersona,
	})
	if err != nil {
		return "", err
	}

	pers, ok := s.personas.FindByID(sess.ActivePersona)
	if !ok {
		// Session points at a persona that disappeared from the
		// registry (config change); fall back rather than fail.
		s.logger.Warn().Str("persona", sess.ActivePersona).Msg("active persona missing, using default")
		pers, _ = s.personas.FindByID(s.cfg.DefaultPersona)
	}

	adapter, ok := s.adapters[sess.ActiveModel]
	if !ok {
		return "", errors.Wrapf(ErrUnknownModel, "session %s routed to %q", sess.UserID, sess.ActiveModel)
	}

	history, err := s.buildWindow(ctx, sess.UserID, userEx.ID)
	if err != nil {
		return "", err
	}

	reply, err := s.generate(ctx, adapter, backend.Request{
		SystemPrompt: pers.SystemPrompt,
		History:      history,
		UserMessage:  text,
		Options:      pers.Options,
	})
	if err != nil {
		// The user exchange stays: the user did say something, even
		// if it went unanswered. No assistant exchange is fabricated.
		s.logger.Error().Err(err).
			Str("user", sess.UserID).
			Str("model", sess.ActiveModel).
			Msg("backend call failed after retry")
		return "", errors.Wrap(ErrBackendFailed, err.Error())
	}

	if _, err := s.store.Append(ctx, chat.Exchange{
		UserID:      sess.UserID,
		Role:        chat.RoleAssistant,
		Content:     reply,
		ModelUsed:   sess.ActiveModel,
		PersonaUsed: sess.ActivePersona,
	}); err != nil {
		// The reply exists upstream but was not recorded; claiming
		// success would desynchronize history from what we can prove.
		return "", err
	}

	sess.TurnCount++
	sess.LastActiveAt = time.Now().UTC()
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return "", err
	}
	s.cache.put(sess)

	return reply, nil
}

// buildWindow returns the most recent exchanges as adapter turns, excluding
// the just-appended user exchange (the adapter receives it separately).
func (s *Service) buildWindow(ctx context.Context, userID, excludeID string) ([]backend.Turn, error) {
	// Fetch one extra so the window is still full after the exclusion.
	exchanges, err := s.store.Window(ctx, userID, s.cfg.WindowSize+1)
	if err != nil {
		return nil, err
	}

	turns := make([]backend.Turn, 0, len(exchanges))
	for _, ex := range exchanges {
		if ex.ID == excludeID {
			continue
		}
		turns = append(turns, backend.Turn{Role: ex.Role, Content: ex.Content})
	}
	if len(turns) > s.cfg.WindowSize {
		turns = turns[len(turns)-s.cfg.WindowSize:]
	}
	return turns, nil
}

// generate invokes the adapter, retrying exactly once with the identical
// context on retryable failures.
func (s *Service) generate(ctx context.Context, adapter backend.Adapter, req backend.Request) (string, error) {
	reply, err := adapter.Generate(ctx, req)
	if err == nil {
		return reply, nil
	}
	if !backend.Retryable(err) {
		s.logger.Error().Err(err).Str("model", adapter.Name()).Msg("auth failure, not retrying")
		return "", err
	}

	s.logger.Warn().Err(err).Str("model", adapter.Name()).Msg("backend call failed, retrying once")
	return adapter.Generate(ctx, req)
}

// applyDirective mutates routing state under the caller-held user lock.
// Directives never append exchanges.
func (s *Service) applyDirective(ctx context.Context, sess chat.Session, d Directive) (string, error) {
	switch d.Kind {
	case DirectiveSwitchModel:
		if _, ok := s.adapters[d.Arg]; !ok {
			return "", errors.Wrapf(ErrUnknownModel, "%q", d.Arg)
		}
		sess.ActiveModel = d.Arg
	case DirectiveSwitchPersona:
		if _, ok := s.personas.FindByID(d.Arg); !ok {
			// Session stays on its current persona.
			return "", errors.Wrapf(persona.ErrUnknown, "%q", d.Arg)
		}
		sess.ActivePersona = d.Arg
	case DirectiveReset:
		if err := s.resetSession(ctx, &sess); err != nil {
			return "", err
		}
		return "Conversation history cleared.", nil
	case DirectiveExport:
		out, err := s.export(ctx, sess.UserID, d.Arg)
		if err != nil {
			return "", err
		}
		return string(out), nil
	default:
		return "", errors.Errorf("unhandled directive kind %d", d.Kind)
	}

	sess.LastActiveAt = time.Now().UTC()
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return "", err
	}
	s.cache.put(sess)

	s.logger.Info().
		Str("user", sess.UserID).
		Str("model", sess.ActiveModel).
		Str("persona", sess.ActivePersona).
		Msg("routing updated")
	return "Switched. Future replies use model=" + sess.ActiveModel + ", persona=" + sess.ActivePersona + ".", nil
}

// resolveSession loads or lazily creates the session for a user. Must be
// called under the user lock.
func (s *Service) resolveSession(ctx context.Context, userID string) (chat.Session, error) {
	if sess, ok := s.cache.get(userID); ok {
		return sess, nil
	}

	sess, found, err := s.store.Session(ctx, userID)
	if err != nil {
		return chat.Session{}, err
	}
	if !found {
		now := time.Now().UTC()
		sess = chat.Session{
			UserID:        userID,
			ActiveModel:   s.cfg.DefaultModel,
			ActivePersona: s.cfg.DefaultPersona,
			CreatedAt:     now,
			LastActiveAt:  now,
		}
		if err := s.store.SaveSession(ctx, sess); err != nil {
			return chat.Session{}, err
		}
		s.logger.Info().Str("user", userID).Msg("created session")
	}

	s.cache.put(sess)
	return sess, nil
}

// Session returns the current session record for a user, creating it lazily
// like HandleMessage would.
func (s *Service) Session(ctx context.Context, userID string) (chat.Session, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.resolveSession(ctx, userID)
}

// History returns the full stored exchange sequence for a user.
func (s *Service) History(ctx context.Context, userID string) ([]chat.Exchange, error) {
	return s.store.All(ctx, userID)
}

// Export serializes the full exchange sequence in the given format without
// mutating any state.
func (s *Service) Export(ctx context.Context, userID, format string) ([]byte, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.export(ctx, userID, format)
}

func (s *Service) export(ctx context.Context, userID, format string) ([]byte, error) {
	exporter, err := export.NewExporter(format)
	if err != nil {
		return nil, err
	}

	exchanges, err := s.store.All(ctx, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := exporter.Export(export.Transcript{UserID: userID, Exchanges: exchanges}, &buf); err != nil {
		return nil, errors.Wrap(err, "render export")
	}
	return buf.Bytes(), nil
}

// Reset clears the stored exchanges for a user. The session record persists;
// when keepRouting is false the model and persona also return to defaults.
func (s *Service) Reset(ctx context.Context, userID string, keepRouting bool) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, err := s.resolveSession(ctx, userID)
	if err != nil {
		return err
	}
	if !keepRouting {
		sess.ActiveModel = s.cfg.DefaultModel
		sess.ActivePersona = s.cfg.DefaultPersona
	}
	return s.resetSession(ctx, &sess)
}

func (s *Service) resetSession(ctx context.Context, sess *chat.Session) error {
	if err := s.store.Clear(ctx, sess.UserID); err != nil {
		return err
	}

	sess.TurnCount = 0
	sess.LastActiveAt = time.Now().UTC()
	if err := s.store.SaveSession(ctx, *sess); err != nil {
		return err
	}
	s.cache.put(*sess)

	s.logger.Info().Str("user", sess.UserID).Msg("history reset")
	return nil
}

// Personas exposes the registry for transports.
func (s *Service) Personas() persona.Store { return s.personas }
