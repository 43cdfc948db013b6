// Package backend defines the uniform capability contract that every
// language-model provider is wrapped behind. Provider differences in
// authentication and payload shape stay inside the concrete adapter
// packages; the router only ever sees this interface.
package backend

import (
	"context"

	"github.com/avelesov/neyra/internal/model/persona"
)

// Turn is one prior conversational message in the context window. History is
// model-agnostic text: a turn produced by one provider is sent verbatim to
// whichever provider handles the next call.
type Turn struct {
	Role    string
	Content string
}

// Request carries the assembled context window for one generation call.
type Request struct {
	SystemPrompt string
	History      []Turn
	UserMessage  string
	Options      persona.Options
}

// Adapter wraps one provider behind a single call contract.
type Adapter interface {
	// Name is the stable identifier routing directives select by.
	Name() string
	// Generate produces a reply for the given window. Failures are
	// classified via KindOf; the call must honor ctx cancellation.
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelInfo describes one entry in a provider's model catalog.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"ownedBy,omitempty"`
	Backend string `json:"backend"`
}

// Cataloger is implemented by adapters that can enumerate the models their
// provider currently serves.
type Cataloger interface {
	Models(ctx context.Context) ([]ModelInfo, error)
}
