// Package backendtest provides scripted adapter doubles for exercising the
// router's retry and persistence behavior without a live provider.
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/avelesov/neyra/internal/backend"
)

// Result scripts a single Generate outcome.
type Result struct {
	Reply string
	Err   error
}

// Adapter replays scripted results in order. After the script is exhausted
// it echoes the user message. All calls are recorded for assertions.
type Adapter struct {
	AdapterName string

	mu      sync.Mutex
	script  []Result
	Calls   []backend.Request
	nextIdx int
}

// New returns a scripted adapter with the given name.
func New(name string, script ...Result) *Adapter {
	return &Adapter{AdapterName: name, script: script}
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string { return a.AdapterName }

// Generate implements backend.Adapter.
func (a *Adapter) Generate(ctx context.Context, req backend.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", backend.NewError(backend.KindTimeout, a.AdapterName, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.Calls = append(a.Calls, req)
	if a.nextIdx < len(a.script) {
		r := a.script[a.nextIdx]
		a.nextIdx++
		return r.Reply, r.Err
	}
	return fmt.Sprintf("%s echo: %s", a.AdapterName, req.UserMessage), nil
}

// CallCount returns how many times Generate was invoked.
func (a *Adapter) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Calls)
}

// LastCall returns the most recent request, or false when none happened.
func (a *Adapter) LastCall() (backend.Request, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Calls) == 0 {
		return backend.Request{}, false
	}
	return a.Calls[len(a.Calls)-1], true
}
