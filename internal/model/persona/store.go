package persona

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknown reports a persona identifier with no registered preset.
var ErrUnknown = errors.New("unknown persona")

// Store exposes read-only persona lookup for the router and handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an immutable in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// LoadFile builds a MemoryStore from a YAML persona file. An entry whose ID
// matches a seed persona replaces it; new IDs are appended after the seeds.
func LoadFile(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read persona file %s", path)
	}

	var overrides []Persona
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, errors.Wrapf(err, "parse persona file %s", path)
	}

	items := Seed()
	for _, o := range overrides {
		if o.ID == "" {
			return nil, errors.Errorf("persona file %s: entry without id", path)
		}
		replaced := false
		for i := range items {
			if items[i].ID == o.ID {
				items[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			items = append(items, o)
		}
	}

	return NewMemoryStore(items), nil
}

// List returns the registered personas.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}
