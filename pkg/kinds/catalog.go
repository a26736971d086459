package kinds

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// Catalog maps kind names to kinds. Lookup is case-insensitive.
type Catalog struct {
	mu    sync.RWMutex
	kinds map[string]engine.Kind
	order []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		kinds: make(map[string]engine.Kind),
	}
}

// Register adds a kind. Registering a second kind under the same
// case-insensitive name is an error.
func (c *Catalog) Register(kind engine.Kind) error {
	if kind == nil {
		return errors.New("kind cannot be nil")
	}
	if err := kind.Family().Validate(); err != nil {
		return fmt.Errorf("kind %s: %w", kind.Name(), err)
	}

	key := strings.ToLower(kind.Name())

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.kinds[key]; exists {
		return fmt.Errorf("kind %s is already registered", kind.Name())
	}
	c.kinds[key] = kind
	c.order = append(c.order, key)
	return nil
}

// Lookup resolves a kind name case-insensitively.
func (c *Catalog) Lookup(name string) (engine.Kind, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kind, ok := c.kinds[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, engine.Errorf(engine.CodeUnknownResourceKind, "Unknown resource type: %s", name)
	}
	return kind, nil
}

// Kinds returns the registered kinds in registration order.
func (c *Catalog) Kinds() []engine.Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]engine.Kind, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.kinds[key])
	}
	return out
}

// Names returns the canonical names of the registered kinds, sorted.
func (c *Catalog) Names() []string {
	kinds := c.Kinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.Name())
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins registers AppService, StorageAccount and CacheDB.
func RegisterBuiltins(c *Catalog) error {
	if c == nil {
		return errors.New("catalog cannot be nil")
	}

	for _, kind := range []engine.Kind{AppService{}, StorageAccount{}, CacheDB{}} {
		if err := c.Register(kind); err != nil {
			return fmt.Errorf("failed to register builtin kind: %w", err)
		}
	}
	return nil
}

// NewBuiltinCatalog returns a catalog holding the builtin kinds.
func NewBuiltinCatalog() *Catalog {
	c := NewCatalog()
	if err := RegisterBuiltins(c); err != nil {
		// Builtins are distinct and valid; failure is a programming error.
		panic(err)
	}
	return c
}
