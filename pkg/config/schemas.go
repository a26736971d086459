package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schemaFileSuffix names the pseudo-files schemas are compiled from.
const schemaFileSuffix = ".schema.cue"

// SchemaRegistry manages CUE schemas for validation. Values produced by the
// registry share its cue.Context and can be unified with each other.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema("manifest", builtinManifestSchema); err != nil {
		panic(err)
	}

	return sr
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+schemaFileSuffix))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// Definition looks up a definition such as "#Manifest" in a named schema.
func (sr *SchemaRegistry) Definition(schemaName, def string) (cue.Value, error) {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return cue.Value{}, fmt.Errorf("schema %s not found", schemaName)
	}
	v := schema.LookupPath(cue.ParsePath(def))
	if !v.Exists() {
		return cue.Value{}, fmt.Errorf("definition %s not found in schema %s", def, schemaName)
	}
	return v, nil
}

// ValidateAgainstSchema validates Go data against a definition in a named
// schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName, def string, data interface{}) error {
	schema, err := sr.Definition(schemaName, def)
	if err != nil {
		return err
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// builtinManifestSchema describes a resource manifest. Kinds are checked by
// the catalog, not here, so new kinds need no schema change.
const builtinManifestSchema = `
#Action: "start" | "stop" | "delete"

#Resource: {
	// Kind is the resource kind (e.g., "AppService", "CacheDB")
	kind: string & !=""

	// Config is the kind-specific configuration
	config: *{} | {...}

	// Actions run in order after the resource is created
	actions?: [...#Action]
}

#Manifest: {
	resources: [string]: #Resource
	...
}
`
