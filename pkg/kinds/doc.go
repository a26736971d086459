// Package kinds implements the builtin resource kinds and the catalog that
// resolves kind names.
//
// Each kind decodes its configuration mapping into a typed struct and checks
// it with go-playground/validator tags. Extra keys are tolerated and kept.
// Numbers decoded from JSON, YAML or CUE arrive as float64 and are accepted
// wherever an integer is required as long as they have no fraction.
//
// Kinds are registered explicitly:
//
//	catalog := kinds.NewCatalog()
//	if err := kinds.RegisterBuiltins(catalog); err != nil {
//	    return err
//	}
//	kind, err := catalog.Lookup("appservice")
package kinds
