// Package policy provides admission policies that plug into the construction
// pipeline as factory.FamilyPolicy values.
//
// Two policy languages are supported:
//
//   - Rego, evaluated with Open Policy Agent. Engine holds a set of Rego
//     modules; each module's package must define a deny set whose elements
//     are messages or objects with message, severity and field keys. Blocking
//     severities (error, critical) reject the resource with a
//     FamilyPolicyViolation error, lower severities are logged.
//   - Starlark. ScriptPolicy runs a script that may inject defaults and
//     define a deny function.
//
// Policies see the resource after the builtin family defaults have been
// applied:
//
//	{
//	  "resource": {"name": "web1", "kind": "AppService", "family": "app", "config": {...}},
//	  "context":  {"timestamp": "...", "operation": "create"}
//	}
//
// # Loading
//
// Loader reads .rego files (named after the file, with optional
// "# severity:" and "# families:" header comments) and JSON policy
// definitions from files or directories. Engine.Watch reloads them with
// fsnotify when they change.
//
// # Builtin policies
//
// A small library ships disabled and is enabled by name with
// Engine.EnableBuiltins:
//
//   - naming-convention: names are lowercase alphanumeric with hyphens
//   - storage-encryption: storage accounts must be encrypted
//   - production-replicas: prod- app services need at least two replicas
//   - cache-ttl-ceiling: warns about TTLs longer than a day
//
// # Example
//
//	eng := policy.NewEngine(logger)
//	if err := eng.LoadPolicies(ctx, []string{"./policies"}); err != nil {
//	    return err
//	}
//	pipeline.AddPolicy(eng)
package policy
