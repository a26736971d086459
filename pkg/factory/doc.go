// Package factory implements the construction pipeline that turns a kind
// name, a resource name and a configuration into a validated resource.
//
// Construction runs four steps in order:
//
//  1. resolve the kind case-insensitively in the catalog
//  2. apply every family policy covering the kind's family, in order, on a
//     private copy of the configuration
//  3. instantiate the resource, validating its name
//  4. run the kind's configuration validator
//
// The standard pipeline carries the builtin app, storage and cache policies;
// the baseline pipeline carries none. Additional policies, such as Rego or
// Starlark policies from package policy, are appended with AddPolicy.
package factory
