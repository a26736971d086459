package policy

import (
	"context"
	"fmt"
	"sort"
)

// builtinSource marks policies that come from the builtin library.
const builtinSource = "builtin"

// BuiltinPolicies returns the builtin policy library. Every builtin is
// disabled until enabled by name.
func BuiltinPolicies() []Policy {
	return []Policy{
		namingConventionPolicy(),
		storageEncryptionPolicy(),
		productionReplicasPolicy(),
		cacheTTLCeilingPolicy(),
	}
}

// BuiltinNames returns the names of the builtin policies, sorted.
func BuiltinNames() []string {
	var names []string
	for _, p := range BuiltinPolicies() {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// EnableBuiltins compiles the named builtin policies into the engine and
// enables them.
func (e *Engine) EnableBuiltins(ctx context.Context, names ...string) error {
	library := make(map[string]Policy)
	for _, p := range BuiltinPolicies() {
		library[p.Name] = p
	}

	for _, name := range names {
		p, ok := library[name]
		if !ok {
			return fmt.Errorf("unknown builtin policy: %s", name)
		}
		p.Enabled = true
		if err := e.Add(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// namingConventionPolicy restricts names to lowercase letters, digits and
// hyphens.
func namingConventionPolicy() Policy {
	return Policy{
		Name:        "naming-convention",
		Description: "Resource names must be lowercase alphanumeric with hyphens",
		Severity:    SeverityError,
		Source:      builtinSource,
		Tags:        []string{"naming", "conventions"},
		Rego: `package cloudconnect.policies.naming

import rego.v1

deny contains violation if {
	name := input.resource.name
	not regex.match("^[a-z0-9][a-z0-9-]*$", name)
	violation := {
		"message": sprintf("Resource name '%s' must be lowercase alphanumeric with hyphens", [name]),
		"field": "name",
	}
}
`,
	}
}

// storageEncryptionPolicy forbids unencrypted storage accounts.
func storageEncryptionPolicy() Policy {
	return Policy{
		Name:        "storage-encryption",
		Description: "Storage accounts must be encrypted",
		Severity:    SeverityError,
		Source:      builtinSource,
		Families:    []string{"storage"},
		Tags:        []string{"security"},
		Rego: `package cloudconnect.policies.storage_encryption

import rego.v1

deny contains violation if {
	input.resource.config.encryption_enabled == false
	violation := {
		"message": "encryption_enabled must be true",
		"field": "encryption_enabled",
	}
}
`,
	}
}

// productionReplicasPolicy requires at least two replicas for app services
// named with a prod- prefix.
func productionReplicasPolicy() Policy {
	return Policy{
		Name:        "production-replicas",
		Description: "Production app services need at least two replicas",
		Severity:    SeverityError,
		Source:      builtinSource,
		Families:    []string{"app"},
		Tags:        []string{"availability"},
		Rego: `package cloudconnect.policies.production_replicas

import rego.v1

deny contains violation if {
	startswith(input.resource.name, "prod-")
	input.resource.config.replica_count < 2
	violation := {
		"message": sprintf("Production resource '%s' needs at least 2 replicas", [input.resource.name]),
		"field": "replica_count",
	}
}
`,
	}
}

// cacheTTLCeilingPolicy warns about cache entries living longer than a day.
func cacheTTLCeilingPolicy() Policy {
	return Policy{
		Name:        "cache-ttl-ceiling",
		Description: "Warn when cache TTLs exceed one day",
		Severity:    SeverityWarning,
		Source:      builtinSource,
		Families:    []string{"cache", "database"},
		Tags:        []string{"cost"},
		Rego: `package cloudconnect.policies.cache_ttl

import rego.v1

deny contains violation if {
	input.resource.config.ttl_seconds > 86400
	violation := {
		"message": sprintf("ttl_seconds %v exceeds one day", [input.resource.config.ttl_seconds]),
		"field": "ttl_seconds",
	}
}
`,
	}
}
