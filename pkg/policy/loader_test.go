package policy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const denyLargeStorage = `# Keep storage small.
# severity: error
# families: storage, cache
package test.storage

import rego.v1

deny contains msg if {
	input.resource.config.max_size_gb > 500
	msg := "max_size_gb must not exceed 500"
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func TestLoadFromFile_Rego(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	policyFile := filepath.Join(t.TempDir(), "small-storage.rego")
	writeFile(t, policyFile, denyLargeStorage)

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "small-storage" {
		t.Errorf("Expected name 'small-storage', got '%s'", policy.Name)
	}
	if policy.Rego != denyLargeStorage {
		t.Error("Rego content doesn't match")
	}
	if !policy.Enabled {
		t.Error("Policy should be enabled by default")
	}
	if policy.Description != "Keep storage small." {
		t.Errorf("Unexpected description %q", policy.Description)
	}
	if policy.Severity != SeverityError {
		t.Errorf("Expected error severity, got %s", policy.Severity)
	}
	if len(policy.Families) != 2 || policy.Families[0] != "storage" || policy.Families[1] != "cache" {
		t.Errorf("Unexpected families %v", policy.Families)
	}
	if policy.Source != policyFile {
		t.Errorf("Expected source %s, got %s", policyFile, policy.Source)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	policyFile := filepath.Join(t.TempDir(), "from-json.json")
	data, err := json.Marshal(map[string]interface{}{
		"description": "A test policy",
		"rego":        "package test\n\nimport rego.v1\n\ndeny contains msg if { false; msg := \"x\" }",
		"severity":    "warning",
	})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, policyFile, string(data))

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "from-json" {
		t.Errorf("Expected name from file, got %q", policy.Name)
	}
	if policy.Severity != SeverityWarning || !policy.Enabled {
		t.Errorf("Unexpected policy: %+v", policy)
	}
}

func TestLoadFromDirectory_Recursive(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "a.rego"), denyLargeStorage)
	writeFile(t, filepath.Join(dir, "nested", "b.rego"), denyLargeStorage)
	writeFile(t, filepath.Join(dir, "README.md"), "not a policy")

	policies, err := loader.loadFromDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("Failed to load directory: %v", err)
	}
	if len(policies) != 2 {
		t.Errorf("Expected 2 policies, got %d", len(policies))
	}
}

func TestLoadFromPaths(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	dir := t.TempDir()

	file := filepath.Join(dir, "single.rego")
	writeFile(t, file, denyLargeStorage)
	writeFile(t, filepath.Join(dir, "more", "other.rego"), denyLargeStorage)

	policies, err := loader.LoadFromPaths(context.Background(), []string{file, filepath.Join(dir, "more")})
	if err != nil {
		t.Fatalf("Failed to load paths: %v", err)
	}
	if len(policies) != 2 {
		t.Errorf("Expected 2 policies, got %d", len(policies))
	}

	if _, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Expected error for missing path")
	}
}

func TestLoadBundle(t *testing.T) {
	loader := NewLoader(zerolog.Nop())

	bundleFile := filepath.Join(t.TempDir(), "bundle.json")
	data, _ := json.Marshal(PolicyBundle{
		Name:    "governance",
		Version: "1.0.0",
		Policies: []Policy{
			{Name: "one", Rego: denyLargeStorage, Enabled: true},
			{Name: "two", Rego: denyLargeStorage, Enabled: true},
		},
	})
	writeFile(t, bundleFile, string(data))

	bundle, err := loader.LoadBundle(context.Background(), bundleFile)
	if err != nil {
		t.Fatalf("Failed to load bundle: %v", err)
	}
	if bundle.Name != "governance" || len(bundle.Policies) != 2 {
		t.Errorf("Unexpected bundle: %+v", bundle)
	}
}

func TestApplyHeader(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		description string
		severity    Severity
	}{
		{
			name:        "description only",
			content:     "# First line\n# second line\npackage x",
			description: "First line second line",
			severity:    SeverityError,
		},
		{
			name:        "stops at code",
			content:     "# Header\npackage x\n# not part of header",
			description: "Header",
			severity:    SeverityError,
		},
		{
			name:        "severity override",
			content:     "# severity: warning\npackage x",
			description: "",
			severity:    SeverityWarning,
		},
	}

	loader := NewLoader(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Policy{Severity: SeverityError}
			loader.applyHeader(p, tt.content)
			if p.Description != tt.description {
				t.Errorf("Expected description %q, got %q", tt.description, p.Description)
			}
			if p.Severity != tt.severity {
				t.Errorf("Expected severity %s, got %s", tt.severity, p.Severity)
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	file := filepath.Join(t.TempDir(), "cached.rego")
	writeFile(t, file, denyLargeStorage)

	if _, err := loader.loadFromFile(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	if len(loader.cache) != 1 {
		t.Fatalf("Expected 1 cached policy, got %d", len(loader.cache))
	}

	loader.ClearCache()
	if len(loader.cache) != 0 {
		t.Error("Expected empty cache")
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	loader := NewLoader(zerolog.Nop())
	dir := t.TempDir()

	unsupported := filepath.Join(dir, "policy.txt")
	writeFile(t, unsupported, "x")
	invalid := filepath.Join(dir, "broken.json")
	writeFile(t, invalid, "{not json")

	for _, path := range []string{unsupported, invalid, filepath.Join(dir, "missing.rego")} {
		if _, err := loader.loadFromFile(context.Background(), path); err == nil {
			t.Errorf("Expected error for %s", path)
		}
	}
}
