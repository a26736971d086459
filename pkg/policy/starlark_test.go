package policy

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
	"github.com/cloudconnect/cloudconnect/pkg/factory"
	"github.com/cloudconnect/cloudconnect/pkg/kinds"
)

const cacheScript = `
families = ["cache", "database"]

defaults = {"eviction_policy": "FIFO"}

def deny(resource):
    cfg = resource["config"]
    if resource["name"].startswith("tmp-") and cfg.get("ttl_seconds", 0) > 600:
        return {"message": "temporary caches must expire within 10 minutes", "field": "ttl_seconds"}
    return None
`

func TestNewScriptPolicy(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{"valid", cacheScript, ""},
		{"syntax error", "def deny(:", "starlark execution failed"},
		{"nothing defined", "x = 1", "neither defaults nor deny"},
		{"bad family", `families = ["queue"]
defaults = {}`, "queue"},
		{"deny not callable", "deny = 3", "deny must be a function"},
		{"defaults not dict", "defaults = [1]", "defaults must be a dict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScriptPolicy("test", tt.script)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScriptPolicy_Apply(t *testing.T) {
	p, err := NewScriptPolicy("cache-rules", cacheScript)
	if err != nil {
		t.Fatal(err)
	}

	if p.Name() != "script:cache-rules" {
		t.Errorf("Unexpected name %s", p.Name())
	}
	if !p.Applies(engine.FamilyDatabase) || p.Applies(engine.FamilyApp) {
		t.Error("Unexpected family coverage")
	}

	ctx := factory.WithResourceName(context.Background(), "tmp-cache")

	config := map[string]interface{}{"ttl_seconds": 3600}
	err = p.Apply(ctx, kinds.CacheDB{}, config)
	if !errors.Is(err, engine.ErrFamilyPolicyViolation) {
		t.Fatalf("Expected FamilyPolicyViolation, got %v", err)
	}
	var ee *engine.EngineError
	if errors.As(err, &ee) && ee.Field != "ttl_seconds" {
		t.Errorf("Expected field ttl_seconds, got %q", ee.Field)
	}
	if config["eviction_policy"] != "FIFO" {
		t.Errorf("Expected default to be injected, got %v", config["eviction_policy"])
	}

	config = map[string]interface{}{"ttl_seconds": 300, "eviction_policy": "LRU"}
	if err := p.Apply(ctx, kinds.CacheDB{}, config); err != nil {
		t.Errorf("Expected no violation, got %v", err)
	}
	if config["eviction_policy"] != "LRU" {
		t.Error("Existing values must not be overwritten")
	}
}

func TestScriptPolicy_ResultShapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"none", "return None", ""},
		{"string", `return "nope"`, "nope"},
		{"empty list", "return []", ""},
		{"list", `return ["first", "second"]`, "first"},
		{"false", "return False", ""},
		{"true", "return True", "denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewScriptPolicy("shape", "def deny(resource):\n    "+tt.body+"\n")
			if err != nil {
				t.Fatal(err)
			}
			err = p.Apply(context.Background(), kinds.AppService{}, map[string]interface{}{})
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantMsg {
				t.Errorf("Expected %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestScriptPolicy_RunawayScript(t *testing.T) {
	p, err := NewScriptPolicy("loop", `
def deny(resource):
    n = 0
    for i in range(100000000):
        n += i
    return None
`)
	if err != nil {
		t.Fatal(err)
	}

	err = p.Apply(context.Background(), kinds.AppService{}, map[string]interface{}{})
	if !errors.Is(err, engine.ErrFamilyPolicyViolation) {
		t.Errorf("Expected the runaway script to be stopped, got %v", err)
	}
}

func TestLoadScriptPolicies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.star"), cacheScript)
	writeFile(t, filepath.Join(dir, "a.star"), `defaults = {"replica_count": 2}`)
	writeFile(t, filepath.Join(dir, "ignored.txt"), "x")

	policies, err := LoadScriptPolicies([]string{dir})
	if err != nil {
		t.Fatalf("Failed to load scripts: %v", err)
	}
	if len(policies) != 2 || policies[0].Name() != "script:a" || policies[1].Name() != "script:b" {
		t.Fatalf("Unexpected policies: %v", policies)
	}
	if policies[0].Source() != filepath.Join(dir, "a.star") {
		t.Errorf("Unexpected source %s", policies[0].Source())
	}

	pipeline := factory.NewStandard(kinds.NewBuiltinCatalog())
	pipeline.AddPolicy(policies[0])
	res, err := pipeline.Construct(context.Background(), "AppService", "web1", map[string]interface{}{
		"runtime": "python",
		"region":  "EastUS",
	})
	if err != nil {
		t.Fatalf("Construct failed: %v", err)
	}
	// The standard app policy runs first and sets replica_count to 1.
	if n, _ := kinds.AsInt(res.Config()["replica_count"]); n != 1 {
		t.Errorf("Expected replica_count 1, got %v", res.Config()["replica_count"])
	}

	if _, err := LoadScriptPolicies([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Expected error for missing path")
	}
}
