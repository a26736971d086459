package kinds

import (
	"errors"
	"testing"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

func validApp() map[string]interface{} {
	return map[string]interface{}{"runtime": "python", "region": "EastUS", "replica_count": 2}
}

func validStorage() map[string]interface{} {
	return map[string]interface{}{"encryption_enabled": true, "access_key": "abcdefgh", "max_size_gb": 100}
}

func validCache() map[string]interface{} {
	return map[string]interface{}{"eviction_policy": "LRU", "ttl_seconds": 3600}
}

func with(base map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := engine.CopyConfig(base)
	if value == nil {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

func TestKinds_Validate(t *testing.T) {
	tests := []struct {
		name      string
		kind      engine.Kind
		config    map[string]interface{}
		wantField string
		wantMsg   string
	}{
		{"app valid", AppService{}, validApp(), "", ""},
		{"app float replicas", AppService{}, with(validApp(), "replica_count", 3.0), "", ""},
		{"app extra field", AppService{}, with(validApp(), "sku", "P1"), "", ""},
		{"app bad runtime", AppService{}, with(validApp(), "runtime", "java"), "runtime", "Invalid runtime."},
		{"app missing runtime", AppService{}, with(validApp(), "runtime", nil), "runtime", "Invalid runtime."},
		{"app runtime wrong type", AppService{}, with(validApp(), "runtime", 7), "runtime", "Invalid runtime."},
		{"app bad region", AppService{}, with(validApp(), "region", "Mars"), "region", "Invalid region."},
		{"app replicas 4", AppService{}, with(validApp(), "replica_count", 4), "replica_count", "Invalid replica count."},
		{"app replicas fractional", AppService{}, with(validApp(), "replica_count", 1.5), "replica_count", "Invalid replica count."},
		{"app replicas bool", AppService{}, with(validApp(), "replica_count", true), "replica_count", "Invalid replica count."},
		{"app runtime reported first", AppService{}, with(with(validApp(), "runtime", "java"), "region", 1), "runtime", "Invalid runtime."},

		{"storage valid", StorageAccount{}, validStorage(), "", ""},
		{"storage encryption false", StorageAccount{}, with(validStorage(), "encryption_enabled", false), "", ""},
		{"storage encryption string", StorageAccount{}, with(validStorage(), "encryption_enabled", "yes"), "encryption_enabled", "encryption_enabled must be bool."},
		{"storage short key", StorageAccount{}, with(validStorage(), "access_key", "short"), "access_key", "access_key must be at least 8 characters."},
		{"storage missing key", StorageAccount{}, with(validStorage(), "access_key", nil), "access_key", "access_key must be at least 8 characters."},
		{"storage size string", StorageAccount{}, with(validStorage(), "max_size_gb", "100"), "max_size_gb", "max_size_gb must be int."},
		{"storage size missing", StorageAccount{}, with(validStorage(), "max_size_gb", nil), "max_size_gb", "max_size_gb must be int."},

		{"cache valid", CacheDB{}, validCache(), "", ""},
		{"cache with capacity", CacheDB{}, with(validCache(), "capacity_mb", 512), "", ""},
		{"cache bad policy", CacheDB{}, with(validCache(), "eviction_policy", "LFU"), "eviction_policy", "Invalid eviction policy."},
		{"cache zero ttl", CacheDB{}, with(validCache(), "ttl_seconds", 0), "ttl_seconds", "ttl_seconds must be positive."},
		{"cache missing ttl", CacheDB{}, with(validCache(), "ttl_seconds", nil), "ttl_seconds", "ttl_seconds must be positive."},
		{"cache ttl string", CacheDB{}, with(validCache(), "ttl_seconds", "abc"), "ttl_seconds", "ttl_seconds must be a positive int."},
		{"cache fractional ttl", CacheDB{}, with(validCache(), "ttl_seconds", 1.5), "ttl_seconds", "ttl_seconds must be a positive int."},
		{"cache negative ttl", CacheDB{}, with(validCache(), "ttl_seconds", -5), "ttl_seconds", "ttl_seconds must be positive."},
		{"cache negative capacity", CacheDB{}, with(validCache(), "capacity_mb", -1), "capacity_mb", "capacity_mb must be a positive int."},
		{"cache capacity string", CacheDB{}, with(validCache(), "capacity_mb", "big"), "capacity_mb", "capacity_mb must be a positive int."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kind.Validate(tt.config)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				return
			}

			var ee *engine.EngineError
			if !errors.As(err, &ee) {
				t.Fatalf("Expected EngineError, got: %v", err)
			}
			if ee.Code != engine.CodeInvalidConfig {
				t.Errorf("Expected INVALID_CONFIG, got %s", ee.Code)
			}
			if ee.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, ee.Field)
			}
			if ee.Message != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, ee.Message)
			}
		})
	}
}

func TestKinds_Describe(t *testing.T) {
	tests := []struct {
		kind   engine.Kind
		config map[string]interface{}
		want   string
	}{
		{AppService{}, validApp(), "web (python in EastUS)"},
		{StorageAccount{}, validStorage(), "web (encrypted=True, size=100GB)"},
		{StorageAccount{}, with(with(validStorage(), "encryption_enabled", false), "max_size_gb", 512.0), "web (encrypted=False, size=512GB)"},
		{CacheDB{}, validCache(), "web (ttl=3600s, policy=LRU)"},
	}

	for _, tt := range tests {
		if got := tt.kind.Describe("web", tt.config); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.kind.Name(), tt.want, got)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int
		ok   bool
	}{
		{3, 3, true},
		{int64(7), 7, true},
		{uint8(2), 2, true},
		{2.0, 2, true},
		{2.5, 0, false},
		{true, 0, false},
		{"3", 0, false},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := AsInt(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("AsInt(%#v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := NewBuiltinCatalog()

	for _, name := range []string{"AppService", "appservice", "APPSERVICE", " cachedb "} {
		if _, err := c.Lookup(name); err != nil {
			t.Errorf("Lookup(%q) failed: %v", name, err)
		}
	}

	_, err := c.Lookup("Queue")
	if !errors.Is(err, engine.ErrUnknownResourceKind) {
		t.Fatalf("Expected UnknownResourceKind, got: %v", err)
	}
	if err.Error() != "Unknown resource type: Queue" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

func TestCatalog_RegisterDuplicate(t *testing.T) {
	c := NewBuiltinCatalog()

	if err := RegisterBuiltins(c); err == nil {
		t.Error("Expected error registering builtins twice")
	}

	names := c.Names()
	want := []string{"AppService", "CacheDB", "StorageAccount"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, names)
		}
	}
}
