package kinds

import (
	"fmt"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// CacheDBConfig is the typed view of a CacheDB configuration.
type CacheDBConfig struct {
	EvictionPolicy *string `json:"eviction_policy" validate:"required,oneof=LRU FIFO"`
	TTLSeconds     *int    `json:"ttl_seconds" validate:"required,gt=0"`
	CapacityMB     *int    `json:"capacity_mb" validate:"omitempty,gt=0"`
}

var cacheDBFields = []string{"eviction_policy", "ttl_seconds", "capacity_mb"}

var cacheDBMessages = map[string]string{
	"eviction_policy": "Invalid eviction policy.",
	"ttl_seconds":     "ttl_seconds must be positive.",
	"capacity_mb":     "capacity_mb must be a positive int.",
}

// CacheDB is an in-memory cache resource.
type CacheDB struct{}

// Name implements engine.Kind.
func (CacheDB) Name() string { return "CacheDB" }

// Family implements engine.Kind.
func (CacheDB) Family() engine.Family { return engine.FamilyCache }

// Validate implements engine.Kind.
func (CacheDB) Validate(config map[string]interface{}) error {
	var c CacheDBConfig
	var errPolicy, errTTL, errCapacity error
	c.EvictionPolicy, errPolicy = stringField(config, "eviction_policy")
	c.TTLSeconds, errTTL = intField(config, "ttl_seconds")
	c.CapacityMB, errCapacity = intField(config, "capacity_mb")

	return check(&c, cacheDBFields, cacheDBMessages, errPolicy, errTTL, errCapacity)
}

// Describe implements engine.Kind.
func (CacheDB) Describe(name string, config map[string]interface{}) string {
	return fmt.Sprintf("%s (ttl=%ss, policy=%s)",
		name, formatValue(config["ttl_seconds"]), formatValue(config["eviction_policy"]))
}
