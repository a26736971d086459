package kinds

import (
	"fmt"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// StorageAccountConfig is the typed view of a StorageAccount configuration.
type StorageAccountConfig struct {
	EncryptionEnabled *bool   `json:"encryption_enabled" validate:"required"`
	AccessKey         *string `json:"access_key" validate:"required,min=8"`
	MaxSizeGB         *int    `json:"max_size_gb" validate:"required"`
}

var storageAccountFields = []string{"encryption_enabled", "access_key", "max_size_gb"}

var storageAccountMessages = map[string]string{
	"encryption_enabled": "encryption_enabled must be bool.",
	"access_key":         "access_key must be at least 8 characters.",
	"max_size_gb":        "max_size_gb must be int.",
}

// StorageAccount is a blob storage resource.
type StorageAccount struct{}

// Name implements engine.Kind.
func (StorageAccount) Name() string { return "StorageAccount" }

// Family implements engine.Kind.
func (StorageAccount) Family() engine.Family { return engine.FamilyStorage }

// Validate implements engine.Kind.
func (StorageAccount) Validate(config map[string]interface{}) error {
	var c StorageAccountConfig
	var errEnc, errKey, errSize error
	c.EncryptionEnabled, errEnc = boolField(config, "encryption_enabled")
	c.AccessKey, errKey = stringField(config, "access_key")
	c.MaxSizeGB, errSize = intField(config, "max_size_gb")

	return check(&c, storageAccountFields, storageAccountMessages, errEnc, errKey, errSize)
}

// Describe implements engine.Kind.
func (StorageAccount) Describe(name string, config map[string]interface{}) string {
	return fmt.Sprintf("%s (encrypted=%s, size=%sGB)",
		name, formatValue(config["encryption_enabled"]), formatValue(config["max_size_gb"]))
}
