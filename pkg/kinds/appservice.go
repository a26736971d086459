package kinds

import (
	"fmt"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// AppServiceConfig is the typed view of an AppService configuration.
type AppServiceConfig struct {
	Runtime      *string `json:"runtime" validate:"required,oneof=python nodejs dotnet"`
	Region       *string `json:"region" validate:"required,oneof=EastUS WestEurope CentralIndia"`
	ReplicaCount *int    `json:"replica_count" validate:"required,oneof=1 2 3"`
}

var appServiceFields = []string{"runtime", "region", "replica_count"}

var appServiceMessages = map[string]string{
	"runtime":       "Invalid runtime.",
	"region":        "Invalid region.",
	"replica_count": "Invalid replica count.",
}

// AppService is an application hosting resource.
type AppService struct{}

// Name implements engine.Kind.
func (AppService) Name() string { return "AppService" }

// Family implements engine.Kind.
func (AppService) Family() engine.Family { return engine.FamilyApp }

// Validate implements engine.Kind.
func (AppService) Validate(config map[string]interface{}) error {
	var c AppServiceConfig
	var errRuntime, errRegion, errReplicas error
	c.Runtime, errRuntime = stringField(config, "runtime")
	c.Region, errRegion = stringField(config, "region")
	c.ReplicaCount, errReplicas = intField(config, "replica_count")

	return check(&c, appServiceFields, appServiceMessages, errRuntime, errRegion, errReplicas)
}

// Describe implements engine.Kind.
func (AppService) Describe(name string, config map[string]interface{}) string {
	return fmt.Sprintf("%s (%s in %s)", name, formatValue(config["runtime"]), formatValue(config["region"]))
}
