// Package manager provides the Registry Manager, the owning collection of
// every resource created in a process.
//
// The manager resolves create requests through a factory.Pipeline, wraps
// each resource with the instrumentation wrapper when instrumentation is
// enabled, stores it by name and writes a creation audit record to the
// resource's log stream. Lifecycle operations are delegated to the stored
// handle and their failures are wrapped with the operation and resource name
// while keeping the error code.
//
// Names are unique for the life of the manager. Deleted resources stay
// registered, so a deleted name cannot be reused.
//
//	mgr := manager.New(factory.NewStandard(kinds.NewBuiltinCatalog()), manager.Options{Sink: sink})
//	msg, err := mgr.Create(ctx, "AppService", "web1", map[string]interface{}{
//		"runtime": "python",
//		"region":  "EastUS",
//	})
package manager
