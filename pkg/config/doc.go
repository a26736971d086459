// Package config loads the CloudConnect application configuration and
// parses CUE resource manifests.
//
// # Application configuration
//
// AppConfig is read from YAML over DefaultAppConfig and validated with
// struct tags. CLOUDCONNECT_LOG_DIR, CLOUDCONNECT_SINK,
// CLOUDCONNECT_DATABASE and LOG_LEVEL override the file.
//
//	sink: sqlite
//	database_path: /var/lib/cloudconnect/audit.db
//	family_policies: standard
//	policy_paths: [./policies]
//	telemetry:
//	  metrics:
//	    listen_address: ":9090"
//
// # Manifests
//
// A manifest declares resources keyed by name, with optional lifecycle
// actions run after creation:
//
//	resources: {
//	    web1: {
//	        kind: "AppService"
//	        config: {runtime: "python", region: "EastUS"}
//	        actions: ["start"]
//	    }
//	    cache1: kind: "CacheDB"
//	}
//
// CUEParser checks manifests against a builtin #Manifest schema and reports
// errors with file positions in Manifest.Errors. Kind names and configs are
// not checked here; that is the construction pipeline's job.
package config
