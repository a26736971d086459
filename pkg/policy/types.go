package policy

import (
	"time"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is logged but does not block construction.
	SeverityWarning Severity = "warning"

	// SeverityError blocks construction.
	SeverityError Severity = "error"

	// SeverityCritical blocks construction.
	SeverityCritical Severity = "critical"
)

// Blocks reports whether a violation of this severity rejects the resource.
func (s Severity) Blocks() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy is an admission rule written in Rego. Its package must define a
// deny set; every element is one violation.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations that do not set one.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Families restricts the policy to these kind families. Empty means all.
	Families []string `json:"families,omitempty"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Source is the file the policy was loaded from, if any.
	Source string `json:"source,omitempty"`

	// LoadedAt is when the policy was loaded.
	LoadedAt time.Time `json:"loaded_at"`
}

// Covers reports whether the policy applies to a family.
func (p *Policy) Covers(family string) bool {
	if len(p.Families) == 0 {
		return true
	}
	for _, f := range p.Families {
		if f == family {
			return true
		}
	}
	return false
}

// Violation is a single deny result.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Resource is the resource name that violated the policy.
	Resource string `json:"resource,omitempty"`

	// Field is the configuration field concerned, if the policy names one.
	Field string `json:"field,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Input is the document a policy sees as input.
type Input struct {
	Resource ResourceInput `json:"resource"`
	Context  InputContext  `json:"context"`
}

// ResourceInput describes the resource under construction, after family
// defaults have been applied by earlier policies.
type ResourceInput struct {
	Name   string                 `json:"name"`
	Kind   string                 `json:"kind"`
	Family string                 `json:"family"`
	Config map[string]interface{} `json:"config"`
}

// InputContext provides context information for policy evaluation.
type InputContext struct {
	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Operation is always "create"; policies only run during construction.
	Operation string `json:"operation"`
}

// PolicyBundle represents a collection of related policies in one JSON file.
type PolicyBundle struct {
	// Name is the unique name of the bundle.
	Name string `json:"name"`

	// Version is the bundle version.
	Version string `json:"version"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Policies are the policies in this bundle.
	Policies []Policy `json:"policies"`
}
