package config

import (
	"fmt"
	"strings"
	"time"
)

// Manifest is the decoded form of one or more CUE manifest files.
type Manifest struct {
	// SourceFiles lists the files the manifest was read from.
	SourceFiles []string `json:"source_files"`

	// Resources are the declared resources in declaration order.
	Resources []ResourceDecl `json:"resources"`

	// Errors holds parse, schema and declaration errors. A manifest with
	// errors has no usable resources.
	Errors []ValidationError `json:"errors,omitempty"`

	// ParsedAt is when the manifest was parsed.
	ParsedAt time.Time `json:"parsed_at"`
}

// ResourceDecl declares one resource: the construction request plus the
// lifecycle actions to run after creation.
type ResourceDecl struct {
	// Name is the resource name, taken from the manifest key.
	Name string `json:"name" validate:"required"`

	// Kind is the resource kind, matched case-insensitively.
	Kind string `json:"kind" validate:"required"`

	// Config is the kind-specific configuration.
	Config map[string]interface{} `json:"config"`

	// Actions are lifecycle operations run in order after creation.
	Actions []string `json:"actions,omitempty" validate:"dive,oneof=start stop delete"`
}

// ValidationError is a manifest error with its source position when known.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the value path (e.g., "resources.web1.kind").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning).
	Severity string `json:"severity"`
}

// Error implements error.
func (e ValidationError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", e.Line, e.Column)
		}
		b.WriteString(": ")
	}
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// HasErrors reports whether the manifest has any errors.
func (m *Manifest) HasErrors() bool {
	return len(m.Errors) > 0
}

// Err returns the manifest errors as a single error, or nil.
func (m *Manifest) Err() error {
	if !m.HasErrors() {
		return nil
	}
	lines := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		lines[i] = e.Error()
	}
	return fmt.Errorf("invalid manifest:\n  %s", strings.Join(lines, "\n  "))
}

// Names returns the declared resource names in order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Resources))
	for i, r := range m.Resources {
		names[i] = r.Name
	}
	return names
}
