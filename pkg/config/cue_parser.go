package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
)

// CUEParser parses resource manifests written in CUE.
type CUEParser struct {
	schemaRegistry *SchemaRegistry
	validator      *validator.Validate
}

// NewCUEParser creates a new CUE parser.
func NewCUEParser() *CUEParser {
	return &CUEParser{
		schemaRegistry: NewSchemaRegistry(),
		validator:      validator.New(),
	}
}

// Parse reads manifests from files and directories and unifies them into a
// single manifest. Problems in the manifest itself are reported in
// Manifest.Errors; the returned error is reserved for unreadable sources.
func (cp *CUEParser) Parse(ctx context.Context, sources []string) (*Manifest, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	var cueValue cue.Value
	var sourceFiles []string
	var parseErrors []ValidationError

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		var val cue.Value
		var errs []ValidationError
		if info.IsDir() {
			var files []string
			val, files, errs = cp.loadDirectory(source)
			sourceFiles = append(sourceFiles, files...)
		} else {
			val, errs = cp.loadFile(source)
			sourceFiles = append(sourceFiles, source)
		}

		parseErrors = append(parseErrors, errs...)
		if val.Exists() {
			if cueValue.Exists() {
				cueValue = cueValue.Unify(val)
			} else {
				cueValue = val
			}
		}
	}

	manifest := &Manifest{
		SourceFiles: sourceFiles,
		ParsedAt:    time.Now(),
		Errors:      parseErrors,
	}
	if manifest.HasErrors() {
		return manifest, nil
	}
	if !cueValue.Exists() {
		manifest.Errors = append(manifest.Errors, ValidationError{
			File:     strings.Join(sources, ", "),
			Message:  "no CUE files found",
			Severity: "error",
		})
		return manifest, nil
	}

	cp.extract(cueValue, manifest)
	return manifest, nil
}

// ParseInline parses manifest content held in memory. filename is used in
// error positions.
func (cp *CUEParser) ParseInline(ctx context.Context, filename, content string) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		SourceFiles: []string{filename},
		ParsedAt:    time.Now(),
	}

	val := cp.schemaRegistry.ctx.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		manifest.Errors = convertCUEErrors(err)
		return manifest, nil
	}

	cp.extract(val, manifest)
	return manifest, nil
}

// loadDirectory loads every .cue file under dir and unifies them.
func (cp *CUEParser) loadDirectory(dir string) (cue.Value, []string, []ValidationError) {
	files, err := LoadFromDirectory(dir)
	if err != nil {
		return cue.Value{}, nil, []ValidationError{{File: dir, Message: err.Error(), Severity: "error"}}
	}
	sort.Strings(files)

	var val cue.Value
	var errs []ValidationError
	for _, file := range files {
		v, fileErrs := cp.loadFile(file)
		errs = append(errs, fileErrs...)
		if !v.Exists() {
			continue
		}
		if val.Exists() {
			val = val.Unify(v)
		} else {
			val = v
		}
	}

	return val, files, errs
}

// loadFile loads a single CUE file.
func (cp *CUEParser) loadFile(path string) (cue.Value, []ValidationError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to read file: %v", err),
			Severity: "error",
		}}
	}

	val := cp.schemaRegistry.ctx.CompileString(string(content), cue.Filename(path))
	if err := val.Err(); err != nil {
		return cue.Value{}, convertCUEErrors(err)
	}

	return val, nil
}

// extract checks val against the manifest schema and decodes the declared
// resources into manifest.
func (cp *CUEParser) extract(val cue.Value, manifest *Manifest) {
	schema, err := cp.schemaRegistry.Definition("manifest", "#Manifest")
	if err != nil {
		manifest.Errors = append(manifest.Errors, ValidationError{Message: err.Error(), Severity: "error"})
		return
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		manifest.Errors = append(manifest.Errors, convertCUEErrors(err)...)
		return
	}

	resourcesVal := unified.LookupPath(cue.ParsePath("resources"))
	if !resourcesVal.Exists() {
		return
	}

	iter, err := resourcesVal.Fields()
	if err != nil {
		manifest.Errors = append(manifest.Errors, ValidationError{
			Path:     "resources",
			Message:  fmt.Sprintf("failed to iterate resources: %v", err),
			Severity: "error",
		})
		return
	}

	for iter.Next() {
		name := iter.Selector().Unquoted()
		decl, err := cp.extractResource(name, iter.Value())
		if err != nil {
			manifest.Errors = append(manifest.Errors, positioned(iter.Value(), "resources."+name, err))
			continue
		}
		manifest.Resources = append(manifest.Resources, decl)
	}
}

// extractResource decodes one resource declaration.
func (cp *CUEParser) extractResource(name string, val cue.Value) (ResourceDecl, error) {
	decl := ResourceDecl{Name: name}

	if err := val.Decode(&decl); err != nil {
		return decl, fmt.Errorf("failed to decode resource: %w", err)
	}
	decl.Name = name
	if decl.Config == nil {
		decl.Config = map[string]interface{}{}
	}

	if err := cp.validator.Struct(decl); err != nil {
		return decl, fmt.Errorf("validation failed: %w", err)
	}

	return decl, nil
}

// positioned builds a ValidationError located at val.
func positioned(val cue.Value, path string, err error) ValidationError {
	ve := ValidationError{
		Path:     path,
		Message:  err.Error(),
		Severity: "error",
	}
	if pos := val.Pos(); pos.IsValid() {
		ve.File = pos.Filename()
		ve.Line = pos.Line()
		ve.Column = pos.Column()
	}
	return ve
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{
			Path:     strings.Join(e.Path(), "."),
			Message:  strings.TrimSpace(cueerrors.Details(e, nil)),
			Severity: "error",
		}
		// Prefer a position in the manifest over one in the schema.
		positions := cueerrors.Positions(e)
		for i, pos := range positions {
			if i > 0 && strings.HasSuffix(pos.Filename(), schemaFileSuffix) {
				continue
			}
			ve.File = pos.Filename()
			ve.Line = pos.Line()
			ve.Column = pos.Column()
			if !strings.HasSuffix(ve.File, schemaFileSuffix) {
				break
			}
		}
		validationErrors = append(validationErrors, ve)
	}

	if len(validationErrors) == 0 && err != nil {
		validationErrors = append(validationErrors, ValidationError{Message: err.Error(), Severity: "error"})
	}

	return validationErrors
}

// LoadFromDirectory lists the CUE files under dir recursively.
func LoadFromDirectory(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}

// ErrNoResources is returned by RequireResources for an empty manifest.
var ErrNoResources = errors.New("manifest declares no resources")

// RequireResources returns the manifest errors, or ErrNoResources when the
// manifest is valid but empty.
func (m *Manifest) RequireResources() error {
	if err := m.Err(); err != nil {
		return err
	}
	if len(m.Resources) == 0 {
		return ErrNoResources
	}
	return nil
}
