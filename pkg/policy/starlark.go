package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
	"github.com/cloudconnect/cloudconnect/pkg/factory"
)

// defaultScriptTimeout bounds a single deny call.
const defaultScriptTimeout = 5 * time.Second

// maxExecutionSteps bounds the work a script may do in one call.
const maxExecutionSteps = 1_000_000

// ScriptPolicy is a family policy written in Starlark. A script may define
// any of these globals:
//
//	families = ["storage"]            # families covered; all when absent
//	defaults = {"max_size_gb": 100}   # injected when missing
//	def deny(resource):               # returns None, a message, or a list
//	    ...
//
// deny receives a dict with name, kind, family and config keys. A returned
// string, a non-empty list of strings, or a dict with message and field keys
// rejects the resource.
type ScriptPolicy struct {
	name     string
	source   string
	families []engine.Family
	defaults map[string]interface{}
	deny     starlark.Callable
	timeout  time.Duration
}

var _ factory.FamilyPolicy = (*ScriptPolicy)(nil)

// NewScriptPolicy executes script once to read its globals.
func NewScriptPolicy(name, script string) (*ScriptPolicy, error) {
	thread := newThread(name)
	globals, err := starlark.ExecFile(thread, name+".star", script, starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	})
	if err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", err)
	}

	p := &ScriptPolicy{
		name:    name,
		source:  name + ".star",
		timeout: defaultScriptTimeout,
	}

	if v, ok := globals["families"]; ok {
		raw, err := fromStarlarkValue(v)
		if err != nil {
			return nil, fmt.Errorf("invalid families: %w", err)
		}
		list, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("families must be a list, got %s", v.Type())
		}
		for _, item := range list {
			s, _ := item.(string)
			family, err := engine.ParseFamily(s)
			if err != nil {
				return nil, err
			}
			p.families = append(p.families, family)
		}
	}

	if v, ok := globals["defaults"]; ok {
		raw, err := fromStarlarkValue(v)
		if err != nil {
			return nil, fmt.Errorf("invalid defaults: %w", err)
		}
		defaults, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("defaults must be a dict, got %s", v.Type())
		}
		p.defaults = defaults
	}

	if v, ok := globals["deny"]; ok {
		fn, ok := v.(starlark.Callable)
		if !ok {
			return nil, fmt.Errorf("deny must be a function, got %s", v.Type())
		}
		p.deny = fn
	}

	if p.defaults == nil && p.deny == nil {
		return nil, fmt.Errorf("script %s defines neither defaults nor deny", name)
	}
	return p, nil
}

// LoadScriptPolicies loads .star files from files and directories, in path
// order and then file name order.
func LoadScriptPolicies(paths []string) ([]*ScriptPolicy, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(path, "*.star"))
		if err != nil {
			return nil, fmt.Errorf("failed to list scripts in %s: %w", path, err)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}

	policies := make([]*ScriptPolicy, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read script: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(file), ".star")
		p, err := NewScriptPolicy(name, string(data))
		if err != nil {
			return nil, fmt.Errorf("failed to load script %s: %w", file, err)
		}
		p.source = file
		policies = append(policies, p)
	}
	return policies, nil
}

// Name implements factory.FamilyPolicy.
func (p *ScriptPolicy) Name() string {
	return "script:" + p.name
}

// Source returns the file the script was loaded from.
func (p *ScriptPolicy) Source() string {
	return p.source
}

// Applies implements factory.FamilyPolicy.
func (p *ScriptPolicy) Applies(family engine.Family) bool {
	if len(p.families) == 0 {
		return true
	}
	for _, f := range p.families {
		if f == family {
			return true
		}
	}
	return false
}

// Apply implements factory.FamilyPolicy.
func (p *ScriptPolicy) Apply(ctx context.Context, kind engine.Kind, config map[string]interface{}) error {
	keys := make([]string, 0, len(p.defaults))
	for k := range p.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	defaults := engine.CopyConfig(p.defaults)
	for _, k := range keys {
		if _, present := config[k]; !present {
			config[k] = defaults[k]
		}
	}

	if p.deny == nil {
		return nil
	}

	resource, err := toStarlarkValue(map[string]interface{}{
		"name":   factory.ResourceName(ctx),
		"kind":   kind.Name(),
		"family": string(kind.Family()),
		"config": normalize(config),
	})
	if err != nil {
		return engine.Errorf(engine.CodeFamilyPolicyViolation, "policy %s: %v", p.Name(), err).WithOperation("create")
	}

	result, err := p.call(ctx, resource)
	if err != nil {
		return engine.Errorf(engine.CodeFamilyPolicyViolation, "policy %s failed: %v", p.Name(), err).WithOperation("create")
	}

	if msg, field := denial(result); msg != "" {
		return engine.NewPolicyViolationError(field, msg).WithOperation("create")
	}
	return nil
}

// call runs deny on its own thread, cancelling it when ctx ends or the
// timeout elapses.
func (p *ScriptPolicy) call(ctx context.Context, resource starlark.Value) (starlark.Value, error) {
	evalCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	thread := newThread(p.name)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-evalCtx.Done():
			thread.Cancel(fmt.Sprintf("execution timeout after %v", p.timeout))
		case <-done:
		}
	}()

	return starlark.Call(thread, p.deny, starlark.Tuple{resource}, nil)
}

func newThread(name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: "cloudconnect:" + name,
		Print: func(_ *starlark.Thread, _ string) {
			// print output is discarded
		},
	}
	thread.SetMaxExecutionSteps(maxExecutionSteps)
	return thread
}

// denial interprets a deny result.
func denial(v starlark.Value) (message, field string) {
	switch val := v.(type) {
	case starlark.NoneType:
		return "", ""
	case starlark.String:
		return string(val), ""
	case *starlark.List:
		if val.Len() == 0 {
			return "", ""
		}
		return denial(val.Index(0))
	case starlark.Tuple:
		if len(val) == 0 {
			return "", ""
		}
		return denial(val[0])
	case *starlark.Dict:
		msg, _, _ := val.Get(starlark.String("message"))
		fld, _, _ := val.Get(starlark.String("field"))
		m, _ := starlark.AsString(msg)
		f, _ := starlark.AsString(fld)
		return m, f
	case starlark.Bool:
		if val {
			return "denied", ""
		}
		return "", ""
	default:
		return v.String(), ""
	}
}

// normalize converts integer kinds starlark cannot take to int64.
func normalize(config map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		switch n := v.(type) {
		case int8, int16, int32, uint, uint8, uint16, uint32, uint64:
			i, _ := toInt64(n)
			out[k] = i
		case float32:
			out[k] = float64(n)
		case map[string]interface{}:
			out[k] = normalize(n)
		default:
			out[k] = v
		}
	}
	return out
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// toStarlarkValue converts a Go value to a Starlark value.
func toStarlarkValue(v interface{}) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			starlarkItem, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = starlarkItem
		}
		return starlark.NewList(list), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, v := range val {
			starlarkVal, err := toStarlarkValue(v)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), starlarkVal); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// fromStarlarkValue converts a Starlark value to a Go value.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		list := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case starlark.Tuple:
		list := make([]interface{}, len(val))
		for i, item := range val {
			goItem, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = goItem
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]interface{})
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]interface{})
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}
