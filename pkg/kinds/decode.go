package kinds

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// validate is shared by every kind; validator.Validate caches struct metadata
// and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report failures under the configuration key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// shapeError marks a field present with the wrong dynamic type.
type shapeError struct {
	field string
}

func (e *shapeError) Error() string {
	return fmt.Sprintf("field %s has the wrong type", e.field)
}

// AsInt reports whether v is an integer. Go integer kinds and integral
// floating point values (as produced by JSON, YAML and CUE decoding) are
// accepted; bools and fractional values are not.
func AsInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int(f), true
}

// IsNumeric reports whether v is any integer or floating point value.
func IsNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	default:
		return false
	}
}

// AsFloat converts a numeric value to float64.
func AsFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		i, ok := AsInt(v)
		return float64(i), ok
	}
}

func stringField(config map[string]interface{}, key string) (*string, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &shapeError{field: key}
	}
	return &s, nil
}

func intField(config map[string]interface{}, key string) (*int, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return nil, nil
	}
	i, ok := AsInt(raw)
	if !ok {
		return nil, &shapeError{field: key}
	}
	return &i, nil
}

func boolField(config map[string]interface{}, key string) (*bool, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return nil, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, &shapeError{field: key}
	}
	return &b, nil
}

// typeMessages replace a field's message when its value has the wrong type.
var typeMessages = map[string]string{
	"ttl_seconds": "ttl_seconds must be a positive int.",
}

// check runs struct validation and reports the first failing field, in
// declaration order, as an InvalidConfig error carrying the kind's message
// for that field. Fields that failed to decode count as failures.
func check(spec interface{}, fields []string, messages map[string]string, decodeErrs ...error) error {
	failed := make(map[string]bool)
	wrongType := make(map[string]bool)
	for _, err := range decodeErrs {
		var se *shapeError
		if errors.As(err, &se) {
			failed[se.field] = true
			wrongType[se.field] = true
		}
	}

	if err := validate.Struct(spec); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return engine.NewError(engine.CodeInvalidConfig, err.Error())
		}
		for _, fe := range verrs {
			failed[fe.Field()] = true
		}
	}

	for _, field := range fields {
		if !failed[field] {
			continue
		}
		if msg, ok := typeMessages[field]; ok && wrongType[field] {
			return engine.NewInvalidConfigError(field, msg).WithOperation("create")
		}
		return invalid(field, messages)
	}
	return nil
}

func invalid(field string, messages map[string]string) error {
	msg, ok := messages[field]
	if !ok {
		msg = fmt.Sprintf("Invalid %s.", field)
	}
	return engine.NewInvalidConfigError(field, msg).WithOperation("create")
}

// formatValue renders a config value for detail strings. Booleans render as
// True/False and integral floats drop their fraction.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case float32, float64:
		if i, ok := AsInt(val); ok {
			return fmt.Sprintf("%d", i)
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
