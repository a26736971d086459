package auditlog

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the layout used for the bracketed record timestamp.
const TimestampLayout = "2006-01-02 03:04:05 PM"

// Timestamp formats t for a record.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ObservationLine formats the record emitted after a successful lifecycle
// operation. action is the past tense of the operation and message is the
// outcome the operation returned.
func ObservationLine(t time.Time, kind, name, action, message string) string {
	return fmt.Sprintf("[%s] %s '%s' %s - %s", Timestamp(t), kind, name, action, message)
}

// CreatedLine formats the audit record for a successful create. The config is
// rendered as JSON with sorted keys.
func CreatedLine(t time.Time, kind, name string, config map[string]interface{}) string {
	return fmt.Sprintf("[%s] %s '%s' created with config %s", Timestamp(t), kind, name, renderConfig(config))
}

// CreateFailedLine formats the audit record for a rejected create.
func CreateFailedLine(t time.Time, kind, name string, cause error) string {
	return fmt.Sprintf("[%s] Failed to create %s '%s': %v", Timestamp(t), kind, name, cause)
}

// renderConfig relies on encoding/json sorting map keys.
func renderConfig(config map[string]interface{}) string {
	if config == nil {
		return "{}"
	}
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Sprintf("%v", config)
	}
	return string(data)
}
