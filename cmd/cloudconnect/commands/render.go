package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusTag labels a resource in listings.
func statusTag(v engine.View) string {
	switch {
	case v.Deleted:
		return "[DELETED]"
	case v.Status == engine.StateStarted:
		return "[RUNNING]"
	case v.Status == engine.StateStopped:
		return "[STOPPED]"
	default:
		return "[CREATED]"
	}
}

// printOverview writes the resource overview: totals, breakdowns and each
// resource with its details.
func printOverview(w io.Writer, views []engine.View, summary engine.Summary) {
	fmt.Fprintln(w, "Resource Overview")
	fmt.Fprintln(w, strings.Repeat("-", 22))
	fmt.Fprintf(w, "Total Resources: %d\n", summary.Total)

	if summary.Total == 0 {
		fmt.Fprintln(w, "No resources found. Create some resources first!")
		return
	}

	fmt.Fprintln(w, "\nBy Type:")
	for _, k := range sortedKeys(summary.ByType) {
		fmt.Fprintf(w, "  %s: %d\n", k, summary.ByType[k])
	}

	fmt.Fprintln(w, "\nBy Status:")
	for _, k := range sortedKeys(summary.ByStatus) {
		fmt.Fprintf(w, "  %s: %d\n", strings.ToUpper(k), summary.ByStatus[k])
	}

	var active, deleted []engine.View
	for _, v := range views {
		if v.Deleted {
			deleted = append(deleted, v)
		} else {
			active = append(active, v)
		}
	}

	if len(active) > 0 {
		fmt.Fprintln(w, "\nActive Resources:")
		printViews(w, active)
	}
	if len(deleted) > 0 {
		fmt.Fprintln(w, "\nDeleted Resources:")
		printViews(w, deleted)
	}
}

func printViews(w io.Writer, views []engine.View) {
	for _, v := range views {
		fmt.Fprintf(w, "  %s %s\n", statusTag(v), v.Name)
		fmt.Fprintf(w, "    Type: %s, Status: %s\n", v.Type, v.Status)
		fmt.Fprintf(w, "    Details: %s\n", v.Details)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// overview is the JSON form of a listing.
type overview struct {
	Resources []engine.View  `json:"resources"`
	Summary   engine.Summary `json:"summary"`
	Failures  []failure      `json:"failures,omitempty"`
}

// failure records one rejected operation.
type failure struct {
	Resource  string `json:"resource"`
	Operation string `json:"operation"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error"`
}

func newFailure(resource, operation string, err error) failure {
	return failure{
		Resource:  resource,
		Operation: operation,
		Code:      string(engine.CodeOf(err)),
		Error:     err.Error(),
	}
}
