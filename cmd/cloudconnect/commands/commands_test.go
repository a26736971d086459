package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the CLI with args and stdin and returns everything written to
// stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := newRootCommand("test", "none", "today")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resources.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestShell_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	input := strings.Join([]string{
		"create AppService web1 runtime=python region=EastUS",
		"start web1",
		"stop web1",
		"delete web1",
		"list",
		"logs web1",
		"exit",
	}, "\n")

	out, err := run(t, input, "shell", "--log-dir", dir)
	if err != nil {
		t.Fatalf("shell failed: %v\n%s", err, out)
	}

	assertContains(t, out,
		"AppService 'web1' created successfully.",
		"web1 started.",
		"web1 stopped.",
		"web1 deleted.",
		"Total Resources: 1",
		"DELETED: 1",
		"[DELETED] web1",
		"Logs for web1",
		`AppService 'web1' created with config {"region":"EastUS","replica_count":1,"runtime":"python"}`,
		"AppService 'web1' started - web1 started.",
		"AppService 'web1' deleted - web1 deleted.",
		"Goodbye!",
	)

	data, err := os.ReadFile(filepath.Join(dir, "web1.log"))
	if err != nil {
		t.Fatalf("expected a log file: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 4 {
		t.Errorf("expected 4 records, got %d:\n%s", len(lines), data)
	}
}

func TestShell_Errors(t *testing.T) {
	input := strings.Join([]string{
		"create AppService",
		"create Queue q1",
		"create AppService web1 runtime",
		"create AppService web1 runtime=ruby region=EastUS",
		"start missing",
		"create CacheDB c1",
		"create CacheDB c1",
		"delete c1",
		"start c1",
		"frobnicate",
		"logs nobody",
	}, "\n")

	out, err := run(t, input, "shell", "--sink", "memory")
	if err != nil {
		t.Fatalf("shell failed: %v\n%s", err, out)
	}

	assertContains(t, out,
		"Usage: create <kind> <name>",
		"Creation failed: failed to create 'q1': Unknown resource type: Queue",
		`expected key=value, got "runtime"`,
		"Creation failed: failed to create 'web1':",
		"Error: failed to start 'missing': Resource 'missing' not found",
		"CacheDB 'c1' created successfully.",
		"Creation failed: Resource 'c1' already exists",
		"c1 deleted.",
		"Error: failed to start 'c1': Cannot start deleted resource.",
		`Unknown command "frobnicate"`,
		"Error: No log found for nobody.",
	)
}

func TestShell_NoInstrument(t *testing.T) {
	input := "create AppService web1 runtime=nodejs region=WestEurope\nstart web1\nlogs web1\n"

	out, err := run(t, input, "shell", "--sink", "memory", "--no-instrument")
	if err != nil {
		t.Fatalf("shell failed: %v\n%s", err, out)
	}

	assertContains(t, out, "created with config", "web1 started.")
	if strings.Contains(out, "'web1' started - ") {
		t.Errorf("expected no observation record without instrumentation:\n%s", out)
	}
}

func TestShell_Baseline(t *testing.T) {
	input := "create CacheDB c1 ttl_seconds=60\ncreate AppService web1 runtime=python region=EastUS\n"

	out, err := run(t, input, "shell", "--sink", "memory", "--baseline")
	if err != nil {
		t.Fatalf("shell failed: %v\n%s", err, out)
	}

	assertContains(t, out,
		"CacheDB 'c1' created successfully.",
		"Creation failed: failed to create 'web1':",
	)
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"python", "python"},
		{"3", 3},
		{"1.5", 1.5},
		{"true", true},
		{"false", false},
		{"", ""},
		{"a: b", "a: b"},
		{"[1", "[1"},
		{"EastUS", "EastUS"},
	}

	for _, tt := range tests {
		if got := parseScalar(tt.in); got != tt.want {
			t.Errorf("parseScalar(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

const manifestOK = `
resources: {
	web1: {
		kind: "AppService"
		config: {runtime: "python", region: "EastUS", replica_count: 2}
		actions: ["start"]
	}
	store1: {
		kind: "StorageAccount"
		config: access_key: "abcdefgh"
		actions: ["start", "stop", "delete"]
	}
}
`

func TestApply(t *testing.T) {
	path := writeManifest(t, manifestOK)

	out, err := run(t, "", "apply", "--sink", "memory", path)
	if err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}

	assertContains(t, out,
		"AppService 'web1' created successfully.",
		"web1 started.",
		"StorageAccount 'store1' created successfully.",
		"store1 deleted.",
		"Total Resources: 2",
		"[RUNNING] web1",
		"[DELETED] store1",
	)
}

func TestApply_JSON(t *testing.T) {
	path := writeManifest(t, `
resources: {
	web1: {
		kind: "AppService"
		config: {runtime: "python", region: "EastUS"}
		actions: ["stop"]
	}
	bad: {
		kind: "CacheDB"
		config: ttl_seconds: 10
	}
}
`)

	out, err := run(t, "", "apply", "--sink", "memory", "--json", path)
	if err == nil || !strings.Contains(err.Error(), "2 operation(s) failed") {
		t.Fatalf("expected two failures, got %v\n%s", err, out)
	}

	var got overview
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(got.Resources) != 1 || got.Resources[0].Name != "web1" || got.Summary.Total != 1 {
		t.Errorf("unexpected resources: %+v", got)
	}
	if len(got.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", got.Failures)
	}
	if got.Failures[0].Operation != "stop" || got.Failures[0].Code != "INVALID_TRANSITION" {
		t.Errorf("unexpected first failure: %+v", got.Failures[0])
	}
	if got.Failures[1].Resource != "bad" || got.Failures[1].Code != "FAMILY_POLICY_VIOLATION" {
		t.Errorf("unexpected second failure: %+v", got.Failures[1])
	}
}

func TestApply_InvalidManifest(t *testing.T) {
	path := writeManifest(t, "resources: web1: actions: [\"restart\"]\n")

	_, err := run(t, "", "apply", "--sink", "memory", path)
	if err == nil || !strings.Contains(err.Error(), "invalid manifest") {
		t.Fatalf("expected manifest error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("expected the file name in the error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	path := writeManifest(t, `
resources: {
	web1: {
		kind: "AppService"
		config: {runtime: "python", region: "EastUS"}
		actions: ["start", "stop"]
	}
	web2: {
		kind: "AppService"
		config: {runtime: "python", region: "EastUS"}
		actions: ["start", "delete"]
	}
	store1: {
		kind: "StorageAccount"
		config: access_key: "short"
	}
}
`)

	out, err := run(t, "", "validate", path)
	if err == nil || !strings.Contains(err.Error(), "2 of 3 resource(s) invalid") {
		t.Fatalf("expected validation failure, got %v\n%s", err, out)
	}

	assertContains(t, out,
		"ok    web1 (AppService): web1 (python in EastUS)",
		"FAIL  web2 (AppService): action delete: Stop first before deleting.",
		"FAIL  store1 (StorageAccount): access_key must be at least 8 characters.",
	)
}

func TestLogsCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, manifestOK)

	if out, err := run(t, "", "apply", "--log-dir", dir, path); err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}

	out, err := run(t, "", "logs", "--log-dir", dir)
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	assertContains(t, out, "Found 2 log streams:", "1. store1", "2. web1")

	out, err = run(t, "", "logs", "--log-dir", dir, "web1")
	if err != nil {
		t.Fatalf("logs web1 failed: %v", err)
	}
	assertContains(t, out, "Logs for web1", "AppService 'web1' started - web1 started.")

	out, err = run(t, "", "logs", "--log-dir", dir, "--json", "--all")
	if err != nil {
		t.Fatalf("logs --all failed: %v", err)
	}
	var all map[string][]string
	if err := json.Unmarshal([]byte(out), &all); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(all["store1"]) != 4 || len(all["web1"]) != 2 {
		t.Errorf("unexpected streams: %v", all)
	}

	if _, err := run(t, "", "logs", "--log-dir", dir, "missing"); err == nil {
		t.Error("expected error for a missing stream")
	}
}

func TestLogsCommand_SQLite(t *testing.T) {
	db := filepath.Join(t.TempDir(), "audit.db")
	path := writeManifest(t, manifestOK)

	if out, err := run(t, "", "apply", "--sink", "sqlite", path, "--config", writeConfig(t, "database_path: "+db+"\n")); err != nil {
		t.Fatalf("apply failed: %v\n%s", err, out)
	}

	out, err := run(t, "", "logs", "--sink", "sqlite", "--config", writeConfig(t, "database_path: "+db+"\n"), "store1")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	assertContains(t, out, "StorageAccount 'store1' created with config", "store1 deleted.")

	out, err = run(t, "", "logs", "--events", "--sink", "sqlite", "--config", writeConfig(t, "database_path: "+db+"\n"), "store1")
	if err != nil {
		t.Fatalf("logs --events failed: %v", err)
	}
	assertContains(t, out,
		"resource.created: StorageAccount 'store1' created",
		"resource.transitioned: Resource store1 state changed from stopped to deleted",
	)

	if _, err := run(t, "", "logs", "--events", "--log-dir", t.TempDir()); err == nil {
		t.Error("expected error for a file sink")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cloudconnect.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigFile_Policies(t *testing.T) {
	policyDir := t.TempDir()
	script := `
families = ["app"]

def deny(resource):
    if resource["config"]["region"] == "CentralIndia":
        return "CentralIndia is not available"
    return None
`
	if err := os.WriteFile(filepath.Join(policyDir, "regions.star"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	cfgPath := writeConfig(t, `
sink: memory
builtin_policies: [naming-convention]
policy_scripts: [`+policyDir+`]
`)

	input := strings.Join([]string{
		"create AppService Web1 runtime=python region=EastUS",
		"create AppService web2 runtime=python region=CentralIndia",
		"create AppService web3 runtime=python region=EastUS",
	}, "\n")

	out, err := run(t, input, "shell", "--config", cfgPath)
	if err != nil {
		t.Fatalf("shell failed: %v\n%s", err, out)
	}

	assertContains(t, out,
		"Creation failed: failed to create 'Web1': Resource name 'Web1' must be lowercase alphanumeric with hyphens",
		"Creation failed: failed to create 'web2': CentralIndia is not available",
		"AppService 'web3' created successfully.",
	)
}

func TestConfigFile_Invalid(t *testing.T) {
	cfgPath := writeConfig(t, "sink: tape\n")
	if _, err := run(t, "", "kinds", "--config", cfgPath); err == nil {
		t.Error("expected config error")
	}
}

func TestKinds(t *testing.T) {
	out, err := run(t, "", "kinds")
	if err != nil {
		t.Fatalf("kinds failed: %v", err)
	}
	assertContains(t, out, "KIND", "AppService", "StorageAccount", "CacheDB", "cache")

	out, err = run(t, "", "kinds", "--json")
	if err != nil {
		t.Fatalf("kinds --json failed: %v", err)
	}
	var got []kindInfo
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 3 || got[0].Name != "AppService" || got[0].Family != "app" {
		t.Errorf("unexpected kinds: %+v", got)
	}
}
