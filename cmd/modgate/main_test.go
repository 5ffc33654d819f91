package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, modules string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "modgate.yaml")
	content := `
service:
  name: CLI API
  base_path: /api
  versions:
    - version: v1
      available: true
      libraries:
        - name: mimetypes
      modules:
` + modules + `
database:
  dsn: ` + filepath.Join(dir, "modgate.db") + `
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

const builtinModules = `        - path: ping
          script: ping
          available: true
        - path: Reports/Export
          script: export
          available: false
          authentication_required: true
`

func TestValidateCommand(t *testing.T) {
	path := writeTestConfig(t, builtinModules)
	out, err := execute(t, "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration is valid.") {
		t.Errorf("output = %s", out)
	}

	path = writeTestConfig(t, builtinModules+`        - path: other
          script: not-registered
          available: true
`)
	out, err = execute(t, "validate", "--config", path)
	if err == nil || !strings.Contains(out, "missing: v1/not-registered") {
		t.Errorf("validate with missing script: err=%v out=%s", err, out)
	}
}

func TestRoutesCommand(t *testing.T) {
	path := writeTestConfig(t, builtinModules)
	out, err := execute(t, "routes", "--config", path)
	if err != nil {
		t.Fatalf("routes error: %v", err)
	}
	for _, want := range []string{"/api/v1/ping", "/api/v1/reports/export", "export"} {
		if !strings.Contains(out, want) {
			t.Errorf("routes output missing %q:\n%s", want, out)
		}
	}
}

func TestKeysCommands(t *testing.T) {
	path := writeTestConfig(t, builtinModules)

	out, err := execute(t, "keys", "create", "--config", path, "--application", "7", "--name", "ci")
	if err != nil {
		t.Fatalf("keys create error: %v", err)
	}
	if !strings.Contains(out, "Key: ak_") {
		t.Errorf("create output = %s", out)
	}

	out, err = execute(t, "keys", "list", "--config", path, "--application", "7")
	if err != nil {
		t.Fatalf("keys list error: %v", err)
	}
	if !strings.Contains(out, "ci") || !strings.Contains(out, "never") {
		t.Errorf("list output = %s", out)
	}

	if _, err := execute(t, "keys", "revoke", "--config", path, "abc"); err == nil {
		t.Error("revoke with non-numeric id should fail")
	}
}

func TestRequestsCommand(t *testing.T) {
	path := writeTestConfig(t, builtinModules)
	out, err := execute(t, "requests", "--config", path)
	if err != nil {
		t.Fatalf("requests error: %v", err)
	}
	if !strings.Contains(out, "Requests: 0") || !strings.Contains(out, "No requests recorded.") {
		t.Errorf("output = %s", out)
	}
}
