package main

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caffeineduck/headless/internal/wasmtest"
	"github.com/spf13/cobra"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// isolate keeps tests away from the user's config and cache.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
}

func writeModule(t *testing.T, name string, binary []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, binary, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(newRootCmd(), "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"headless",
		"WebAssembly",
		"/persist",
		"run",
		"console",
		"smoke",
		"--config",
		"--no-cache",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("help output should contain %q", phrase)
		}
	}
}

func TestCLIRunHelp(t *testing.T) {
	output, err := executeCommand(newRootCmd(), "run", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"--timeout",
		"--allow-host",
		"--data-dir",
		"--store",
		"--search",
		"--env",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("run help output should contain %q", phrase)
		}
	}
}

func TestCLIConsoleHelp(t *testing.T) {
	output, err := executeCommand(newRootCmd(), "console", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedPhrases := []string{
		"--history",
		"--data-dir",
		"Command history",
		"Line editing",
		"Ctrl+D",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("console help output should contain %q", phrase)
		}
	}
}

func TestCLIRunModule(t *testing.T) {
	isolate(t)
	path := writeModule(t, "hello.wasm", wasmtest.StdoutHello)

	output, err := executeCommand(newRootCmd(), "run", "--no-cache", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "hello\n" {
		t.Errorf("expected 'hello\\n', got %q", output)
	}

	dataDir := filepath.Join(filepath.Dir(path), "hello-data")
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		t.Errorf("expected data directory %s: %v", dataDir, err)
	}
}

func TestCLIRunDataDirFlag(t *testing.T) {
	isolate(t)
	path := writeModule(t, "engine.wasm", wasmtest.EmptyStart)
	dataDir := filepath.Join(t.TempDir(), "saves")

	if _, err := executeCommand(newRootCmd(), "run", "--no-cache", "--data-dir", dataDir, path, "--", "-skin", "default"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("expected data directory %s: %v", dataDir, err)
	}
}

func TestCLIRunTrap(t *testing.T) {
	isolate(t)
	path := writeModule(t, "trap.wasm", wasmtest.TrapStart)

	_, err := executeCommand(newRootCmd(), "run", "--no-cache", path)
	if err == nil {
		t.Fatal("expected error")
	}
	var exit exitError
	if errors.As(err, &exit) {
		t.Errorf("a trap is not an exit, got %v", err)
	}
}

func TestCLIRunInvalidFlags(t *testing.T) {
	isolate(t)
	path := writeModule(t, "engine.wasm", wasmtest.EmptyStart)

	tests := []struct {
		name string
		args []string
	}{
		{"memory", []string{"run", "--memory", "3mb", path}},
		{"store", []string{"run", "--store", "tape", path}},
		{"env", []string{"run", "--env", "NOVALUE", path}},
		{"log level", []string{"run", "--log-level", "loud", path}},
		{"missing module", []string{"run", filepath.Join(t.TempDir(), "missing.wasm")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(newRootCmd(), append([]string{"--no-cache"}, tt.args...)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCLIConfigFile(t *testing.T) {
	isolate(t)
	path := writeModule(t, "engine.wasm", wasmtest.EmptyStart)
	dataDir := filepath.Join(t.TempDir(), "from-config")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "no_cache: true\npersist:\n  data_dir: " + dataDir + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCommand(newRootCmd(), "--config", cfgPath, "run", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("expected data directory from config %s: %v", dataDir, err)
	}
}

func TestCLISmoke(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("osu file format v14"))
	}))
	defer srv.Close()

	path := writeModule(t, "calculator.wasm", wasmtest.Calculator)

	output, err := executeCommand(newRootCmd(), "smoke", "--no-cache", "--url", srv.URL+"/osu/3337690", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "pp version: 20250306\npp: 19\n" {
		t.Errorf("unexpected output %q", output)
	}
}
