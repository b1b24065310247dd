package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"epgmerge/internal/xmltv"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	sourceFile string
	outputFile string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		sourceFile: filepath.Join(base, "source_epg.txt"),
		outputFile: filepath.Join(base, "epg.xml"),
	}

	content := fmt.Sprintf(`[paths]
source_file = %q
output_file = %q
staging_dir = %q
log_dir = %q

[journal]
enabled = true
max_runs = 5
`, env.sourceFile, env.outputFile,
		filepath.Join(base, "staging"), filepath.Join(base, "logs"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsPath(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "config", "validate", "--path", env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestRunCommandEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t)

	start := time.Now().Add(time.Hour).Format(xmltv.TimeLayout)
	stop := time.Now().Add(2 * time.Hour).Format(xmltv.TimeLayout)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><tv>`+
			`<channel id="alpha"><display-name>Alpha</display-name></channel>`+
			`<programme start=%q stop=%q channel="alpha"><title>show</title></programme>`+
			`</tv>`, start, stop)
	}))
	defer server.Close()

	source := "timeframe=48\n" + server.URL + "/guide.xml\nalpha\n"
	if err := os.WriteFile(env.sourceFile, []byte(source), 0o644); err != nil {
		t.Fatalf("write source list: %v", err)
	}

	out, err := runCLI(t, "--config", env.configPath, "run")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "Merged 1 channels and 1 programmes")

	data, err := os.ReadFile(env.outputFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	requireContains(t, string(data), `channel id="alpha"`)

	out, err = runCLI(t, "--config", env.configPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "Feeds")

	out, err = runCLI(t, "--config", env.configPath, "runs", "show", "1")
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "Run 1")
	requireContains(t, out, "guide.xml")
	requireContains(t, out, "merged")
}

func TestRunCommandReportsFailedFeeds(t *testing.T) {
	env := setupCLITestEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	source := "timeframe=48\n" + server.URL + "/missing.xml\nalpha\n"
	if err := os.WriteFile(env.sourceFile, []byte(source), 0o644); err != nil {
		t.Fatalf("write source list: %v", err)
	}

	out, err := runCLI(t, "--config", env.configPath, "run")
	if err == nil {
		t.Fatalf("expected run to report the failed feed, output:\n%s", out)
	}
	requireContains(t, err.Error(), "1 of 1 feeds failed")
}

func TestRunsListEmptyJournal(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "--config", env.configPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}
