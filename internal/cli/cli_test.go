package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setupclojure/internal/tools"
	"setupclojure/internal/tui"
)

type runnerDirs struct {
	toolCache string
	temp      string
	config    string
}

// isolate pins every variable the CLI reads so the host runner cannot leak in.
func isolate(t *testing.T) runnerDirs {
	t.Helper()
	for _, name := range []string{
		"GITHUB_ACTIONS", "GITHUB_ENV", "GITHUB_PATH", "GITHUB_STEP_SUMMARY", "GITHUB_TOKEN",
		"RUNNER_TEMP", "RUNNER_TOOL_CACHE",
		"SETUP_CLOJURE_CACHE_DIR", "SETUP_CLOJURE_CACHE_BUCKET", "SETUP_CLOJURE_CACHE_REGION", "SETUP_CLOJURE_CACHE_PREFIX",
		"INPUT_LEIN", "INPUT_BOOT", "INPUT_CLI", "INPUT_TOOLS-DEPS", "INPUT_BB", "INPUT_CLJ-KONDO",
		"INPUT_CLJFMT", "INPUT_CLJSTYLE", "INPUT_ZPRINT", "INPUT_GITHUB-TOKEN", "INPUT_INVALIDATE-CACHE",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("RUNNER_OS", "Linux")
	t.Setenv("RUNNER_ARCH", "X64")
	t.Setenv("PATH", os.Getenv("PATH"))

	dir := t.TempDir()
	return runnerDirs{
		toolCache: filepath.Join(dir, "toolcache"),
		temp:      filepath.Join(dir, "temp"),
		config:    filepath.Join(dir, "missing.yaml"),
	}
}

func (d runnerDirs) flags() []string {
	return []string{"--tool-cache", d.toolCache, "--temp", d.temp, "--config", d.config}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func seedBabashka(t *testing.T, toolCache string) string {
	t.Helper()
	dir := filepath.Join(toolCache, "Babashka", "1.3.186", "amd64")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bb"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(dir+".complete", nil, 0o644))
	return dir
}

func TestParseToolArgs(t *testing.T) {
	got, err := parseToolArgs([]string{"cli=1.11.1.1413", "BB", "clj-kondo= 2024.02.12 ", "zprint="})
	require.NoError(t, err)
	want := map[string]string{
		"cli":       "1.11.1.1413",
		"bb":        "latest",
		"clj-kondo": "2024.02.12",
		"zprint":    "latest",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseToolArgs() mismatch (-want +got):\n%s", diff)
	}

	_, err = parseToolArgs([]string{"bb", "bb=1.3.186"})
	assert.Error(t, err)

	_, err = parseToolArgs([]string{"=1.0"})
	assert.Error(t, err)
}

func TestActionRequiresATool(t *testing.T) {
	dirs := isolate(t)

	_, _, err := execute(t, dirs.flags()...)
	require.Error(t, err)
	assert.Equal(t, "You must specify at least one clojure tool.", err.Error())
}

func TestActionRejectsCljstyleOnWindows(t *testing.T) {
	dirs := isolate(t)
	t.Setenv("RUNNER_OS", "Windows")
	t.Setenv("INPUT_CLJSTYLE", "0.15.0")
	t.Setenv("INPUT_LEIN", "2.11.2")

	_, _, err := execute(t, dirs.flags()...)
	require.Error(t, err)
	assert.Equal(t, "cljstyle on windows is not supported yet.", err.Error())

	_, statErr := os.Stat(filepath.Join(dirs.toolCache, "Leiningen"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestActionRejectsBadBooleanInput(t *testing.T) {
	dirs := isolate(t)
	t.Setenv("INPUT_BB", "1.3.186")
	t.Setenv("INPUT_INVALIDATE-CACHE", "yes")

	_, _, err := execute(t, dirs.flags()...)
	var cerr *tools.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestActionInstallsFromToolCache(t *testing.T) {
	dirs := isolate(t)
	dir := seedBabashka(t, dirs.toolCache)
	t.Setenv("INPUT_BB", "1.3.186")

	summary := filepath.Join(t.TempDir(), "summary.md")
	require.NoError(t, os.WriteFile(summary, nil, 0o644))
	envFile := filepath.Join(t.TempDir(), "env")
	require.NoError(t, os.WriteFile(envFile, nil, 0o644))
	pathFile := filepath.Join(t.TempDir(), "path")
	require.NoError(t, os.WriteFile(pathFile, nil, 0o644))
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("GITHUB_STEP_SUMMARY", summary)
	t.Setenv("GITHUB_ENV", envFile)
	t.Setenv("GITHUB_PATH", pathFile)

	_, _, err := execute(t, dirs.flags()...)
	require.NoError(t, err)

	paths, err := os.ReadFile(pathFile)
	require.NoError(t, err)
	assert.Contains(t, string(paths), dir)

	md, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(md), "| bb | 1.3.186 | cached |")
}

func TestInstallPlain(t *testing.T) {
	dirs := isolate(t)
	seedBabashka(t, dirs.toolCache)
	metricsFile := filepath.Join(t.TempDir(), "setup-clojure.prom")

	args := append([]string{"install", "bb=1.3.186", "--plain", "--metrics-file", metricsFile}, dirs.flags()...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "bb")
	assert.Contains(t, stdout, "cached")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `setup_clojure_installs_total{result="success",source="cache",tool="bb"} 1`)
}

func TestInstallJSON(t *testing.T) {
	dirs := isolate(t)
	dir := seedBabashka(t, dirs.toolCache)

	args := append([]string{"install", "bb=1.3.186", "--json"}, dirs.flags()...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	var rows []tui.SummaryRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "bb", rows[0].Tool)
	assert.Equal(t, tui.StatusCached, rows[0].Status)
	assert.Equal(t, dir, rows[0].Path)
}

func TestInstallRejectsUnknownTool(t *testing.T) {
	dirs := isolate(t)

	args := append([]string{"install", "deps.exe=1.0", "--plain"}, dirs.flags()...)
	_, _, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool "deps.exe"`)
}

func TestInstallRejectsCacheDirAndBucketFromEnv(t *testing.T) {
	dirs := isolate(t)
	seedBabashka(t, dirs.toolCache)
	t.Setenv("SETUP_CLOJURE_CACHE_DIR", t.TempDir())
	t.Setenv("SETUP_CLOJURE_CACHE_BUCKET", "ci-cache")

	args := append([]string{"install", "bb=1.3.186", "--plain"}, dirs.flags()...)
	stdout, _, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dir and bucket are mutually exclusive")
	assert.NotContains(t, stdout, "cached")
}

func TestProcessPublisherConcurrentAddPath(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	p := &processPublisher{}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.AddPath(fmt.Sprintf("/toolcache/tool-%d", i))
		}(i)
	}
	wg.Wait()

	entries := filepath.SplitList(os.Getenv("PATH"))
	assert.Len(t, entries, 17)
	for i := 0; i < 16; i++ {
		assert.Contains(t, entries, fmt.Sprintf("/toolcache/tool-%d", i))
	}
	assert.Equal(t, "/usr/bin", entries[len(entries)-1])
}

func TestInstallFromConfigFile(t *testing.T) {
	dirs := isolate(t)
	seedBabashka(t, dirs.toolCache)
	require.NoError(t, os.WriteFile(dirs.config, []byte("tools:\n  bb: 1.3.186\n"), 0o644))

	args := append([]string{"install", "--json"}, dirs.flags()...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"tool": "bb"`)
}

func TestToolsList(t *testing.T) {
	dirs := isolate(t)
	seedBabashka(t, dirs.toolCache)

	args := append([]string{"tools", "list", "--json"}, dirs.flags()...)
	stdout, _, err := execute(t, args...)
	require.NoError(t, err)

	var statuses []tools.Status
	require.NoError(t, json.Unmarshal([]byte(stdout), &statuses))
	require.Len(t, statuses, len(tools.KnownTools()))
	for _, st := range statuses {
		if st.Tool == "bb" {
			assert.Equal(t, []string{"1.3.186"}, st.Cached)
		}
	}

	args = append([]string{"tools", "list"}, dirs.flags()...)
	stdout, _, err = execute(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "LAST INSTALL")
	assert.Contains(t, stdout, "1.3.186")
}

func TestVersionCmd(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", stdout)
}

func TestReportFailure(t *testing.T) {
	var stdout, stderr bytes.Buffer

	t.Setenv("GITHUB_ACTIONS", "true")
	reportFailure(&stdout, &stderr, errors.New("Can't obtain latest bb version"))
	assert.Equal(t, "::error::Can't obtain latest bb version\n", stdout.String())
	assert.Empty(t, stderr.String())

	stdout.Reset()
	t.Setenv("GITHUB_ACTIONS", "")
	reportFailure(&stdout, &stderr, errors.New("boom"))
	assert.Empty(t, stdout.String())
	assert.Equal(t, "error: boom\n", stderr.String())
}
