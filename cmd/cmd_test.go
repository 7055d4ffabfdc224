package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngld/knossos/packages/shellhooks/pkg/settings"
	"github.com/ngld/knossos/packages/shellhooks/pkg/shellplugin"
)

type safeBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func testSettings(script string) *settings.Settings {
	cfg := &settings.Settings{Script: script, Workers: -1}
	cfg.Log.Level = "debug"
	cfg.Log.JSON = true
	return cfg
}

func TestSplitArgs(t *testing.T) {
	rest, options := splitArgs([]string{"mode=release", "extra", "empty=", "url=a=b"})

	assert.Equal(t, []string{"extra"}, rest)
	assert.Equal(t, map[string]string{
		"mode":  "release",
		"empty": "",
		"url":   "a=b",
	}, options)
}

func TestConsoleWriter(t *testing.T) {
	out := &bytes.Buffer{}
	logger := zerolog.New(NewConsoleWriter(out, false))

	logger.Info().Str("hook", "onBuildStart").Msg("Executing pre-build scripts")
	logger.Error().Str("command", "make").Str("stderr", "no rule").Msg("script failed")
	logger.Warn().Msg("careful")

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "onBuildStart: Executing pre-build scripts")
	assert.Contains(t, lines[1], "Error: script failed (make)")
	assert.Contains(t, lines[2], "no rule")
	assert.Contains(t, lines[3], "careful")
	assert.NotContains(t, out.String(), "[red]")
}

func TestConsoleWriterDebug(t *testing.T) {
	out := &bytes.Buffer{}
	logger := zerolog.New(NewConsoleWriter(out, true))

	logger.Info().Int("steps", 3).Msg("starting")

	assert.Contains(t, out.String(), "steps: 3")
	assert.Contains(t, out.String(), "level: info")
}

func TestConsoleWriterInvalidInput(t *testing.T) {
	_, err := NewConsoleWriter(&bytes.Buffer{}, false).Write([]byte("not json"))
	assert.Error(t, err)
}

func TestRunBuild(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "build.yml")
	require.NoError(t, os.WriteFile(script, []byte(`
build:
  - echo step
shell_plugin:
  onBuildStart: echo pre-build
  onBuildEnd:
    - command: echo
      args: [post-build]
  onBuildExit: echo exit
`), 0o644))

	logs := &safeBuffer{}
	stdout := &safeBuffer{}
	ctx, _ := loggerContext(context.Background(), testSettings(script), logs)

	stats, err := runBuild(ctx, buildParams{
		Script:  script,
		Workers: -1,
		Stdout:  stdout,
		Stderr:  &safeBuffer{},
	})
	require.NoError(t, err)
	require.NoError(t, stats.Err)

	// runBuild waits for the spawned scripts
	output := stdout.String()
	assert.Contains(t, output, "step\n")
	assert.Contains(t, output, "pre-build\n")
	assert.Contains(t, output, "post-build\n")
	assert.Contains(t, output, "exit\n")

	assert.Contains(t, logs.String(), "Executing pre-build scripts")
	assert.Contains(t, logs.String(), "Executing post-build scripts")
	assert.Contains(t, logs.String(), "Executing additional scripts before exit")
}

func TestRunBuildDryRun(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "build.yml")
	require.NoError(t, os.WriteFile(script, []byte(`
build:
  - echo step
shell_plugin:
  onBuildStart: echo A && echo B
`), 0o644))

	logs := &safeBuffer{}
	stdout := &safeBuffer{}
	ctx, _ := loggerContext(context.Background(), testSettings(script), logs)

	_, err := runBuild(ctx, buildParams{
		Script: script,
		DryRun: true,
		Stdout: stdout,
		Stderr: &safeBuffer{},
	})
	require.NoError(t, err)

	assert.Equal(t, `onBuildStart:
  echo ["A"]
  echo ["B"]
onBuildEnd:
  (none)
onBuildExit:
  (none)
verbose: false
`, stdout.String())
	assert.NotContains(t, logs.String(), "Executing pre-build scripts")
}

func TestDescribeOptions(t *testing.T) {
	out := &bytes.Buffer{}
	describeOptions(out, shellplugin.Options{
		OnBuildExit: []shellplugin.ScriptEntry{
			shellplugin.StructuredCommand{Command: "cp", Args: []string{"a b", "c"}},
		},
		Verbose: true,
	})

	assert.Contains(t, out.String(), "onBuildExit:\n  cp [\"a b\" \"c\"]\n")
	assert.Contains(t, out.String(), "verbose: true\n")
}

func TestRunBuildMissingScript(t *testing.T) {
	script := filepath.Join(t.TempDir(), "build.star")
	ctx, _ := loggerContext(context.Background(), testSettings(script), &safeBuffer{})

	_, err := runBuild(ctx, buildParams{Script: script})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load build script")
}
