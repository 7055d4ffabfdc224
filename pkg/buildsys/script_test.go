package buildsys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStarlarkScript(t *testing.T) {
	ctx, logs := testContext()
	dir := t.TempDir()

	writeFile(t, dir, "versions.yml", `
app:
  version: 1.4.2
  targets:
    - linux
    - windows
`)
	script := writeFile(t, dir, "build.star", `
mode = option("mode", "debug", help = "build mode")
target = option("target", "linux")
version = read_yaml("versions.yml", "app.version")
second = read_yaml("versions.yml", "app.targets.1")
missing = read_yaml("versions.yml", "app.nope", "fallback")

setenv("APP_VERSION", version)
info("building %s for %s" % (mode, target))
warn("careful")

build = [
    "echo " + getenv("APP_VERSION"),
    "echo " + second + " " + missing,
    resolve_path("dist"),
    "echo " + getenv("SHELLHOOKS_TEST_UNSET_VARIABLE", "unset"),
]

shell_plugin = {
    "onBuildStart": "echo A && echo B",
    "onBuildEnd": [
        "notify done",
        {"command": "cp", "args": ["a", "b"]},
    ],
    "verbose": True,
}
`)

	result, err := LoadScript(ctx, script, map[string]string{"target": "windows"})
	require.NoError(t, err)

	assert.Equal(t, script, result.Path)
	assert.Equal(t, dir, result.Dir())
	assert.Equal(t, []string{
		"echo 1.4.2",
		"echo windows fallback",
		filepath.Join(dir, "dist"),
		"echo unset",
	}, result.Steps)
	assert.Equal(t, map[string]string{"APP_VERSION": "1.4.2"}, result.Env)
	assert.Equal(t, map[string]ScriptOption{
		"mode":   {DefaultValue: "debug", Help: "build mode"},
		"target": {DefaultValue: "linux"},
	}, result.Options)
	assert.Equal(t, map[string]interface{}{
		"onBuildStart": "echo A && echo B",
		"onBuildEnd": []interface{}{
			"notify done",
			map[string]interface{}{
				"command": "cp",
				"args":    []interface{}{"a", "b"},
			},
		},
		"verbose": true,
	}, result.ShellPlugin)

	assert.Contains(t, logs.String(), `"level":"info","message":"build.star:9:5: building debug for windows"`)
	assert.Contains(t, logs.String(), `"level":"warn","message":"build.star:10:5: careful"`)
}

func TestLoadStarlarkScriptWithoutPlugin(t *testing.T) {
	ctx, _ := testContext()
	script := writeFile(t, t.TempDir(), "build.star", `build = ("echo hi",)`)

	result, err := LoadScript(ctx, script, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"echo hi"}, result.Steps)
	assert.Nil(t, result.ShellPlugin)
}

func TestLoadStarlarkScriptErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"error builtin", `error("stop here")`, "stop here"},
		{"build isn't a list", `build = 42`, "build has to be a list of strings"},
		{"build contains numbers", `build = ["echo", 1]`, "expected all items in build to be strings"},
		{"plugin isn't a dict", `shell_plugin = ["echo"]`, "shell_plugin has to be a dict"},
		{"plugin with int keys", `shell_plugin = {1: "echo"}`, "only strings are supported"},
		{"syntax error", `build = [`, "failed to execute"},
		{"invalid variable name", `setenv("A=B", "x")`, "invalid variable name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := testContext()
			script := writeFile(t, t.TempDir(), "build.star", tt.content)

			_, err := LoadScript(ctx, script, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestLoadYAMLScript(t *testing.T) {
	ctx, _ := testContext()
	dir := t.TempDir()
	script := writeFile(t, dir, "build.yaml", `
build:
  - echo one
  - echo two
env:
  MODE: release
shell_plugin:
  onBuildStart: echo A && echo B
  onBuildExit:
    - command: notify-send
      args: [done]
  verbose: true
`)

	result, err := LoadScript(ctx, script, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"echo one", "echo two"}, result.Steps)
	assert.Equal(t, map[string]string{"MODE": "release"}, result.Env)
	assert.Equal(t, "echo A && echo B", result.ShellPlugin["onBuildStart"])
	assert.Equal(t, true, result.ShellPlugin["verbose"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{
			"command": "notify-send",
			"args":    []interface{}{"done"},
		},
	}, result.ShellPlugin["onBuildExit"])
}

func TestLoadEmptyYAMLScript(t *testing.T) {
	ctx, _ := testContext()
	script := writeFile(t, t.TempDir(), "build.yml", "{}\n")

	result, err := LoadScript(ctx, script, nil)
	require.NoError(t, err)

	assert.Empty(t, result.Steps)
	assert.Empty(t, result.Env)
	assert.Nil(t, result.ShellPlugin)
}

func TestLoadScriptUnsupported(t *testing.T) {
	ctx, _ := testContext()

	_, err := LoadScript(ctx, filepath.Join(t.TempDir(), "build.json"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported build script")
}

func TestLoadScriptMissing(t *testing.T) {
	ctx, _ := testContext()

	_, err := LoadScript(ctx, filepath.Join(t.TempDir(), "build.star"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
