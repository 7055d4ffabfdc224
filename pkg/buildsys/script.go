package buildsys

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
)

// BuildScript contains everything a build script declared
type BuildScript struct {
	// Path is the absolute path of the script
	Path string
	// Steps are the shell scripts run by the compiler, in order
	Steps []string
	// Env contains variables set by the script
	Env map[string]string
	// ShellPlugin holds the raw options for the shell plugin (nil if the script didn't declare any)
	ShellPlugin map[string]interface{}
	// Options lists the options declared through option()
	Options map[string]ScriptOption
}

// Dir returns the directory containing the script. Build steps run inside it.
func (s *BuildScript) Dir() string {
	return filepath.Dir(s.Path)
}

// ScriptOption is an option declared by a build script
type ScriptOption struct {
	DefaultValue string
	Help         string
}

type parserCtx struct {
	ctx          context.Context
	filepath     string
	optionValues map[string]string
	options      map[string]ScriptOption
	envOverrides map[string]string
	yamlCache    map[string]interface{}
}

func getCtx(thread *starlark.Thread) *parserCtx {
	return thread.Local("parserCtx").(*parserCtx)
}

// LoadScript reads a build script. Files ending in .star are executed as Starlark, .yml and .yaml
// files are parsed as YAML. options are the values returned by option() in Starlark scripts.
func LoadScript(ctx context.Context, filename string, options map[string]string) (*BuildScript, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".star":
		return runStarlarkScript(ctx, filename, options)
	case ".yml", ".yaml":
		return readYAMLScript(filename)
	}

	return nil, eris.Errorf("unsupported build script %s, expected a .star, .yml or .yaml file", filename)
}

func runStarlarkScript(ctx context.Context, filename string, options map[string]string) (*BuildScript, error) {
	if options == nil {
		options = map[string]string{}
	}

	builtins := starlark.StringDict{
		"OS":           starlark.String(runtime.GOOS),
		"ARCH":         starlark.String(runtime.GOARCH),
		"info":         starlark.NewBuiltin("info", logBuiltin(zerolog.InfoLevel)),
		"warn":         starlark.NewBuiltin("warn", logBuiltin(zerolog.WarnLevel)),
		"error":        starlark.NewBuiltin("error", logBuiltin(zerolog.ErrorLevel)),
		"option":       starlark.NewBuiltin("option", option),
		"getenv":       starlark.NewBuiltin("getenv", getenv),
		"setenv":       starlark.NewBuiltin("setenv", setenv),
		"read_yaml":    starlark.NewBuiltin("read_yaml", readYaml),
		"resolve_path": starlark.NewBuiltin("resolve_path", resolvePath),
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := parserCtx{
		ctx:          ctx,
		filepath:     filename,
		optionValues: options,
		options:      make(map[string]ScriptOption),
		envOverrides: make(map[string]string),
		yamlCache:    make(map[string]interface{}),
	}
	thread.SetLocal("parserCtx", &threadCtx)

	script, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", filename)
	}

	globals, err := starlark.ExecFile(thread, filepath.Base(filename), script, builtins)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.Errorf("failed to execute %s:\n%s", filename, evalError.Backtrace())
		}
		return nil, eris.Wrapf(err, "failed to execute %s", filename)
	}

	result := &BuildScript{
		Path:    filename,
		Steps:   []string{},
		Env:     threadCtx.envOverrides,
		Options: threadCtx.options,
	}

	if build, ok := globals["build"]; ok {
		iterable, ok := build.(starlark.Iterable)
		if !ok {
			return nil, eris.Errorf("build has to be a list of strings but is a %s", build.Type())
		}

		result.Steps, err = starlarkIterable2stringSlice(iterable, "build")
		if err != nil {
			return nil, err
		}
	}

	if plugin, ok := globals["shell_plugin"]; ok {
		dict, ok := plugin.(*starlark.Dict)
		if !ok {
			return nil, eris.Errorf("shell_plugin has to be a dict but is a %s", plugin.Type())
		}

		converted, err := starlarkToGo(dict)
		if err != nil {
			return nil, eris.Wrap(err, "failed to convert shell_plugin")
		}
		result.ShellPlugin = converted.(map[string]interface{})
	}

	return result, nil
}

func starlarkIterable2stringSlice(input starlark.Iterable, field string) ([]string, error) {
	result := make([]string, 0)
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		switch value := item.(type) {
		case starlark.String:
			result = append(result, value.GoString())
		case StarlarkPath:
			result = append(result, string(value))
		default:
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
	}
	return result, nil
}

func normalizePath(ctx *parserCtx, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(filepath.Dir(ctx.filepath), path)
}
