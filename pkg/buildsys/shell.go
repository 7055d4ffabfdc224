package buildsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

var defaultExecHandler = interp.DefaultExecHandler(2 * time.Second)

func execHandler(ctx context.Context, args []string) error {
	log(ctx).Debug().Strs("args", args).Msg("exec")
	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

func stepEnv(overrides map[string]string) expand.Environ {
	envVars := os.Environ()

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	// later entries win
	for _, name := range names {
		envVars = append(envVars, fmt.Sprintf("%s=%s", name, overrides[name]))
	}

	return expand.ListEnviron(envVars...)
}

func (c *Compiler) runSteps(ctx context.Context, compilation *Compilation) error {
	runner, err := interp.New(
		interp.Dir(c.dir),
		interp.Env(stepEnv(c.env)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, c.stdout, c.stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	for idx, step := range c.steps {
		file, err := parser.Parse(strings.NewReader(step), fmt.Sprintf("step:%d", idx))
		if err != nil {
			return eris.Wrapf(err, "failed to parse build step %d", idx)
		}

		for _, stmt := range file.Stmts {
			strBuffer.Reset()
			err = printer.Print(&strBuffer, stmt)
			if err != nil {
				return eris.Wrapf(err, "failed to print build step %d", idx)
			}

			log(ctx).Info().
				Str("compilation", compilation.ID).
				Bool("command", true).
				Msg(strBuffer.String())

			if c.DryRun {
				continue
			}

			err = runner.Run(ctx, stmt)
			if err != nil {
				return eris.Wrapf(err, "build step %d failed", idx)
			}

			if runner.Exited() {
				return nil
			}
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
