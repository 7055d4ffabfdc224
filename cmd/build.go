package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/shellhooks/pkg/buildsys"
	"github.com/ngld/knossos/packages/shellhooks/pkg/shellplugin"
)

var buildCmd = &cobra.Command{
	Use:   "build [KEY=VALUE...]",
	Short: "Run the build script together with its shell hooks",
	Long: `Runs the build steps of the build script. The commands listed in the script's shell_plugin
section are started before the first step (onBuildStart), after the last step (onBuildEnd) and
once the build is done (onBuildExit). KEY=VALUE arguments are passed to option() calls in
Starlark scripts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		rest, options := splitArgs(args)
		if len(rest) > 0 {
			return eris.Errorf("unexpected argument %s, expected KEY=VALUE", rest[0])
		}

		ctx, logger := loggerContext(cmd.Context(), cfg, os.Stderr)
		stats, err := runBuild(ctx, buildParams{
			Script:     cfg.Script,
			Options:    options,
			Workers:    cfg.Workers,
			StderrTail: cfg.StderrTail,
			DryRun:     dryRun,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Build failed")
			return err
		}

		logger.Info().Msgf("Build finished in %s", stats.Duration)
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolP("dry", "n", false, "dry run; only print the steps and scripts, don't execute anything")
}

type buildParams struct {
	Script     string
	Options    map[string]string
	Workers    int
	StderrTail int
	DryRun     bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func runBuild(ctx context.Context, params buildParams) (*buildsys.Stats, error) {
	if params.Stdout == nil {
		params.Stdout = os.Stdout
	}
	if params.Stderr == nil {
		params.Stderr = os.Stderr
	}

	script, err := buildsys.LoadScript(ctx, params.Script, params.Options)
	if err != nil {
		return nil, eris.Wrap(err, "failed to load build script")
	}

	compiler := buildsys.NewCompiler(script.Dir(), script.Steps, script.Env)
	compiler.DryRun = params.DryRun
	compiler.SetOutput(params.Stdout, params.Stderr)

	if script.ShellPlugin != nil {
		if params.DryRun {
			describeOptions(params.Stdout, shellplugin.Resolve(ctx, script.ShellPlugin))
		} else {
			plugin, err := shellplugin.New(ctx, script.ShellPlugin,
				shellplugin.WithWorkers(params.Workers),
				shellplugin.WithStderrTail(params.StderrTail),
				shellplugin.WithStdio(nil, params.Stdout, params.Stderr),
			)
			if err != nil {
				return nil, err
			}
			defer plugin.Close()

			plugin.Apply(compiler)

			// keep running until all spawned scripts exited
			defer plugin.Wait()
		}
	}

	return compiler.Run(ctx)
}

func describeOptions(w io.Writer, options shellplugin.Options) {
	sections := []struct {
		key     string
		entries []shellplugin.ScriptEntry
	}{
		{shellplugin.KeyOnBuildStart, options.OnBuildStart},
		{shellplugin.KeyOnBuildEnd, options.OnBuildEnd},
		{shellplugin.KeyOnBuildExit, options.OnBuildExit},
	}

	for _, section := range sections {
		fmt.Fprintf(w, "%s:\n", section.key)
		if len(section.entries) == 0 {
			fmt.Fprintln(w, "  (none)")
		}

		for _, entry := range section.entries {
			desc := shellplugin.Normalize(entry)
			fmt.Fprintf(w, "  %s %q\n", desc.Command, desc.Args)
		}
	}

	fmt.Fprintf(w, "%s: %t\n", shellplugin.KeyVerbose, options.Verbose)
}
