package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/shellhooks/pkg/buildsys"
	"github.com/ngld/knossos/packages/shellhooks/pkg/settings"
)

var rootCmd = &cobra.Command{
	Use:   "shellhooks",
	Short: "Run shell commands at the start, end and exit of a build",
	Long: `shellhooks loads a build script (build.star, or a YAML file), runs its build steps and
executes the commands configured in its shell_plugin section before the build starts,
before the output is emitted and after the build finished.

Settings are read from SHELLHOOKS_* environment variables and shellhooks.toml.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "build script to load (overrides the script setting)")
	rootCmd.PersistentFlags().Bool("json", false, "print JSON lines instead of console messages")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(checkCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadSettings reads the tool settings and applies the persistent flags on top
func loadSettings(cmd *cobra.Command) (*settings.Settings, error) {
	cfg, err := settings.Load()
	if err != nil {
		return nil, err
	}

	script, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if script != "" {
		cfg.Script = script
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	if jsonOutput {
		cfg.Log.JSON = true
	}

	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

func newLogger(cfg *settings.Settings, out io.Writer) zerolog.Logger {
	var writer io.Writer = out
	if !cfg.Log.JSON {
		writer = NewConsoleWriter(out, debugEnabled())
	}

	return zerolog.New(writer).Level(cfg.LogLevel()).With().Timestamp().Logger()
}

// loggerContext returns a context carrying a logger configured by cfg
func loggerContext(ctx context.Context, cfg *settings.Settings, out io.Writer) (context.Context, *zerolog.Logger) {
	logger := newLogger(cfg, out)
	return buildsys.WithLogger(ctx, &logger), &logger
}

// splitArgs separates KEY=VALUE script options from the remaining arguments
func splitArgs(args []string) ([]string, map[string]string) {
	rest := make([]string, 0)
	options := make(map[string]string)

	for _, part := range args {
		pos := strings.Index(part, "=")
		if pos > -1 {
			options[part[:pos]] = part[pos+1:]
		} else {
			rest = append(rest, part)
		}
	}

	return rest, options
}
