package cmd

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/shellhooks/pkg/buildsys"
	"github.com/ngld/knossos/packages/shellhooks/pkg/shellplugin"
)

var checkCmd = &cobra.Command{
	Use:   "check [KEY=VALUE...]",
	Short: "Load the build script and print the resolved shell hooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		rest, options := splitArgs(args)
		if len(rest) > 0 {
			return eris.Errorf("unexpected argument %s, expected KEY=VALUE", rest[0])
		}

		ctx, _ := loggerContext(cmd.Context(), cfg, os.Stderr)
		script, err := buildsys.LoadScript(ctx, cfg.Script, options)
		if err != nil {
			return eris.Wrap(err, "failed to load build script")
		}

		describeOptions(cmd.OutOrStdout(), shellplugin.Resolve(ctx, script.ShellPlugin))
		return nil
	},
}
