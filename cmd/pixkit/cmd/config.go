package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		Long: `Configuration is read from pixkit.yaml in ., $HOME, $XDG_CONFIG_HOME/pixkit,
$HOME/.config/pixkit and /etc/pixkit, from PIXKIT_* environment variables
(PIXKIT_SERVER_PORT sets server.port) and from command flags, in increasing
order of precedence.`,
	}

	show := &cobra.Command{
		Use:          "show",
		Short:        "Print the resolved configuration as YAML",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.config()
			if info, _ := cmd.Flags().GetBool("sources"); info {
				a.loader.PrintConfigInfo(cmd.ErrOrStderr())
			}
			return config.WriteYAML(cmd.OutOrStdout(), &cfg)
		},
	}
	show.Flags().Bool("sources", false, "also print the file used and the search paths (to stderr)")

	initCmd := &cobra.Command{
		Use:          "init [file]",
		Short:        "Write a configuration file with the default values",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := config.ConfigFileName + ".yaml"
			if len(args) == 1 {
				name = args[0]
			}
			if err := config.GenerateDefaultConfigFile(name); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", name)
			return nil
		},
	}

	c.AddCommand(show, initCmd)
	return c
}
