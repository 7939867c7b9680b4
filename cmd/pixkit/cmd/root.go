// Package cmd holds the pixkit cobra commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app is the state shared by one command tree: the config loader, the
// --config path and the configuration loaded before any subcommand runs.
type app struct {
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the pixkit command tree around its own viper
// instance, so tests can execute independent trees.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWith(viper.New())}

	root := &cobra.Command{
		Use:   "pixkit",
		Short: "Upscale, matte, caption and convert images",
		Long: `pixkit processes raster images: it upscales them with a resampling filter
and unsharp mask, removes uniform backgrounds by flood fill from the border,
draws a title/URL caption box and converts between PNG, JPEG, WebP and PDF.

Every operation works on single files, directories and the images embedded
in PDF documents, and the same pipeline is served over HTTP and WebSocket.

Examples:
  pixkit upscale photo.png --factor 3
  pixkit matte logo.png -o logo-clean.png
  pixkit annotate shot.png --source-html clip.html --mode both
  pixkit convert scans/ --format jpeg --output-dir out
  pixkit batch matte images/ --recursive --workers 8
  pixkit serve --port 8080`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pixkit version %s\n", version.String())
				return nil
			}
			return cmd.Help()
		},
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/pixkit, /etc/pixkit)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().Bool("version", false, "print version information and exit")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = v.BindPFlag("log_level", pf.Lookup("log-level"))

	for _, op := range pipeline.Operations() {
		root.AddCommand(newOperationCommand(a, op))
	}
	root.AddCommand(newBatchCommand(a), newServeCommand(a), newConfigCommand(a))
	return root
}

// Execute runs the command tree. It is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and installs the JSON logger. Validation
// waits until each command has applied its flags.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.cfgFile != "" {
		a.cfg, err = a.loader.LoadWithFileWithoutValidation(a.cfgFile)
	} else {
		a.cfg, err = a.loader.LoadWithoutValidation()
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	slog.SetDefault(newLogger(cmd.ErrOrStderr(), a.cfg))
	return nil
}

// config returns a copy of the loaded configuration that a command may
// modify with its flags.
func (a *app) config() config.Config {
	if a.cfg == nil {
		return config.DefaultConfig()
	}
	return *a.cfg
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
