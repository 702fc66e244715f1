package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	templatesDir string
	verbose      bool
)

// cfg and logger are populated by the root PersistentPreRunE before any
// subcommand runs.
var (
	cfg    *Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stencil",
	Short: "Container template toolkit",
	Long: `stencil generates container artifacts (Dockerfiles, compose files,
scripts) from parameterized, inheritable templates.

Templates live in a directory tree, declare typed parameters and can
inherit from each other. stencil resolves the inheritance chain,
validates parameters against the declared contract and renders the
template sources deterministically.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(cfgFile)
		if err != nil {
			return &CommandError{Op: "load config", Err: err, ExitCode: ExitConfigError}
		}
		if templatesDir != "" {
			cfg.Templates.Dir = templatesDir
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger = SetupLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&templatesDir, "templates", "", "Template root directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stencil %s (built %s)\n", Version, BuildTime)
	},
}
