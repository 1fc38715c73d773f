package commands

import (
	"fmt"
	"os"

	"github.com/K0NGR3SS/ghostprobe/internal/config"
	"github.com/K0NGR3SS/ghostprobe/internal/logging"
	"github.com/K0NGR3SS/ghostprobe/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ghostprobe",
	Short: "ghostprobe probes console browser engines for exploitation prerequisites",
	Long: `ghostprobe runs a fixed battery of JavaScript capability, behavior and stress checks
against a browser engine (embedded VM, a DevTools browser, or a console's app engine)
and derives exploitability verdicts from the results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		pterm.SetDefaultOutput(os.Stderr)

		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level, _ = cmd.Flags().GetString("log-level")
		}
		if dev, _ := cmd.Flags().GetBool("dev"); dev {
			loaded.Log.Development = true
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		logCfg := logging.DefaultConfig()
		if cfg.Log.Development {
			logCfg = logging.DevelopmentConfig()
		}
		if cfg.Log.Level != "" {
			logCfg.Level = cfg.Log.Level
		}
		logger, err = logging.New(logCfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet && cmd.Name() != versionCmd.Name() {
			ui.PrintBanner(Version)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("dev", false, "Human-readable development logs")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Do not print the banner")
}
