// Command charter runs scripted experiences: it validates scripts,
// plays events against a trip offline, and serves trips over HTTP
// and MQTT.
package main

import (
	"fmt"
	"os"

	"github.com/firstpersontravel/charter-sub005/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	configFile string

	logger *zap.Logger
	conf   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "charter",
	Short: "Run scripted, location- and telephony-aware experiences",
	Long: `charter interprets experience scripts: triggers that listen for events
(texts, calls, cues, geofences, times) and run actions that change a
trip's state or ask the outside world to do something.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if conf, err = config.Load(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		zc := zap.NewProductionConfig()
		if verbose || conf.Verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if logger, err = zc.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")

	rootCmd.AddCommand(validateCmd, runCmd, serveCmd, mqCmd, graphCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
