// Package cmd provides CLI commands for the smartmeet tool.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oguzatay/smartmeet/config"
	"github.com/oguzatay/smartmeet/pkg/logging"
)

// Global flags and state.
var (
	cfgFile string
	debug   bool

	// cfg holds the loaded configuration.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "smartmeet",
	Short: "Meeting intelligence backend",
	Long: `smartmeet processes uploaded meeting recordings into attributed
transcripts, executive summaries, sentiment, and action items, and
answers questions over the accumulated meeting memory.

COMMON WORKFLOWS:
  Run the worker:    smartmeet worker
  Process one file:  smartmeet enqueue <meeting-id>  or  smartmeet process <meeting-id>
  Ask a question:    smartmeet chat "what did we decide about the budget?"
  Enroll a voice:    smartmeet enroll --user 3 sample.wav
  Inspect a meeting: smartmeet status <meeting-id>`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		level := logging.Level(cfg.Logging.Level)
		if debug {
			level = logging.LevelDebug
		}
		logger := logging.NewLogger(&logging.Config{
			Level:       level,
			ServiceName: "smartmeet",
			JSONFormat:  cfg.Logging.JSON,
		})
		logging.SetGlobal(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.smartmeet/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
