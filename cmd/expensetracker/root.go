package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
)

var (
	cfgFile string
	debug   bool

	cfg    *config.Config
	logger *log.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "expensetracker",
	Short: "Track personal expenses against a monthly budget",
	Long: `expensetracker keeps an in-memory expense ledger per browser session and
serves it as a JSON API. Ledgers are volatile: export them as CSV to keep them.

Example:
  expensetracker serve
  expensetracker sample --out expenses.csv
  expensetracker report --file expenses.csv --top 3`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level, _ := cfg.Level()
		if debug {
			level = slog.LevelDebug
		}
		logger = log.New(log.Config{
			Level:     level,
			Format:    cfg.LogFormat,
			Component: log.ComponentApp,
			Output:    os.Stderr,
		})
		log.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment variables and .env still apply)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(eventsCmd)
}

func wrapError(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
