// battlesim runs tactical battles headlessly from scenario files.
//
// Usage:
//
//	battlesim run <scenario>     - Run one battle and print the outcome
//	battlesim batch <scenario>   - Run many seeds and tally the winners
//	battlesim history            - Show stored battle outcomes
//	battlesim units [scenario]   - Show the unit data table
//
// A scenario is a builtin name (see 'battlesim units --list') or a path to
// a .yaml file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagLogLevel string
	flagDBPath   string
	flagSeed     int64
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "battlesim",
	Short: "Headless tactical battle simulator",
	Long: `battlesim runs deterministic real-time battles between AI-controlled
armies on a terrain grid.

Examples:
  battlesim run skirmish
  battlesim run ./scenarios/ford.yaml --render 100
  battlesim batch skirmish --count 50 --save
  battlesim history --summary
  battlesim units river_ford`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(flagConfig); err != nil {
			return err
		}
		level := flagLogLevel
		if level == "" {
			level = config.Get().Logging.Level
		}
		setupLogging(level, config.Get().Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to history database (empty to use config default)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "Override the scenario seed (0 = scenario or config default)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(unitsCmd)
}

func setupLogging(level, format string) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if os.Getenv("APP_ENV") == "production" || format == "json" {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
}

func dbPath() string {
	if flagDBPath != "" {
		return flagDBPath
	}
	return config.Get().Storage.Path
}
