package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskops/taskrunner/internal/env"
)

var rootCmd = &cobra.Command{
	Use:   "taskrunner",
	Short: "Bounded-concurrency task runner and companion services",
	Long: `taskrunner executes configured task batches under a bounded worker pool
with lifecycle-state notifications, and bundles the suite's companion
services: the sales report pipeline, the post cache, the URL shortener and
the streak counter.`,
}

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.AddCommand(
		newRunCmd(),
		newReportCmd(),
		newPollCmd(),
		newShortenCmd(),
		newStreakCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("taskrunner command failed")
	}
}
