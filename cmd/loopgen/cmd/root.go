// Package cmd holds the loopgen subcommands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/samirrijal/circlerun/internal/pkg/config"
	"github.com/samirrijal/circlerun/internal/pkg/logging"
)

var (
	cfg      *config.Config
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "loopgen",
	Short: "Generate circular running routes",
	Long: `loopgen builds a closed loop of a target length around a start point.

"generate" runs the search locally and writes a GPX file, "workflow" hands the
request to the Temporal worker which also saves it as a favourite, and "watch"
prints loop events from NATS until interrupted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load(".env.local")
		var err error
		cfg, err = config.Load("circlerun-loopgen")
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logging.Setup(cfg.Telemetry.ServiceName, level, "text")
		return nil
	},
}

// Execute runs the root command. It is called once by main.main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from config")
}

func printJSON(v interface{}) error {
	return json.NewEncoder(os.Stdout).Encode(v)
}
