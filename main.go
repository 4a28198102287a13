package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

// errReported marks a failure already shown to the user.
var errReported = errors.New("reported")

func newRootCommand(build appBuilder) *cobra.Command {
	var (
		envFile string
		cfg     *AppConfig
	)

	root := &cobra.Command{
		Use:           "warranty-agent",
		Short:         "Vehicle warranty prediction agent",
		Long:          "warranty-agent answers warranty claim and cost questions about vehicles by VIN using BigQuery ML models.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	config := func() *AppConfig { return cfg }
	root.AddCommand(newChatCommand(build, config))
	root.AddCommand(newPredictCommand(build, config))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(buildApp)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			root.PrintErrln("Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
