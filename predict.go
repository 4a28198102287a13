package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warranty-agent-poc-v1/server/internal/agent/warranty"
	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
)

// newPredictCommand runs a single prediction without the language model.
func newPredictCommand(build appBuilder, config func() *AppConfig) *cobra.Command {
	var asJSON bool

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a warranty prediction for one VIN directly",
	}
	predictCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print the typed prediction as JSON")

	run := func(kind string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := build(ctx, config(), appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := predictOnce(cmd, a.gateway, kind, args[0], asJSON)
			if err != nil {
				cmd.PrintErrln(errx.UserMessage(err))
				return errReported
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
	}

	claimCmd := &cobra.Command{
		Use:   "claim <VIN>",
		Short: "Predict the probability of a warranty claim",
		Args:  cobra.ExactArgs(1),
		RunE:  run("claim"),
	}
	costCmd := &cobra.Command{
		Use:   "cost <VIN>",
		Short: "Predict the total warranty claim cost in USD",
		Args:  cobra.ExactArgs(1),
		RunE:  run("cost"),
	}
	predictCmd.AddCommand(claimCmd, costCmd)
	return predictCmd
}

func predictOnce(cmd *cobra.Command, gw *warranty.Gateway, kind, raw string, asJSON bool) (string, error) {
	ctx := cmd.Context()
	if !asJSON {
		if kind == "cost" {
			return gw.PredictCost(ctx, raw)
		}
		return gw.PredictClaim(ctx, raw)
	}

	vin, err := warranty.ValidateVIN(raw)
	if err != nil {
		return "", err
	}
	var v any
	if kind == "cost" {
		v, err = gw.CostEstimate(ctx, vin)
	} else {
		v, err = gw.ClaimPrediction(ctx, vin)
	}
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prediction: %w", err)
	}
	return string(b), nil
}
