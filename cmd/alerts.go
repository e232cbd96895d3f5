package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/app"
)

var alertDays int

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Scan recorded metrics for threshold breaches",
	Long: `Evaluates each tool's aggregated metrics against the configured
thresholds (error rate, slow-request share, memory) and prints the findings.
Findings are computed fresh on every scan and never persisted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		findings, err := a.Detector.Scan(ctx, alertDays)
		if err != nil {
			return err
		}
		if len(findings) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no findings")
			return nil
		}

		out, err := json.MarshalIndent(findings, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding findings: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	alertsCmd.Flags().IntVar(&alertDays, "days", 7, "day window to scan")
	rootCmd.AddCommand(alertsCmd)
}
