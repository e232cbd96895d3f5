package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/app"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/metrics"
)

var (
	metricsDays  int
	slowestLimit int
	exportFormat string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [tool]",
	Short: "Show per-tool invocation statistics",
	Long: `Prints aggregated statistics (request counts, error rate, latency
percentiles, cache-hit rate) per tool over the given day window. With a tool
name, shows only that tool.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		var aggs []metrics.Aggregate
		if len(args) == 1 {
			agg, err := a.Metrics.Metrics(ctx, args[0], metricsDays)
			if err != nil {
				return err
			}
			aggs = []metrics.Aggregate{agg}
		} else {
			if aggs, err = a.Metrics.AllMetrics(ctx, metricsDays); err != nil {
				return err
			}
		}
		return printAggregates(cmd, aggs)
	},
}

var slowestCmd = &cobra.Command{
	Use:   "slowest",
	Short: "Show the slowest tools by P95 latency",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		aggs, err := a.Metrics.Slowest(ctx, metricsDays, slowestLimit)
		if err != nil {
			return err
		}
		return printAggregates(cmd, aggs)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export aggregated metrics to a file",
	Long: `Writes the aggregated metrics for the day window to a file.
Formats: "json" (flat record export) or "prometheus" (label/value text
exposition for external scrapers).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		if err := a.Metrics.Export(ctx, exportFormat, args[0], metricsDays); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s metrics to %s\n", exportFormat, args[0])
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete invocation records past the retention horizon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		removed, err := a.Metrics.Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d records older than %d days\n",
			removed, a.Config.RetentionDays)
		return nil
	},
}

func printAggregates(cmd *cobra.Command, aggs []metrics.Aggregate) error {
	out, err := json.MarshalIndent(aggs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding aggregates: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func init() {
	metricsCmd.Flags().IntVar(&metricsDays, "days", 7, "day window to aggregate over")
	slowestCmd.Flags().IntVar(&metricsDays, "days", 7, "day window to aggregate over")
	slowestCmd.Flags().IntVar(&slowestLimit, "limit", 10, "number of tools to show")
	exportCmd.Flags().IntVar(&metricsDays, "days", 7, "day window to aggregate over")
	exportCmd.Flags().StringVar(&exportFormat, "format", metrics.FormatJSON, "export format: json or prometheus")

	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(slowestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(pruneCmd)
}
