package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmogensen/agentswarm-tools-sub000/internal/app"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		for _, name := range a.Registry.Names() {
			reg, err := a.Registry.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, reg.Tool.Description())
		}
		return nil
	},
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <tool> [json-params]",
	Short: "Invoke one tool through the pipeline",
	Long: `Runs a single invocation through the full pipeline and prints the
uniform result as JSON. Parameters are given as a JSON object, for example:

  agentswarm invoke exchange_rates '{"base": "USD", "symbols": "EUR,DKK"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		params := tools.Params{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
				return fmt.Errorf("parsing parameters: %w", err)
			}
		}

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close(ctx) }()

		result := a.Executor.Invoke(ctx, args[0], params)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(invokeCmd)
}
