package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show BUDGET",
	Short: "Print a budget's item tree and totals",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Bool("json", false, "print the budget as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	e, err := newEnv(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.loadBudget(cmd.Context(), args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}

	e.printer.Info("%s (%s)", b.Name, b.Status)
	e.printer.Tree(b.Items)
	e.printer.Totals(b.Totals, b.Percentages)
	return nil
}
