package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/project"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved budgets, or the import history with --imports",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().Bool("imports", false, "show the import history instead")
	listCmd.Flags().Uint64("limit", 20, "maximum history rows (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	imports, _ := cmd.Flags().GetBool("imports")
	limit, _ := cmd.Flags().GetUint64("limit")

	e, err := newEnv(cmd, imports)
	if err != nil {
		return err
	}
	defer e.Close()

	if imports {
		hist, err := e.store.ListImports(cmd.Context(), limit)
		if err != nil {
			return err
		}
		e.printer.Imports(hist)
		return nil
	}

	list, err := project.List(e.cfg.BudgetsDir)
	if err != nil {
		return err
	}
	e.printer.Budgets(list)
	return nil
}
