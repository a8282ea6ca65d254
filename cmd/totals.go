package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/project"
	"github.com/papapumpkin/surveyor/internal/report"
)

var totalsCmd = &cobra.Command{
	Use:   "totals BUDGET",
	Short: "Compute PEM, GG, BI, IVA and the final total",
	Long: `Runs the markup and tax cascade over BUDGET. Rates given with --gg, --bi
or --iva replace the budget's own; with --save the new rates are stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runTotals,
}

func init() {
	totalsCmd.Flags().Float64("gg", -1, "general expenses percentage")
	totalsCmd.Flags().Float64("bi", -1, "industrial profit percentage")
	totalsCmd.Flags().Float64("iva", -1, "VAT percentage")
	totalsCmd.Flags().Bool("save", false, "save the budget with the new rates")
	rootCmd.AddCommand(totalsCmd)
}

func runTotals(cmd *cobra.Command, args []string) error {
	save, _ := cmd.Flags().GetBool("save")

	e, err := newEnv(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.loadBudget(cmd.Context(), args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	pct := b.Percentages
	for flag, dst := range map[string]*float64{"gg": &pct.GG, "bi": &pct.BI, "iva": &pct.IVA} {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetFloat64(flag)
		}
	}
	if err := b.SetPercentages(pct); err != nil {
		return err
	}

	e.printer.Totals(b.Totals, b.Percentages)
	e.printer.Info("%s", report.AmountInWords(b.Totals.Presupuesto))
	if save {
		path, err := project.Save(e.cfg.BudgetsDir, b)
		if err != nil {
			return err
		}
		e.printer.Success("saved %s", path)
	}
	return nil
}
