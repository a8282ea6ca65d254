package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/bc3"
	"github.com/papapumpkin/surveyor/internal/telemetry"
)

var exportCmd = &cobra.Command{
	Use:   "export BUDGET",
	Short: "Write a budget as a .bc3 file",
	Long: `Writes BUDGET (a saved budget slug, a .toml document, or a .bc3 file) in
FIEBDC-3 form. The output is encoded in the requested codepage; characters
it cannot represent are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "-", "output file (- for stdout)")
	exportCmd.Flags().String("codepage", bc3.CodepageWindows1252, "output codepage")
	exportCmd.Flags().String("name", "", "budget name written to the header (default: budget name)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	codepage, _ := cmd.Flags().GetString("codepage")
	name, _ := cmd.Flags().GetString("name")

	e, err := newEnv(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.loadBudget(cmd.Context(), args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	data, err := bc3.Encode(bc3.Export(b, name), codepage)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
		return err
	}
	e.emit(telemetry.Event{Kind: telemetry.KindExportDone, BudgetID: b.ID, File: output,
		Data: map[string]any{"codepage": codepage, "bytes": len(data)}})
	return nil
}
