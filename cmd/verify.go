package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/bc3"
	"github.com/papapumpkin/surveyor/internal/budget"
)

// errMismatch is returned when a round trip or a declared total disagrees.
var errMismatch = errors.New("totals mismatch")

var verifyCmd = &cobra.Command{
	Use:   "verify FILE",
	Short: "Check that a .bc3 file survives export and reparse with the same totals",
	Long: `Parses FILE, exports it, parses the export again, and compares every total
at two-decimal precision. Totals declared in the file itself are compared
against the computed ones and reported, but only a round-trip difference
fails the command.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.importer(cmd.ErrOrStderr()).ImportFile(cmd.Context(), args[0], "")
	if err != nil {
		return err
	}
	b := out.Budget

	data, err := bc3.Encode(bc3.Export(b, ""), bc3.CodepageWindows1252)
	if err != nil {
		return err
	}
	again, err := bc3.Parse(data, bc3.WithPercentages(b.Percentages))
	if err != nil {
		return fmt.Errorf("reparse export: %w", err)
	}

	p := e.printer
	ok := compareTotals(p.Warn, "round trip", b.Totals, again.Totals)
	if d := out.Result.Metadata.Declared; d != nil {
		compareTotals(p.Info, "declared", b.Totals, *d)
	}
	if !ok {
		return errMismatch
	}
	p.Success("%s: round trip preserves totals (%s)", args[0], budget.FormatMoney(b.Totals.Presupuesto))
	return nil
}

// compareTotals reports each field that differs at display precision and
// returns whether all agree. Zero declared fields are skipped.
func compareTotals(logf func(string, ...any), label string, want, got budget.Totals) bool {
	fields := []struct {
		name      string
		want, got float64
	}{
		{"PEM", want.PEM, got.PEM},
		{"GG", want.GG, got.GG},
		{"BI", want.BI, got.BI},
		{"IVA", want.IVA, got.IVA},
		{"TOTAL", want.Presupuesto, got.Presupuesto},
	}
	ok := true
	for _, f := range fields {
		if label == "declared" && f.got == 0 {
			continue
		}
		if !budget.EqualMoney(f.want, f.got) {
			logf("%s %s: computed %s, found %s", label, f.name,
				budget.FormatMoney(f.want), budget.FormatMoney(f.got))
			ok = false
		}
	}
	return ok
}
