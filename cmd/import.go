package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/importer"
	"github.com/papapumpkin/surveyor/internal/project"
	"github.com/papapumpkin/surveyor/internal/report"
	"github.com/papapumpkin/surveyor/internal/telemetry"
)

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Parse .bc3 files, sync their prices into the catalog, and print totals",
	Long: `Parses one or more FIEBDC-3 files. Files are parsed concurrently, each in
its own session. Catalog prices are merged into the local database (the first
price seen for a code wins) and every import is recorded in the history.

With --save, each budget is written as a TOML document under budgets_dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("name", "", "budget name (single file only; default: file title)")
	importCmd.Flags().Bool("save", false, "save each budget under budgets_dir")
	importCmd.Flags().Bool("tree", false, "print the item tree")
	importCmd.Flags().Bool("no-catalog", false, "do not write prices or history to the catalog")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	save, _ := cmd.Flags().GetBool("save")
	tree, _ := cmd.Flags().GetBool("tree")
	noCatalog, _ := cmd.Flags().GetBool("no-catalog")
	if name != "" && len(args) > 1 {
		return fmt.Errorf("--name needs exactly one file, got %d", len(args))
	}

	e, err := newEnv(cmd, !noCatalog)
	if err != nil {
		return err
	}
	defer e.Close()

	im := e.importer(cmd.ErrOrStderr())
	var outs []*importer.Outcome
	if len(args) == 1 {
		out, ierr := im.ImportFile(cmd.Context(), args[0], name)
		outs, err = []*importer.Outcome{out}, ierr
	} else {
		outs, err = im.ImportAll(cmd.Context(), args)
	}

	for _, out := range outs {
		if out == nil {
			continue
		}
		p := e.printer
		p.Metadata(out.Result.Metadata)
		if tree {
			p.Tree(out.Budget.Items)
		}
		p.Totals(out.Budget.Totals, out.Budget.Percentages)
		p.Info("%s", report.AmountInWords(out.Budget.Totals.Presupuesto))
		if e.store != nil {
			p.Info("%d new catalog prices", out.NewPrices)
		}
		if save {
			path, serr := project.Save(e.cfg.BudgetsDir, out.Budget)
			if serr != nil {
				p.Error(serr.Error())
				continue
			}
			e.emit(telemetry.Event{Kind: telemetry.KindBudgetSaved, BudgetID: out.Budget.ID, File: path})
			p.Success("saved %s", path)
		}
	}
	return err
}
