package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/importer"
	"github.com/papapumpkin/surveyor/internal/preflight"
	"github.com/papapumpkin/surveyor/internal/project"
	"github.com/papapumpkin/surveyor/internal/telemetry"
	"github.com/papapumpkin/surveyor/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Re-import .bc3 files in DIR whenever they change",
	Long: `Watches DIR and re-imports each .bc3 file once edits to it settle. Prices
are synced to the catalog; with --save the budget document is rewritten too.
Stops on SIGINT or SIGTERM.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("save", false, "save each re-imported budget under budgets_dir")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	save, _ := cmd.Flags().GetBool("save")

	e, err := newEnv(cmd, true)
	if err != nil {
		return err
	}
	defer e.Close()

	w, err := watch.New(args[0], preflight.Extension)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	im := e.importer(cmd.ErrOrStderr())
	e.printer.Info("watching %s", args[0])
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			reimport(ctx, e, im, change, save)
		}
	}
}

func reimport(ctx context.Context, e *env, im *importer.Importer, change watch.Change, save bool) {
	name := filepath.Base(change.File)
	if change.Kind == watch.ChangeRemoved {
		e.printer.Info("%s removed", name)
		return
	}

	out, err := im.ImportFile(ctx, change.File, "")
	if err != nil {
		e.printer.Error(err.Error())
		return
	}
	e.emit(telemetry.Event{Kind: telemetry.KindWatchReimport, File: name, BudgetID: out.Budget.ID})
	e.printer.Success("%s: %s", name, out.Budget.Name)
	e.printer.Totals(out.Budget.Totals, out.Budget.Percentages)

	if save {
		path, err := project.Save(e.cfg.BudgetsDir, out.Budget)
		if err != nil {
			e.printer.Error(err.Error())
			return
		}
		e.emit(telemetry.Event{Kind: telemetry.KindBudgetSaved, BudgetID: out.Budget.ID, File: path})
	}
}
