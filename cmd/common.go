package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/bc3"
	"github.com/papapumpkin/surveyor/internal/budget"
	"github.com/papapumpkin/surveyor/internal/config"
	"github.com/papapumpkin/surveyor/internal/importer"
	"github.com/papapumpkin/surveyor/internal/preflight"
	"github.com/papapumpkin/surveyor/internal/project"
	"github.com/papapumpkin/surveyor/internal/store"
	"github.com/papapumpkin/surveyor/internal/telemetry"
	"github.com/papapumpkin/surveyor/internal/ui"
)

// env bundles what most commands need. Close releases the store and the
// telemetry file.
type env struct {
	cfg     config.Config
	store   *store.Store
	events  *telemetry.Emitter
	printer *ui.Printer
}

// newEnv loads configuration and, when withStore is set, opens the catalog.
// Telemetry is always opened; failing to open it only produces a warning.
func newEnv(cmd *cobra.Command, withStore bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	e := &env{cfg: cfg, printer: ui.New(cmd.OutOrStdout())}

	if em, err := telemetry.NewEmitter(cfg.TelemetryPath); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: telemetry disabled: %v\n", err)
	} else {
		e.events = em
	}

	if withStore {
		st, err := store.Open(cmd.Context(), cfg.DBPath)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.store = st
	}
	return e, nil
}

func (e *env) Close() {
	if e.store != nil {
		e.store.Close()
	}
	e.events.Close()
}

// importer builds the pipeline from configuration. Warnings go to w.
func (e *env) importer(w io.Writer) *importer.Importer {
	im := &importer.Importer{
		MaxBytes: e.cfg.MaxFileSizeBytes(),
		Options: []bc3.Option{
			bc3.WithCodepages(e.cfg.Encodings...),
			bc3.WithPercentages(e.cfg.BudgetPercentages()),
		},
		Logger: w,
	}
	if e.store != nil {
		im.Catalog = e.store
	}
	if e.events != nil {
		im.Events = e.events
	}
	return im
}

// loadBudget resolves ref as an interchange file, a TOML document path, or
// the slug of a saved budget, in that order.
func (e *env) loadBudget(ctx context.Context, ref string, w io.Writer) (*budget.Budget, error) {
	switch strings.ToLower(filepath.Ext(ref)) {
	case preflight.Extension:
		out, err := e.importer(w).ImportFile(ctx, ref, "")
		if err != nil {
			return nil, err
		}
		return out.Budget, nil
	case project.Ext:
		return project.Load(ref)
	}
	return project.LoadSlug(e.cfg.BudgetsDir, ref)
}

func (e *env) emit(evt telemetry.Event) {
	_ = e.events.Emit(evt)
}

// writeOutput writes data to path, or to w when path is "-" or empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
