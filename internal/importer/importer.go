// Package importer turns interchange files into budgets: pre-flight checks,
// parsing, catalog sync, import history and telemetry, in that order.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/papapumpkin/surveyor/internal/bc3"
	"github.com/papapumpkin/surveyor/internal/budget"
	"github.com/papapumpkin/surveyor/internal/preflight"
	"github.com/papapumpkin/surveyor/internal/store"
	"github.com/papapumpkin/surveyor/internal/telemetry"
)

// Catalog persists the prices and history of each import.
type Catalog interface {
	UpsertPrices(ctx context.Context, prices []budget.Price) (int, error)
	RecordImport(ctx context.Context, imp store.Import) error
}

// Recorder receives telemetry events.
type Recorder interface {
	Emit(evt telemetry.Event) error
}

// Importer runs the import pipeline. Every field is optional: without a
// Catalog nothing is persisted, without Events nothing is recorded.
type Importer struct {
	Catalog  Catalog
	Events   Recorder
	Checks   *preflight.Chain // nil = preflight.DefaultChain(MaxBytes)
	MaxBytes int64
	Options  []bc3.Option

	// Logger receives non-fatal warnings such as failed pre-flight checks.
	// If nil, warnings are discarded.
	Logger io.Writer
}

// Outcome is the result of importing one file.
type Outcome struct {
	File      string
	Result    *bc3.Result
	Budget    *budget.Budget
	Preflight *preflight.Result
	NewPrices int
}

// ImportFile reads path and imports it. An empty name uses the file title.
func (im *Importer) ImportFile(ctx context.Context, path, name string) (*Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("importer: read %s: %w", path, err)
	}
	return im.ImportBytes(ctx, filepath.Base(path), data, name)
}

// ImportBytes imports an in-memory file. Pre-flight failures are logged and
// reported on the Outcome; only a parse or persistence error fails the
// import.
func (im *Importer) ImportBytes(ctx context.Context, file string, data []byte, name string) (*Outcome, error) {
	im.emit(telemetry.Event{Kind: telemetry.KindImportStart, File: file,
		Data: map[string]any{"bytes": len(data)}})

	pre, err := im.chain().Run(ctx, preflight.FromBytes(file, data))
	if err != nil {
		return nil, fmt.Errorf("importer: %s: %w", file, err)
	}
	if !pre.Passed {
		for _, c := range pre.Checks {
			if !c.Passed {
				im.logf("importer: %s: preflight %s: %s", file, c.Name, c.Output)
			}
		}
		im.emit(telemetry.Event{Kind: telemetry.KindPreflight, File: file,
			Data: map[string]any{"failed": pre.FirstFailure().Name}})
	}

	opts := append([]bc3.Option{bc3.WithSource(file)}, im.Options...)
	res, err := bc3.Parse(data, opts...)
	if err != nil {
		im.emit(telemetry.Event{Kind: telemetry.KindImportFailed, File: file,
			Data: map[string]any{"error": err.Error()}})
		return nil, fmt.Errorf("importer: %s: %w", file, err)
	}

	out := &Outcome{File: file, Result: res, Budget: res.Budget(name), Preflight: pre}
	if err := im.persist(ctx, out); err != nil {
		return nil, err
	}

	im.emit(telemetry.Event{Kind: telemetry.KindImportDone, File: file, BudgetID: out.Budget.ID,
		Data: map[string]any{
			"codepage": res.Metadata.Encoding,
			"items":    res.Metadata.TotalItems,
			"prices":   res.Metadata.TotalPrices,
			"total":    budget.Round2(out.Budget.Totals.Presupuesto),
		}})
	return out, nil
}

func (im *Importer) persist(ctx context.Context, out *Outcome) error {
	if im.Catalog == nil {
		return nil
	}
	res := out.Result
	n, err := im.Catalog.UpsertPrices(ctx, res.Prices)
	if err != nil {
		return fmt.Errorf("importer: %s: %w", out.File, err)
	}
	out.NewPrices = n
	im.emit(telemetry.Event{Kind: telemetry.KindCatalogSynced, File: out.File,
		Data: map[string]any{"new": n, "seen": len(res.Prices)}})

	err = im.Catalog.RecordImport(ctx, store.Import{
		ID:       out.Budget.ID,
		File:     out.File,
		Codepage: res.Metadata.Encoding,
		Title:    out.Budget.Name,
		Items:    res.Metadata.TotalItems,
		Prices:   res.Metadata.TotalPrices,
		PEM:      out.Budget.Totals.PEM,
		Total:    out.Budget.Totals.Presupuesto,
	})
	if err != nil {
		return fmt.Errorf("importer: %s: %w", out.File, err)
	}
	return nil
}

// ImportAll imports every path concurrently, each in its own parse session.
// Outcomes are returned in input order; a failed file leaves a nil entry
// and its error is joined into the returned error.
func (im *Importer) ImportAll(ctx context.Context, paths []string) ([]*Outcome, error) {
	outs := make([]*Outcome, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outs[i], errs[i] = im.ImportFile(ctx, path, "")
		}()
	}
	wg.Wait()
	return outs, errors.Join(errs...)
}

func (im *Importer) chain() *preflight.Chain {
	if im.Checks != nil {
		return im.Checks
	}
	return preflight.DefaultChain(im.MaxBytes)
}

func (im *Importer) emit(evt telemetry.Event) {
	if im.Events == nil {
		return
	}
	if err := im.Events.Emit(evt); err != nil {
		im.logf("importer: telemetry: %v", err)
	}
}

// logf writes a formatted warning to the importer's logger.
func (im *Importer) logf(format string, args ...any) {
	if im.Logger != nil {
		fmt.Fprintf(im.Logger, format+"\n", args...)
	}
}
