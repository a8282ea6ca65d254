package importer

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/papapumpkin/surveyor/internal/bc3"
	"github.com/papapumpkin/surveyor/internal/budget"
	"github.com/papapumpkin/surveyor/internal/store"
	"github.com/papapumpkin/surveyor/internal/telemetry"
)

const sampleFile = `~V|ACME|FIEBDC-3/2020\15102026|Tool|Casa\|ANSI|Reforma||
~C|CASA##||Casa|||0|
~D|CASA##|01#\1\\|1|
~C|01#||Chapter one|||0|
~C|01.01|m2|Tiling|25,50|15102026|0|
~D|01#|01.01\10\25,5\|0|
~D|01.01|MO001\0,5\\|
~C|MO001|h|Labourer|18,50|15102026|1|
`

type fakeCatalog struct {
	mu      sync.Mutex
	prices  []budget.Price
	imports []store.Import
	err     error
}

func (f *fakeCatalog) UpsertPrices(_ context.Context, prices []budget.Price) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.prices = append(f.prices, prices...)
	return len(prices), nil
}

func (f *fakeCatalog) RecordImport(_ context.Context, imp store.Import) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, imp)
	return nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (r *fakeRecorder) Emit(evt telemetry.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *fakeRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestImportBytes(t *testing.T) {
	t.Parallel()

	cat := &fakeCatalog{}
	rec := &fakeRecorder{}
	im := &Importer{Catalog: cat, Events: rec}

	out, err := im.ImportBytes(context.Background(), "casa.bc3", []byte(sampleFile), "")
	if err != nil {
		t.Fatalf("ImportBytes: %v", err)
	}
	if out.Budget.Name != "Casa" {
		t.Errorf("name = %q", out.Budget.Name)
	}
	if math.Abs(out.Budget.Totals.PEM-255) > 1e-9 {
		t.Errorf("PEM = %v", out.Budget.Totals.PEM)
	}
	if !out.Preflight.Passed {
		t.Errorf("preflight failed: %+v", out.Preflight.FirstFailure())
	}
	if out.NewPrices != 1 || len(cat.prices) != 1 || cat.prices[0].Source != "casa.bc3" {
		t.Errorf("catalog = %+v (new %d)", cat.prices, out.NewPrices)
	}
	if len(cat.imports) != 1 || cat.imports[0].ID != out.Budget.ID || cat.imports[0].Codepage != bc3.CodepageWindows1252 {
		t.Errorf("imports = %+v", cat.imports)
	}

	want := []string{telemetry.KindImportStart, telemetry.KindCatalogSynced, telemetry.KindImportDone}
	if got := rec.kinds(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestImportBytes_NamedBudget(t *testing.T) {
	t.Parallel()

	out, err := (&Importer{}).ImportBytes(context.Background(), "casa.bc3", []byte(sampleFile), "Mine")
	if err != nil {
		t.Fatalf("ImportBytes: %v", err)
	}
	if out.Budget.Name != "Mine" || out.NewPrices != 0 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestImportBytes_PreflightIsAdvisory(t *testing.T) {
	t.Parallel()

	var log bytes.Buffer
	rec := &fakeRecorder{}
	im := &Importer{Events: rec, Logger: &log}

	out, err := im.ImportBytes(context.Background(), "casa.txt", []byte(sampleFile), "")
	if err != nil {
		t.Fatalf("ImportBytes: %v", err)
	}
	if out.Preflight.Passed || out.Preflight.FirstFailure().Name != "extension" {
		t.Errorf("preflight = %+v", out.Preflight)
	}
	if !strings.Contains(log.String(), "preflight extension") {
		t.Errorf("log = %q", log.String())
	}
	if !strings.Contains(strings.Join(rec.kinds(), ","), telemetry.KindPreflight) {
		t.Errorf("events = %v", rec.kinds())
	}
}

func TestImportBytes_ParseFailure(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	cat := &fakeCatalog{}
	im := &Importer{Catalog: cat, Events: rec}

	_, err := im.ImportBytes(context.Background(), "empty.bc3", []byte("~V|x|\r\n"), "")
	if !errors.Is(err, bc3.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if len(cat.prices) != 0 || len(cat.imports) != 0 {
		t.Error("failed import touched the catalog")
	}
	kinds := rec.kinds()
	if kinds[len(kinds)-1] != telemetry.KindImportFailed {
		t.Errorf("events = %v", kinds)
	}
}

func TestImportBytes_CatalogError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	im := &Importer{Catalog: &fakeCatalog{err: boom}}
	if _, err := im.ImportBytes(context.Background(), "casa.bc3", []byte(sampleFile), ""); !errors.Is(err, boom) {
		t.Fatalf("expected catalog error, got %v", err)
	}
}

func TestImportBytes_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Importer{}).ImportBytes(ctx, "casa.bc3", []byte(sampleFile), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestImportAll(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	paths := []string{
		writeFile(t, dir, "a.bc3", sampleFile),
		writeFile(t, dir, "bad.bc3", "~V|nothing|\r\n"),
		writeFile(t, dir, "c.bc3", strings.ReplaceAll(sampleFile, "Casa", "Otra")),
		filepath.Join(dir, "missing.bc3"),
	}

	cat := &fakeCatalog{}
	outs, err := (&Importer{Catalog: cat}).ImportAll(context.Background(), paths)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, bc3.ErrNoData) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("joined error = %v", err)
	}
	if len(outs) != 4 {
		t.Fatalf("outcomes = %d", len(outs))
	}
	if outs[0] == nil || outs[0].File != "a.bc3" || outs[0].Budget.Name != "Casa" {
		t.Errorf("outs[0] = %+v", outs[0])
	}
	if outs[1] != nil || outs[3] != nil {
		t.Error("failed files should leave nil outcomes")
	}
	if outs[2] == nil || outs[2].Budget.Name != "Otra" {
		t.Errorf("outs[2] = %+v", outs[2])
	}
	if len(cat.imports) != 2 {
		t.Errorf("imports recorded = %d", len(cat.imports))
	}
}

func TestImportFile_WithStore(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	em, err := telemetry.NewEmitter(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	im := &Importer{Catalog: st, Events: em}

	path := writeFile(t, dir, "casa.bc3", sampleFile)
	first, err := im.ImportFile(ctx, path, "")
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	second, err := im.ImportFile(ctx, path, "")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if first.NewPrices != 1 || second.NewPrices != 0 {
		t.Errorf("new prices = %d then %d", first.NewPrices, second.NewPrices)
	}

	p, err := st.Price(ctx, "MO001")
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if p.UnitPrice != 18.5 || p.Kind != budget.KindLabor {
		t.Errorf("stored price = %+v", p)
	}
	hist, err := st.ListImports(ctx, 0)
	if err != nil || len(hist) != 2 {
		t.Fatalf("history = %+v, %v", hist, err)
	}
	if err := em.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	events, err := telemetry.Decode(f)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(events) != 6 {
		t.Errorf("events = %d, want 6", len(events))
	}
}
