package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/papapumpkin/surveyor/internal/bc3"
)

const sampleFile = "~V|ACME|FIEBDC-3/2020\\15102026|Tool|Casa\\|ANSI|Reforma||\r\n" +
	"~C|CASA##||Casa|||0|\r\n" +
	"~D|CASA##|01#\\1\\\\|1|\r\n" +
	"~C|01#||Chapter one|||0|\r\n" +
	"~C|01.01|m2|Tiling|25,50|15102026|0|\r\n" +
	"~D|01#|01.01\\10\\25,5\\|0|\r\n" +
	"~D|01.01|MO001\\0,5\\\\|\r\n" +
	"~C|MO001|h|Labourer|18,50|15102026|1|\r\n"

func TestCommandsRegistered(t *testing.T) {
	t.Parallel()

	want := []string{"import", "export", "show", "totals", "verify", "prices",
		"check", "watch", "serve", "report", "events", "list"}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("expected %q subcommand to be registered on rootCmd", name)
		}
	}
}

func TestCommandFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cmd  string
		flag string
	}{
		{"import", "save"},
		{"import", "name"},
		{"import", "no-catalog"},
		{"export", "output"},
		{"export", "codepage"},
		{"totals", "iva"},
		{"prices", "kind"},
		{"events", "follow"},
		{"serve", "addr"},
		{"list", "imports"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			t.Parallel()
			c, _, err := rootCmd.Find([]string{tt.cmd})
			if err != nil {
				t.Fatalf("find %s: %v", tt.cmd, err)
			}
			if c.Flags().Lookup(tt.flag) == nil {
				t.Errorf("expected flag %q on %s", tt.flag, tt.cmd)
			}
		})
	}
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// TestWorkflow drives the commands end to end against a temporary
// workspace. It mutates process environment and rootCmd, so it does not
// run in parallel.
func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SURVEYOR_DB_PATH", filepath.Join(dir, "catalog.db"))
	t.Setenv("SURVEYOR_BUDGETS_DIR", filepath.Join(dir, "budgets"))
	t.Setenv("SURVEYOR_TELEMETRY_PATH", filepath.Join(dir, "events.jsonl"))

	file := filepath.Join(dir, "casa.bc3")
	if err := os.WriteFile(file, []byte(sampleFile), 0o644); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		name string
		args []string
		want []string
	}{
		{"import", []string{"import", "--save", file}, []string{"Casa", "367.17", "1 new catalog prices", "saved"}},
		{"list", []string{"list"}, []string{"casa", "367.17"}},
		{"history", []string{"list", "--imports"}, []string{"casa.bc3", "windows-1252"}},
		{"show", []string{"show", "casa"}, []string{"Chapter one", "Tiling", "TOTAL"}},
		{"prices", []string{"prices", "--kind", "labor"}, []string{"MO001", "Labourer", "18.50"}},
		{"price", []string{"prices", "MO001"}, []string{"MO001"}},
		{"totals", []string{"totals", "casa", "--iva", "0"}, []string{"IVA 0%", "303.45"}},
		{"verify", []string{"verify", file}, []string{"round trip preserves totals", "367.17"}},
		{"check", []string{"check", file}, []string{"extension", "signature"}},
		{"events", []string{"events", "--kind", "budget_saved"}, []string{"budget_saved"}},
	}
	for _, s := range steps {
		out, err := run(t, s.args...)
		if err != nil {
			t.Fatalf("%s: %v\n%s", s.name, err, out)
		}
		for _, w := range s.want {
			if !strings.Contains(out, w) {
				t.Errorf("%s: expected output to contain %q, got:\n%s", s.name, w, out)
			}
		}
	}

	exported := filepath.Join(dir, "out.bc3")
	if _, err := run(t, "export", "casa", "-o", exported); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatal(err)
	}
	res, err := bc3.Parse(data)
	if err != nil {
		t.Fatalf("reparse export: %v", err)
	}
	if res.Metadata.Title != "Casa" || len(res.Prices) != 1 {
		t.Errorf("exported metadata = %+v", res.Metadata)
	}

	xlsx := filepath.Join(dir, "casa.xlsx")
	if _, err := run(t, "report", "casa", "-o", xlsx); err != nil {
		t.Fatalf("report: %v", err)
	}
	if info, err := os.Stat(xlsx); err != nil || info.Size() == 0 {
		t.Errorf("report not written: %v", err)
	}

	if _, err := run(t, "show", "missing"); err == nil {
		t.Error("expected error for unknown budget slug")
	}
	if _, err := run(t, "check", filepath.Join(dir, "casa.xlsx")); err == nil {
		t.Error("expected check to fail for a non-bc3 file")
	}
}
