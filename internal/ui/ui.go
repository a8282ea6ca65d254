// Package ui renders budgets, catalogs and check results for the terminal.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/surveyor/internal/bc3"
	"github.com/papapumpkin/surveyor/internal/budget"
	"github.com/papapumpkin/surveyor/internal/preflight"
	"github.com/papapumpkin/surveyor/internal/project"
	"github.com/papapumpkin/surveyor/internal/store"
	"github.com/papapumpkin/surveyor/internal/telemetry"
)

const (
	labelWidth  = 14
	amountWidth = 14
	codeWidth   = 14
	indentStep  = "  "
	timeLayout  = "2006-01-02 15:04"
)

// Printer writes styled output to a single writer. Colors are dropped
// automatically when the writer is not a terminal.
type Printer struct {
	w io.Writer
	s styles
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, s: newStyles(lipgloss.NewRenderer(w))}
}

func (p *Printer) println(parts ...string) {
	fmt.Fprintln(p.w, strings.Join(parts, " "))
}

// Info prints a muted status line.
func (p *Printer) Info(format string, args ...any) {
	p.println(p.s.dim.Render(iconInfo), fmt.Sprintf(format, args...))
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	p.println(p.s.ok.Render(iconDone), fmt.Sprintf(format, args...))
}

// Warn prints a failed-check line.
func (p *Printer) Warn(format string, args ...any) {
	p.println(p.s.fail.Render(iconFailed), fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	p.println(p.s.fail.Render("error:"), msg)
}

// Tree prints the item forest, one line per item, indented by depth.
func (p *Printer) Tree(items []*budget.Item) {
	budget.Walk(items, func(it *budget.Item, depth int) bool {
		indent := strings.Repeat(indentStep, depth)
		code := p.s.code.Render(fmt.Sprintf("%-*s", codeWidth, it.Code))
		if it.IsChapter() {
			p.println(indent+code, p.s.chapter.Render(it.Description),
				p.s.amount.Render(budget.FormatMoney(it.TotalPrice)))
			return true
		}
		detail := p.s.dim.Render(fmt.Sprintf("%s %s × %s", formatQty(it.Quantity), it.Unit,
			budget.FormatMoney(it.UnitPrice)))
		p.println(indent+code, p.s.unit.Render(it.Description), detail,
			p.s.amount.Render(budget.FormatMoney(it.TotalPrice)))
		return true
	})
}

// Totals prints the markup and tax cascade.
func (p *Printer) Totals(t budget.Totals, pct budget.Percentages) {
	rows := []struct {
		label string
		v     float64
	}{
		{"PEM", t.PEM},
		{fmt.Sprintf("GG %s%%", formatQty(pct.GG)), t.GG},
		{fmt.Sprintf("BI %s%%", formatQty(pct.BI)), t.BI},
		{"Base", t.BaseImponible()},
		{fmt.Sprintf("IVA %s%%", formatQty(pct.IVA)), t.IVA},
	}
	for _, r := range rows {
		p.println(p.s.label.Render(r.label), p.s.amount.Render(budget.FormatMoney(r.v)))
	}
	p.println(p.s.label.Render("TOTAL"), p.s.total.Render(budget.FormatMoney(t.Presupuesto)))
}

// Metadata prints the summary of a parsed file.
func (p *Printer) Metadata(m bc3.Metadata) {
	p.println(p.s.title.Render(m.Title))
	rows := [][2]string{
		{"format", m.Format},
		{"program", m.Program},
		{"encoding", m.Encoding},
		{"items", fmt.Sprintf("%d (%d chapters, %d units)", m.TotalItems, m.Chapters, m.Units)},
		{"prices", fmt.Sprintf("%d (%d material, %d labor, %d machinery, %d unit)",
			m.TotalPrices, m.Materials, m.Labor, m.Machinery, m.UnitPrices)},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		p.println(p.s.label.Render(r[0]), r[1])
	}
	if !m.PercentagesFromFile {
		p.println(p.s.label.Render("rates"), p.s.dim.Render("defaults (file sets none)"))
	}
}

// Preflight prints each check outcome for file.
func (p *Printer) Preflight(file string, r *preflight.Result) {
	p.println(p.s.title.Render(file))
	for _, c := range r.Checks {
		if c.Passed {
			p.println(indentStep+p.s.ok.Render(iconDone), c.Name)
			continue
		}
		p.println(indentStep+p.s.fail.Render(iconFailed), c.Name, p.s.dim.Render(c.Output))
	}
}

// Prices prints a catalog table.
func (p *Printer) Prices(prices []budget.Price) {
	if len(prices) == 0 {
		p.Info("no prices")
		return
	}
	for _, pr := range prices {
		p.println(p.s.code.Render(fmt.Sprintf("%-*s", codeWidth, pr.Code)),
			p.s.dim.Render(fmt.Sprintf("%-10s %-3s", pr.Kind, pr.Unit)),
			p.s.amount.Render(budget.FormatMoney(pr.UnitPrice)), pr.Description)
	}
}

// Imports prints the import history.
func (p *Printer) Imports(imps []store.Import) {
	if len(imps) == 0 {
		p.Info("no imports recorded")
		return
	}
	for _, imp := range imps {
		p.println(p.s.dim.Render(imp.ImportedAt.Local().Format(timeLayout)), imp.File,
			p.s.dim.Render(imp.Codepage), imp.Title,
			p.s.amount.Render(budget.FormatMoney(imp.Total)))
	}
}

// Budgets prints stored budget summaries.
func (p *Printer) Budgets(list []project.Summary) {
	if len(list) == 0 {
		p.Info("no saved budgets")
		return
	}
	for _, b := range list {
		p.println(p.s.code.Render(fmt.Sprintf("%-*s", codeWidth, b.Slug)), b.Name,
			p.s.dim.Render(string(b.Status)), p.s.amount.Render(budget.FormatMoney(b.Total)))
	}
}

// Events prints telemetry events, one per line.
func (p *Printer) Events(events []telemetry.Event) {
	for _, e := range events {
		parts := []string{p.s.dim.Render(e.Timestamp.Local().Format(timeLayout)), p.s.title.Render(e.Kind)}
		if e.File != "" {
			parts = append(parts, e.File)
		}
		if e.BudgetID != "" {
			parts = append(parts, p.s.dim.Render(e.BudgetID))
		}
		if e.Data != nil {
			parts = append(parts, formatData(e.Data))
		}
		p.println(parts...)
	}
}

// formatData renders a data map as key=value pairs sorted by key, and any
// other payload as JSON.
func formatData(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		b, _ := json.Marshal(data)
		return string(b)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

// formatQty drops trailing zeros: 10, 2.5, 0.125.
func formatQty(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
