// Package report renders budgets for people: spreadsheets and the final
// amount spelled out.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// Sheet names.
const (
	SheetBudget = "Budget"
	SheetPrices = "Prices"
)

// moneyFormat is the built-in "#,##0.00" number format.
const moneyFormat = 4

var itemHeaders = []string{"Code", "Type", "Description", "Unit", "Quantity", "Unit price", "Total"}

var priceHeaders = []string{"Code", "Description", "Unit", "Unit price", "Kind", "Category"}

// WriteXLSX writes b as a workbook with the item tree and a totals block on
// the first sheet and the price catalog on the second.
func WriteXLSX(w io.Writer, b *budget.Budget) error {
	f := excelize.NewFile()
	defer f.Close()

	x := &sheetWriter{f: f}
	if err := x.styles(); err != nil {
		return fmt.Errorf("report: styles: %w", err)
	}
	if err := f.SetSheetName("Sheet1", SheetBudget); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}

	x.sheet = SheetBudget
	x.header(itemHeaders)
	budget.Walk(b.Items, func(it *budget.Item, depth int) bool {
		x.item(it, depth)
		return true
	})
	x.row++
	x.totals(b)
	x.widths([]float64{14, 10, 60, 8, 12, 14, 16})

	if _, err := f.NewSheet(SheetPrices); err != nil {
		return fmt.Errorf("report: add sheet: %w", err)
	}
	x.sheet, x.row = SheetPrices, 0
	x.header(priceHeaders)
	for _, p := range b.Prices {
		x.row++
		x.set(1, p.Code)
		x.set(2, p.Description)
		x.set(3, string(p.Unit))
		x.money(4, p.UnitPrice)
		x.set(5, string(p.Kind))
		x.set(6, p.Category)
	}
	x.widths([]float64{14, 60, 8, 14, 12, 14})

	if x.err != nil {
		return fmt.Errorf("report: fill: %w", x.err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// sheetWriter keeps the first cell error so the fill code stays linear.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error

	bold    int
	chapter int
	amount  int
	indents map[int]int
}

func (x *sheetWriter) styles() error {
	var err error
	if x.bold, err = x.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return err
	}
	if x.chapter, err = x.f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: moneyFormat,
	}); err != nil {
		return err
	}
	if x.amount, err = x.f.NewStyle(&excelize.Style{NumFmt: moneyFormat}); err != nil {
		return err
	}
	x.indents = make(map[int]int)
	return nil
}

func (x *sheetWriter) indent(depth int) int {
	if id, ok := x.indents[depth]; ok {
		return id
	}
	id, err := x.f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Indent: depth}})
	if err != nil {
		x.fail(err)
		return 0
	}
	x.indents[depth] = id
	return id
}

func (x *sheetWriter) fail(err error) {
	if x.err == nil {
		x.err = err
	}
}

func (x *sheetWriter) cell(col int) string {
	name, err := excelize.CoordinatesToCellName(col, x.row)
	if err != nil {
		x.fail(err)
	}
	return name
}

func (x *sheetWriter) set(col int, v any) {
	x.fail(x.f.SetCellValue(x.sheet, x.cell(col), v))
}

func (x *sheetWriter) style(col, id int) {
	c := x.cell(col)
	x.fail(x.f.SetCellStyle(x.sheet, c, c, id))
}

func (x *sheetWriter) money(col int, v float64) {
	x.set(col, budget.Round2(v))
	x.style(col, x.amount)
}

func (x *sheetWriter) header(cols []string) {
	x.row++
	for i, h := range cols {
		x.set(i+1, h)
		x.style(i+1, x.bold)
	}
}

func (x *sheetWriter) item(it *budget.Item, depth int) {
	x.row++
	x.set(1, it.Code)
	x.set(2, string(it.Type))
	x.set(3, it.Description)
	if depth > 0 {
		x.style(3, x.indent(depth))
	}
	if it.IsChapter() {
		x.set(7, budget.Round2(it.TotalPrice))
		x.style(7, x.chapter)
		return
	}
	x.set(4, string(it.Unit))
	x.set(5, it.Quantity)
	x.money(6, it.UnitPrice)
	x.money(7, it.TotalPrice)
}

func (x *sheetWriter) totals(b *budget.Budget) {
	t, pct := b.Totals, b.Percentages
	rows := []struct {
		label string
		v     float64
	}{
		{"PEM", t.PEM},
		{fmt.Sprintf("GG (%s%%)", pctLabel(pct.GG)), t.GG},
		{fmt.Sprintf("BI (%s%%)", pctLabel(pct.BI)), t.BI},
		{"Base", t.BaseImponible()},
		{fmt.Sprintf("IVA (%s%%)", pctLabel(pct.IVA)), t.IVA},
		{"TOTAL", t.Presupuesto},
	}
	for _, r := range rows {
		x.row++
		x.set(6, r.label)
		x.style(6, x.bold)
		x.money(7, r.v)
	}
	x.row++
	x.set(3, AmountInWords(t.Presupuesto))
}

func (x *sheetWriter) widths(ws []float64) {
	for i, w := range ws {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			x.fail(err)
			continue
		}
		x.fail(x.f.SetColWidth(x.sheet, col, col, w))
	}
}

func pctLabel(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// AmountInWords spells a money amount in English, rounded to cents:
// 17.5 becomes "seventeen euros and fifty cents".
func AmountInWords(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	neg := d.IsNegative()
	d = d.Abs()

	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()

	var sb strings.Builder
	if neg {
		sb.WriteString("minus ")
	}
	units := whole.IntPart()
	sb.WriteString(num2words.Convert(int(units)))
	sb.WriteString(plural(units, " euro", " euros"))
	if cents > 0 {
		sb.WriteString(" and ")
		sb.WriteString(num2words.Convert(int(cents)))
		sb.WriteString(plural(cents, " cent", " cents"))
	}
	return sb.String()
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
