package bc3

import (
	"strings"
	"testing"
	"time"

	"github.com/papapumpkin/surveyor/internal/budget"
)

func exportDate() ExportOption {
	return WithDate(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
}

func oneChapterBudget() *budget.Budget {
	unit := &budget.Item{ID: "u1", Code: "01.01", Type: budget.TypeUnit, Description: "Tiling",
		Unit: budget.UnitSquareMeter, Quantity: 10, UnitPrice: 25.5, ParentID: "c1"}
	ch := &budget.Item{ID: "c1", Code: "01", Type: budget.TypeChapter, Description: "Chapter one",
		Children: []*budget.Item{unit}}
	return budget.New("Casa", []*budget.Item{ch}, nil, budget.Percentages{GG: 13, BI: 6, IVA: 21})
}

func TestExportRecords(t *testing.T) {
	t.Parallel()

	out := Export(oneChapterBudget(), "", exportDate())
	want := []string{
		`~V|surveyor|FIEBDC-3/2020\15102026|surveyor|Casa\|ANSI||`,
		`~C|CASA##||Casa|255|15102026|0|`,
		`~D|CASA##|01#\1\255\|1|`,
		`~C|01#||Chapter one|255|15102026|0|`,
		`~C|01.01|m2|Tiling|25.5|15102026|0|`,
		`~D|01#|01.01\10\25.5\|0|`,
		`~K|PEM|255.00|`,
		`~K|GG|33.15|13|`,
		`~K|BI|15.30|6|`,
		`~K|IVA|63.72|21|`,
		`~K|TOTAL|367.17|`,
	}
	got := strings.Split(strings.TrimSuffix(out, lineEnd), lineEnd)
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), out)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d:\n got  %s\n want %s", i, got[i], want[i])
		}
	}
}

func TestExportQualifiesChildCodes(t *testing.T) {
	t.Parallel()

	unit := &budget.Item{Code: "A", Type: budget.TypeUnit, Quantity: 1, UnitPrice: 1}
	sub := &budget.Item{Code: "2", Type: budget.TypeChapter, Children: []*budget.Item{unit}}
	ch := &budget.Item{Code: "01", Type: budget.TypeChapter, Children: []*budget.Item{sub}}
	b := budget.New("x", []*budget.Item{ch}, nil, budget.Percentages{})

	out := Export(b, "", exportDate())
	for _, want := range []string{
		`~C|01.2#|`,
		`~D|01#|01.2#\1\1\|1|`,
		`~C|01.2.A|`,
		`~D|01.2#|01.2.A\1\1\|0|`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestExportLongDescriptionAndSanitizing(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("á", 90) + "|tail"
	unit := &budget.Item{Code: "U1", Type: budget.TypeUnit, Description: long, Quantity: 1, UnitPrice: 2}
	b := budget.New("x", []*budget.Item{unit}, nil, budget.Percentages{})

	out := Export(b, "", exportDate())
	if !strings.Contains(out, "~C|U1||"+strings.Repeat("á", maxSummary)+"|2|") {
		t.Errorf("summary not truncated:\n%s", out)
	}
	if !strings.Contains(out, "~T|U1|"+strings.Repeat("á", 90)+" tail|") {
		t.Errorf("missing sanitized long text:\n%s", out)
	}
}

func TestExportCatalogAndResources(t *testing.T) {
	t.Parallel()

	unit := &budget.Item{Code: "U1", Type: budget.TypeUnit, Unit: budget.UnitCubicMeter, Quantity: 2, UnitPrice: 20.5,
		Resources: []budget.Resource{{Code: "MO001", Quantity: 0.5, UnitPrice: 18.5}, {Code: "GONE", Quantity: 1, UnitPrice: 11.25}}}
	prices := []budget.Price{{Code: "MO001", Description: "Peón", Unit: budget.UnitHour, UnitPrice: 18.5, Kind: budget.KindLabor}}
	b := budget.New("x", []*budget.Item{unit}, prices, budget.Percentages{})

	out := Export(b, "", exportDate())
	for _, want := range []string{
		`~D|U1|MO001\0.5\18.5\GONE\1\11.25\|`,
		`~C|MO001|h|Peón|18.5||1|`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "~C|GONE|") {
		t.Error("dangling resource must not gain a catalog entry")
	}
}

func TestExportRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"one chapter", oneChapterFile},
		{"works", worksFile},
		{"measurements", `~C|01#||Walls|||0|
~D|01#|01.01\\\|0|
~C|01.01|m2|Plaster|10||0|
~M|01\01.01|1||\Room A\2\3\2\\3\a*b+1\2\3\\\|
`},
		{"root unit", "~C|U|ud|Door|120,40||0|\n~D|U|MO\\2\\\\|\n~C|MO|h|Fitter|20||1|\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			first := mustParse(t, tt.src)
			b := first.Budget("")

			text := Export(b, "", exportDate())
			data, err := Encode(text, "")
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			second, err := Parse(data)
			if err != nil {
				t.Fatalf("reparse: %v\n%s", err, text)
			}

			pairs := []struct {
				name string
				a, b float64
			}{
				{"PEM", first.Totals.PEM, second.Totals.PEM},
				{"GG", first.Totals.GG, second.Totals.GG},
				{"BI", first.Totals.BI, second.Totals.BI},
				{"IVA", first.Totals.IVA, second.Totals.IVA},
				{"Presupuesto", first.Totals.Presupuesto, second.Totals.Presupuesto},
			}
			for _, p := range pairs {
				if !budget.EqualMoney(p.a, p.b) {
					t.Errorf("%s: %v before, %v after\n%s", p.name, p.a, p.b, text)
				}
			}

			c1, u1 := budget.Count(first.Items)
			c2, u2 := budget.Count(second.Items)
			if c1 != c2 || u1 != u2 {
				t.Errorf("shape %d/%d became %d/%d\n%s", c1, u1, c2, u2, text)
			}
			if len(first.Prices) != len(second.Prices) {
				t.Errorf("prices %d became %d", len(first.Prices), len(second.Prices))
			}
			if second.Metadata.Percentages != first.Metadata.Percentages {
				t.Errorf("percentages %+v became %+v", first.Metadata.Percentages, second.Metadata.Percentages)
			}
		})
	}
}

// reparse exports b, encodes it and parses it back.
func reparse(t *testing.T, b *budget.Budget, name string) *Result {
	t.Helper()
	text := Export(b, name, exportDate())
	data, err := Encode(text, "")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res, err := Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, text)
	}
	return res
}

func TestExportRoundTripZeroPriceWithResources(t *testing.T) {
	t.Parallel()

	unit := &budget.Item{ID: "u1", Code: "01.01", Type: budget.TypeUnit, Unit: budget.UnitEach,
		Quantity: 2, UnitPrice: 10, ParentID: "c1",
		Resources: []budget.Resource{{Code: "R1", Quantity: 1, UnitPrice: 10}}}
	ch := &budget.Item{ID: "c1", Code: "01", Type: budget.TypeChapter, Children: []*budget.Item{unit}}
	b := budget.New("Casa", []*budget.Item{ch}, nil, budget.Percentages{})
	if err := b.SetUnitPrice("u1", 0); err != nil {
		t.Fatalf("SetUnitPrice: %v", err)
	}

	res := reparse(t, b, "")
	if res.Totals.PEM != 0 {
		t.Errorf("PEM = %v after round trip, want 0", res.Totals.PEM)
	}
	got := res.Items[0].Children[0]
	if got.UnitPrice != 0 || len(got.Resources) != 1 {
		t.Errorf("unit = price %v, resources %+v", got.UnitPrice, got.Resources)
	}
}

func TestExportHeaderAvoidsRootCode(t *testing.T) {
	t.Parallel()

	b := mustParse(t, oneChapterFile).Budget("01")
	out := Export(b, "", exportDate())
	if !strings.Contains(out, "~C|01_H##||01|") {
		t.Errorf("header not renamed:\n%s", out)
	}

	res := reparse(t, b, "")
	chapters, units := budget.Count(res.Items)
	if len(res.Items) != 1 || chapters != 1 || units != 1 {
		t.Errorf("roots=%d chapters=%d units=%d, want 1/1/1", len(res.Items), chapters, units)
	}
	if res.Items[0].Code != "01" || !res.Items[0].IsChapter() {
		t.Errorf("root = %s (%s)", res.Items[0].Code, res.Items[0].Type)
	}
}

func TestUniqueHeader(t *testing.T) {
	t.Parallel()

	roots := []*budget.Item{{Code: "01"}, {Code: "01_H"}, {Code: "02"}}
	tests := []struct {
		header, want string
	}{
		{"CASA", "CASA"},
		{"02", "02_H"},
		{"01", "01_H_H"},
	}
	for _, tt := range tests {
		if got := uniqueHeader(tt.header, roots); got != tt.want {
			t.Errorf("uniqueHeader(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestHeaderCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{"Casa", "CASA"},
		{"Obra nueva 2026", "OBRANUEVA2026"},
		{"Reforma ático", "REFORMATICO"},
		{"", "BUDGET"},
		{"---", "---"},
		{strings.Repeat("x", 40), strings.Repeat("X", maxHeaderLen)},
	}
	for _, tt := range tests {
		if got := headerCode(tt.name); got != tt.want {
			t.Errorf("headerCode(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestQualify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		parent, code, want string
	}{
		{"01", "01.01", "01.01"},
		{"01", "05", "01.05"},
		{"", "05", "05"},
		{"01", "011", "01.011"},
		{"01", "A#", "01.A"},
	}
	for _, tt := range tests {
		if got := qualify(tt.parent, tt.code); got != tt.want {
			t.Errorf("qualify(%q, %q) = %q, want %q", tt.parent, tt.code, got, tt.want)
		}
	}
}
