package bc3

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/papapumpkin/surveyor/internal/budget"
)

const (
	exportFormat  = "FIEBDC-3/2020"
	exportProgram = "surveyor"
	exportCharset = "ANSI"
	lineEnd       = "\r\n"

	// maxSummary is the longest summary written on a ~C record; longer
	// descriptions go to a ~T record in full.
	maxSummary   = 80
	maxHeaderLen = 20
	headerSuffix = "_H"
)

// ExportOption configures Export.
type ExportOption func(*exportOptions)

type exportOptions struct {
	date    time.Time
	program string
}

// WithDate fixes the date written on the version record.
func WithDate(t time.Time) ExportOption {
	return func(o *exportOptions) {
		o.date = t
	}
}

// WithProgram sets the program name written on the version record.
func WithProgram(name string) ExportOption {
	return func(o *exportOptions) {
		if name != "" {
			o.program = name
		}
	}
}

// Export serializes b as interchange text: a version record, a budget
// header concept linking the roots, one concept per item with its
// decomposition, the price catalog, and a trailing totals block. The
// result is UTF-8; pass it through Encode before writing to disk.
//
// Reparsing the output yields the same totals at two-decimal precision.
func Export(b *budget.Budget, name string, opts ...ExportOption) string {
	o := exportOptions{date: time.Now(), program: exportProgram}
	for _, opt := range opts {
		opt(&o)
	}
	if name == "" {
		name = b.Name
	}

	e := &exporter{date: formatDate(o.date), emitted: make(map[string]bool)}
	e.header = uniqueHeader(headerCode(name), b.Items)

	e.line(TagVersion, exportProgram, exportFormat+subfieldSep+e.date, o.program,
		clean(name)+subfieldSep, exportCharset, "")

	e.line(TagConcept, e.header+chapterMark+chapterMark, "", summary(name),
		formatNumber(b.Totals.PEM), e.date, "0")
	for _, it := range b.Items {
		e.line(TagDecomposition, e.header+chapterMark+chapterMark, link(it, cleanCode(it.Code)), marker(it))
	}
	for _, it := range b.Items {
		e.item(it, e.header, cleanCode(it.Code), true)
	}

	for _, p := range b.Prices {
		if e.emitted[p.Code] {
			continue
		}
		e.emitted[p.Code] = true
		e.line(TagConcept, cleanCode(p.Code), string(p.Unit), summary(p.Description),
			formatNumber(p.UnitPrice), formatDate(p.LastUpdated), kindField(p.Kind))
		e.longText(p.Code, p.Description)
	}

	t := b.Totals
	pct := b.Percentages
	e.line(TagKomment, labelPEM, budget.FormatMoney(t.PEM))
	e.line(TagKomment, labelGG, budget.FormatMoney(t.GG), formatNumber(pct.GG))
	e.line(TagKomment, labelBI, budget.FormatMoney(t.BI), formatNumber(pct.BI))
	e.line(TagKomment, labelIVA, budget.FormatMoney(t.IVA), formatNumber(pct.IVA))
	e.line(TagKomment, labelTotal, budget.FormatMoney(t.Presupuesto))

	return e.sb.String()
}

type exporter struct {
	sb      strings.Builder
	header  string
	date    string
	emitted map[string]bool
}

func (e *exporter) line(tag Tag, fields ...string) {
	e.sb.WriteString(recordMark)
	e.sb.WriteString(tag.String())
	for _, f := range fields {
		e.sb.WriteString(fieldSep)
		e.sb.WriteString(f)
	}
	e.sb.WriteString(fieldSep)
	e.sb.WriteString(lineEnd)
}

// item writes the concept, decomposition and measurement records of it and
// its subtree. code is the already-qualified code; root items are linked by
// the header decomposition instead of by their parent.
func (e *exporter) item(it *budget.Item, parent, code string, root bool) {
	e.emitted[code] = true
	if it.IsChapter() {
		e.line(TagConcept, code+chapterMark, "", summary(it.Description),
			formatNumber(it.TotalPrice), e.date, "0")
		e.longText(code, it.Description)
		if !root {
			e.line(TagDecomposition, parent+chapterMark, link(it, code), marker(it))
		}
		for _, c := range it.Children {
			e.item(c, code, qualify(code, c.Code), false)
		}
		return
	}

	e.line(TagConcept, code, string(it.Unit), summary(it.Description),
		formatNumber(it.UnitPrice), e.date, "0")
	e.longText(code, it.Description)
	if len(it.Resources) > 0 {
		var rs []string
		for _, r := range it.Resources {
			rs = append(rs, cleanCode(r.Code)+subfieldSep+formatNumber(r.Quantity)+
				subfieldSep+formatNumber(r.UnitPrice)+subfieldSep)
		}
		e.line(TagDecomposition, code, strings.Join(rs, ""))
	}
	if !root {
		e.line(TagDecomposition, parent+chapterMark, link(it, code), marker(it))
	}
	if len(it.Measurements) > 0 {
		e.measurements(parent, code, it)
	}
}

func (e *exporter) measurements(parent, code string, it *budget.Item) {
	var parts []string
	for _, m := range it.Measurements {
		for _, f := range []string{m.Type, m.Comment, m.Units, m.Length, m.Width, m.Height} {
			parts = append(parts, strings.ReplaceAll(clean(f), subfieldSep, "/"))
		}
	}
	e.line(TagMeasurement, parent+subfieldSep+code, "", formatNumber(it.Quantity),
		strings.Join(parts, subfieldSep)+subfieldSep)
}

// longText writes a ~T record when the description does not fit a summary.
func (e *exporter) longText(code, desc string) {
	if utf8.RuneCountInString(desc) <= maxSummary && !strings.ContainsAny(desc, "\r\n") {
		return
	}
	e.line(TagText, code, clean(desc))
}

// link is one CHILD\QTY\PRICE\ group pointing at it.
func link(it *budget.Item, code string) string {
	if it.IsChapter() {
		return code + chapterMark + subfieldSep + "1" + subfieldSep +
			formatNumber(it.TotalPrice) + subfieldSep
	}
	return code + subfieldSep + formatNumber(it.Quantity) + subfieldSep +
		formatNumber(it.UnitPrice) + subfieldSep
}

func marker(it *budget.Item) string {
	if it.IsChapter() {
		return markerChapter
	}
	return markerUnit
}

// qualify prefixes code with its parent's code unless it already is.
func qualify(parent, code string) string {
	code = cleanCode(code)
	if parent == "" || strings.HasPrefix(code, parent+codeSep) {
		return code
	}
	return parent + codeSep + code
}

// headerCode derives the budget header code from its name.
func headerCode(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(name) {
		if sb.Len() >= maxHeaderLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "BUDGET"
	}
	return sb.String()
}

// uniqueHeader suffixes header until it differs from every root code, so the
// header concept and a root chapter never share a code.
func uniqueHeader(header string, roots []*budget.Item) string {
	taken := make(map[string]bool, len(roots))
	for _, it := range roots {
		taken[cleanCode(it.Code)] = true
	}
	for taken[header] {
		header += headerSuffix
	}
	return header
}

// clean strips characters that would break the record grammar.
func clean(s string) string {
	return strings.NewReplacer(fieldSep, " ", recordMark, "-", "\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func cleanCode(code string) string {
	return strings.NewReplacer(fieldSep, "", subfieldSep, "", chapterMark, "", " ", "").Replace(code)
}

// summary is the ~C form of a description, truncated to maxSummary runes.
func summary(desc string) string {
	desc = clean(desc)
	if utf8.RuneCountInString(desc) <= maxSummary {
		return desc
	}
	return string([]rune(desc)[:maxSummary])
}
