package bc3

import (
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// Measurement line types. Subtotal lines carry no quantity of their own;
// formula lines evaluate their comment with the dimensions bound to a..d.
const (
	lineSubtotalPartial = "1"
	lineSubtotalRunning = "2"
	lineFormula         = "3"
)

const measureLineWidth = 6

// handleMeasurement handles
// ~M|PARENT\CHILD|POSITION|TOTAL|TYPE\COMMENT\UNITS\LENGTH\WIDTH\HEIGHT\...|.
// When TOTAL is empty the line quantities are summed.
func (s *session) handleMeasurement(r Record) {
	codes := splitSub(r.Field(0))
	var parent, child string
	if len(codes) >= 2 {
		parent, _, _ = parseCode(codes[0])
		child, _, _ = parseCode(codes[1])
	} else {
		child, _, _ = parseCode(codes[0])
	}
	if child == "" {
		return
	}

	m := &measurement{}
	m.total, m.hasTotal = parseDecimal(r.Field(2))
	if len(r.Fields) > 3 {
		m.lines = measureLines(splitSub(r.Fields[3]))
	}
	if !m.hasTotal && len(m.lines) > 0 {
		for _, l := range m.lines {
			m.total += l.Quantity
		}
		m.hasTotal = true
	}
	s.measures[measureKey{parent, child}] = m
}

func measureLines(parts []string) []budget.Measurement {
	var lines []budget.Measurement
	for i := 0; i < len(parts); i += measureLineWidth {
		g := make([]string, measureLineWidth)
		copy(g, parts[i:min(i+measureLineWidth, len(parts))])
		if strings.TrimSpace(strings.Join(g, "")) == "" {
			continue
		}
		l := budget.Measurement{
			Type:    strings.TrimSpace(g[0]),
			Comment: strings.TrimSpace(g[1]),
			Units:   strings.TrimSpace(g[2]),
			Length:  strings.TrimSpace(g[3]),
			Width:   strings.TrimSpace(g[4]),
			Height:  strings.TrimSpace(g[5]),
		}
		l.Quantity = lineQuantity(l)
		lines = append(lines, l)
	}
	return lines
}

// lineQuantity is the product of the non-empty dimensions, or the formula
// result for formula lines.
func lineQuantity(l budget.Measurement) float64 {
	switch l.Type {
	case lineSubtotalPartial, lineSubtotalRunning:
		return 0
	case lineFormula:
		v, _ := evalFormula(l)
		return v
	}
	q, found := 1.0, false
	for _, d := range []string{l.Units, l.Length, l.Width, l.Height} {
		if v, ok := parseDecimal(d); ok {
			q *= v
			found = true
		}
	}
	if !found {
		return 0
	}
	return q
}

// evalFormula evaluates a formula line's comment with a, b, c and d bound to
// units, length, width and height. Missing dimensions are zero.
func evalFormula(l budget.Measurement) (float64, bool) {
	expr, err := govaluate.NewEvaluableExpression(strings.ReplaceAll(l.Comment, decimalComma, "."))
	if err != nil {
		return 0, false
	}
	params := make(map[string]interface{}, 8)
	for name, d := range map[string]string{"a": l.Units, "b": l.Length, "c": l.Width, "d": l.Height} {
		v, _ := parseDecimal(d)
		params[name] = v
		params[strings.ToUpper(name)] = v
	}
	res, err := expr.Evaluate(params)
	if err != nil {
		return 0, false
	}
	v, ok := res.(float64)
	return v, ok
}
