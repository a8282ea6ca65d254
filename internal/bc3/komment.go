package bc3

import (
	"strings"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// Labels of the totals block written by Export.
const (
	labelPEM   = "PEM"
	labelGG    = "GG"
	labelBI    = "BI"
	labelIVA   = "IVA"
	labelTotal = "TOTAL"
)

// handleKomment reads either a labelled totals line (~K|GG|33.15|13|) or
// the standard coefficients record whose second field is
// CI\GG\BI\BAJA\IVA.
func (s *session) handleKomment(r Record) {
	label := strings.ToUpper(r.Field(0))
	amount, amountOK := parseDecimal(r.Field(1))
	rate, rateOK := parseDecimal(r.Field(2))

	switch label {
	case labelPEM:
		s.declare(&s.declared.PEM, amount, amountOK)
	case labelGG:
		s.declare(&s.declared.GG, amount, amountOK)
		s.gg.setIf(rate, rateOK)
	case labelBI:
		s.declare(&s.declared.BI, amount, amountOK)
		s.bi.setIf(rate, rateOK)
	case labelIVA:
		s.declare(&s.declared.IVA, amount, amountOK)
		s.iva.setIf(rate, rateOK)
	case labelTotal, "PRESUPUESTO":
		s.declare(&s.declared.Presupuesto, amount, amountOK)
	default:
		coeffs := splitSub(r.Field(1))
		if len(coeffs) < 5 {
			return
		}
		s.gg.setIf(parseDecimal(coeffs[1]))
		s.bi.setIf(parseDecimal(coeffs[2]))
		s.iva.setIf(parseDecimal(coeffs[4]))
	}
}

func (s *session) declare(dst *float64, v float64, ok bool) {
	if !ok {
		return
	}
	*dst = v
	s.hasDeclared = true
}

func (o *optional) setIf(v float64, ok bool) {
	if ok && v >= 0 {
		o.v, o.set = v, true
	}
}

// percentages merges rates read from the file over the configured defaults.
func (s *session) percentages() (budget.Percentages, bool) {
	p := s.opts.defaults
	fromFile := false
	if s.gg.set {
		p.GG, fromFile = s.gg.v, true
	}
	if s.bi.set {
		p.BI, fromFile = s.bi.v, true
	}
	if s.iva.set {
		p.IVA, fromFile = s.iva.v, true
	}
	return p, fromFile
}
