package bc3

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// Concept record type-field values for leaf resources.
const (
	conceptLabor     = 1
	conceptMachinery = 2
	conceptMaterial  = 3
	conceptUnitPrice = 4
)

// leafKind classifies a concept type field. Zero, empty, or non-numeric
// values mark composite concepts; any other non-zero value is a leaf, with
// machinery as the default kind.
func leafKind(field string) (budget.Kind, bool) {
	n, err := strconv.Atoi(field)
	if err != nil || n == 0 {
		return "", false
	}
	switch n {
	case conceptLabor:
		return budget.KindLabor, true
	case conceptMaterial:
		return budget.KindMaterial, true
	case conceptUnitPrice:
		return budget.KindUnit, true
	default:
		return budget.KindMachinery, true
	}
}

// kindField is the inverse of leafKind, used by the serializer.
func kindField(k budget.Kind) string {
	switch k {
	case budget.KindLabor:
		return strconv.Itoa(conceptLabor)
	case budget.KindMaterial:
		return strconv.Itoa(conceptMaterial)
	case budget.KindUnit:
		return strconv.Itoa(conceptUnitPrice)
	default:
		return strconv.Itoa(conceptMachinery)
	}
}

// handleConcept handles ~C|CODE|UNIT|SUMMARY|PRICE|DATE|TYPE|.
func (s *session) handleConcept(r Record) {
	code, chapter, root := parseCode(r.Field(0))
	if code == "" {
		return
	}
	if kind, leaf := leafKind(r.Field(5)); leaf && !chapter {
		s.addPrice(code, kind, r)
		return
	}
	s.addConcept(code, chapter, root, r)
}

// addPrice creates a catalog entry the first time a leaf code is seen. Later
// records for the same code may only refresh the description.
func (s *session) addPrice(code string, kind budget.Kind, r Record) {
	price, ok := parseDecimal(splitSub(r.Field(3))[0])
	if !ok || price < 0 {
		return
	}
	if p, exists := s.prices[code]; exists {
		if d := r.Field(2); d != "" {
			p.Description = d
		}
		return
	}

	unit := budget.NormalizeUnit(r.Field(1))
	if unit == "" {
		unit = budget.UnitEach
	}
	date, _ := parseDate(splitSub(r.Field(4))[0])
	s.see(code)
	s.prices[code] = &budget.Price{
		ID:          uuid.NewString(),
		Code:        code,
		Description: r.Field(2),
		Unit:        unit,
		UnitPrice:   price,
		Kind:        kind,
		Category:    budget.CategoryFor(kind),
		LastUpdated: date,
		Source:      s.opts.source,
	}
	s.priceOrder = append(s.priceOrder, code)
}

// addConcept records a composite declaration. Unit, price, and date are
// first-write-wins; the summary follows the latest non-empty record.
func (s *session) addConcept(code string, chapter, root bool, r Record) {
	if root && s.header == "" {
		s.header = code
	}
	c, ok := s.concepts[code]
	if !ok {
		s.see(code)
		c = &concept{code: code, unit: budget.NormalizeUnit(r.Field(1))}
		c.price, c.hasPrice = parseDecimal(splitSub(r.Field(3))[0])
		c.date, _ = parseDate(splitSub(r.Field(4))[0])
		s.concepts[code] = c
	}
	if d := r.Field(2); d != "" {
		c.summary = d
	}
	c.chapter = c.chapter || chapter
}

// catalog returns the parsed prices in document order.
func (s *session) catalog() []budget.Price {
	out := make([]budget.Price, 0, len(s.priceOrder))
	for _, code := range s.priceOrder {
		out = append(out, *s.prices[code])
	}
	return out
}
