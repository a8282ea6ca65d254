package bc3

import (
	"github.com/google/uuid"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// Decomposition markers carried in the third field of a ~D record.
const (
	markerUnit    = "0"
	markerChapter = "1"
)

// handleDecomposition handles ~D|PARENT|CHILD\QTY\PRICE\...|MARKER|.
// Children come in groups of three; a trailing separator leaves an empty
// group, which is skipped.
func (s *session) handleDecomposition(r Record) {
	parent, chapter, root := parseCode(r.Field(0))
	if parent == "" || len(r.Fields) < 2 {
		return
	}
	if root && s.header == "" {
		s.header = parent
	}
	if chapter {
		s.chapterRefs[parent] = true
	}
	s.see(parent)

	parts := splitSub(r.Fields[1])
	marker := r.Field(2)
	for i := 0; i < len(parts); i += 3 {
		child, childChapter, _ := parseCode(parts[i])
		if child == "" || child == parent {
			continue
		}
		e := edge{child: child, marker: marker}
		if i+1 < len(parts) {
			e.qty, e.qtyOK = parseDecimal(parts[i+1])
		}
		if i+2 < len(parts) {
			e.price, e.priceOK = parseDecimal(parts[i+2])
		}
		if childChapter {
			s.chapterRefs[child] = true
		}
		s.see(child)
		s.edges[parent] = append(s.edges[parent], e)
	}
}

// build turns the collected concepts and edges into the item tree. It runs
// once, after every record has been dispatched, so record order has no
// effect on the shape of the result.
func (s *session) build() []*budget.Item {
	referenced := make(map[string]bool)
	for _, es := range s.edges {
		for _, e := range es {
			referenced[e.child] = true
		}
	}

	var roots []*budget.Item
	for _, code := range s.rootCandidates(referenced) {
		if code == s.header {
			path := map[string]bool{code: true}
			for _, e := range s.edges[code] {
				roots = append(roots, s.instantiate(e.child, code, "", &e, path))
			}
			continue
		}
		roots = append(roots, s.instantiate(code, "", "", nil, map[string]bool{}))
	}
	for i, it := range roots {
		it.Order = i
	}
	return roots
}

// rootCandidates lists composite codes and decomposition parents that no
// edge points at, in first-seen order.
func (s *session) rootCandidates(referenced map[string]bool) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(code string) {
		if seen[code] || referenced[code] {
			return
		}
		if _, leaf := s.prices[code]; leaf {
			return
		}
		seen[code] = true
		out = append(out, code)
	}
	for code := range s.concepts {
		add(code)
	}
	for code := range s.edges {
		add(code)
	}
	s.byFirstSeen(out)
	return out
}

// isChapter decides whether code becomes a chapter. In order: an explicit
// chapter mark, the linking edge's marker, then structure (childless codes
// are units, undeclared parents are chapters, codes with a unit of measure
// are units, and anything grouping non-leaf children is a chapter).
func (s *session) isChapter(code string, via *edge) bool {
	c := s.concepts[code]
	if (c != nil && c.chapter) || s.chapterRefs[code] {
		return true
	}
	if via != nil {
		switch via.marker {
		case markerChapter:
			return true
		case markerUnit:
			return false
		}
	}
	es := s.edges[code]
	if len(es) == 0 {
		return false
	}
	if c == nil {
		return true
	}
	if c.unit != "" {
		return false
	}
	for _, e := range es {
		if _, leaf := s.prices[e.child]; !leaf {
			return true
		}
	}
	return false
}

// instantiate creates the item for code. Chapters recurse into their
// children; path holds the chapter codes on the way down so an edge that
// would close a cycle is skipped.
func (s *session) instantiate(code, parentCode, parentID string, via *edge, path map[string]bool) *budget.Item {
	it := &budget.Item{ID: uuid.NewString(), Code: code, ParentID: parentID}
	c := s.concepts[code]
	if c != nil {
		it.Description = c.summary
		it.Unit = c.unit
	}

	if !s.isChapter(code, via) {
		it.Type = budget.TypeUnit
		s.fillUnit(it, c, parentCode, via)
		return it
	}

	it.Type = budget.TypeChapter
	it.Unit = ""
	if c != nil && c.hasPrice {
		it.DeclaredTotal = c.price
	}
	path[code] = true
	for _, e := range s.edges[code] {
		if path[e.child] {
			continue
		}
		child := s.instantiate(e.child, code, it.ID, &e, path)
		child.Order = len(it.Children)
		it.Children = append(it.Children, child)
	}
	delete(path, code)
	return it
}

// fillUnit sets quantity, resources, measurements and unit price on a unit
// item.
func (s *session) fillUnit(it *budget.Item, c *concept, parentCode string, via *edge) {
	p, isPrice := s.prices[it.Code]
	if c == nil && isPrice {
		it.Description = p.Description
		it.Unit = p.Unit
	}

	m := s.measureFor(parentCode, it.Code)
	if m != nil {
		it.Measurements = m.lines
	}
	switch {
	case via != nil && via.qtyOK:
		it.Quantity = via.qty
	case m != nil && m.hasTotal:
		it.Quantity = m.total
	default:
		it.Quantity = 1
	}

	for _, e := range s.edges[it.Code] {
		qty := 1.0
		if e.qtyOK {
			qty = e.qty
		}
		it.Resources = append(it.Resources, budget.Resource{
			Code:      e.child,
			Quantity:  qty,
			UnitPrice: s.resourcePrice(e),
		})
	}

	// A price written on the concept is authoritative, zero included.
	if c != nil && c.hasPrice {
		it.UnitPrice = c.price
		return
	}

	// Otherwise the first non-zero source wins.
	var candidates []float64
	if isPrice {
		candidates = append(candidates, p.UnitPrice)
	}
	if via != nil && via.priceOK {
		candidates = append(candidates, via.price)
	}
	candidates = append(candidates, budget.ResourcesUnitPrice(it.Resources))
	for _, v := range candidates {
		if v != 0 {
			it.UnitPrice = v
			break
		}
	}
}

// resourcePrice resolves a resource's unit price: catalog entry, then a
// composite concept's own price, then the price written on the edge.
func (s *session) resourcePrice(e edge) float64 {
	if p, ok := s.prices[e.child]; ok {
		return p.UnitPrice
	}
	if c, ok := s.concepts[e.child]; ok && c.hasPrice {
		return c.price
	}
	if e.priceOK {
		return e.price
	}
	return 0
}

// measureFor finds the measurement for child under parent, falling back to
// one recorded without a parent code.
func (s *session) measureFor(parent, child string) *measurement {
	if m, ok := s.measures[measureKey{parent, child}]; ok {
		return m
	}
	return s.measures[measureKey{"", child}]
}
