package budget

// ComputeTotals runs the markup/tax cascade over the root items.
//
// PEM sums, for each root chapter, the TotalPrice of its direct children and,
// for each root unit, its own TotalPrice. Chapters are expected to be rolled
// up already (see Rollup). No rounding is applied; use Round2 at display time.
func ComputeTotals(items []*Item, pct Percentages) Totals {
	var pem float64
	for _, it := range items {
		if it.IsChapter() {
			for _, c := range it.Children {
				pem += c.TotalPrice
			}
			continue
		}
		pem += it.TotalPrice
	}

	t := Totals{
		PEM: pem,
		GG:  pem * pct.GG / 100,
		BI:  pem * pct.BI / 100,
	}
	base := t.BaseImponible()
	t.IVA = base * pct.IVA / 100
	t.Presupuesto = base + t.IVA
	return t
}

// Rollup recomputes TotalPrice bottom-up across the whole forest: a unit's
// total is Quantity × UnitPrice, a chapter's total is the sum of its
// children's totals at every depth.
func Rollup(items []*Item) {
	for _, it := range items {
		rollupItem(it)
	}
}

func rollupItem(it *Item) float64 {
	if !it.IsChapter() {
		it.TotalPrice = it.Quantity * it.UnitPrice
		return it.TotalPrice
	}
	var sum float64
	for _, c := range it.Children {
		sum += rollupItem(c)
	}
	it.TotalPrice = sum
	return sum
}

// ResourcesUnitPrice returns Σ quantity × unit price over resources, the unit
// price implied by a unit item's decomposition.
func ResourcesUnitPrice(rs []Resource) float64 {
	var sum float64
	for _, r := range rs {
		sum += r.Total()
	}
	return sum
}
