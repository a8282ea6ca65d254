package budget

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrItemNotFound is returned when a mutation references an unknown item ID.
	ErrItemNotFound = errors.New("item not found")
	// ErrNotChapter is returned when children are added under a unit item.
	ErrNotChapter = errors.New("parent is not a chapter")
	// ErrNotUnit is returned when a unit-only field is set on a chapter.
	ErrNotUnit = errors.New("item is not a unit")
	// ErrNegativeValue is returned for negative quantities, prices, or percentages.
	ErrNegativeValue = errors.New("value must not be negative")
)

// New builds a consistent draft budget from a parsed item forest.
func New(name string, items []*Item, prices []Price, pct Percentages) *Budget {
	b := &Budget{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      StatusDraft,
		Percentages: pct,
		Items:       items,
		Prices:      prices,
	}
	b.Recalculate()
	return b
}

// Recalculate rolls every chapter up from its children and refreshes the
// cached totals. A budget is only consistent after this has run.
func (b *Budget) Recalculate() {
	Rollup(b.Items)
	b.Totals = ComputeTotals(b.Items, b.Percentages)
}

// SetPercentages replaces the markup and tax rates.
func (b *Budget) SetPercentages(pct Percentages) error {
	if pct.GG < 0 || pct.BI < 0 || pct.IVA < 0 {
		return fmt.Errorf("budget: set percentages: %w", ErrNegativeValue)
	}
	b.Percentages = pct
	b.Recalculate()
	return nil
}

// AddItem appends it under the chapter parentID, or at root level when
// parentID is empty. A missing ID is generated.
func (b *Budget) AddItem(parentID string, it *Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.Type == "" {
		it.Type = TypeUnit
	}
	if it.Quantity < 0 || it.UnitPrice < 0 {
		return fmt.Errorf("budget: add item %q: %w", it.Code, ErrNegativeValue)
	}
	if parentID == "" {
		it.ParentID = ""
		b.Items = append(b.Items, it)
		renumber(b.Items)
		b.Recalculate()
		return nil
	}
	parent := Find(b.Items, parentID)
	if parent == nil {
		return fmt.Errorf("budget: add item %q: %w: %s", it.Code, ErrItemNotFound, parentID)
	}
	if !parent.IsChapter() {
		return fmt.Errorf("budget: add item %q under %q: %w", it.Code, parent.Code, ErrNotChapter)
	}
	it.ParentID = parent.ID
	parent.Children = append(parent.Children, it)
	renumber(parent.Children)
	b.Recalculate()
	return nil
}

// RemoveItem detaches the item with the given ID, together with its subtree.
func (b *Budget) RemoveItem(id string) error {
	var removed bool
	b.Items, removed = removeFrom(b.Items, id)
	if !removed {
		return fmt.Errorf("budget: remove item: %w: %s", ErrItemNotFound, id)
	}
	b.Recalculate()
	return nil
}

func removeFrom(items []*Item, id string) ([]*Item, bool) {
	for i, it := range items {
		if it.ID == id {
			out := append(items[:i:i], items[i+1:]...)
			renumber(out)
			return out, true
		}
		if kids, ok := removeFrom(it.Children, id); ok {
			it.Children = kids
			return items, true
		}
	}
	return items, false
}

// SetQuantity updates a unit item's quantity.
func (b *Budget) SetQuantity(id string, q float64) error {
	it, err := b.unit(id)
	if err != nil {
		return err
	}
	if q < 0 {
		return fmt.Errorf("budget: set quantity of %q: %w", it.Code, ErrNegativeValue)
	}
	it.Quantity = q
	b.Recalculate()
	return nil
}

// SetUnitPrice updates a unit item's unit price.
func (b *Budget) SetUnitPrice(id string, p float64) error {
	it, err := b.unit(id)
	if err != nil {
		return err
	}
	if p < 0 {
		return fmt.Errorf("budget: set unit price of %q: %w", it.Code, ErrNegativeValue)
	}
	it.UnitPrice = p
	b.Recalculate()
	return nil
}

func (b *Budget) unit(id string) (*Item, error) {
	it := Find(b.Items, id)
	if it == nil {
		return nil, fmt.Errorf("budget: %w: %s", ErrItemNotFound, id)
	}
	if it.IsChapter() {
		return nil, fmt.Errorf("budget: %q: %w", it.Code, ErrNotUnit)
	}
	return it, nil
}

// PriceIndex returns the catalog keyed by code.
func (b *Budget) PriceIndex() map[string]Price {
	idx := make(map[string]Price, len(b.Prices))
	for _, p := range b.Prices {
		idx[p.Code] = p
	}
	return idx
}
