package budget

// Walk visits every item depth-first in sibling order. fn receives the item
// and its depth (0 for roots); returning false skips the item's children.
func Walk(items []*Item, fn func(it *Item, depth int) bool) {
	walk(items, 0, fn)
}

func walk(items []*Item, depth int, fn func(*Item, int) bool) {
	for _, it := range items {
		if fn(it, depth) {
			walk(it.Children, depth+1, fn)
		}
	}
}

// Find returns the item with the given ID, or nil.
func Find(items []*Item, id string) *Item {
	var found *Item
	Walk(items, func(it *Item, _ int) bool {
		if found != nil {
			return false
		}
		if it.ID == id {
			found = it
			return false
		}
		return true
	})
	return found
}

// Count returns the number of chapter and unit items in the forest.
func Count(items []*Item) (chapters, units int) {
	Walk(items, func(it *Item, _ int) bool {
		if it.IsChapter() {
			chapters++
		} else {
			units++
		}
		return true
	})
	return chapters, units
}

// renumber resets Order to the sibling index for a slice of siblings.
func renumber(items []*Item) {
	for i, it := range items {
		it.Order = i
	}
}
