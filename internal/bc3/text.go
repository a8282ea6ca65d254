package bc3

import "github.com/papapumpkin/surveyor/internal/budget"

// enrich overwrites item and price descriptions with the long texts keyed
// by code. Running it twice gives the same result.
func enrich(items []*budget.Item, prices []budget.Price, texts map[string]string) {
	if len(texts) == 0 {
		return
	}
	budget.Walk(items, func(it *budget.Item, _ int) bool {
		if t, ok := texts[it.Code]; ok {
			it.Description = t
		}
		return true
	})
	for i := range prices {
		if t, ok := texts[prices[i].Code]; ok {
			prices[i].Description = t
		}
	}
}
