// Package budget models a priced construction budget: the chapter/unit item
// tree, the catalog of priced resources it references, and the markup and tax
// cascade that turns the tree into a final figure.
package budget

import "time"

// Kind classifies a catalog price.
type Kind string

// Price kinds, one per catalog category.
const (
	KindMaterial  Kind = "material"
	KindLabor     Kind = "labor"
	KindMachinery Kind = "machinery"
	KindUnit      Kind = "unit"
)

// categories is the fixed kind → category label table.
var categories = map[Kind]string{
	KindMaterial:  "Materials",
	KindLabor:     "Labor",
	KindMachinery: "Machinery",
	KindUnit:      "Unit prices",
}

// CategoryFor returns the category label derived from kind. Unknown kinds
// fall back to the machinery label, matching the classifier's default.
func CategoryFor(k Kind) string {
	if c, ok := categories[k]; ok {
		return c
	}
	return categories[KindMachinery]
}

// Price is a catalog entry for an atomic priced resource. Code is unique
// within a catalog.
type Price struct {
	ID          string    `json:"id" toml:"id"`
	Code        string    `json:"code" toml:"code"`
	Description string    `json:"description" toml:"description"`
	Unit        Unit      `json:"unit" toml:"unit"`
	UnitPrice   float64   `json:"unitPrice" toml:"unit_price"`
	Kind        Kind      `json:"kind" toml:"kind"`
	Category    string    `json:"category" toml:"category"`
	LastUpdated time.Time `json:"lastUpdated,omitempty" toml:"last_updated"`
	Source      string    `json:"source,omitempty" toml:"source,omitempty"`
}

// ItemType distinguishes composite chapters from priced work units.
type ItemType string

// Item types.
const (
	TypeChapter ItemType = "chapter"
	TypeUnit    ItemType = "unit"
)

// Resource is one line of a unit item's decomposition. Code is a lookup key
// into the price catalog; a code with no catalog entry is still valid.
type Resource struct {
	Code      string  `json:"code" toml:"code"`
	Quantity  float64 `json:"quantity" toml:"quantity"`
	UnitPrice float64 `json:"unitPrice" toml:"unit_price"`
}

// Total returns Quantity × UnitPrice.
func (r Resource) Total() float64 {
	return r.Quantity * r.UnitPrice
}

// Measurement is one measurement line backing a unit item's quantity.
// Dimension fields keep their source text; empty means "not given".
type Measurement struct {
	Type     string  `json:"type,omitempty" toml:"type,omitempty"`
	Comment  string  `json:"comment,omitempty" toml:"comment,omitempty"`
	Units    string  `json:"units,omitempty" toml:"units,omitempty"`
	Length   string  `json:"length,omitempty" toml:"length,omitempty"`
	Width    string  `json:"width,omitempty" toml:"width,omitempty"`
	Height   string  `json:"height,omitempty" toml:"height,omitempty"`
	Quantity float64 `json:"quantity" toml:"quantity"`
}

// Item is a node of the cost tree. Chapters own Children and never carry a
// price of their own; units carry Quantity/UnitPrice and optional Resources
// and never have children.
type Item struct {
	ID            string        `json:"id" toml:"id"`
	Code          string        `json:"code" toml:"code"`
	Type          ItemType      `json:"type" toml:"type"`
	Description   string        `json:"description" toml:"description"`
	Unit          Unit          `json:"unit,omitempty" toml:"unit,omitempty"`
	Quantity      float64       `json:"quantity,omitempty" toml:"quantity,omitempty"`
	UnitPrice     float64       `json:"unitPrice,omitempty" toml:"unit_price,omitempty"`
	TotalPrice    float64       `json:"totalPrice" toml:"total_price"`
	DeclaredTotal float64       `json:"declaredTotal,omitempty" toml:"declared_total,omitempty"`
	Order         int           `json:"order" toml:"order"`
	ParentID      string        `json:"parentId,omitempty" toml:"parent_id,omitempty"`
	Children      []*Item       `json:"children,omitempty" toml:"children,omitempty"`
	Resources     []Resource    `json:"resources,omitempty" toml:"resources,omitempty"`
	Measurements  []Measurement `json:"measurements,omitempty" toml:"measurements,omitempty"`
}

// IsChapter reports whether the item is a chapter.
func (it *Item) IsChapter() bool { return it.Type == TypeChapter }

// Percentages are the whole-number markup and tax rates applied to PEM.
type Percentages struct {
	GG  float64 `json:"gg" toml:"gg"`
	BI  float64 `json:"bi" toml:"bi"`
	IVA float64 `json:"iva" toml:"iva"`
}

// Totals is the result of the markup/tax cascade.
type Totals struct {
	PEM         float64 `json:"totalPEM" toml:"pem"`
	GG          float64 `json:"totalGG" toml:"gg"`
	BI          float64 `json:"totalBI" toml:"bi"`
	IVA         float64 `json:"totalIVA" toml:"iva"`
	Presupuesto float64 `json:"totalPresupuesto" toml:"presupuesto"`
}

// BaseImponible is the taxable base, PEM + GG + BI.
func (t Totals) BaseImponible() float64 {
	return t.PEM + t.GG + t.BI
}

// Status is the lifecycle state of a budget document.
type Status string

// Budget lifecycle states. New budgets start as StatusDraft.
const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusArchived Status = "archived"
)

// Budget is the top-level aggregate. Totals is a cache: it is always
// derivable from Items and Percentages, and every mutation method on Budget
// recomputes it before returning.
type Budget struct {
	ID          string      `json:"id" toml:"id"`
	Name        string      `json:"name" toml:"name"`
	Version     string      `json:"version,omitempty" toml:"version,omitempty"`
	Status      Status      `json:"status" toml:"status"`
	Percentages Percentages `json:"percentages" toml:"percentages"`
	Totals      Totals      `json:"totals" toml:"totals"`
	Items       []*Item     `json:"items" toml:"items"`
	Prices      []Price     `json:"prices,omitempty" toml:"prices,omitempty"`
}
