package bc3

import (
	"fmt"
	"slices"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// Option configures Parse.
type Option func(*options)

type options struct {
	codepages []string
	defaults  budget.Percentages
	source    string
}

// WithCodepages sets the decoder fallback chain, tried in order.
func WithCodepages(codepages ...string) Option {
	codepages = slices.Clone(codepages)
	return func(o *options) {
		if len(codepages) > 0 {
			o.codepages = codepages
		}
	}
}

// WithPercentages sets the rates used when the file carries none.
func WithPercentages(p budget.Percentages) Option {
	return func(o *options) {
		o.defaults = p
	}
}

// WithSource tags every parsed price with the originating file name.
func WithSource(name string) Option {
	return func(o *options) {
		o.source = name
	}
}

// DefaultPercentages are the general-expenses, industrial-profit and VAT
// rates applied when neither the caller nor the file sets them.
func DefaultPercentages() budget.Percentages {
	return budget.Percentages{GG: 13, BI: 6, IVA: 21}
}

// Metadata summarises a parsed file.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Format      string `json:"format,omitempty"`
	Program     string `json:"program,omitempty"`
	Charset     string `json:"charset,omitempty"`
	Description string `json:"description,omitempty"`
	Encoding    string `json:"encoding"`

	TotalPrices int `json:"totalPrices"`
	Materials   int `json:"materials"`
	Labor       int `json:"labor"`
	Machinery   int `json:"machinery"`
	UnitPrices  int `json:"unitPrices"`
	TotalItems  int `json:"totalItems"`
	Chapters    int `json:"chapters"`
	Units       int `json:"units"`

	Percentages         budget.Percentages `json:"percentages"`
	PercentagesFromFile bool               `json:"percentagesFromFile"`

	// Declared holds the totals block written in the file, if any. It is
	// informational: computed totals never read from it.
	Declared *budget.Totals `json:"declared,omitempty"`
}

// Result is the output of Parse.
type Result struct {
	Items    []*budget.Item `json:"items"`
	Prices   []budget.Price `json:"prices"`
	Metadata Metadata       `json:"metadata"`
	Totals   budget.Totals  `json:"totals"`
}

// Budget wraps the result in a draft budget. An empty name falls back to the
// file title.
func (r *Result) Budget(name string) *budget.Budget {
	if name == "" {
		name = r.Metadata.Title
	}
	b := budget.New(name, r.Items, r.Prices, r.Metadata.Percentages)
	b.Version = r.Metadata.Format
	return b
}

// Parse decodes, tokenizes and interprets an interchange file. The work is
// split into explicit passes: every record is dispatched into the session's
// collections, then the tree is built once, texts are applied, and totals
// are rolled up bottom-up.
func Parse(data []byte, opts ...Option) (*Result, error) {
	o := options{codepages: DefaultCodepages(), defaults: DefaultPercentages()}
	for _, opt := range opts {
		opt(&o)
	}

	text, codepage, err := Decode(data, o.codepages)
	if err != nil {
		return nil, fmt.Errorf("bc3: parse: %w", err)
	}

	s := newSession(o)
	for rec := range Records(text) {
		s.dispatch(rec)
	}

	items := s.build()
	prices := s.catalog()
	if len(items) == 0 && len(prices) == 0 {
		return nil, fmt.Errorf("bc3: parse: %w", ErrNoData)
	}
	enrich(items, prices, s.texts)
	budget.Rollup(items)

	pct, fromFile := s.percentages()
	meta := s.meta
	meta.Encoding = codepage
	meta.Percentages = pct
	meta.PercentagesFromFile = fromFile
	if meta.Title == "" && s.header != "" {
		if c, ok := s.concepts[s.header]; ok {
			meta.Title = c.summary
		}
	}
	if s.hasDeclared {
		d := s.declared
		meta.Declared = &d
	}
	meta.TotalPrices = len(prices)
	for _, p := range prices {
		switch p.Kind {
		case budget.KindMaterial:
			meta.Materials++
		case budget.KindLabor:
			meta.Labor++
		case budget.KindMachinery:
			meta.Machinery++
		case budget.KindUnit:
			meta.UnitPrices++
		}
	}
	meta.Chapters, meta.Units = budget.Count(items)
	meta.TotalItems = meta.Chapters + meta.Units

	return &Result{
		Items:    items,
		Prices:   prices,
		Metadata: meta,
		Totals:   budget.ComputeTotals(items, pct),
	}, nil
}
