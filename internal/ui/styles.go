package ui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
const (
	colorPrimary    = lipgloss.Color("#00BFFF") // cyan, headings
	colorAccent     = lipgloss.Color("#FFD700") // gold, totals
	colorSuccess    = lipgloss.Color("#00E676")
	colorDanger     = lipgloss.Color("#FF5252")
	colorMuted      = lipgloss.Color("#636363")
	colorMutedLight = lipgloss.Color("#8C8C8C")
	colorBlue       = lipgloss.Color("#5B8DEF") // chapters
)

// Status icons.
const (
	iconDone   = "✓"
	iconFailed = "✗"
	iconInfo   = "·"
)

// styles are bound to the printer's renderer so color output follows the
// destination writer rather than os.Stdout.
type styles struct {
	title   lipgloss.Style
	chapter lipgloss.Style
	unit    lipgloss.Style
	code    lipgloss.Style
	dim     lipgloss.Style
	label   lipgloss.Style
	amount  lipgloss.Style
	total   lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Foreground(colorPrimary).Bold(true),
		chapter: r.NewStyle().Foreground(colorBlue).Bold(true),
		unit:    r.NewStyle(),
		code:    r.NewStyle().Foreground(colorMutedLight),
		dim:     r.NewStyle().Foreground(colorMuted),
		label:   r.NewStyle().Foreground(colorMutedLight).Width(labelWidth),
		amount:  r.NewStyle().Width(amountWidth).Align(lipgloss.Right),
		total:   r.NewStyle().Foreground(colorAccent).Bold(true).Width(amountWidth).Align(lipgloss.Right),
		ok:      r.NewStyle().Foreground(colorSuccess).Bold(true),
		fail:    r.NewStyle().Foreground(colorDanger).Bold(true),
	}
}
