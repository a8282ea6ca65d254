package bc3

import (
	"strconv"
	"strings"
	"time"
)

// parseDecimal parses a number that may use a comma as the decimal
// separator. Thousands separators are not part of the grammar.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, decimalComma, "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseDate reads DDMMYYYY or DDMMYY dates. Two-digit years follow
// time.Parse: 69–99 are 19xx, 00–68 are 20xx.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	layout := ""
	switch len(s) {
	case 8:
		layout = "02012006"
	case 6:
		layout = "020106"
	default:
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	return t, err == nil
}

// formatNumber renders v with the shortest representation that parses back
// to the same float, so exported quantities and prices round-trip exactly.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatDate renders t as DDMMYYYY, or "" for the zero time.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02012006")
}
