package bc3

import (
	"slices"
	"testing"
)

func TestRecords(t *testing.T) {
	t.Parallel()

	text := "~V|ACME|FIEBDC-3/2020|\r\n" +
		"\r\n" +
		"   \n" +
		"comment line without mark\n" +
		"~|orphan|\n" +
		"~C| 01.01 |m2|Tiling|25,50||0|\n" +
		"~Z|future|record|\n" +
		"  ~d|01#|01.01\\10\\\\|\n"

	var got []Record
	for r := range Records(text) {
		got = append(got, r)
	}

	tags := make([]Tag, 0, len(got))
	for _, r := range got {
		tags = append(tags, r.Tag)
	}
	want := []Tag{TagVersion, TagConcept, TagUnknown, TagDecomposition}
	if !slices.Equal(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}

	c := got[1]
	if c.Field(0) != "01.01" {
		t.Errorf("Field(0) = %q, want trimmed code", c.Field(0))
	}
	if c.Field(3) != "25,50" {
		t.Errorf("Field(3) = %q", c.Field(3))
	}
	if c.Field(42) != "" {
		t.Errorf("out-of-range Field = %q, want empty", c.Field(42))
	}
	// The trailing separator leaves an empty last field.
	if n := len(c.Fields); n != 7 {
		t.Errorf("len(Fields) = %d, want 7", n)
	}
	if got[2].Raw != "Z" {
		t.Errorf("Raw = %q, want Z", got[2].Raw)
	}
}

func TestRecordsStopsEarly(t *testing.T) {
	t.Parallel()

	n := 0
	for range Records("~C|A|\n~C|B|\n~C|C|\n") {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("visited %d records, want 2", n)
	}
}

func TestParseTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tok  string
		want Tag
	}{
		{"V", TagVersion},
		{"c", TagConcept},
		{"D", TagDecomposition},
		{"T", TagText},
		{"K", TagKomment},
		{"M", TagMeasurement},
		{"X", TagUnknown},
		{"CC", TagUnknown},
		{"", TagUnknown},
	}
	for _, tt := range tests {
		if got := parseTag(tt.tok); got != tt.want {
			t.Errorf("parseTag(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}

func TestParseCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field   string
		code    string
		chapter bool
		root    bool
	}{
		{"01.01", "01.01", false, false},
		{"01#", "01", true, false},
		{"OBRA##", "OBRA", true, true},
		{` A1\ALT `, "A1", false, false},
		{"", "", false, false},
	}
	for _, tt := range tests {
		code, chapter, root := parseCode(tt.field)
		if code != tt.code || chapter != tt.chapter || root != tt.root {
			t.Errorf("parseCode(%q) = %q, %v, %v; want %q, %v, %v",
				tt.field, code, chapter, root, tt.code, tt.chapter, tt.root)
		}
	}
}

func TestNumbers(t *testing.T) {
	t.Parallel()

	if v, ok := parseDecimal("25,50"); !ok || v != 25.5 {
		t.Errorf("parseDecimal(25,50) = %v, %v", v, ok)
	}
	if _, ok := parseDecimal("abc"); ok {
		t.Error("parseDecimal(abc) should fail")
	}
	if _, ok := parseDecimal("  "); ok {
		t.Error("parseDecimal(blank) should fail")
	}

	d, ok := parseDate("15102026")
	if !ok || d.Year() != 2026 || d.Month() != 10 || d.Day() != 15 {
		t.Errorf("parseDate(15102026) = %v, %v", d, ok)
	}
	if d, ok := parseDate("010199"); !ok || d.Year() != 1999 {
		t.Errorf("parseDate(010199) = %v, %v", d, ok)
	}
	if _, ok := parseDate("2026-10-15"); ok {
		t.Error("parseDate should reject ISO dates")
	}
	if formatDate(d) != "15102026" {
		t.Errorf("formatDate = %q", formatDate(d))
	}
	if formatNumber(25.5) != "25.5" || formatNumber(255) != "255" {
		t.Errorf("formatNumber: %q %q", formatNumber(25.5), formatNumber(255))
	}
}
