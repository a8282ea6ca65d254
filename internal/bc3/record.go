package bc3

import (
	"iter"
	"strings"
)

// Grammar delimiters.
const (
	recordMark   = "~"
	fieldSep     = "|"
	subfieldSep  = `\`
	chapterMark  = "#"
	codeSep      = "."
	decimalComma = ","
)

// Tag identifies a record kind. The set is closed: anything unrecognised is
// TagUnknown and is ignored by the dispatcher.
type Tag byte

// Record tags handled by the parser.
const (
	TagUnknown       Tag = 0
	TagVersion       Tag = 'V'
	TagConcept       Tag = 'C'
	TagDecomposition Tag = 'D'
	TagText          Tag = 'T'
	TagKomment       Tag = 'K'
	TagMeasurement   Tag = 'M'
)

// parseTag maps the record's leading token onto a Tag.
func parseTag(tok string) Tag {
	if len(tok) != 1 {
		return TagUnknown
	}
	switch t := Tag(strings.ToUpper(tok)[0]); t {
	case TagVersion, TagConcept, TagDecomposition, TagText, TagKomment, TagMeasurement:
		return t
	}
	return TagUnknown
}

// String returns the tag's letter, or "?" for TagUnknown.
func (t Tag) String() string {
	if t == TagUnknown {
		return "?"
	}
	return string(rune(t))
}

// Record is one tokenized interchange line. Raw keeps the original tag token
// so unknown kinds can still be reported.
type Record struct {
	Tag    Tag
	Raw    string
	Fields []string
}

// Field returns the i-th field trimmed of surrounding spaces, or "" when the
// record is shorter.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// Records tokenizes decoded text lazily, one record per line. Blank lines and
// lines that do not start with the record mark are skipped, as are lines
// whose tag token is empty. Fields keep trailing empty entries.
func Records(text string) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for line := range strings.Lines(text) {
			rec, ok := tokenize(line)
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

func tokenize(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, recordMark) {
		return Record{}, false
	}
	parts := strings.Split(strings.TrimPrefix(line, recordMark), fieldSep)
	raw := strings.TrimSpace(parts[0])
	if raw == "" {
		return Record{}, false
	}
	return Record{Tag: parseTag(raw), Raw: raw, Fields: parts[1:]}, true
}

// splitSub splits a field on the subfield separator.
func splitSub(field string) []string {
	return strings.Split(field, subfieldSep)
}
