package bc3

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// concept is a composite (chapter or unit item) declaration.
type concept struct {
	code     string
	unit     budget.Unit
	summary  string
	price    float64
	hasPrice bool
	date     time.Time
	chapter  bool
}

// edge is one parent → child association from a decomposition record.
type edge struct {
	child   string
	qty     float64
	qtyOK   bool
	price   float64
	priceOK bool
	marker  string
}

type measureKey struct{ parent, child string }

// measurement groups the lines of one measurement record.
type measurement struct {
	total    float64
	hasTotal bool
	lines    []budget.Measurement
}

// optional is a value that may or may not have been read from the file.
type optional struct {
	v   float64
	set bool
}

// session owns every collection built during one Parse call. Nothing in it
// escapes until the pipeline has finished.
type session struct {
	opts options

	firstSeen   map[string]int
	prices      map[string]*budget.Price
	priceOrder  []string
	concepts    map[string]*concept
	chapterRefs map[string]bool
	edges       map[string][]edge
	texts       map[string]string
	measures    map[measureKey]*measurement

	header      string
	versionSeen bool
	meta        Metadata

	gg, bi, iva optional
	declared    budget.Totals
	hasDeclared bool
}

func newSession(o options) *session {
	return &session{
		opts:        o,
		firstSeen:   make(map[string]int),
		prices:      make(map[string]*budget.Price),
		concepts:    make(map[string]*concept),
		chapterRefs: make(map[string]bool),
		edges:       make(map[string][]edge),
		texts:       make(map[string]string),
		measures:    make(map[measureKey]*measurement),
	}
}

// dispatch routes a record to its handler. Unknown tags are ignored.
func (s *session) dispatch(r Record) {
	switch r.Tag {
	case TagVersion:
		s.handleVersion(r)
	case TagConcept:
		s.handleConcept(r)
	case TagDecomposition:
		s.handleDecomposition(r)
	case TagText:
		s.handleText(r)
	case TagKomment:
		s.handleKomment(r)
	case TagMeasurement:
		s.handleMeasurement(r)
	case TagUnknown:
	}
}

// see records the document position at which code first appeared.
func (s *session) see(code string) {
	if _, ok := s.firstSeen[code]; !ok {
		s.firstSeen[code] = len(s.firstSeen)
	}
}

// byFirstSeen sorts codes into document order.
func (s *session) byFirstSeen(codes []string) {
	slices.SortFunc(codes, func(a, b string) int {
		return cmp.Compare(s.firstSeen[a], s.firstSeen[b])
	})
}

// parseCode extracts the primary code from a code field. Alternative codes
// after the subfield separator are dropped; trailing chapter marks are
// stripped and reported ("#" chapter, "##" budget root).
func parseCode(field string) (code string, chapter, root bool) {
	code = strings.TrimSpace(splitSub(field)[0])
	root = strings.HasSuffix(code, chapterMark+chapterMark)
	chapter = strings.HasSuffix(code, chapterMark)
	code = strings.TrimRight(code, chapterMark)
	return code, chapter, root
}

// handleVersion fills file metadata from the first version record:
// ~V|OWNER|FORMAT\DATE|PROGRAM|HEADER\LABEL|CHARSET|COMMENT|
func (s *session) handleVersion(r Record) {
	if s.versionSeen {
		return
	}
	s.versionSeen = true
	s.meta.Author = r.Field(0)
	s.meta.Format = strings.TrimSpace(splitSub(r.Field(1))[0])
	s.meta.Program = r.Field(2)
	s.meta.Title = strings.TrimSpace(splitSub(r.Field(3))[0])
	s.meta.Charset = r.Field(4)
	s.meta.Description = r.Field(5)
}

// handleText stores a code → description text. Later records for the same
// code replace earlier ones.
func (s *session) handleText(r Record) {
	code, _, _ := parseCode(r.Field(0))
	text := r.Field(1)
	if code == "" || text == "" {
		return
	}
	s.texts[code] = text
}
