// Package project stores budgets as TOML documents, one file per budget,
// under a directory.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/surveyor/internal/budget"
)

// Ext is the extension of budget documents.
const Ext = ".toml"

// ErrNotFound is returned when no document exists for a slug.
var ErrNotFound = errors.New("budget not found")

type document struct {
	SavedAt time.Time      `toml:"saved_at"`
	Budget  *budget.Budget `toml:"budget"`
}

// Summary describes a stored budget without its item tree.
type Summary struct {
	Slug    string
	Path    string
	Name    string
	Status  budget.Status
	Total   float64
	SavedAt time.Time
}

// Slug derives a file-safe name: lower-case letters and digits separated by
// single dashes.
func Slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return sb.String()
}

// Path returns the document path for slug under dir.
func Path(dir, slug string) string {
	return filepath.Join(dir, slug+Ext)
}

// Save writes b under dir atomically (write temp + rename) and returns the
// path. The slug comes from the budget name, or its ID when the name has no
// usable characters.
func Save(dir string, b *budget.Budget) (string, error) {
	slug := Slug(b.Name)
	if slug == "" {
		slug = Slug(b.ID)
	}
	if slug == "" {
		return "", fmt.Errorf("project: save: budget has neither name nor ID")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("project: create %s: %w", dir, err)
	}

	data, err := toml.Marshal(document{SavedAt: time.Now().UTC().Truncate(time.Second), Budget: b})
	if err != nil {
		return "", fmt.Errorf("project: marshal %s: %w", slug, err)
	}

	path := Path(dir, slug)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("project: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("project: rename %s: %w", path, err)
	}
	return path, nil
}

// Load reads the document at path. Totals are recomputed rather than
// trusted, and parent links are restored.
func Load(path string) (*budget.Budget, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	b := doc.Budget
	relink(b.Items, "")
	b.Recalculate()
	return b, nil
}

// LoadSlug loads the budget stored under dir with the given slug.
func LoadSlug(dir, slug string) (*budget.Budget, error) {
	b, err := Load(Path(dir, slug))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("project: %q: %w", slug, ErrNotFound)
	}
	return b, err
}

// List summarises every document under dir, sorted by slug. A missing
// directory yields an empty list.
func List(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: list %s: %w", dir, err)
	}

	var out []Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		path := filepath.Join(dir, e.Name())
		doc, err := readDocument(path)
		if err != nil {
			return nil, err
		}
		b := doc.Budget
		b.Recalculate()
		out = append(out, Summary{
			Slug:    strings.TrimSuffix(e.Name(), Ext),
			Path:    path,
			Name:    b.Name,
			Status:  b.Status,
			Total:   b.Totals.Presupuesto,
			SavedAt: doc.SavedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document{}, fmt.Errorf("project: read %s: %w", path, err)
	}
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("project: parse %s: %w", path, err)
	}
	if doc.Budget == nil {
		return document{}, fmt.Errorf("project: %s: missing [budget] table", path)
	}
	return doc, nil
}

func relink(items []*budget.Item, parentID string) {
	for _, it := range items {
		it.ParentID = parentID
		relink(it.Children, it.ID)
	}
}
