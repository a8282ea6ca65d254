package arch_test

import (
	"go/ast"
	"go/token"
	"strings"
	"testing"
)

// TestExportedSymbolsHaveGoDoc requires a doc comment that starts with the
// symbol name on every exported type, func, method, var and const. Members of
// a grouped const or var block may rely on the block comment or an inline one.
func TestExportedSymbolsHaveGoDoc(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			fset, files := parsePackage(t, pkg)
			for _, f := range files {
				for _, decl := range f.Decls {
					for _, miss := range undocumented(decl) {
						pos := fset.Position(miss.Pos())
						t.Errorf("%s:%d: exported %s has no doc comment", pos.Filename, pos.Line, miss.Name)
					}
				}
			}
		})
	}
}

// undocumented returns the exported names declared by decl that lack a doc.
func undocumented(decl ast.Decl) []*ast.Ident {
	var miss []*ast.Ident
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Name.IsExported() && exportedReceiver(d.Recv) && !docFor(d.Name.Name, d.Doc) {
			miss = append(miss, d.Name)
		}
	case *ast.GenDecl:
		grouped := len(d.Specs) > 1
		for _, spec := range d.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				if s.Name.IsExported() && !docFor(s.Name.Name, s.Doc, d.Doc) {
					miss = append(miss, s.Name)
				}
			case *ast.ValueSpec:
				for _, name := range s.Names {
					if !name.IsExported() {
						continue
					}
					if grouped && (hasText(d.Doc) || hasText(s.Comment) || docFor(name.Name, s.Doc)) {
						continue
					}
					if !grouped && docFor(name.Name, s.Doc, d.Doc) {
						continue
					}
					miss = append(miss, name)
				}
			}
		}
	}
	return miss
}

// docFor reports whether the first present comment group starts with name.
func docFor(name string, groups ...*ast.CommentGroup) bool {
	for _, g := range groups {
		if g != nil {
			return strings.HasPrefix(strings.TrimSpace(g.Text()), name)
		}
	}
	return false
}

func hasText(g *ast.CommentGroup) bool {
	return g != nil && strings.TrimSpace(g.Text()) != ""
}

// exportedReceiver reports whether a method's receiver type is exported.
// Plain functions have no receiver and count as exported.
func exportedReceiver(recv *ast.FieldList) bool {
	if recv == nil || len(recv.List) == 0 {
		return true
	}
	expr := recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return token.IsExported(e.Name)
		default:
			return false
		}
	}
}
