package discovery

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"os"
)

// SourceFile is the outline of one Go source file
type SourceFile struct {
	Path    string
	Package string
	Funcs   []SourceFunc // Declaration order

	syntax *ast.File
}

// SourceFunc is a top-level function or method declaration
type SourceFunc struct {
	Name     string
	Receiver string // Receiver type name, empty for plain functions
	Line     int
}

// Exported reports whether the function can be resolved from outside its package
func (f SourceFunc) Exported() bool {
	return ast.IsExported(f.Name)
}

// Parser outlines Go source files
type Parser struct {
	fset *token.FileSet
}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{fset: token.NewFileSet()}
}

// ParseFile reads a Go file and lists its function declarations
func (p *Parser) ParseFile(filePath string) (*SourceFile, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", filePath, err)
	}

	file, err := parser.ParseFile(p.fset, filePath, content, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("error parsing file %s: %w", filePath, err)
	}

	out := &SourceFile{
		Path:    filePath,
		Package: file.Name.Name,
		syntax:  file,
	}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		out.Funcs = append(out.Funcs, SourceFunc{
			Name:     fn.Name.Name,
			Receiver: receiverName(fn.Recv),
			Line:     p.fset.Position(fn.Pos()).Line,
		})
	}
	return out, nil
}

// Merge joins files of the same package into one source text, so that
// declarations in one file resolve against its siblings when the result is
// evaluated as a whole. Imports are deduplicated; comments are dropped.
func (p *Parser) Merge(files []*SourceFile) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("no files to merge")
	}
	pkg := files[0].Package

	type importKey struct{ name, path string }
	seen := make(map[importKey]bool)
	var imports []importKey
	var decls []ast.Decl

	for _, f := range files {
		if f.Package != pkg {
			return "", fmt.Errorf("%s: package %s, expected %s", f.Path, f.Package, pkg)
		}
		for _, spec := range f.syntax.Imports {
			key := importKey{path: spec.Path.Value}
			if spec.Name != nil {
				key.name = spec.Name.Name
			}
			if !seen[key] {
				seen[key] = true
				imports = append(imports, key)
			}
		}
		for _, decl := range f.syntax.Decls {
			if gen, ok := decl.(*ast.GenDecl); ok && gen.Tok == token.IMPORT {
				continue
			}
			decls = append(decls, decl)
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "package %s\n", pkg)
	if len(imports) > 0 {
		buf.WriteString("\nimport (\n")
		for _, imp := range imports {
			fmt.Fprintf(&buf, "\t%s %s\n", imp.name, imp.path)
		}
		buf.WriteString(")\n")
	}
	for _, decl := range decls {
		buf.WriteString("\n")
		if err := printer.Fprint(&buf, p.fset, decl); err != nil {
			return "", fmt.Errorf("print declaration: %w", err)
		}
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

func receiverName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	expr := recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return "?"
		}
	}
}
