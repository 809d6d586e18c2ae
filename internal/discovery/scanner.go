package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"ctr/internal/domain"
	"ctr/internal/logging"
)

// Scanner exposes a directory tree of Go source files as namespaces. Every
// directory is a namespace, every .go file (tests and generated _test.go
// files excluded) a definition named after the file, and its top-level
// functions the definition's methods. The files of a directory are evaluated
// together with the yaegi interpreter and may only import the standard
// library. Files in package main are listed but never evaluated.
type Scanner struct {
	skipDirs map[string]bool
	parser   *Parser
	logger   *zap.Logger
}

// NewScanner creates a new Scanner with the given directories to skip
func NewScanner(skipDirs []string, logger *zap.Logger) *Scanner {
	skipMap := make(map[string]bool)
	for _, dir := range skipDirs {
		skipMap[dir] = true
	}
	return &Scanner{skipDirs: skipMap, parser: NewParser(), logger: logging.OrNop(logger)}
}

// Scan returns the root namespace for the given directory
func (s *Scanner) Scan(root string) (Namespace, error) {
	// Clean and validate the root path
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test path is not a directory: %s", root)
	}
	return &dirNamespace{scanner: s, path: root}, nil
}

// Dirs lists root and every directory below it that the scanner would visit
func (s *Scanner) Dirs(root string) ([]string, error) {
	root = filepath.Clean(root)
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && s.Skip(d.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// Skip reports whether a directory with this name is left out of the tree
func (s *Scanner) Skip(name string) bool {
	// Skip hidden directories (starting with .)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	return s.skipDirs[name]
}

// IsSourceFile reports whether name is a Go file that defines a namespace entry
func IsSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

type dirNamespace struct {
	scanner *Scanner
	path    string
	name    string
}

func (d *dirNamespace) Name() string {
	return d.name
}

func (d *dirNamespace) Children() ([]Namespace, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}

	var children []Namespace
	for _, entry := range entries {
		if !entry.IsDir() || d.scanner.Skip(entry.Name()) {
			continue
		}
		children = append(children, &dirNamespace{
			scanner: d.scanner,
			path:    filepath.Join(d.path, entry.Name()),
			name:    entry.Name(),
		})
	}
	return children, nil
}

func (d *dirNamespace) Definitions() ([]domain.Definition, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}

	var files []*SourceFile
	for _, entry := range entries {
		if entry.IsDir() || !IsSourceFile(entry.Name()) {
			continue
		}
		src, err := d.scanner.parser.ParseFile(filepath.Join(d.path, entry.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, src)
	}
	return d.scanner.load(d.path, files)
}

// load evaluates the files of one directory and resolves their functions.
// Files of the same package share an interpreter; package main is outlined
// but never evaluated, so its main function does not run.
func (s *Scanner) load(dir string, files []*SourceFile) ([]domain.Definition, error) {
	packages := make(map[string][]*SourceFile)
	for _, src := range files {
		if src.Package != "main" {
			packages[src.Package] = append(packages[src.Package], src)
		}
	}

	interpreters := make(map[string]*interp.Interpreter, len(packages))
	for _, src := range files {
		pkgFiles, ok := packages[src.Package]
		if !ok || interpreters[src.Package] != nil {
			continue
		}
		i, err := s.evaluate(dir, pkgFiles)
		if err != nil {
			return nil, err
		}
		interpreters[src.Package] = i
	}

	defs := make([]domain.Definition, 0, len(files))
	for _, src := range files {
		def, err := s.define(src, interpreters[src.Package])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (s *Scanner) evaluate(dir string, files []*SourceFile) (*interp.Interpreter, error) {
	pkg := files[0].Package
	source, err := s.parser.Merge(files)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("evaluating package",
		zap.String("dir", dir),
		zap.String("package", pkg),
		zap.Int("files", len(files)))

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if _, err := i.Eval(source); err != nil {
		return nil, fmt.Errorf("evaluate package %s in %s: %w", pkg, dir, err)
	}
	return i, nil
}

// define resolves the functions of one file. i is nil for package main.
func (s *Scanner) define(src *SourceFile, i *interp.Interpreter) (domain.Definition, error) {
	def := domain.Definition{Name: strings.TrimSuffix(filepath.Base(src.Path), ".go")}

	for _, fn := range src.Funcs {
		m := domain.Method{Name: fn.Name}
		switch {
		case fn.Receiver != "":
			m.Receiver = fn.Receiver
		case i == nil:
			m.Unusable = "is in package main, which is not loaded"
		case !fn.Exported():
			m.Unusable = "is not exported"
		default:
			v, err := i.Eval(src.Package + "." + fn.Name)
			if err != nil {
				return def, fmt.Errorf("resolve %s.%s in %s: %w", src.Package, fn.Name, src.Path, err)
			}
			m.Body = v.Interface()
		}
		def.Methods = append(def.Methods, m)
	}
	return def, nil
}
