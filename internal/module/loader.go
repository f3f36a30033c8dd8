// Package module resolves import paths, loads and parses each module file,
// detects import cycles, and assembles a Program in deterministic,
// dependency-first order.
package module

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/lexer"
	"github.com/Pang-HQ/Pangea/internal/parser"
	"github.com/Pang-HQ/Pangea/internal/token"
)

// Loader resolves and loads a module tree rooted at a main file.
type Loader struct {
	Collector *diagnostics.Collector

	// SearchRoots are consulted, in order, when resolving a bare import path;
	// the directory the importing file lives in is always tried first.
	SearchRoots []string

	loading  map[string]bool // cycle detection: modules currently being recursed into
	finished map[string]bool // modules whose imports have been fully processed
	loaded   map[string]*ast.Module
	order    []*ast.Module // insertion order, imports before importer
}

func NewLoader(collector *diagnostics.Collector, searchRoots []string) *Loader {
	return &Loader{
		Collector:   collector,
		SearchRoots: searchRoots,
		loading:     make(map[string]bool),
		finished:    make(map[string]bool),
		loaded:      make(map[string]*ast.Module),
	}
}

// candidates returns the four resolution candidates for an import path, in
// the order spec.md §6 requires: path.pang, path, stdlib/path.pang, stdlib/path.
func candidates(root, path string) []string {
	return []string{
		filepath.Join(root, path+".pang"),
		filepath.Join(root, path),
		filepath.Join(root, "stdlib", path+".pang"),
		filepath.Join(root, "stdlib", path),
	}
}

func (l *Loader) resolve(fromDir, path string) (string, error) {
	roots := append([]string{fromDir}, l.SearchRoots...)
	for _, root := range roots {
		for _, cand := range candidates(root, path) {
			if info, err := os.Stat(cand); err == nil && !info.IsDir() {
				return cand, nil
			}
		}
	}
	return "", fmt.Errorf("module not found: %s", path)
}

// LoadProgram loads mainPath and everything it (transitively) imports.
// implicitImports is prepended to the main module's own imports (the
// implicit wildcard `io` import, unless --no-stdlib was given).
func (l *Loader) LoadProgram(mainPath string, implicitImports []string) (*ast.Program, error) {
	main, err := l.loadFile(mainPath, true)
	if err != nil {
		return nil, err
	}
	var prepended []ast.ImportDecl
	for _, name := range implicitImports {
		prepended = append(prepended, ast.ImportDecl{Path: name, Wildcard: true})
	}
	main.Imports = append(prepended, main.Imports...)

	if err := l.loadImportsOf(main); err != nil {
		return nil, err
	}

	return &ast.Program{Modules: l.order, Main: main}, nil
}

func (l *Loader) loadFile(path string, isMain bool) (*ast.Module, error) {
	if m, ok := l.loaded[path]; ok {
		return m, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		l.Collector.Report(diagnostics.Diag{
			Severity: diagnostics.Fatal,
			Pos:      token.Pos{Filename: path, Line: 1, Column: 1},
			Message:  fmt.Sprintf("file not found: %s", path),
		})
		return nil, diagnostics.COMPILER_ERROR_FOUND
	}

	name := moduleNameFromPath(path)
	col := l.Collector
	lx := lexer.New(path, src, col)
	mod, err := parser.ParseModule(lx, col, string(src), name, path)
	if err != nil {
		return nil, err
	}
	mod.IsMain = isMain

	l.loaded[path] = mod
	if !isMain {
		l.order = append(l.order, mod)
	}
	return mod, nil
}

func (l *Loader) loadImportsOf(mod *ast.Module) error {
	dir := filepath.Dir(mod.Path)
	key := mod.Path
	if l.loading[key] {
		l.Collector.Report(diagnostics.Diag{
			Severity: diagnostics.Error,
			Pos:      token.Pos{Filename: mod.Path, Line: 1, Column: 1},
			Message:  fmt.Sprintf("circular dependency detected for module %s", mod.Name),
		})
		return diagnostics.COMPILER_ERROR_FOUND
	}
	if l.finished[key] {
		return nil
	}
	l.loading[key] = true
	defer delete(l.loading, key)

	for _, imp := range mod.Imports {
		path, err := l.resolve(dir, imp.Path)
		if err != nil {
			l.Collector.Report(diagnostics.Diag{
				Severity: diagnostics.Fatal,
				Pos:      token.Pos{Filename: mod.Path, Line: 1, Column: 1},
				Message:  fmt.Sprintf("import %q: %v", imp.Path, err),
			})
			return diagnostics.COMPILER_ERROR_FOUND
		}
		imported, err := l.loadFile(path, false)
		if err != nil {
			return err
		}
		if err := l.loadImportsOf(imported); err != nil {
			return err
		}
	}
	l.finished[key] = true
	return nil
}

func moduleNameFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
