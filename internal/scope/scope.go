// Package scope implements the nested-scope name-resolution tree shared by
// the semantic analyzer: a mapping from identifier name to Symbol, with a
// parent pointer, consulted innermost-first.
package scope

import (
	"errors"

	"github.com/Pang-HQ/Pangea/internal/token"
)

var (
	ErrAlreadyDefined = errors.New("symbol already defined in this scope")
	ErrNotFound       = errors.New("symbol not found")
)

// Symbol is the value bound to a name in a Scope.
type Symbol struct {
	Name            string
	Type            any // *sema.SemanticType; kept loose to avoid an import cycle
	IsMutable       bool
	IsInitialized   bool
	DeclaredModule  string
	IsExported      bool
	DeclarationPos  token.Pos
	// Node is the declaring AST node (for function/class symbols, codegen
	// backlinks, etc.), stored loosely to avoid an import cycle with ast.
	Node any
}

// Scope is one level of the nested-scope tree.
type Scope struct {
	Parent *Scope
	Nodes  map[string]*Symbol
}

func New(parent *Scope) *Scope {
	return &Scope{Parent: parent, Nodes: make(map[string]*Symbol)}
}

// Insert binds name in this scope only. Redefinition within the same scope
// is an error (spec.md §4.4 "Redefinition of a name within the same scope
// is an error").
func (s *Scope) Insert(name string, sym *Symbol) error {
	if _, exists := s.Nodes[name]; exists {
		return ErrAlreadyDefined
	}
	s.Nodes[name] = sym
	return nil
}

// LookupCurrentScope looks up name in this scope only, not its parents.
func (s *Scope) LookupCurrentScope(name string) (*Symbol, error) {
	if sym, ok := s.Nodes[name]; ok {
		return sym, nil
	}
	return nil, ErrNotFound
}

// LookupAcrossScopes walks the parent chain innermost-first; the first hit
// wins (spec.md §3 invariant).
func (s *Scope) LookupAcrossScopes(name string) (*Scope, *Symbol, error) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Nodes[name]; ok {
			return cur, sym, nil
		}
	}
	return nil, nil, ErrNotFound
}
