package ast

// Module is one compilation-unit source file: its own imports and
// declarations, the path it was loaded from, and the name it registers
// under for import resolution (derived from its Path).
type Module struct {
	Name    string
	Path    string
	Imports []ImportDecl
	Decls   []*Node
	IsMain  bool
}

// Program is the ordered set of loaded modules plus the main module. Modules
// holds the imported modules in dependency order (imports before importer)
// and does not contain the main module, which only Main points to; a full
// dependency-order walk is Modules left to right, then Main.
type Program struct {
	Modules []*Module
	Main    *Module
}
