package ast

// Param is one function/method/constructor parameter.
type Param struct {
	Name string
	Type *Node
}

// FunctionDecl covers top-level functions, foreign declarations (Body ==
// nil, IsForeign == true), and methods (embedded via ClassMethod).
type FunctionDecl struct {
	Name       string
	Params     []Param
	ReturnType *Node // nil means implicit void
	Body       *Node // nil for a foreign declaration
	IsForeign  bool
	IsExported bool
	// IsVariadic is set when the final parameter's type is raw_va_list, per
	// spec.md §4.3 "raw_va_list as a parameter type flags the enclosing
	// function as variadic."
	IsVariadic bool

	// SemaType is filled in by sema (kept as `any` to avoid an import cycle).
	SemaType any
}

// VariableDecl covers `let`/`let mut`/`const` declarations, both at module
// scope and inside a block (wrapped by a DeclStmt there).
type VariableDecl struct {
	Name        string
	Type        *Node // nil when inferred from Init
	Init        *Node // nil for a foreign variable declaration
	IsMutable   bool
	IsConst     bool
	IsExported  bool
	IsForeign   bool

	SemaType any
}

// ClassField is a field member of a class or struct.
type ClassField struct {
	Name    string
	Type    *Node
	Init    *Node // optional
	Public  bool
}

// ClassMethod is a method member of a class, including constructors (Name
// == owning class name, ReturnType names `self`).
type ClassMethod struct {
	Fn         FunctionDecl
	Public     bool
	IsStatic   bool
	IsVirtual  bool
	IsOverride bool
}

// ClassDecl. Members is an ordered mix of *Node wrapping ClassField or
// ClassMethod.
type ClassDecl struct {
	Name        string
	TypeParams  []string
	Base        string // "" if none
	Members     []*Node
	IsExported  bool
}

// StructDecl is a plain aggregate of fields, optionally foreign (no
// layout-checking beyond field name/type recording; struct codegen emits no
// IR per spec.md §4.5).
type StructDecl struct {
	Name       string
	Fields     []ClassField
	IsForeign  bool
	IsExported bool
}

// EnumDecl.
type EnumDecl struct {
	Name       string
	Variants   []string
	IsForeign  bool
	IsExported bool
}

// ImportDecl. Items is nil when Wildcard is true.
type ImportDecl struct {
	Path     string
	Items    []string
	Wildcard bool
}
