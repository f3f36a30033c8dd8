// Package sema implements the two-pass semantic analyzer: name resolution,
// symbol tables, the type system, export/import visibility, numeric
// promotion, and foreign-function handling.
package sema

import (
	"fmt"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/scope"
	"github.com/Pang-HQ/Pangea/internal/token"
)

// defaultBuiltins is the recognized printf-family name set from spec.md
// §4.4 / original_source/src/builtins/builtins.h. Unlike the original's
// process-global builtins registry singleton (spec.md §9 "Global mutable
// state"), this is only ever the seed for a Sema's own builtins set: each
// Sema gets its own copy at construction, and a driver can replace it
// (e.g. --no-builtins) without touching any shared state.
var defaultBuiltins = map[string]bool{
	"printf": true, "fprintf": true, "sprintf": true, "snprintf": true,
	"scanf": true, "fscanf": true, "sscanf": true,
}

// Sema holds all state accumulated across the analysis of a Program.
type Sema struct {
	Collector *diagnostics.Collector
	Sources   map[string]string // module name -> source text, for diagnostic snippets

	global *scope.Scope

	// ExprTypes is the expression-type map: every expression node visited
	// gets exactly one entry here (spec.md §3 invariant), keyed by node
	// identity.
	ExprTypes map[*ast.Node]*SemanticType

	// userTypes maps a user-defined type name to its SemanticType and to the
	// declaring node (for class constructor lookup, field lookup, etc).
	userTypes map[string]*SemanticType
	classes   map[string]*ast.ClassDecl
	structs   map[string]*ast.StructDecl

	// classNames backs the §9(c) type-identifier check: a real class/struct/
	// enum-name set built during analysis, not a lexical heuristic.
	classNames map[string]bool

	// builtins is this Sema's own copy of the recognized variadic-foreign
	// name set; see SetBuiltins.
	builtins map[string]bool

	// exports[moduleName][symbolName] = Symbol
	exports map[string]map[string]*scope.Symbol

	// importsOf[moduleName] = that module's own import list
	importsOf map[string][]ast.ImportDecl

	currentModule     string
	currentReturnType *SemanticType
}

func New(collector *diagnostics.Collector, sources map[string]string) *Sema {
	builtins := make(map[string]bool, len(defaultBuiltins))
	for k, v := range defaultBuiltins {
		builtins[k] = v
	}
	return &Sema{
		Collector:  collector,
		Sources:    sources,
		global:     scope.New(nil),
		ExprTypes:  make(map[*ast.Node]*SemanticType),
		userTypes:  make(map[string]*SemanticType),
		classes:    make(map[string]*ast.ClassDecl),
		structs:    make(map[string]*ast.StructDecl),
		classNames: make(map[string]bool),
		builtins:   builtins,
		exports:    make(map[string]map[string]*scope.Symbol),
		importsOf:  make(map[string][]ast.ImportDecl),
	}
}

// SetBuiltins replaces this Sema's recognized variadic-foreign name set,
// letting a driver disable it entirely (--no-builtins passes an empty map)
// without any shared or global state.
func (s *Sema) SetBuiltins(names map[string]bool) { s.builtins = names }

func (s *Sema) source(mod string) string { return s.Sources[mod] }

// ConvertType exposes the AST-type-to-SemanticType conversion outside the
// package. Nothing in this repository calls it; codegen lowers no class or
// struct field layout.
func (s *Sema) ConvertType(n *ast.Node) *SemanticType { return s.convertType(n) }

// Exports returns the export table collected for a given module name.
func (s *Sema) Exports(moduleName string) map[string]*scope.Symbol { return s.exports[moduleName] }

// ClassDecl looks up a registered class declaration by name.
func (s *Sema) ClassDecl(name string) (*ast.ClassDecl, bool) {
	d, ok := s.classes[name]
	return d, ok
}

// StructDecl looks up a registered struct declaration by name.
func (s *Sema) StructDecl(name string) (*ast.StructDecl, bool) {
	d, ok := s.structs[name]
	return d, ok
}

// IsTypeName reports whether name was registered as a class, struct, or
// enum. This backs codegen's type-identifier check with the real name set
// built during analysis instead of a leading-uppercase-letter guess.
func (s *Sema) IsTypeName(name string) bool { return s.classNames[name] }

func (s *Sema) report(sev diagnostics.Severity, pos token.Pos, mod string, format string, args ...any) {
	s.Collector.Report(diagnostics.Diag{
		Severity: sev,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
		Source:   s.source(mod),
	})
}

func (s *Sema) errorAndSuppress(pos token.Pos, mod string, format string, args ...any) *SemanticType {
	s.report(diagnostics.Error, pos, mod, format, args...)
	return ErrorType()
}

// Check runs both passes of the semantic analyzer over program, then walks
// every function/method body and global initializer.
func (s *Sema) Check(program *ast.Program) error {
	modules := append(append([]*ast.Module{}, program.Modules...), program.Main)

	// Pass A: register every declaration's signature into the global scope.
	for _, mod := range modules {
		s.currentModule = mod.Name
		s.importsOf[mod.Name] = mod.Imports
		s.registerTypeNames(mod)
	}
	for _, mod := range modules {
		s.currentModule = mod.Name
		for _, decl := range mod.Decls {
			s.registerDecl(mod, decl)
		}
	}

	// Pass B: collect each module's exports from the symbols just registered.
	for _, mod := range modules {
		table := make(map[string]*scope.Symbol)
		for name, sym := range s.global.Nodes {
			if sym.DeclaredModule == mod.Name && sym.IsExported {
				table[name] = sym
			}
		}
		s.exports[mod.Name] = table
	}

	if s.Collector.HasErrors() {
		return diagnostics.COMPILER_ERROR_FOUND
	}

	// Body-checking: walk every function/method body and every global
	// initializer now that all signatures and exports are known.
	for _, mod := range modules {
		s.currentModule = mod.Name
		for _, decl := range mod.Decls {
			s.checkDeclBody(mod, decl)
		}
	}

	if s.Collector.HasErrors() {
		return diagnostics.COMPILER_ERROR_FOUND
	}
	return nil
}

func (s *Sema) registerTypeNames(mod *ast.Module) {
	for _, decl := range mod.Decls {
		switch d := decl.N.(type) {
		case *ast.ClassDecl:
			s.classNames[d.Name] = true
			s.classes[d.Name] = d
			s.userTypes[d.Name] = Primitive(d.Name)
		case *ast.StructDecl:
			s.classNames[d.Name] = true
			s.structs[d.Name] = d
			s.userTypes[d.Name] = Primitive(d.Name)
		case *ast.EnumDecl:
			s.classNames[d.Name] = true
			s.userTypes[d.Name] = Primitive(d.Name)
		}
	}
}

// convertType maps an AST type node to a SemanticType, per spec.md §4.4's
// "Type conversion from AST type to SemanticType" table.
func (s *Sema) convertType(n *ast.Node) *SemanticType {
	if n == nil {
		return VoidType()
	}
	switch t := n.N.(type) {
	case *ast.PrimitiveType:
		if t.Kind == token.VOID_TYPE {
			return VoidType()
		}
		return Primitive(ConvertASTPrimitiveName(t.Kind))
	case *ast.ConstType:
		base := s.convertType(t.Base)
		c := base.Clone()
		c.IsConst = true
		return c
	case *ast.ArrayType:
		return &SemanticType{Kind: KindArray, Elem: s.convertType(t.Elem), Size: t.Size}
	case *ast.PointerType:
		return &SemanticType{Kind: KindPointer, PointerKind: t.PtrKind.String(), Pointee: s.convertType(t.Pointee)}
	case *ast.GenericType:
		return Primitive(t.Base)
	case *ast.IdentType:
		if bt, ok := s.userTypes[t.Name]; ok {
			return bt.Clone()
		}
		return Primitive(t.Name)
	default:
		return VoidType()
	}
}

func (s *Sema) registerDecl(mod *ast.Module, n *ast.Node) {
	switch d := n.N.(type) {
	case *ast.FunctionDecl:
		s.registerFunction(mod, n, d)
	case *ast.VariableDecl:
		if d.Name == "" {
			return // discarded type-alias placeholder
		}
		s.registerGlobalVar(mod, n, d)
	case *ast.ClassDecl:
		s.registerClass(mod, d)
	case *ast.StructDecl, *ast.EnumDecl:
		// names already registered in registerTypeNames; nothing else to bind.
	}
}

func (s *Sema) registerFunction(mod *ast.Module, n *ast.Node, d *ast.FunctionDecl) {
	fnType := &SemanticType{Kind: KindFunction, Variadic: d.IsVariadic}
	for _, p := range d.Params {
		if pt, ok := p.Type.N.(*ast.PrimitiveType); ok && pt.Kind == token.RAW_VA_LIST {
			continue
		}
		fnType.Params = append(fnType.Params, s.convertType(p.Type))
	}
	fnType.Return = s.convertType(d.ReturnType)
	d.SemaType = fnType

	sym := &scope.Symbol{
		Name: d.Name, Type: fnType, IsMutable: false, IsInitialized: true,
		DeclaredModule: mod.Name, IsExported: d.IsExported, DeclarationPos: n.Pos, Node: d,
	}
	if err := s.global.Insert(d.Name, sym); err != nil {
		s.report(diagnostics.Error, n.Pos, mod.Name, "redefinition of %s", d.Name)
	}
}

func (s *Sema) registerGlobalVar(mod *ast.Module, n *ast.Node, d *ast.VariableDecl) {
	var ty *SemanticType
	if d.Type != nil {
		ty = s.convertType(d.Type)
	} else {
		ty = ErrorType() // resolved later in checkDeclBody once the initializer is checked
	}
	d.SemaType = ty
	sym := &scope.Symbol{
		Name: d.Name, Type: ty, IsMutable: d.IsMutable, IsInitialized: d.Init != nil || d.IsForeign,
		DeclaredModule: mod.Name, IsExported: d.IsExported, DeclarationPos: n.Pos, Node: d,
	}
	if err := s.global.Insert(d.Name, sym); err != nil {
		s.report(diagnostics.Error, n.Pos, mod.Name, "redefinition of %s", d.Name)
	}
}

func (s *Sema) registerClass(mod *ast.Module, d *ast.ClassDecl) {
	var ctorType *SemanticType
	for _, m := range d.Members {
		method, ok := m.N.(*ast.ClassMethod)
		if !ok {
			continue
		}
		isCtor := method.Fn.Name == d.Name
		fnType := &SemanticType{Kind: KindFunction}
		for _, p := range method.Fn.Params {
			fnType.Params = append(fnType.Params, s.convertType(p.Type))
		}
		if isCtor {
			// A constructor's real invocation type always returns an
			// instance of the class, regardless of its `-> self` annotation.
			fnType.Return = Primitive(d.Name)
			ctorType = fnType
		} else if method.Fn.ReturnType != nil {
			fnType.Return = s.convertType(method.Fn.ReturnType)
		} else {
			fnType.Return = VoidType()
		}
		method.Fn.SemaType = fnType
	}
	if ctorType == nil {
		ctorType = &SemanticType{Kind: KindFunction, Return: Primitive(d.Name)}
	}
	sym := &scope.Symbol{
		Name: d.Name, Type: ctorType, IsInitialized: true,
		DeclaredModule: mod.Name, IsExported: d.IsExported, Node: d,
	}
	// The constructor shares the class's own name in scope (spec.md §4.4
	// "also register a constructor function whose ... return type is the class").
	if err := s.global.Insert(d.Name, sym); err != nil {
		// A same-named function/class already claimed the slot.
	}
}

// visible implements spec.md §3's export-visibility invariant.
func (s *Sema) visible(sym *scope.Symbol) bool {
	if sym.DeclaredModule == "" || sym.DeclaredModule == s.currentModule {
		return true
	}
	if !sym.IsExported {
		return false
	}
	for _, imp := range s.importsOf[s.currentModule] {
		if importMatchesModule(imp.Path, sym.DeclaredModule) {
			if imp.Wildcard {
				return true
			}
			for _, item := range imp.Items {
				if item == sym.Name {
					return true
				}
			}
		}
	}
	return false
}

func importMatchesModule(importPath, moduleName string) bool {
	base := importPath
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	if len(base) > 5 && base[len(base)-5:] == ".pang" {
		base = base[:len(base)-5]
	}
	return base == moduleName
}

func (s *Sema) resolve(sc *scope.Scope, name string, pos token.Pos) *scope.Symbol {
	_, sym, err := sc.LookupAcrossScopes(name)
	if err != nil {
		return nil
	}
	if !s.visible(sym) {
		return nil
	}
	return sym
}

func (s *Sema) checkDeclBody(mod *ast.Module, n *ast.Node) {
	switch d := n.N.(type) {
	case *ast.FunctionDecl:
		s.checkFunctionBody(mod, d)
	case *ast.VariableDecl:
		if d.Name == "" || d.IsForeign {
			return
		}
		s.checkGlobalVarBody(mod, n, d)
	case *ast.ClassDecl:
		s.checkClassBody(mod, d)
	}
}

func (s *Sema) checkFunctionBody(mod *ast.Module, d *ast.FunctionDecl) {
	if d.IsForeign || d.Body == nil {
		return
	}
	fnType := d.SemaType.(*SemanticType)
	fnScope := scope.New(s.global)
	for i, p := range d.Params {
		if i < len(fnType.Params) {
			fnScope.Insert(p.Name, &scope.Symbol{
				Name: p.Name, Type: fnType.Params[i], IsMutable: true, IsInitialized: true,
				DeclaredModule: mod.Name, DeclarationPos: p.Type.Pos,
			})
		} else {
			fnScope.Insert(p.Name, &scope.Symbol{Name: p.Name, Type: Primitive("raw_va_list"), IsMutable: false, IsInitialized: true, DeclaredModule: mod.Name})
		}
	}
	prevReturn := s.currentReturnType
	s.currentReturnType = fnType.Return
	s.checkBlock(mod, d.Body, fnScope)
	s.currentReturnType = prevReturn
}

func (s *Sema) checkGlobalVarBody(mod *ast.Module, n *ast.Node, d *ast.VariableDecl) {
	declared := d.SemaType.(*SemanticType)
	if d.Init == nil {
		return
	}
	var actual *SemanticType
	if declared.IsError() {
		actual = s.inferWithoutContext(mod, d.Init, s.global)
		d.SemaType = actual
		if sym, ok := s.global.Nodes[d.Name]; ok {
			sym.Type = actual
		}
	} else {
		actual = s.inferWithContext(mod, d.Init, declared, s.global)
		if !declared.Equals(actual) && !declared.IsError() && !actual.IsError() {
			s.report(diagnostics.Error, n.Pos, mod.Name, "type mismatch initializing %s: declared %s, got %s", d.Name, typeName(declared), typeName(actual))
		}
	}
}

func (s *Sema) checkClassBody(mod *ast.Module, d *ast.ClassDecl) {
	for _, m := range d.Members {
		method, ok := m.N.(*ast.ClassMethod)
		if !ok {
			continue
		}
		fnScope := scope.New(s.global)
		fnScope.Insert("self", &scope.Symbol{Name: "self", Type: Primitive(d.Name), IsMutable: true, IsInitialized: true, DeclaredModule: mod.Name})
		var paramTypes []*SemanticType
		for _, p := range method.Fn.Params {
			paramTypes = append(paramTypes, s.convertType(p.Type))
		}
		for i, p := range method.Fn.Params {
			fnScope.Insert(p.Name, &scope.Symbol{Name: p.Name, Type: paramTypes[i], IsMutable: true, IsInitialized: true, DeclaredModule: mod.Name})
		}
		// Constructors exit with bare `return`; their invocation return type
		// (the class instance) is tracked separately on the class's own
		// symbol, not checked against in-body return statements.
		isCtor := method.Fn.Name == d.Name
		retType := VoidType()
		if !isCtor && method.Fn.ReturnType != nil {
			retType = s.convertType(method.Fn.ReturnType)
		}
		prevReturn := s.currentReturnType
		s.currentReturnType = retType
		if method.Fn.Body != nil {
			s.checkBlock(mod, method.Fn.Body, fnScope)
		}
		s.currentReturnType = prevReturn
	}
}

func typeName(t *SemanticType) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case KindPrimitive:
		return t.Name
	case KindVoid:
		return "void"
	case KindError:
		return "error"
	case KindArray:
		return "[]" + typeName(t.Elem)
	case KindPointer:
		return t.PointerKind + " " + typeName(t.Pointee)
	case KindFunction:
		return "fn"
	default:
		return "?"
	}
}

// ---- statements ----

func (s *Sema) checkBlock(mod *ast.Module, n *ast.Node, parent *scope.Scope) {
	block := n.N.(*ast.BlockStmt)
	blockScope := scope.New(parent)
	for _, stmt := range block.Statements {
		s.checkStmt(mod, stmt, blockScope)
	}
}

func (s *Sema) checkStmt(mod *ast.Module, n *ast.Node, sc *scope.Scope) {
	switch st := n.N.(type) {
	case *ast.ExprStmt:
		s.inferWithoutContext(mod, st.Expr, sc)
	case *ast.BlockStmt:
		s.checkBlock(mod, n, sc)
	case *ast.IfStmt:
		s.checkIfStmt(mod, st, sc)
	case *ast.WhileStmt:
		cond := s.inferWithoutContext(mod, st.Cond, sc)
		if !cond.IsBoolean() && !cond.IsNumeric() && !cond.IsError() {
			s.report(diagnostics.Error, st.Cond.Pos, mod.Name, "while condition must be boolean, got %s", typeName(cond))
		}
		s.checkBlock(mod, st.Body, sc)
	case *ast.ForStmt:
		s.inferWithoutContext(mod, st.Iterable, sc)
		loopScope := scope.New(sc)
		loopScope.Insert(st.Binder, &scope.Symbol{Name: st.Binder, Type: ErrorType(), IsMutable: false, IsInitialized: true, DeclaredModule: mod.Name})
		s.checkBlock(mod, st.Body, loopScope)
	case *ast.ReturnStmt:
		s.checkReturnStmt(mod, st, n, sc)
	case *ast.DeclStmt:
		s.checkLocalVarDecl(mod, st.Decl, sc)
	}
}

func (s *Sema) checkIfStmt(mod *ast.Module, st *ast.IfStmt, sc *scope.Scope) {
	cond := s.inferWithoutContext(mod, st.Cond, sc)
	if !cond.IsBoolean() && !cond.IsNumeric() && !cond.IsError() {
		s.report(diagnostics.Error, st.Cond.Pos, mod.Name, "if condition must be boolean, got %s", typeName(cond))
	}
	s.checkBlock(mod, st.Then, sc)
	if st.Else == nil {
		return
	}
	switch st.Else.N.(type) {
	case *ast.IfStmt:
		s.checkIfStmt(mod, st.Else.N.(*ast.IfStmt), sc)
	case *ast.BlockStmt:
		s.checkBlock(mod, st.Else, sc)
	}
}

func (s *Sema) checkReturnStmt(mod *ast.Module, st *ast.ReturnStmt, n *ast.Node, sc *scope.Scope) {
	if st.Value == nil {
		if s.currentReturnType != nil && !s.currentReturnType.IsVoid() && !s.currentReturnType.IsError() {
			s.report(diagnostics.Error, n.Pos, mod.Name, "missing return value for non-void function")
		}
		return
	}
	if s.currentReturnType != nil && !s.currentReturnType.IsError() {
		actual := s.inferWithContext(mod, st.Value, s.currentReturnType, sc)
		if !s.currentReturnType.Equals(actual) && !actual.IsError() {
			s.report(diagnostics.Error, st.Value.Pos, mod.Name, "return type mismatch: expected %s, got %s", typeName(s.currentReturnType), typeName(actual))
		}
	} else {
		s.inferWithoutContext(mod, st.Value, sc)
	}
}

func (s *Sema) checkLocalVarDecl(mod *ast.Module, n *ast.Node, sc *scope.Scope) {
	d := n.N.(*ast.VariableDecl)
	var declared *SemanticType
	if d.Type != nil {
		declared = s.convertType(d.Type)
	}
	var actual *SemanticType
	if declared != nil {
		actual = s.inferWithContext(mod, d.Init, declared, sc)
		if !declared.Equals(actual) && !declared.IsError() && !actual.IsError() {
			s.report(diagnostics.Error, n.Pos, mod.Name, "type mismatch initializing %s: declared %s, got %s", d.Name, typeName(declared), typeName(actual))
		}
	} else {
		actual = s.inferWithoutContext(mod, d.Init, sc)
		declared = actual
	}
	d.SemaType = declared
	if err := sc.Insert(d.Name, &scope.Symbol{
		Name: d.Name, Type: declared, IsMutable: d.IsMutable, IsInitialized: true,
		DeclaredModule: mod.Name, DeclarationPos: n.Pos, Node: d,
	}); err != nil {
		s.report(diagnostics.Error, n.Pos, mod.Name, "redefinition of %s", d.Name)
	}
}

// ---- expressions ----

// inferWithoutContext infers an expression's type with no expected type yet,
// returning the type (possibly error). Populates s.ExprTypes.
func (s *Sema) inferWithoutContext(mod *ast.Module, n *ast.Node, sc *scope.Scope) *SemanticType {
	ty := s.inferWithoutContextImpl(mod, n, sc)
	s.ExprTypes[n] = ty
	return ty
}

func (s *Sema) inferWithoutContextImpl(mod *ast.Module, n *ast.Node, sc *scope.Scope) *SemanticType {
	switch e := n.N.(type) {
	case *ast.LiteralExpr:
		return s.inferLiteral(e)
	case *ast.IdentExpr:
		sym := s.resolve(sc, e.Name, n.Pos)
		if sym == nil {
			return s.errorAndSuppress(n.Pos, mod.Name, "undefined identifier: %s", e.Name)
		}
		e.SemaSymbol = sym
		if t, ok := sym.Type.(*SemanticType); ok {
			return t.Clone()
		}
		return ErrorType()
	case *ast.UnaryExpr:
		return s.inferUnary(mod, e, n, sc, nil)
	case *ast.BinaryExpr:
		return s.inferBinaryWithoutContext(mod, e, n, sc)
	case *ast.CallExpr:
		return s.checkCall(mod, e, n, sc, nil)
	case *ast.MemberExpr:
		return s.checkMember(mod, e, n, sc)
	case *ast.IndexExpr:
		return s.checkIndex(mod, e, sc)
	case *ast.AssignExpr:
		return s.checkAssign(mod, e, n, sc)
	case *ast.PostfixExpr:
		return s.checkPostfix(mod, e, sc)
	case *ast.CastExpr:
		return s.checkCast(mod, e, n, sc)
	case *ast.AsExpr:
		return s.checkAs(mod, e, n, sc)
	default:
		return ErrorType()
	}
}

// inferWithContext infers an expression's type given an expected type,
// enabling literal/identifier inference to resolve against that context
// (e.g. an untyped integer literal assigned to an i64 variable).
func (s *Sema) inferWithContext(mod *ast.Module, n *ast.Node, expected *SemanticType, sc *scope.Scope) *SemanticType {
	ty := s.inferWithContextImpl(mod, n, expected, sc)
	s.ExprTypes[n] = ty
	return ty
}

func (s *Sema) inferWithContextImpl(mod *ast.Module, n *ast.Node, expected *SemanticType, sc *scope.Scope) *SemanticType {
	switch e := n.N.(type) {
	case *ast.LiteralExpr:
		return s.inferLiteralWithContext(e, expected)
	case *ast.BinaryExpr:
		return s.inferBinaryWithContext(mod, e, n, expected, sc)
	case *ast.UnaryExpr:
		return s.inferUnary(mod, e, n, sc, expected)
	case *ast.CallExpr:
		return s.checkCall(mod, e, n, sc, expected)
	default:
		return s.inferWithoutContextImpl(mod, n, sc)
	}
}

func (s *Sema) inferLiteral(e *ast.LiteralExpr) *SemanticType {
	tok := e.Tok
	switch tok.Kind {
	case token.STRING_LITERAL:
		return Primitive("string")
	case token.BOOL_LITERAL:
		return Primitive("bool")
	case token.NULL_LITERAL:
		return Primitive("null")
	case token.FLOAT_LITERAL:
		if tok.Value.Suffix == token.F32_TYPE {
			return Primitive("f32")
		}
		return Primitive("f64")
	case token.INTEGER_LITERAL:
		if tok.Value.Suffix != token.INVALID {
			return Primitive(tok.Value.Suffix.String())
		}
		if tok.Value.Int > int64(1<<31-1) {
			return Primitive("i64")
		}
		return Primitive("i32")
	default:
		return ErrorType()
	}
}

func (s *Sema) inferLiteralWithContext(e *ast.LiteralExpr, expected *SemanticType) *SemanticType {
	tok := e.Tok
	if tok.Kind == token.INTEGER_LITERAL && tok.Value.Suffix == token.INVALID && expected.IsNumeric() {
		if expected.IsInteger() {
			bits := primitiveKind(expected.Name).BitSize()
			if bits > 0 && bits < 64 {
				max := uint64(1)<<uint(bits) - 1
				if uint64(tok.Value.Int) > max {
					return Primitive("i64")
				}
			}
			return expected.Clone()
		}
		return expected.Clone()
	}
	if tok.Kind == token.FLOAT_LITERAL && tok.Value.Suffix == token.INVALID && expected.IsFloat() {
		return expected.Clone()
	}
	if tok.Kind == token.STRING_LITERAL && expected.IsPointer() {
		return expected.Clone()
	}
	return s.inferLiteral(e)
}

func (s *Sema) inferUnary(mod *ast.Module, e *ast.UnaryExpr, n *ast.Node, sc *scope.Scope, expected *SemanticType) *SemanticType {
	var operand *SemanticType
	if e.Op == token.MINUS && expected != nil && expected.IsNumeric() {
		operand = s.inferWithContext(mod, e.Operand, expected, sc)
	} else {
		operand = s.inferWithoutContext(mod, e.Operand, sc)
	}
	switch e.Op {
	case token.MINUS:
		if !operand.IsNumeric() && !operand.IsError() {
			return s.errorAndSuppress(n.Pos, mod.Name, "unary '-' requires a numeric operand, got %s", typeName(operand))
		}
		return operand
	case token.BANG:
		if !operand.IsBoolean() && !operand.IsNumeric() && !operand.IsError() {
			return s.errorAndSuppress(n.Pos, mod.Name, "unary '!' requires a boolean or numeric operand, got %s", typeName(operand))
		}
		return Primitive("bool")
	default:
		return ErrorType()
	}
}

func (s *Sema) inferBinaryWithoutContext(mod *ast.Module, e *ast.BinaryExpr, n *ast.Node, sc *scope.Scope) *SemanticType {
	left := s.inferWithoutContext(mod, e.Left, sc)
	right := s.inferWithoutContext(mod, e.Right, sc)
	return s.resolveBinary(mod, e.Op, n.Pos, left, right)
}

func (s *Sema) inferBinaryWithContext(mod *ast.Module, e *ast.BinaryExpr, n *ast.Node, expected *SemanticType, sc *scope.Scope) *SemanticType {
	if isArithmeticOp(e.Op) && expected.IsNumeric() {
		left := s.inferWithContext(mod, e.Left, expected, sc)
		right := s.inferWithContext(mod, e.Right, expected, sc)
		return s.resolveBinary(mod, e.Op, n.Pos, left, right)
	}
	return s.inferBinaryWithoutContext(mod, e, n, sc)
}

func isArithmeticOp(k token.Kind) bool {
	switch k {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.POWER:
		return true
	default:
		return false
	}
}

func isComparisonOp(k token.Kind) bool {
	switch k {
	case token.EQUAL_EQUAL, token.BANG_EQUAL, token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL:
		return true
	default:
		return false
	}
}

func (s *Sema) resolveBinary(mod *ast.Module, op token.Kind, pos token.Pos, left, right *SemanticType) *SemanticType {
	if left.IsError() || right.IsError() {
		return ErrorType()
	}
	switch {
	case isArithmeticOp(op):
		if !left.IsNumeric() || !right.IsNumeric() {
			return s.errorAndSuppress(pos, mod.Name, "operator %s requires numeric operands, got %s and %s", op, typeName(left), typeName(right))
		}
		return CommonNumericType(left, right)
	case op == token.SHL || op == token.SHR:
		if !left.IsInteger() || !right.IsInteger() || left.Name != right.Name {
			return s.errorAndSuppress(pos, mod.Name, "shift requires two integer operands of the same width")
		}
		return left
	case isComparisonOp(op):
		if left.IsNumeric() && right.IsNumeric() {
			return Primitive("bool")
		}
		if left.Kind == KindPrimitive && right.Kind == KindPrimitive && left.Name == right.Name {
			return Primitive("bool")
		}
		if (left.IsPointer() && right.IsNull()) || (right.IsPointer() && left.IsNull()) {
			return Primitive("bool")
		}
		return s.errorAndSuppress(pos, mod.Name, "operands to %s are not comparable: %s and %s", op, typeName(left), typeName(right))
	case op == token.AND_AND || op == token.OR_OR:
		boolish := func(t *SemanticType) bool { return t.IsBoolean() || t.IsNumeric() }
		if !boolish(left) || !boolish(right) {
			return s.errorAndSuppress(pos, mod.Name, "operator %s requires boolean or numeric operands", op)
		}
		return Primitive("bool")
	default:
		return s.errorAndSuppress(pos, mod.Name, "unsupported binary operator %s", op)
	}
}

func (s *Sema) checkCall(mod *ast.Module, e *ast.CallExpr, n *ast.Node, sc *scope.Scope, _ *SemanticType) *SemanticType {
	callee, ok := e.Callee.N.(*ast.IdentExpr)
	if !ok {
		return s.errorAndSuppress(n.Pos, mod.Name, "callee is not callable")
	}
	sym := s.resolve(sc, callee.Name, e.Callee.Pos)
	if sym == nil {
		return s.errorAndSuppress(n.Pos, mod.Name, "undefined identifier: %s", callee.Name)
	}
	fnType, ok := sym.Type.(*SemanticType)
	if !ok || fnType.Kind != KindFunction {
		return s.errorAndSuppress(n.Pos, mod.Name, "%s is not callable", callee.Name)
	}
	callee.SemaSymbol = sym

	isVariadicForeign := fnType.Variadic || s.builtins[callee.Name]
	if isVariadicForeign {
		if len(e.Args) < len(fnType.Params) {
			return s.errorAndSuppress(n.Pos, mod.Name, "too few arguments to %s", callee.Name)
		}
		for i, arg := range e.Args {
			if i < len(fnType.Params) {
				s.inferWithContext(mod, arg, fnType.Params[i], sc)
			} else {
				argTy := s.inferWithoutContext(mod, arg, sc)
				if !variadicCompatible(argTy) {
					s.report(diagnostics.Error, arg.Pos, mod.Name, "argument %d to variadic call has unsupported type %s", i+1, typeName(argTy))
				}
			}
		}
		return fnType.Return.Clone()
	}

	if len(e.Args) != len(fnType.Params) {
		return s.errorAndSuppress(n.Pos, mod.Name, "%s expects %d argument(s), got %d", callee.Name, len(fnType.Params), len(e.Args))
	}
	for i, arg := range e.Args {
		argTy := s.inferWithContext(mod, arg, fnType.Params[i], sc)
		if !fnType.Params[i].Equals(argTy) && !argTy.IsError() {
			s.report(diagnostics.Error, arg.Pos, mod.Name, "argument %d to %s: expected %s, got %s", i+1, callee.Name, typeName(fnType.Params[i]), typeName(argTy))
		}
	}
	return fnType.Return.Clone()
}

func variadicCompatible(t *SemanticType) bool {
	if t == nil {
		return false
	}
	return t.IsNumeric() || t.IsBoolean() || t.IsString() || t.IsPointer() || t.Kind == KindArray || t.Kind == KindPrimitive
}

func (s *Sema) checkMember(mod *ast.Module, e *ast.MemberExpr, n *ast.Node, sc *scope.Scope) *SemanticType {
	obj := s.inferWithoutContext(mod, e.Object, sc)
	// Member access against a known class layout is unsupported at this
	// stage (spec.md §4.4 "deferred"); always diagnose.
	return s.errorAndSuppress(n.Pos, mod.Name, "member access not supported for type %s", typeName(obj))
}

func (s *Sema) checkIndex(mod *ast.Module, e *ast.IndexExpr, sc *scope.Scope) *SemanticType {
	obj := s.inferWithoutContext(mod, e.Object, sc)
	idx := s.inferWithoutContext(mod, e.Index, sc)
	if obj.IsError() {
		return ErrorType()
	}
	if obj.Kind != KindArray {
		return s.errorAndSuppress(e.Object.Pos, mod.Name, "index target is not an array: %s", typeName(obj))
	}
	if !idx.IsInteger() && !idx.IsError() {
		return s.errorAndSuppress(e.Index.Pos, mod.Name, "array index must be an integer, got %s", typeName(idx))
	}
	return obj.Elem.Clone()
}

func (s *Sema) checkAssign(mod *ast.Module, e *ast.AssignExpr, n *ast.Node, sc *scope.Scope) *SemanticType {
	targetIdent, ok := e.Target.N.(*ast.IdentExpr)
	if !ok {
		return s.errorAndSuppress(n.Pos, mod.Name, "assignment target must be an identifier")
	}
	sym := s.resolve(sc, targetIdent.Name, e.Target.Pos)
	if sym == nil {
		return s.errorAndSuppress(n.Pos, mod.Name, "undefined identifier: %s", targetIdent.Name)
	}
	if !sym.IsMutable {
		return s.errorAndSuppress(n.Pos, mod.Name, "Cannot assign to immutable variable: %s", targetIdent.Name)
	}
	targetTy, _ := sym.Type.(*SemanticType)
	s.ExprTypes[e.Target] = targetTy

	if e.Op == token.ASSIGN {
		valTy := s.inferWithContext(mod, e.Value, targetTy, sc)
		if !targetTy.Equals(valTy) && !valTy.IsError() && !targetTy.IsError() {
			s.report(diagnostics.Error, e.Value.Pos, mod.Name, "type mismatch assigning to %s: expected %s, got %s", targetIdent.Name, typeName(targetTy), typeName(valTy))
		}
		return targetTy
	}
	valTy := s.inferWithContext(mod, e.Value, targetTy, sc)
	return s.resolveBinary(mod, compoundBaseOp(e.Op), n.Pos, targetTy, valTy)
}

func compoundBaseOp(op token.Kind) token.Kind {
	switch op {
	case token.PLUS_ASSIGN:
		return token.PLUS
	case token.MINUS_ASSIGN:
		return token.MINUS
	case token.STAR_ASSIGN:
		return token.STAR
	case token.SLASH_ASSIGN:
		return token.SLASH
	case token.PERCENT_ASSIGN:
		return token.PERCENT
	default:
		return op
	}
}

func (s *Sema) checkPostfix(mod *ast.Module, e *ast.PostfixExpr, sc *scope.Scope) *SemanticType {
	operandIdent, ok := e.Operand.N.(*ast.IdentExpr)
	if !ok {
		return s.errorAndSuppress(e.Operand.Pos, mod.Name, "postfix operator requires an assignable identifier")
	}
	sym := s.resolve(sc, operandIdent.Name, e.Operand.Pos)
	if sym == nil {
		return s.errorAndSuppress(e.Operand.Pos, mod.Name, "undefined identifier: %s", operandIdent.Name)
	}
	if !sym.IsMutable {
		return s.errorAndSuppress(e.Operand.Pos, mod.Name, "Cannot assign to immutable variable: %s", operandIdent.Name)
	}
	ty, _ := sym.Type.(*SemanticType)
	s.ExprTypes[e.Operand] = ty
	if !ty.IsNumeric() {
		return s.errorAndSuppress(e.Operand.Pos, mod.Name, "postfix %s requires a numeric operand", e.Op)
	}
	return ty
}

var castablePrimitives = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true,
	"u8": true, "u16": true, "u32": true, "u64": true,
	"f32": true, "f64": true, "bool": true, "string": true,
}

func (s *Sema) checkCast(mod *ast.Module, e *ast.CastExpr, n *ast.Node, sc *scope.Scope) *SemanticType {
	from := s.inferWithoutContext(mod, e.Expr, sc)
	to := s.convertType(e.Target)
	if from.IsError() {
		return to
	}
	if from.Kind != KindPrimitive || to.Kind != KindPrimitive || !castablePrimitives[from.Name] || !castablePrimitives[to.Name] {
		if e.Safe {
			s.report(diagnostics.Warning, n.Pos, mod.Name, "try_cast from %s to %s is not valid; yields the source value", typeName(from), typeName(to))
			return from
		}
		s.report(diagnostics.Warning, n.Pos, mod.Name, "invalid cast from %s to %s", typeName(from), typeName(to))
		return to
	}
	return to
}

func (s *Sema) checkAs(mod *ast.Module, e *ast.AsExpr, n *ast.Node, sc *scope.Scope) *SemanticType {
	from := s.inferWithoutContext(mod, e.Expr, sc)
	to := s.convertType(e.Target)
	if from.IsError() {
		return to
	}
	if from.Kind != KindPrimitive || to.Kind != KindPrimitive || !castablePrimitives[from.Name] || !castablePrimitives[to.Name] {
		return s.errorAndSuppress(n.Pos, mod.Name, "invalid 'as' cast from %s to %s", typeName(from), typeName(to))
	}
	return to
}
