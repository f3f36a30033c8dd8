// Package llvm lowers a type-checked Program to LLVM IR using
// tinygo.org/x/go-llvm, the Go bindings over the LLVM C API.
package llvm

import (
	"fmt"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/scope"
	"github.com/Pang-HQ/Pangea/internal/sema"
	"github.com/Pang-HQ/Pangea/internal/token"
	"tinygo.org/x/go-llvm"
)

// Function pairs a declared llvm.Value with the llvm.Type it was built
// with, since go-llvm's CreateCall needs the function type explicitly.
type Function struct {
	Fn llvm.Value
	Ty llvm.Type
}

// Variable is a local or global binding. Mutable locals and every global
// get a real alloca/global Ptr; an immutable local whose initializer folds
// to a constant is bound directly to that constant and never gets storage
// at all (IsConst, Const).
type Variable struct {
	Ty      llvm.Type
	Ptr     llvm.Value
	IsConst bool
	Const   llvm.Value
}

// Codegen lowers one whole Program (every loaded module plus main) into a
// single LLVM module. Classes, structs, and enums never get a backing LLVM
// type: every user-defined type erases to an opaque byte pointer, so there
// is no type-layout pass here, only signatures then bodies.
type Codegen struct {
	Collector *diagnostics.Collector
	Sema      *sema.Sema

	context llvm.Context
	module  llvm.Module
	builder llvm.Builder

	functions map[*ast.FunctionDecl]*Function
	globals   map[*ast.VariableDecl]*Variable

	scopes []map[string]*Variable // local-variable stack, innermost last
}

func New(moduleName string, collector *diagnostics.Collector, s *sema.Sema) *Codegen {
	context := llvm.NewContext()
	module := context.NewModule(moduleName)
	builder := context.NewBuilder()
	module.SetTarget(llvm.DefaultTargetTriple())

	return &Codegen{
		Collector: collector,
		Sema:      s,
		context:   context,
		module:    module,
		builder:   builder,
		functions: make(map[*ast.FunctionDecl]*Function),
		globals:   make(map[*ast.VariableDecl]*Variable),
	}
}

func (c *Codegen) Module() llvm.Module { return c.module }

func (c *Codegen) report(pos token.Pos, mod string, format string, args ...any) {
	c.Collector.Report(diagnostics.Diag{
		Severity: diagnostics.Error,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	})
	_ = mod
}

// Generate lowers every module of program in two ordered sweeps: signatures
// (so calls across modules resolve regardless of load order), then bodies.
func (c *Codegen) Generate(program *ast.Program) error {
	modules := append(append([]*ast.Module{}, program.Modules...), program.Main)

	for _, mod := range modules {
		c.declareSignatures(mod)
	}
	for _, mod := range modules {
		c.generateBodies(mod)
	}

	if c.Collector.HasErrors() {
		return diagnostics.COMPILER_ERROR_FOUND
	}
	return nil
}

// ---- declarations ----

func (c *Codegen) declareSignatures(mod *ast.Module) {
	for _, decl := range mod.Decls {
		switch d := decl.N.(type) {
		case *ast.FunctionDecl:
			c.declareFunction(d)
		case *ast.VariableDecl:
			if d.Name != "" {
				c.declareGlobalVar(mod, decl, d)
			}
		}
		// ClassDecl, StructDecl, and EnumDecl declare no IR of their own:
		// constructors are resolved (and rejected) at call sites, and
		// struct/enum values never reach codegen since semantic analysis
		// never binds a bare struct/enum name to a scope symbol.
	}
}

func (c *Codegen) declareFunction(d *ast.FunctionDecl) {
	fnType := d.SemaType.(*sema.SemanticType)
	retTy := c.getType(fnType.Return)
	paramTys := make([]llvm.Type, len(fnType.Params))
	for i, pt := range fnType.Params {
		paramTys[i] = c.getType(pt)
	}
	ty := llvm.FunctionType(retTy, paramTys, fnType.Variadic)
	fn := llvm.AddFunction(c.module, d.Name, ty)
	c.functions[d] = &Function{Fn: fn, Ty: ty}
}

func (c *Codegen) declareGlobalVar(mod *ast.Module, n *ast.Node, d *ast.VariableDecl) {
	ty := c.getType(d.SemaType.(*sema.SemanticType))
	gv := llvm.AddGlobal(c.module, ty, d.Name)
	if d.IsForeign {
		gv.SetLinkage(llvm.ExternalLinkage)
		c.globals[d] = &Variable{Ty: ty, Ptr: gv}
		return
	}
	init := llvm.ConstNull(ty)
	if d.Init != nil {
		if v, ok := c.constFold(d.Init, ty); ok {
			init = v
		} else {
			c.report(n.Pos, mod.Name, "global initializer for %s is not a compile-time constant; using zero value", d.Name)
		}
	}
	gv.SetInitializer(init)
	if !d.IsExported {
		gv.SetLinkage(llvm.InternalLinkage)
	}
	c.globals[d] = &Variable{Ty: ty, Ptr: gv}
}

// constFold resolves a global initializer to an SSA constant: a literal
// lowers directly, and an identifier resolves through the symbol table to
// another already-folded global constant. Anything else (a call, a binary
// expression, a string literal needing CreateGlobalStringPtr) is rejected,
// since no basic block exists yet to build instructions into at this point
// in the pipeline.
func (c *Codegen) constFold(n *ast.Node, ty llvm.Type) (llvm.Value, bool) {
	switch e := n.N.(type) {
	case *ast.LiteralExpr:
		if e.Tok.Kind == token.STRING_LITERAL {
			return llvm.Value{}, false
		}
		return c.constLiteral(e), true
	case *ast.IdentExpr:
		sym, ok := e.SemaSymbol.(*scope.Symbol)
		if !ok {
			return llvm.Value{}, false
		}
		vdecl, ok := sym.Node.(*ast.VariableDecl)
		if !ok {
			return llvm.Value{}, false
		}
		if gv, ok := c.globals[vdecl]; ok && !vdecl.IsMutable && !vdecl.IsForeign {
			return gv.Ptr.Initializer(), true
		}
		return llvm.Value{}, false
	default:
		return llvm.Value{}, false
	}
}

// ---- type mapping ----

// getType maps a checked type to the LLVM type it lowers to. Arrays decay
// to a pointer to their element type, pointers erase the kind they carry
// (raw/borrowed/owned all map the same), and every class/struct/enum/
// string/self/raw_va_list name collapses to an opaque i8*.
func (c *Codegen) getType(t *sema.SemanticType) llvm.Type {
	if t == nil {
		return c.context.VoidType()
	}
	switch t.Kind {
	case sema.KindVoid, sema.KindError:
		return c.context.VoidType()
	case sema.KindArray:
		return llvm.PointerType(c.getType(t.Elem), 0)
	case sema.KindPointer:
		return llvm.PointerType(c.getType(t.Pointee), 0)
	case sema.KindFunction:
		retTy := c.getType(t.Return)
		paramTys := make([]llvm.Type, len(t.Params))
		for i, p := range t.Params {
			paramTys[i] = c.getType(p)
		}
		return llvm.PointerType(llvm.FunctionType(retTy, paramTys, t.Variadic), 0)
	case sema.KindPrimitive:
		return c.primitiveType(t.Name)
	default:
		return c.context.VoidType()
	}
}

func (c *Codegen) primitiveType(name string) llvm.Type {
	switch name {
	case "i8", "u8":
		return c.context.Int8Type()
	case "i16", "u16":
		return c.context.Int16Type()
	case "i32", "u32":
		return c.context.Int32Type()
	case "i64", "u64":
		return c.context.Int64Type()
	case "f32":
		return c.context.FloatType()
	case "f64":
		return c.context.DoubleType()
	case "bool":
		return c.context.Int1Type()
	case "void":
		return c.context.VoidType()
	default:
		// string, self, raw_va_list, null, and every class/struct/enum name
		// erase to an opaque byte pointer at this stage.
		return llvm.PointerType(c.context.Int8Type(), 0)
	}
}

// ---- variable scope stack ----

func (c *Codegen) pushScope() { c.scopes = append(c.scopes, make(map[string]*Variable)) }
func (c *Codegen) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *Codegen) setVar(name string, v *Variable) {
	c.scopes[len(c.scopes)-1][name] = v
}

func (c *Codegen) lookupLocal(name string) *Variable {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v
		}
	}
	return nil
}

func (c *Codegen) resolveVariable(ident *ast.IdentExpr) *Variable {
	if v := c.lookupLocal(ident.Name); v != nil {
		return v
	}
	if sym, ok := ident.SemaSymbol.(*scope.Symbol); ok {
		if vdecl, ok := sym.Node.(*ast.VariableDecl); ok {
			if gv, ok := c.globals[vdecl]; ok {
				return gv
			}
		}
	}
	return nil
}

// ---- bodies ----

func (c *Codegen) generateBodies(mod *ast.Module) {
	for _, decl := range mod.Decls {
		if d, ok := decl.N.(*ast.FunctionDecl); ok {
			c.generateFunctionBody(mod, d)
		}
	}
}

func (c *Codegen) generateFunctionBody(mod *ast.Module, d *ast.FunctionDecl) {
	if d.IsForeign || d.Body == nil {
		return
	}
	fn := c.functions[d]
	fnType := d.SemaType.(*sema.SemanticType)

	entry := c.context.AddBasicBlock(fn.Fn, "entry")
	c.builder.SetInsertPointAtEnd(entry)
	c.pushScope()

	llvmParams := fn.Fn.Params()
	for i, p := range d.Params {
		if i >= len(fnType.Params) {
			break // the trailing raw_va_list marker carries no materialized value
		}
		ty := c.getType(fnType.Params[i])
		ptr := c.builder.CreateAlloca(ty, ".param")
		c.builder.CreateStore(llvmParams[i], ptr)
		c.setVar(p.Name, &Variable{Ty: ty, Ptr: ptr})
	}

	terminated := c.generateBlockStmt(mod, d.Body)
	if !terminated && fnType.Return.IsVoid() {
		c.builder.CreateRetVoid()
	}
	// A non-void function whose body ends without a terminator is left
	// without one: semantic analysis checks only bare `return` statements in
	// non-void functions, not whether every path returns.
	c.popScope()
}

func (c *Codegen) generateBlockStmt(mod *ast.Module, n *ast.Node) bool {
	block := n.N.(*ast.BlockStmt)
	c.pushScope()
	defer c.popScope()
	for _, stmt := range block.Statements {
		if c.generateStmt(mod, stmt) {
			return true
		}
	}
	return false
}

// generateStmt returns true when the statement terminated the current basic
// block (a return), signalling callers to stop emitting further statements
// into it.
func (c *Codegen) generateStmt(mod *ast.Module, n *ast.Node) bool {
	switch st := n.N.(type) {
	case *ast.ExprStmt:
		c.generateExpr(mod, st.Expr)
		return false
	case *ast.BlockStmt:
		return c.generateBlockStmt(mod, n)
	case *ast.IfStmt:
		fn := c.builder.GetInsertBlock().Parent()
		return c.generateIfStmt(mod, st, fn)
	case *ast.WhileStmt:
		fn := c.builder.GetInsertBlock().Parent()
		c.generateWhileStmt(mod, st, fn)
		return false
	case *ast.ForStmt:
		c.report(n.Pos, mod.Name, "unsupported construct: for-loops are not lowered")
		return false
	case *ast.ReturnStmt:
		if st.Value == nil {
			c.builder.CreateRetVoid()
		} else {
			c.builder.CreateRet(c.generateExpr(mod, st.Value))
		}
		return true
	case *ast.DeclStmt:
		c.generateLocalVarDecl(mod, st.Decl)
		return false
	default:
		return false
	}
}

// generateLocalVarDecl implements the three-way split of spec.md's variable
// declaration lowering for local scope: a `let` (not `let mut`) binding
// whose initializer folds to an SSA constant binds directly to that
// constant and gets no storage at all; everything else (every `let mut`,
// and any immutable local whose initializer isn't foldable) always gets an
// alloca.
func (c *Codegen) generateLocalVarDecl(mod *ast.Module, n *ast.Node) {
	d := n.N.(*ast.VariableDecl)
	ty := c.getType(d.SemaType.(*sema.SemanticType))

	if !d.IsMutable && d.Init != nil {
		if v, ok := c.constFold(d.Init, ty); ok {
			c.setVar(d.Name, &Variable{Ty: ty, IsConst: true, Const: v})
			return
		}
	}

	ptr := c.builder.CreateAlloca(ty, ".local")
	if d.Init != nil {
		val := c.generateExpr(mod, d.Init)
		val = c.coerceTo(val, c.Sema.ExprTypes[d.Init], ty)
		c.builder.CreateStore(val, ptr)
	}
	c.setVar(d.Name, &Variable{Ty: ty, Ptr: ptr})
}

func (c *Codegen) generateIfStmt(mod *ast.Module, st *ast.IfStmt, fn llvm.Value) bool {
	cond := c.boolValue(c.generateExpr(mod, st.Cond), c.Sema.ExprTypes[st.Cond])
	thenBlock := c.context.AddBasicBlock(fn, ".then")
	elseBlock := c.context.AddBasicBlock(fn, ".else")
	c.builder.CreateCondBr(cond, thenBlock, elseBlock)

	c.builder.SetInsertPointAtEnd(thenBlock)
	thenTerm := c.generateBlockStmt(mod, st.Then)
	thenTail := c.builder.GetInsertBlock()

	c.builder.SetInsertPointAtEnd(elseBlock)
	var elseTerm bool
	switch {
	case st.Else == nil:
		elseTerm = false
	case isIfStmt(st.Else):
		elseTerm = c.generateIfStmt(mod, st.Else.N.(*ast.IfStmt), fn)
	default:
		elseTerm = c.generateBlockStmt(mod, st.Else)
	}
	elseTail := c.builder.GetInsertBlock()

	if thenTerm && elseTerm {
		return true
	}

	merge := c.context.AddBasicBlock(fn, ".endif")
	if !thenTerm {
		c.builder.SetInsertPointAtEnd(thenTail)
		c.builder.CreateBr(merge)
	}
	if !elseTerm {
		c.builder.SetInsertPointAtEnd(elseTail)
		c.builder.CreateBr(merge)
	}
	c.builder.SetInsertPointAtEnd(merge)
	return false
}

func isIfStmt(n *ast.Node) bool {
	_, ok := n.N.(*ast.IfStmt)
	return ok
}

func (c *Codegen) generateWhileStmt(mod *ast.Module, st *ast.WhileStmt, fn llvm.Value) {
	condBlock := c.context.AddBasicBlock(fn, ".whilecond")
	bodyBlock := c.context.AddBasicBlock(fn, ".whilebody")
	endBlock := c.context.AddBasicBlock(fn, ".whileend")

	c.builder.CreateBr(condBlock)
	c.builder.SetInsertPointAtEnd(condBlock)
	cond := c.boolValue(c.generateExpr(mod, st.Cond), c.Sema.ExprTypes[st.Cond])
	c.builder.CreateCondBr(cond, bodyBlock, endBlock)

	c.builder.SetInsertPointAtEnd(bodyBlock)
	terminated := c.generateBlockStmt(mod, st.Body)
	if !terminated {
		c.builder.CreateBr(condBlock)
	}

	c.builder.SetInsertPointAtEnd(endBlock)
}

// boolValue coerces a numeric or boolean value into an i1 truth value.
func (c *Codegen) boolValue(v llvm.Value, ty *sema.SemanticType) llvm.Value {
	if ty == nil || ty.IsBoolean() {
		return v
	}
	if ty.IsFloat() {
		zero := llvm.ConstFloat(c.getType(ty), 0)
		return c.builder.CreateFCmp(llvm.FloatONE, v, zero, ".tobool")
	}
	zero := llvm.ConstNull(v.Type())
	return c.builder.CreateICmp(llvm.IntNE, v, zero, ".tobool")
}

// ---- expressions ----

func (c *Codegen) generateExpr(mod *ast.Module, n *ast.Node) llvm.Value {
	switch e := n.N.(type) {
	case *ast.LiteralExpr:
		return c.constLiteral(e)
	case *ast.IdentExpr:
		return c.generateIdent(mod, n, e)
	case *ast.UnaryExpr:
		return c.generateUnary(mod, e)
	case *ast.BinaryExpr:
		return c.generateBinary(mod, n, e)
	case *ast.CallExpr:
		return c.generateCall(mod, n, e)
	case *ast.AssignExpr:
		return c.generateAssign(mod, n, e)
	case *ast.PostfixExpr:
		return c.generatePostfix(mod, e)
	case *ast.CastExpr:
		return c.generateCast(mod, n, e)
	case *ast.AsExpr:
		return c.generateAs(mod, n, e)
	case *ast.MemberExpr, *ast.IndexExpr:
		c.report(n.Pos, mod.Name, "unsupported construct: this expression form does not lower to IR")
		return llvm.ConstNull(c.context.Int32Type())
	default:
		return llvm.ConstNull(c.context.Int32Type())
	}
}

// constLiteral lowers a literal to its fixed IR type: an integer literal is
// always i32 and a float literal always f64, matching the semantic
// default regardless of the expression's surrounding context.
func (c *Codegen) constLiteral(lit *ast.LiteralExpr) llvm.Value {
	tok := lit.Tok
	switch tok.Kind {
	case token.STRING_LITERAL:
		return c.builder.CreateGlobalStringPtr(tok.Value.Str, ".str")
	case token.BOOL_LITERAL:
		if tok.Value.Bool {
			return llvm.ConstInt(c.context.Int1Type(), 1, false)
		}
		return llvm.ConstInt(c.context.Int1Type(), 0, false)
	case token.NULL_LITERAL:
		return llvm.ConstNull(llvm.PointerType(c.context.Int8Type(), 0))
	case token.FLOAT_LITERAL:
		return llvm.ConstFloat(c.context.DoubleType(), tok.Value.Float)
	case token.INTEGER_LITERAL:
		return llvm.ConstInt(c.context.Int32Type(), uint64(tok.Value.Int), true)
	default:
		return llvm.ConstNull(c.context.Int32Type())
	}
}

// generateIdent resolves an identifier to a function value, a type-like
// placeholder, or a loaded variable, mirroring the three disjoint cases
// the original lowers it to. A class/struct/enum name used outside call
// position has no representation yet, so it lowers to a null i8*; a
// constructor call never reaches this path at all (see generateCall).
func (c *Codegen) generateIdent(mod *ast.Module, n *ast.Node, e *ast.IdentExpr) llvm.Value {
	if sym, ok := e.SemaSymbol.(*scope.Symbol); ok {
		if c.Sema.IsTypeName(sym.Name) {
			return llvm.ConstNull(llvm.PointerType(c.context.Int8Type(), 0))
		}
		if fnDecl, ok := sym.Node.(*ast.FunctionDecl); ok {
			if fn, ok := c.functions[fnDecl]; ok {
				return fn.Fn
			}
		}
	}
	v := c.resolveVariable(e)
	if v == nil {
		c.report(n.Pos, mod.Name, "unknown identifier: %s", e.Name)
		return llvm.ConstNull(c.context.Int32Type())
	}
	if v.IsConst {
		return v.Const
	}
	return c.builder.CreateLoad(v.Ty, v.Ptr, ".load")
}

func (c *Codegen) generateUnary(mod *ast.Module, e *ast.UnaryExpr) llvm.Value {
	val := c.generateExpr(mod, e.Operand)
	operandTy := c.Sema.ExprTypes[e.Operand]
	switch e.Op {
	case token.MINUS:
		if operandTy != nil && operandTy.IsFloat() {
			return c.builder.CreateFNeg(val, ".fneg")
		}
		return c.builder.CreateNeg(val, ".neg")
	case token.BANG:
		return c.builder.CreateNot(c.boolValue(val, operandTy), ".not")
	default:
		return val
	}
}

// generateBinary promotes mismatched numeric operands to their common type
// before dispatching; every integer operation is unconditionally signed,
// and the power operator has no IR lowering.
func (c *Codegen) generateBinary(mod *ast.Module, n *ast.Node, e *ast.BinaryExpr) llvm.Value {
	lhs := c.generateExpr(mod, e.Left)
	rhs := c.generateExpr(mod, e.Right)
	leftTy := c.Sema.ExprTypes[e.Left]
	rightTy := c.Sema.ExprTypes[e.Right]

	switch e.Op {
	case token.AND_AND:
		return c.builder.CreateAnd(c.boolValue(lhs, leftTy), c.boolValue(rhs, rightTy), ".and")
	case token.OR_OR:
		return c.builder.CreateOr(c.boolValue(lhs, leftTy), c.boolValue(rhs, rightTy), ".or")
	case token.POWER:
		c.report(n.Pos, mod.Name, "unsupported construct: the power operator does not lower to IR")
		return llvm.ConstNull(c.context.Int32Type())
	}

	isFloat := leftTy != nil && leftTy.IsFloat()
	if leftTy != nil && rightTy != nil && leftTy.IsNumeric() && rightTy.IsNumeric() && !leftTy.Equals(rightTy) {
		common := sema.CommonNumericType(leftTy, rightTy)
		commonIR := c.getType(common)
		lhs = c.coerceTo(lhs, leftTy, commonIR)
		rhs = c.coerceTo(rhs, rightTy, commonIR)
		isFloat = common.IsFloat()
	}

	switch e.Op {
	case token.EQUAL_EQUAL, token.BANG_EQUAL, token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL:
		return c.generateComparison(e.Op, lhs, rhs, isFloat)
	default:
		return c.applyArith(e.Op, lhs, rhs, isFloat)
	}
}

// applyArith dispatches the arithmetic/shift operators shared by a plain
// binary expression and a compound-assignment's implicit operation.
func (c *Codegen) applyArith(op token.Kind, lhs, rhs llvm.Value, isFloat bool) llvm.Value {
	switch op {
	case token.PLUS, token.PLUS_ASSIGN:
		if isFloat {
			return c.builder.CreateFAdd(lhs, rhs, ".fadd")
		}
		return c.builder.CreateAdd(lhs, rhs, ".add")
	case token.MINUS, token.MINUS_ASSIGN:
		if isFloat {
			return c.builder.CreateFSub(lhs, rhs, ".fsub")
		}
		return c.builder.CreateSub(lhs, rhs, ".sub")
	case token.STAR, token.STAR_ASSIGN:
		if isFloat {
			return c.builder.CreateFMul(lhs, rhs, ".fmul")
		}
		return c.builder.CreateMul(lhs, rhs, ".mul")
	case token.SLASH, token.SLASH_ASSIGN:
		if isFloat {
			return c.builder.CreateFDiv(lhs, rhs, ".fdiv")
		}
		return c.builder.CreateSDiv(lhs, rhs, ".sdiv")
	case token.PERCENT, token.PERCENT_ASSIGN:
		if isFloat {
			return c.builder.CreateFRem(lhs, rhs, ".frem")
		}
		return c.builder.CreateSRem(lhs, rhs, ".srem")
	case token.SHL:
		return c.builder.CreateShl(lhs, rhs, ".shl")
	case token.SHR:
		return c.builder.CreateAShr(lhs, rhs, ".ashr")
	default:
		return lhs
	}
}

// generateComparison covers both the signed-integer and pointer EQ/NE
// cases with the same IntEQ/IntNE predicates: LLVM's icmp applies equally
// to integer and pointer operands.
func (c *Codegen) generateComparison(op token.Kind, lhs, rhs llvm.Value, isFloat bool) llvm.Value {
	if isFloat {
		switch op {
		case token.EQUAL_EQUAL:
			return c.builder.CreateFCmp(llvm.FloatOEQ, lhs, rhs, ".cmp")
		case token.BANG_EQUAL:
			return c.builder.CreateFCmp(llvm.FloatONE, lhs, rhs, ".cmp")
		case token.LESS:
			return c.builder.CreateFCmp(llvm.FloatOLT, lhs, rhs, ".cmp")
		case token.LESS_EQUAL:
			return c.builder.CreateFCmp(llvm.FloatOLE, lhs, rhs, ".cmp")
		case token.GREATER:
			return c.builder.CreateFCmp(llvm.FloatOGT, lhs, rhs, ".cmp")
		default:
			return c.builder.CreateFCmp(llvm.FloatOGE, lhs, rhs, ".cmp")
		}
	}
	switch op {
	case token.EQUAL_EQUAL:
		return c.builder.CreateICmp(llvm.IntEQ, lhs, rhs, ".cmp")
	case token.BANG_EQUAL:
		return c.builder.CreateICmp(llvm.IntNE, lhs, rhs, ".cmp")
	case token.LESS:
		return c.builder.CreateICmp(llvm.IntSLT, lhs, rhs, ".cmp")
	case token.LESS_EQUAL:
		return c.builder.CreateICmp(llvm.IntSLE, lhs, rhs, ".cmp")
	case token.GREATER:
		return c.builder.CreateICmp(llvm.IntSGT, lhs, rhs, ".cmp")
	default:
		return c.builder.CreateICmp(llvm.IntSGE, lhs, rhs, ".cmp")
	}
}

// generateCall resolves its callee by name, exactly as the original does
// with a direct function-table lookup bypassing generateIdent entirely.
// This is also why a constructor call needs no special-casing: sema binds
// a class's constructor symbol's Node to its *ast.ClassDecl rather than a
// *ast.FunctionDecl, so the type assertion below fails for it the same way
// it would fail for any other undeclared name.
func (c *Codegen) generateCall(mod *ast.Module, n *ast.Node, e *ast.CallExpr) llvm.Value {
	callee, ok := e.Callee.N.(*ast.IdentExpr)
	if !ok {
		c.report(n.Pos, mod.Name, "unsupported construct: call target does not lower to IR")
		return llvm.ConstNull(c.context.Int32Type())
	}
	sym, _ := callee.SemaSymbol.(*scope.Symbol)
	var fnDecl *ast.FunctionDecl
	if sym != nil {
		fnDecl, _ = sym.Node.(*ast.FunctionDecl)
	}
	if fnDecl == nil {
		for _, arg := range e.Args {
			c.generateExpr(mod, arg) // evaluated for side effects even though the call itself fails
		}
		c.report(n.Pos, mod.Name, "unknown function: %s", callee.Name)
		return llvm.ConstNull(c.context.Int32Type())
	}
	fn := c.functions[fnDecl]
	fnType := fnDecl.SemaType.(*sema.SemanticType)

	args := make([]llvm.Value, len(e.Args))
	for i, arg := range e.Args {
		v := c.generateExpr(mod, arg)
		if i >= len(fnType.Params) {
			v = c.promoteVariadicArg(v)
		}
		args[i] = v
	}
	callName := ""
	if !fnType.Return.IsVoid() {
		callName = ".call"
	}
	return c.builder.CreateCall(fn.Ty, fn.Fn, args, callName)
}

// promoteVariadicArg applies the C default-argument-promotion rules a
// foreign variadic callee expects: float -> double, bool (i1) -> i32 via
// zero-extend, and i8/i16 -> i32 always via sign-extend (the original
// applies this uniformly, with no unsigned distinction).
func (c *Codegen) promoteVariadicArg(v llvm.Value) llvm.Value {
	switch v.Type() {
	case c.context.FloatType():
		return c.builder.CreateFPExt(v, c.context.DoubleType(), ".f2d")
	case c.context.Int1Type():
		return c.builder.CreateZExt(v, c.context.Int32Type(), ".promote")
	case c.context.Int8Type(), c.context.Int16Type():
		return c.builder.CreateSExt(v, c.context.Int32Type(), ".promote")
	default:
		return v
	}
}

func (c *Codegen) generateAssign(mod *ast.Module, n *ast.Node, e *ast.AssignExpr) llvm.Value {
	ident := e.Target.N.(*ast.IdentExpr)
	v := c.resolveVariable(ident)
	if v == nil {
		c.report(n.Pos, mod.Name, "unknown variable: %s", ident.Name)
		return llvm.ConstNull(c.context.Int32Type())
	}
	value := c.generateExpr(mod, e.Value)
	valueTy := c.Sema.ExprTypes[e.Value]

	if e.Op != token.ASSIGN {
		current := c.builder.CreateLoad(v.Ty, v.Ptr, ".cur")
		targetTy := c.Sema.ExprTypes[e.Target]
		isFloat := targetTy != nil && targetTy.IsFloat()
		value = c.coerceTo(value, valueTy, v.Ty)
		value = c.applyArith(e.Op, current, value, isFloat)
	} else {
		value = c.coerceTo(value, valueTy, v.Ty)
	}
	c.builder.CreateStore(value, v.Ptr)
	return value
}

func (c *Codegen) generatePostfix(mod *ast.Module, e *ast.PostfixExpr) llvm.Value {
	ident := e.Operand.N.(*ast.IdentExpr)
	v := c.resolveVariable(ident)
	if v == nil {
		return llvm.ConstNull(c.context.Int32Type())
	}
	old := c.builder.CreateLoad(v.Ty, v.Ptr, ".old")
	ty := c.Sema.ExprTypes[e.Operand]
	isFloat := ty != nil && ty.IsFloat()

	var one, updated llvm.Value
	if isFloat {
		one = llvm.ConstFloat(v.Ty, 1)
		if e.Op == token.INCREMENT {
			updated = c.builder.CreateFAdd(old, one, ".postinc")
		} else {
			updated = c.builder.CreateFSub(old, one, ".postdec")
		}
	} else {
		one = llvm.ConstInt(v.Ty, 1, false)
		if e.Op == token.INCREMENT {
			updated = c.builder.CreateAdd(old, one, ".postinc")
		} else {
			updated = c.builder.CreateSub(old, one, ".postdec")
		}
	}
	c.builder.CreateStore(updated, v.Ptr)
	return old
}

// castLower implements the priority table shared by cast/try_cast/as: the
// same IR type is a no-op, bool widens by zero-extension (or zero-extend
// then signed-convert into a float), a numeric source narrows/widens/
// converts by its own category, and everything else (string, pointer,
// self, raw_va_list, any class/struct/enum value) falls into the
// "otherwise" bucket the three callers each handle differently. ok is
// false for that last bucket, for a nil fromTy, and for a bool or numeric
// source whose target is not a numeric IR type (e.g. i32 -> string).
func (c *Codegen) castLower(val llvm.Value, fromTy *sema.SemanticType, target llvm.Type) (llvm.Value, bool) {
	if val.Type() == target {
		return val, true
	}
	if target == c.context.Int1Type() {
		return c.boolValue(val, fromTy), true
	}
	if fromTy == nil {
		return val, false
	}
	isFloatTarget := target == c.context.FloatType() || target == c.context.DoubleType()
	isIntTarget := c.isIntegerIRType(target)
	switch {
	case fromTy.IsBoolean():
		if isFloatTarget {
			widened := c.builder.CreateZExt(val, c.context.Int32Type(), ".zext")
			return c.builder.CreateSIToFP(widened, target, ".sitofp"), true
		}
		if isIntTarget {
			return c.builder.CreateZExt(val, target, ".zext"), true
		}
		return val, false
	case fromTy.IsFloat():
		if isFloatTarget {
			if target == c.context.DoubleType() {
				return c.builder.CreateFPExt(val, target, ".fpext"), true
			}
			return c.builder.CreateFPTrunc(val, target, ".fptrunc"), true
		}
		if isIntTarget {
			return c.builder.CreateFPToSI(val, target, ".fptosi"), true
		}
		return val, false
	case fromTy.IsInteger():
		if isFloatTarget {
			return c.builder.CreateSIToFP(val, target, ".sitofp"), true
		}
		if isIntTarget {
			return c.coerceInt(val, target), true
		}
		return val, false
	default:
		return val, false
	}
}

// isIntegerIRType reports whether t is one of the fixed-width integer types
// getType ever produces, as opposed to an opaque pointer (string, class,
// struct, enum, raw_va_list) or a float type.
func (c *Codegen) isIntegerIRType(t llvm.Type) bool {
	switch t {
	case c.context.Int1Type(), c.context.Int8Type(), c.context.Int16Type(),
		c.context.Int32Type(), c.context.Int64Type():
		return true
	default:
		return false
	}
}

func (c *Codegen) coerceInt(v llvm.Value, target llvm.Type) llvm.Value {
	from := v.Type().IntTypeWidth()
	to := target.IntTypeWidth()
	switch {
	case to > from:
		return c.builder.CreateSExt(v, target, ".sext")
	case to < from:
		return c.builder.CreateTrunc(v, target, ".trunc")
	default:
		return v
	}
}

// coerceTo is the `as`-flavored wrapper around castLower: the "otherwise"
// bucket bitcasts rather than failing. It is also reused anywhere a value
// needs to be reconciled with a target IR type that isn't itself a user
// cast (binary-operand promotion, an initializer stored into a declared
// variable's slot, an assignment's right-hand side).
func (c *Codegen) coerceTo(val llvm.Value, fromTy *sema.SemanticType, target llvm.Type) llvm.Value {
	if r, ok := c.castLower(val, fromTy, target); ok {
		return r
	}
	if val.Type() == target {
		return val
	}
	return c.builder.CreateBitCast(val, target, ".bitcast")
}

func (c *Codegen) generateCast(mod *ast.Module, n *ast.Node, e *ast.CastExpr) llvm.Value {
	val := c.generateExpr(mod, e.Expr)
	fromTy := c.Sema.ExprTypes[e.Expr]
	target := c.getType(c.Sema.ExprTypes[n])
	if r, ok := c.castLower(val, fromTy, target); ok {
		return r
	}
	if e.Safe {
		return val
	}
	c.report(n.Pos, mod.Name, "unsupported construct: cast has no lowering from this type")
	return llvm.ConstNull(target)
}

func (c *Codegen) generateAs(mod *ast.Module, n *ast.Node, e *ast.AsExpr) llvm.Value {
	val := c.generateExpr(mod, e.Expr)
	fromTy := c.Sema.ExprTypes[e.Expr]
	target := c.getType(c.Sema.ExprTypes[n])
	return c.coerceTo(val, fromTy, target)
}
