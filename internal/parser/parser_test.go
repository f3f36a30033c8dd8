package parser

import (
	"testing"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/lexer"
	"github.com/Pang-HQ/Pangea/internal/token"
)

func parseSrc(t *testing.T, src string) (*ast.Module, *diagnostics.Collector) {
	t.Helper()
	col := diagnostics.New()
	lx := lexer.New("test.pang", []byte(src), col)
	mod, err := ParseModule(lx, col, src, "test", "test.pang")
	if err != nil {
		t.Fatalf("ParseModule returned error: %v", err)
	}
	return mod, col
}

func TestParserHelloWorld(t *testing.T) {
	src := `fn main() -> i32 { printf("Hello\n") return 0 }`
	mod, col := parseSrc(t, src)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if len(mod.Decls) != 1 {
		t.Fatalf("want 1 decl, got %d", len(mod.Decls))
	}
	fn, ok := mod.Decls[0].N.(*ast.FunctionDecl)
	if !ok || fn.Name != "main" {
		t.Fatalf("want main function decl, got %+v", mod.Decls[0])
	}
	block := fn.Body.N.(*ast.BlockStmt)
	if len(block.Statements) != 2 {
		t.Fatalf("want 2 statements, got %d", len(block.Statements))
	}
}

func TestParserPrecedence(t *testing.T) {
	// a + b * c  ==  a + (b * c)
	mod, col := parseSrc(t, `fn f() -> i32 { return a + b * c }`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	fn := mod.Decls[0].N.(*ast.FunctionDecl)
	ret := fn.Body.N.(*ast.BlockStmt).Statements[0].N.(*ast.ReturnStmt)
	bin := ret.Value.N.(*ast.BinaryExpr)
	if bin.Op != token.PLUS {
		t.Fatalf("want top-level +, got %v", bin.Op)
	}
	rightBin, ok := bin.Right.N.(*ast.BinaryExpr)
	if !ok || rightBin.Op != token.STAR {
		t.Fatalf("want right side to be b * c, got %+v", bin.Right)
	}
}

func TestParserPowerRightAssociative(t *testing.T) {
	mod, col := parseSrc(t, `fn f() -> i32 { return a ** b ** c }`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	fn := mod.Decls[0].N.(*ast.FunctionDecl)
	ret := fn.Body.N.(*ast.BlockStmt).Statements[0].N.(*ast.ReturnStmt)
	bin := ret.Value.N.(*ast.BinaryExpr)
	if bin.Op != token.POWER {
		t.Fatalf("want top-level **, got %v", bin.Op)
	}
	if _, ok := bin.Right.N.(*ast.BinaryExpr); !ok {
		t.Fatalf("want right-associative nesting, got %+v", bin.Right)
	}
	if _, ok := bin.Left.N.(*ast.BinaryExpr); ok {
		t.Fatalf("left side must not be a nested binary for right-associativity")
	}
}

func TestParserAssignmentRightAssociative(t *testing.T) {
	mod, col := parseSrc(t, `fn f() -> i32 { a = b = c return 0 }`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	fn := mod.Decls[0].N.(*ast.FunctionDecl)
	exprStmt := fn.Body.N.(*ast.BlockStmt).Statements[0].N.(*ast.ExprStmt)
	assign := exprStmt.Expr.N.(*ast.AssignExpr)
	if _, ok := assign.Value.N.(*ast.AssignExpr); !ok {
		t.Fatalf("want nested assignment on the right, got %+v", assign.Value)
	}
}

func TestParserImmutableWriteParsesFine(t *testing.T) {
	// Mutability is a semantic check, not syntactic; the parser must accept this.
	_, col := parseSrc(t, `fn main() -> i32 { let x: i32 = 1; x = 2; return 0 }`)
	if col.HasErrors() {
		t.Fatalf("unexpected parse errors: %+v", col.Diags)
	}
}

func TestParserCircularImportSyntax(t *testing.T) {
	_, col := parseSrc(t, `import "b"`+"\n"+`fn main() -> i32 { return 0 }`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
}

func TestParserClassWithConstructorAndMethod(t *testing.T) {
	src := `
class Point {
	let x: i32
	let y: i32

	Point(x: i32, y: i32) -> self {
		return
	}

	fn sum() -> i32 {
		return x + y
	}
}
`
	mod, col := parseSrc(t, src)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	cls := mod.Decls[0].N.(*ast.ClassDecl)
	if cls.Name != "Point" || len(cls.Members) != 4 {
		t.Fatalf("unexpected class shape: %+v", cls)
	}
}
