package sema

import (
	"testing"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/lexer"
	"github.com/Pang-HQ/Pangea/internal/parser"
)

func checkSrc(t *testing.T, name, src string) *diagnostics.Collector {
	t.Helper()
	col := diagnostics.New()
	lx := lexer.New(name+".pang", []byte(src), col)
	mod, err := parser.ParseModule(lx, col, src, name, name+".pang")
	if err != nil {
		t.Fatalf("parse error: %v, diags: %+v", err, col.Diags)
	}
	mod.IsMain = true
	prog := &ast.Program{Main: mod}
	s := New(col, map[string]string{name: src})
	s.Check(prog)
	return col
}

func TestSemaHelloWorldNoErrors(t *testing.T) {
	col := checkSrc(t, "main", `
foreign fn printf(fmt: string, args: raw_va_list) -> i32

fn main() -> i32 {
	printf("Hello, %d\n", 42)
	return 0
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
}

func TestSemaImmutableAssignmentIsError(t *testing.T) {
	col := checkSrc(t, "main", `
fn main() -> i32 {
	let x: i32 = 1
	x = 2
	return 0
}
`)
	if col.ErrorCount() != 1 {
		t.Fatalf("want exactly one error, got %d: %+v", col.ErrorCount(), col.Diags)
	}
	found := false
	for _, d := range col.Diags {
		if d.Message == "Cannot assign to immutable variable: x" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want immutable-assignment diagnostic, got %+v", col.Diags)
	}
}

func TestSemaMutableAssignmentIsFine(t *testing.T) {
	col := checkSrc(t, "main", `
fn main() -> i32 {
	let mut x: i32 = 1
	x = 2
	return x
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
}

func TestSemaUndefinedIdentifier(t *testing.T) {
	col := checkSrc(t, "main", `
fn main() -> i32 {
	return y
}
`)
	if col.ErrorCount() != 1 {
		t.Fatalf("want exactly one error, got %d: %+v", col.ErrorCount(), col.Diags)
	}
}

func TestSemaCommonNumericTypePromotesToFloat(t *testing.T) {
	col := checkSrc(t, "main", `
fn main() -> f64 {
	let a: i32 = 1
	let b: f64 = 2.0
	return a + b
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
}

func TestSemaReturnTypeMismatch(t *testing.T) {
	col := checkSrc(t, "main", `
fn f() -> bool {
	return 1
}
`)
	if col.ErrorCount() == 0 {
		t.Fatalf("want a return-type-mismatch error")
	}
}

func TestSemaWhileConditionMustBeBoolean(t *testing.T) {
	col := checkSrc(t, "main", `
fn main() -> i32 {
	let s: string = "x"
	while s {
		return 0
	}
	return 1
}
`)
	if col.ErrorCount() == 0 {
		t.Fatalf("want a condition-type error for a string while-condition")
	}
}

func TestCommonNumericTypeSymmetricAndIdempotent(t *testing.T) {
	i32 := Primitive("i32")
	f64 := Primitive("f64")
	if !CommonNumericType(i32, f64).Equals(CommonNumericType(f64, i32)) {
		t.Fatalf("common(a,b) must equal common(b,a)")
	}
	if !CommonNumericType(i32, i32).Equals(i32) {
		t.Fatalf("common(a,a) must equal a")
	}
	if !CommonNumericType(i32, f64).Equals(f64) {
		t.Fatalf("float must dominate integer")
	}
}
