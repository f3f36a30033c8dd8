package llvm

import (
	"strings"
	"testing"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/lexer"
	"github.com/Pang-HQ/Pangea/internal/parser"
	"github.com/Pang-HQ/Pangea/internal/sema"
)

// compile parses, type-checks, and lowers src, returning the rendered IR
// module and the diagnostics collector.
func compile(t *testing.T, name, src string) (string, *diagnostics.Collector) {
	t.Helper()
	col := diagnostics.New()
	lx := lexer.New(name+".pang", []byte(src), col)
	mod, err := parser.ParseModule(lx, col, src, name, name+".pang")
	if err != nil {
		t.Fatalf("parse error: %v, diags: %+v", err, col.Diags)
	}
	mod.IsMain = true
	prog := &ast.Program{Main: mod}

	s := sema.New(col, map[string]string{name: src})
	if err := s.Check(prog); err != nil {
		t.Fatalf("sema error: %v, diags: %+v", err, col.Diags)
	}

	cg := New(name, col, s)
	if err := cg.Generate(prog); err != nil {
		t.Fatalf("codegen error: %v, diags: %+v", err, col.Diags)
	}
	return cg.Module().String(), col
}

func TestCodegenHelloWorldDeclaresVariadicPrintf(t *testing.T) {
	ir, col := compile(t, "main", `
foreign fn printf(fmt: string, args: raw_va_list) -> i32

fn main() -> i32 {
	printf("Hello, %d\n", 42)
	return 0
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if !strings.Contains(ir, "declare") || !strings.Contains(ir, "printf") {
		t.Fatalf("expected a printf declaration in IR, got:\n%s", ir)
	}
	if !strings.Contains(ir, "define") || !strings.Contains(ir, "@main") {
		t.Fatalf("expected a main definition in IR, got:\n%s", ir)
	}
}

func TestCodegenIfElseBothArmsReturn(t *testing.T) {
	ir, col := compile(t, "main", `
fn classify(x: i32) -> i32 {
	if x > 0 {
		return 1
	} else {
		return -1
	}
}

fn main() -> i32 {
	return classify(5)
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if !strings.Contains(ir, "icmp sgt") {
		t.Fatalf("expected a signed greater-than compare, got:\n%s", ir)
	}
}

func TestCodegenWhileLoop(t *testing.T) {
	ir, col := compile(t, "main", `
fn sum(n: i32) -> i32 {
	let mut total: i32 = 0
	let mut i: i32 = 0
	while i < n {
		total += i
		i = i + 1
	}
	return total
}

fn main() -> i32 {
	return sum(10)
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if !strings.Contains(ir, "br ") {
		t.Fatalf("expected branch instructions for the while loop, got:\n%s", ir)
	}
}

func TestCodegenFloatIntPromotion(t *testing.T) {
	ir, col := compile(t, "main", `
fn avg(a: i32, b: f64) -> f64 {
	return a + b
}

fn main() -> i32 {
	avg(1, 2.5)
	return 0
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if !strings.Contains(ir, "sitofp") {
		t.Fatalf("expected an int-to-float conversion for mixed arithmetic, got:\n%s", ir)
	}
}

func TestCodegenClassDeclarationEmitsNoStructType(t *testing.T) {
	ir, col := compile(t, "main", `
class Point {
	let x: i32
	let y: i32

	Point(x: i32, y: i32) -> self {
		return
	}
}

fn main() -> i32 {
	return 0
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if strings.Contains(ir, "%Point") || strings.Contains(ir, "Point.Point") {
		t.Fatalf("expected no struct type or constructor function in IR, got:\n%s", ir)
	}
}

func TestCodegenConstructorCallReportsUnknownFunction(t *testing.T) {
	name, src := "main", `
class Point {
	let x: i32
	let y: i32

	Point(x: i32, y: i32) -> self {
		return
	}
}

fn main() -> i32 {
	let p: Point = Point(1, 2)
	return 0
}
`
	col := diagnostics.New()
	lx := lexer.New(name+".pang", []byte(src), col)
	mod, err := parser.ParseModule(lx, col, src, name, name+".pang")
	if err != nil {
		t.Fatalf("parse error: %v, diags: %+v", err, col.Diags)
	}
	mod.IsMain = true
	prog := &ast.Program{Main: mod}

	s := sema.New(col, map[string]string{name: src})
	if err := s.Check(prog); err != nil {
		t.Fatalf("unexpected sema error: %v, diags: %+v", err, col.Diags)
	}

	cg := New(name, col, s)
	_ = cg.Generate(prog) // expected to fail: a constructor call has no declared function

	found := false
	for _, d := range col.Diags {
		if strings.Contains(d.Message, "unknown function") {
			found = true
		}
	}
	if !found {
		t.Fatalf("want an unknown-function diagnostic for the constructor call, got %+v", col.Diags)
	}
}

func TestCodegenCastToStringReportsUnsupported(t *testing.T) {
	name, src := "main", `
fn main() -> i32 {
	let s: string = cast<string>(65)
	return 0
}
`
	col := diagnostics.New()
	lx := lexer.New(name+".pang", []byte(src), col)
	mod, err := parser.ParseModule(lx, col, src, name, name+".pang")
	if err != nil {
		t.Fatalf("parse error: %v, diags: %+v", err, col.Diags)
	}
	mod.IsMain = true
	prog := &ast.Program{Main: mod}

	s := sema.New(col, map[string]string{name: src})
	if err := s.Check(prog); err != nil {
		t.Fatalf("unexpected sema error: %v, diags: %+v", err, col.Diags)
	}

	cg := New(name, col, s)
	_ = cg.Generate(prog) // expected to fail: no numeric-to-string lowering exists

	found := false
	for _, d := range col.Diags {
		if strings.Contains(d.Message, "unsupported construct") {
			found = true
		}
	}
	if !found {
		t.Fatalf("want an unsupported-construct diagnostic for cast<string>, got %+v", col.Diags)
	}
}

func TestCodegenTryCastToStringReturnsSourceUnchanged(t *testing.T) {
	ir, col := compile(t, "main", `
fn main() -> i32 {
	let n: i32 = 65
	let s: string = try_cast<string>(n)
	return 0
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if strings.Contains(ir, "sext") || strings.Contains(ir, "trunc") || strings.Contains(ir, "sitofp") || strings.Contains(ir, "fptosi") {
		t.Fatalf("expected try_cast<string> to pass the source value through untouched, got:\n%s", ir)
	}
}

func TestCodegenAsStringBitcasts(t *testing.T) {
	ir, col := compile(t, "main", `
fn main() -> i32 {
	let n: i32 = 65
	let s: string = n as string
	return 0
}
`)
	if col.HasErrors() {
		t.Fatalf("unexpected errors: %+v", col.Diags)
	}
	if !strings.Contains(ir, "bitcast") {
		t.Fatalf("expected an `as string` conversion to bitcast, got:\n%s", ir)
	}
}

func TestCodegenForLoopReportsUnsupported(t *testing.T) {
	name, src := "main", `
fn main() -> i32 {
	let n: i32 = 3
	for x in n {
		return 0
	}
	return 1
}
`
	col := diagnostics.New()
	lx := lexer.New(name+".pang", []byte(src), col)
	mod, err := parser.ParseModule(lx, col, src, name, name+".pang")
	if err != nil {
		t.Fatalf("parse error: %v, diags: %+v", err, col.Diags)
	}
	mod.IsMain = true
	prog := &ast.Program{Main: mod}

	s := sema.New(col, map[string]string{name: src})
	if err := s.Check(prog); err != nil {
		t.Fatalf("unexpected sema error: %v, diags: %+v", err, col.Diags)
	}

	cg := New(name, col, s)
	_ = cg.Generate(prog) // expected to fail: for-loops are not lowered

	found := false
	for _, d := range col.Diags {
		if strings.Contains(d.Message, "unsupported construct") {
			found = true
		}
	}
	if !found {
		t.Fatalf("want an unsupported-construct diagnostic for the for-loop, got %+v", col.Diags)
	}
}
