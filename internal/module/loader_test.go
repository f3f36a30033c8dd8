package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Pang-HQ/Pangea/internal/diagnostics"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoaderResolvesAndOrdersImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.pang", `fn helper() -> i32 { return 1 }`)
	mainPath := writeFile(t, dir, "main.pang", "import \"util\"\nfn main() -> i32 { return helper() }")

	col := diagnostics.New()
	loader := NewLoader(col, nil)
	program, err := loader.LoadProgram(mainPath, nil)
	if err != nil {
		t.Fatalf("LoadProgram: %v, diags: %+v", err, col.Diags)
	}
	if len(program.Modules) != 1 || program.Modules[0].Name != "util" {
		t.Fatalf("want [util] loaded before main, got %+v", program.Modules)
	}
	if program.Main.Name != "main" {
		t.Fatalf("want main module, got %+v", program.Main)
	}
}

func TestLoaderCircularImportDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pang", "import \"b\"\nfn fa() -> i32 { return 0 }")
	bPath := writeFile(t, dir, "b.pang", "import \"a\"\nfn fb() -> i32 { return 0 }")

	col := diagnostics.New()
	loader := NewLoader(col, nil)
	_, err := loader.LoadProgram(bPath, nil)
	if err == nil {
		t.Fatalf("want circular dependency error")
	}
	if col.ErrorCount() != 1 {
		t.Fatalf("want exactly one error, got %d: %+v", col.ErrorCount(), col.Diags)
	}
}

func TestLoaderFileNotFound(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeFile(t, dir, "main.pang", "import \"nope\"\nfn main() -> i32 { return 0 }")

	col := diagnostics.New()
	loader := NewLoader(col, nil)
	_, err := loader.LoadProgram(mainPath, nil)
	if err == nil {
		t.Fatalf("want file-not-found error")
	}
}
