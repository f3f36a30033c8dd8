// Command pangea compiles a single Pangea source file to a native binary.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Pang-HQ/Pangea/internal/ast"
	"github.com/Pang-HQ/Pangea/internal/codegen/llvm"
	"github.com/Pang-HQ/Pangea/internal/config"
	"github.com/Pang-HQ/Pangea/internal/diagnostics"
	"github.com/Pang-HQ/Pangea/internal/lexer"
	"github.com/Pang-HQ/Pangea/internal/module"
	"github.com/Pang-HQ/Pangea/internal/sema"
)

// options holds every flag the root command accepts, bound directly rather
// than read back through cmd.Flags().Get* at RunE time.
type options struct {
	Output     string
	Verbose    bool
	Color      string
	EmitLLVM   bool
	EmitTokens bool
	EmitAST    bool
	NoStdlib   bool
	NoBuiltins bool
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "pangea <input-file>",
		Short: "Compile a Pangea source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0])
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVarP(&opts.Output, "output", "o", "a.exe", "output binary path")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "print each pipeline stage as it runs")
	flags.StringVar(&opts.Color, "color", "auto", "diagnostic color policy: always, auto, never")
	flags.BoolVar(&opts.EmitLLVM, "llvm", false, "print the generated LLVM IR instead of emitting a binary")
	flags.BoolVar(&opts.EmitTokens, "tokens", false, "print the lexed token stream and stop")
	flags.BoolVar(&opts.EmitAST, "ast", false, "print the parsed declaration tree and stop")
	flags.BoolVar(&opts.NoStdlib, "no-stdlib", false, "do not implicitly import the standard library")
	flags.BoolVar(&opts.NoBuiltins, "no-builtins", false, "do not recognize the printf-family foreign functions")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts *options, inputFile string) error {
	col := diagnostics.New()
	colorPolicy, err := diagnostics.ParseColorPolicy(opts.Color)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	defer func() {
		col.Print(os.Stderr, colorPolicy)
	}()

	if opts.EmitTokens {
		return runTokens(col, inputFile)
	}

	moduleName := moduleNameFromPath(inputFile)

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "pangea: loading %s\n", inputFile)
	}

	implicit := config.ImplicitImports
	if opts.NoStdlib {
		implicit = nil
	}
	searchRoots := []string{filepath.Dir(inputFile)}
	loader := module.NewLoader(col, searchRoots)
	program, err := loader.LoadProgram(inputFile, implicit)
	if err != nil || col.HasErrors() {
		return firstError(err)
	}

	if opts.EmitAST {
		dumpProgram(os.Stdout, program)
		return nil
	}

	sources, err := readSources(program)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if opts.Verbose {
		fmt.Fprintln(os.Stderr, "pangea: type-checking")
	}
	s := sema.New(col, sources)
	if opts.NoBuiltins {
		s.SetBuiltins(map[string]bool{})
	}
	if err := s.Check(program); err != nil || col.HasErrors() {
		return firstError(err)
	}

	if opts.Verbose {
		fmt.Fprintln(os.Stderr, "pangea: lowering to LLVM IR")
	}
	cg := llvm.New(moduleName, col, s)
	if err := cg.Generate(program); err != nil || col.HasErrors() {
		return firstError(err)
	}

	if opts.EmitLLVM {
		fmt.Println(cg.Module().String())
		return nil
	}

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "pangea: emitting %s\n", opts.Output)
	}
	return emitBinary(cg, opts.Output, opts.Verbose)
}

func firstError(err error) error {
	if err != nil {
		return err
	}
	return diagnostics.COMPILER_ERROR_FOUND
}

func moduleNameFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

func readSources(program *ast.Program) (map[string]string, error) {
	sources := make(map[string]string, len(program.Modules)+1)
	mods := append(append([]*ast.Module{}, program.Modules...), program.Main)
	for _, mod := range mods {
		src, err := os.ReadFile(mod.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", mod.Path, err)
		}
		sources[mod.Name] = string(src)
	}
	return sources, nil
}

func runTokens(col *diagnostics.Collector, inputFile string) error {
	src, err := os.ReadFile(inputFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	lx := lexer.New(inputFile, src, col)
	for _, tok := range lx.Tokenize() {
		fmt.Printf("%-20s %-12q %s\n", tok.Kind, tok.Lexeme, tok.Pos)
	}
	return nil
}

// dumpProgram prints each module's top-level declarations in source order,
// one line per declaration naming its kind and identifier.
func dumpProgram(w *os.File, program *ast.Program) {
	mods := append(append([]*ast.Module{}, program.Modules...), program.Main)
	for _, mod := range mods {
		fmt.Fprintf(w, "module %s (%s)\n", mod.Name, mod.Path)
		for _, decl := range mod.Decls {
			fmt.Fprintf(w, "  %s %s\n", decl.String(), declName(decl))
		}
	}
}

func declName(n *ast.Node) string {
	switch d := n.N.(type) {
	case *ast.FunctionDecl:
		return d.Name
	case *ast.VariableDecl:
		return d.Name
	case *ast.ClassDecl:
		return d.Name
	case *ast.StructDecl:
		return d.Name
	case *ast.EnumDecl:
		return d.Name
	default:
		return ""
	}
}

// emitBinary writes the module's IR to a temp file and shells out to opt and
// clang to produce a native binary, mirroring the toolchain every Pangea
// build depends on rather than linking against it directly.
func emitBinary(cg *llvm.Codegen, output string, verbose bool) error {
	dir, err := os.MkdirTemp("", "pangea")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	irPath := filepath.Join(dir, "module.ll")
	optPath := filepath.Join(dir, "module.opt.ll")
	if err := os.WriteFile(irPath, []byte(cg.Module().String()), 0o644); err != nil {
		return err
	}

	optCmd := exec.Command("opt", "-O0", "-S", "-o", optPath, irPath)
	if verbose {
		optCmd.Stderr = os.Stderr
		optCmd.Stdout = os.Stderr
	}
	if err := optCmd.Run(); err != nil {
		return fmt.Errorf("opt: %w", err)
	}

	clangCmd := exec.Command("clang-18", "-O0", "-o", output, optPath)
	if verbose {
		clangCmd.Stderr = os.Stderr
		clangCmd.Stdout = os.Stderr
	}
	if err := clangCmd.Run(); err != nil {
		return fmt.Errorf("clang: %w", err)
	}
	return nil
}
