// Package config carries the small set of build-time knobs the compiler
// driver threads through the pipeline.
package config

// BuildType names the two build modes, RELEASE and DEBUG. No pipeline stage
// reads it and no CLI flag selects it, so both modes compile identically.
type BuildType int

const (
	RELEASE BuildType = iota
	DEBUG
)

func (bt BuildType) String() string {
	switch bt {
	case RELEASE:
		return "release"
	case DEBUG:
		return "debug"
	default:
		return "unknown"
	}
}

// ImplicitImports is prepended to every main module's own import list unless
// --no-stdlib was given, making the standard library's `io` module
// available without an explicit `import "io"`.
var ImplicitImports = []string{"io"}
