// Package diagnostics collects and renders compiler messages.
package diagnostics

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/Pang-HQ/Pangea/internal/token"
)

// COMPILER_ERROR_FOUND is returned by parsing/analysis helpers after they have
// already reported a diagnostic to a Collector, so callers can propagate failure
// without constructing a second error value.
var COMPILER_ERROR_FOUND = errors.New("compiler error found")

// Severity is the level a Diag is reported at.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func (s Severity) color() *color.Color {
	switch s {
	case Info:
		return color.New(color.FgCyan)
	case Warning:
		return color.New(color.FgYellow, color.Bold)
	case Error:
		return color.New(color.FgRed, color.Bold)
	case Fatal:
		return color.New(color.FgHiRed, color.Bold)
	default:
		return color.New()
	}
}

// ColorPolicy is the tri-state controlling whether Collector.Print emits ANSI
// escapes: Always, Auto (enabled iff the destination is a terminal), Never.
type ColorPolicy int

const (
	ColorAuto ColorPolicy = iota
	ColorAlways
	ColorNever
)

// ParseColorPolicy validates a --color flag value.
func ParseColorPolicy(s string) (ColorPolicy, error) {
	switch s {
	case "always":
		return ColorAlways, nil
	case "auto":
		return ColorAuto, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid --color value %q: must be always, auto, or never", s)
	}
}

func (p ColorPolicy) enabledFor(w io.Writer) bool {
	switch p {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		return term.IsTerminal(int(f.Fd()))
	}
}

// Diag is a single reported message.
type Diag struct {
	Severity Severity
	Pos      token.Pos
	Message  string
	// Lexeme, when non-empty, sets the underline width under the snippet to
	// max(1, len(Lexeme)) instead of 1.
	Lexeme string
	// Source is the full text of the file the diagnostic points into, used to
	// render the three-line context snippet. May be empty if unavailable.
	Source string
}

// Collector accumulates Diags in insertion order and renders them.
type Collector struct {
	Diags []Diag
}

func New() *Collector {
	return &Collector{}
}

// Report appends a Diag without any side effect beyond storing it.
func (c *Collector) Report(d Diag) {
	c.Diags = append(c.Diags, d)
}

// ReportAndSave is the Collector method the parser reports through (the
// other stages call Report directly): store the diagnostic and hand back the sentinel
// error so the caller can short-circuit with `return nil, diagnostics.COMPILER_ERROR_FOUND`.
func (c *Collector) ReportAndSave(d Diag) error {
	c.Report(d)
	return COMPILER_ERROR_FOUND
}

func (c *Collector) HasErrors() bool {
	for _, d := range c.Diags {
		if d.Severity == Error || d.Severity == Fatal {
			return true
		}
	}
	return false
}

func (c *Collector) ErrorCount() int {
	n := 0
	for _, d := range c.Diags {
		if d.Severity == Error || d.Severity == Fatal {
			n++
		}
	}
	return n
}

func (c *Collector) WarningCount() int {
	n := 0
	for _, d := range c.Diags {
		if d.Severity == Warning {
			n++
		}
	}
	return n
}

// Print renders every Diag to w under the given color policy, one message per
// issue, each terminated by a blank line.
func (c *Collector) Print(w io.Writer, policy ColorPolicy) {
	colorOn := policy.enabledFor(w)
	for _, d := range c.Diags {
		c.printOne(w, d, colorOn)
		fmt.Fprintln(w)
	}
}

func (c *Collector) printOne(w io.Writer, d Diag, colorOn bool) {
	label := d.Severity.String()
	if colorOn {
		label = d.Severity.color().Sprint(label)
	}
	fmt.Fprintf(w, "%s: %s\n", label, d.Message)
	fmt.Fprintf(w, "--> %s:%d:%d\n", d.Pos.Filename, d.Pos.Line, d.Pos.Column)

	line, ok := sourceLine(d.Source, d.Pos.Line)
	if !ok {
		return
	}
	width := 1
	if n := len(d.Lexeme); n > width {
		width = n
	}
	fmt.Fprintf(w, "%5d | %s\n", d.Pos.Line, line)
	underline := strings.Repeat(" ", d.Pos.Column-1) + "^" + strings.Repeat("~", width-1)
	if colorOn {
		underline = d.Severity.color().Sprint(underline)
	}
	fmt.Fprintf(w, "      | %s\n", underline)
}

func sourceLine(src string, lineNo int) (string, bool) {
	if src == "" || lineNo < 1 {
		return "", false
	}
	scanner := bufio.NewScanner(strings.NewReader(src))
	for n := 1; scanner.Scan(); n++ {
		if n == lineNo {
			return scanner.Text(), true
		}
	}
	return "", false
}
