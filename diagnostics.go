package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Phase identifies which pipeline stage raised a Diagnostic, following
// spec.md §7's error taxonomy.
type Phase int

const (
	PhaseLexical Phase = iota
	PhaseSyntactic
	PhaseSemantic
	PhaseEncoding
	PhaseRuntime
)

func (p Phase) String() string {
	switch p {
	case PhaseLexical:
		return "lexical error"
	case PhaseSyntactic:
		return "syntax error"
	case PhaseSemantic:
		return "semantic error"
	case PhaseEncoding:
		return "internal compiler error"
	default:
		return "error"
	}
}

// Diagnostic wraps a phase-tagged fatal error as it propagates out of
// the pipeline, mirroring xyproto-vibe67's errors.go severity/category
// split, generalized to axis's four compiler phases.
type Diagnostic struct {
	Phase Phase
	Cause error
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Phase, d.Cause)
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

// Wrap tags err with phase, preserving its chain for errors.Cause.
func Wrap(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return &Diagnostic{Phase: phase, Cause: errors.WithStack(err)}
}

// VerboseMode gates debugf's trace output (such as the relaxation
// non-convergence warning), as the teacher's emit.go/elf_complete.go
// gate their debug traces. The hex dump is gated by --no-hex instead.
var VerboseMode = false

// stderrIsTTY caches whether stderr supports ANSI color, queried once
// via golang.org/x/term the way db47h-ngaro's cmd/retro/term*.go probes
// the controlling terminal before deciding how to render output.
var stderrIsTTY = term.IsTerminal(int(os.Stderr.Fd()))

// Report prints exactly one fatal diagnostic line to stderr, colorized
// when attached to a terminal and --no-color/AXIS_NO_COLOR hasn't
// disabled it.
func Report(err error, noColor bool) {
	msg := err.Error()
	if stderrIsTTY && !noColor {
		fmt.Fprintf(os.Stderr, "\x1b[31m%s\x1b[0m\n", msg)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}

func debugf(format string, args ...interface{}) {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
