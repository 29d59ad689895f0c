package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Pipeline wires the six compiler stages together, matching
// original_source/compilation_pipeline.py's CompilationPipeline but
// restructured around the teacher's package-level function style
// rather than a stateful class: lex -> parse -> analyze -> generate ->
// assemble -> emit, or -> interpret for script mode.
type Pipeline struct {
	Verbose bool
	NoHex   bool
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{Verbose: cfg.Verbose, NoHex: cfg.NoHex}
}

func (p *Pipeline) log(format string, a ...interface{}) {
	if p.Verbose {
		fmt.Fprintf(os.Stderr, "[pipeline] "+format+"\n", a...)
	}
}

// parseSource runs lexing and parsing only, used both for mode detection and
// as the first two stages of a full compile.
func parseSource(source string) (*Program, error) {
	toks, err := NewLexer(source).Lex()
	if err != nil {
		return nil, Wrap(PhaseLexical, err)
	}
	prog, err := NewParser(toks).ParseProgram()
	if err != nil {
		return nil, Wrap(PhaseSyntactic, err)
	}
	return prog, nil
}

// RunScript interprets a script-mode program, writing its output to
// stdout and reading input from stdin.
func (p *Pipeline) RunScript(prog *Program) (int, error) {
	it := NewInterpreter(os.Stdin, os.Stdout)
	code, err := it.Run(prog)
	if err != nil {
		return 1, Wrap(PhaseRuntime, err)
	}
	return code, nil
}

// CompileToExecutable runs analysis, code generation, assembly, and ELF
// emission, writing the result to outPath.
func (p *Pipeline) CompileToExecutable(prog *Program, outPath string) error {
	if prog.ScriptMode {
		return errors.New("pipeline: cannot compile a script-mode program to an executable")
	}

	p.log("analyzing %d functions", len(prog.Functions))
	if err := NewAnalyzer().Analyze(prog); err != nil {
		return Wrap(PhaseSemantic, err)
	}

	p.log("generating code")
	cg := NewCodegen()
	asm, err := cg.Compile(prog)
	if err != nil {
		return err
	}
	if p.Verbose {
		fmt.Fprintln(os.Stderr, "--- generated assembly ---")
		fmt.Fprint(os.Stderr, asm)
		fmt.Fprintln(os.Stderr, "--- end assembly ---")
	}

	p.log("assembling and linking ELF64 executable")
	exe, err := BuildExecutable(asm, cg.StringTable(), cg.NeedsReadFailedFlag())
	if err != nil {
		return err
	}

	if !p.NoHex {
		dumpHex(exe)
	}

	if err := WriteExecutable(outPath, exe); err != nil {
		return Wrap(PhaseEncoding, err)
	}
	p.log("wrote %d bytes to %s", len(exe), outPath)
	return nil
}

// dumpHex prints the whole executable image 16 bytes to a row, matching
// original_source/compilation_pipeline.py's hex dump (gated by --no-hex
// rather than --verbose, since it's useful independently of trace
// logging).
func dumpHex(data []byte) {
	fmt.Fprintln(os.Stderr, "=== machine code (hex) ===")
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		for _, b := range data[i:end] {
			fmt.Fprintf(os.Stderr, "%02X ", b)
		}
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintf(os.Stderr, "total: %d bytes\n", len(data))
}
