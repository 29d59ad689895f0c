package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// compileAndRun lexes, parses, analyzes, and code-generates a compile-mode
// axis program, links it into a freestanding ELF64 executable, runs it,
// and returns its combined stdout+stderr, mirroring
// xyproto-vibe67/run.go's compileAndRun helper.
func compileAndRun(t *testing.T, source string) string {
	t.Helper()
	return compileAndRunWithInput(t, source, "")
}

// compileAndRunWithInput is compileAndRun with stdin wired to a fixed
// string, for exercising read()/readln()/readchar().
func compileAndRunWithInput(t *testing.T, source, stdin string) string {
	t.Helper()

	toks, err := NewLexer(source).Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := NewParser(toks).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	if err := NewAnalyzer().Analyze(prog); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	cg := NewCodegen()
	asm, err := cg.Compile(prog)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	exe, err := BuildExecutable(asm, cg.StringTable(), cg.NeedsReadFailedFlag())
	if err != nil {
		t.Fatalf("BuildExecutable failed: %v", err)
	}

	tmpDir := t.TempDir()
	exePath := filepath.Join(tmpDir, "test")
	if err := WriteExecutable(exePath, exe); err != nil {
		t.Fatalf("WriteExecutable failed: %v", err)
	}

	cmd := exec.Command(exePath)
	cmd.Env = os.Environ()
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			// A non-zero exit is a normal program result, not a harness
			// failure.
			return string(out)
		}
		t.Fatalf("execution failed: %v\noutput: %s", err, out)
	}
	return string(out)
}
