package main

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	toks, err := NewLexer(src).Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := NewParser(toks).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	return prog
}

func TestAnalyzeValidProgram(t *testing.T) {
	prog := mustParse(t, "func main():\n  x: i32 = 1\n  y: i32 = x + 2\n  give\n")
	if err := NewAnalyzer().Analyze(prog); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
}

func TestAnalyzeUndefinedVariable(t *testing.T) {
	prog := mustParse(t, "func main():\n  x: i32 = y\n  give\n")
	err := NewAnalyzer().Analyze(prog)
	if err == nil || !strings.Contains(err.Error(), "undefined variable") {
		t.Fatalf("expected an undefined variable error, got %v", err)
	}
}

func TestAnalyzeTypeMismatchOnAssignment(t *testing.T) {
	prog := mustParse(t, "func main():\n  x: bool = True\n  x = 5\n  give\n")
	err := NewAnalyzer().Analyze(prog)
	if err == nil || !strings.Contains(err.Error(), "cannot assign") {
		t.Fatalf("expected a type mismatch error, got %v", err)
	}
}

func TestAnalyzeLiteralCoercionToDeclaredType(t *testing.T) {
	prog := mustParse(t, "func main():\n  x: u8 = 5\n  give\n")
	if err := NewAnalyzer().Analyze(prog); err != nil {
		t.Fatalf("expected literal 5 to coerce to u8, got %v", err)
	}
	decl := prog.Functions[0].Body.Statements[0].(*VarDecl)
	if decl.Value.Type() != TypeU8 {
		t.Fatalf("expected the literal's inferred type to be u8, got %s", decl.Value.Type())
	}
}

func TestAnalyzeBreakOutsideLoop(t *testing.T) {
	prog := mustParse(t, "func main():\n  break\n  give\n")
	err := NewAnalyzer().Analyze(prog)
	if err == nil || !strings.Contains(err.Error(), "break outside") {
		t.Fatalf("expected a break-outside-loop error, got %v", err)
	}
}

func TestAnalyzeMoreThanSixParametersNotImplemented(t *testing.T) {
	prog := mustParse(t, "func f(a: i32, b: i32, c: i32, d: i32, e: i32, g: i32, h: i32):\n  give\nfunc main():\n  give\n")
	err := NewAnalyzer().Analyze(prog)
	if err == nil || !strings.Contains(err.Error(), "not implemented") {
		t.Fatalf("expected a not-implemented error for the 7th parameter, got %v", err)
	}
}

func TestAnalyzePointerDerefNotImplemented(t *testing.T) {
	prog := mustParse(t, "func main():\n  p: ptr\n  x: i32 = *p\n  give\n")
	err := NewAnalyzer().Analyze(prog)
	if err == nil || !strings.Contains(err.Error(), "not implemented") {
		t.Fatalf("expected pointer dereference to be rejected as not implemented, got %v", err)
	}
}

func TestAnalyzeReadlnInfersTargetType(t *testing.T) {
	prog := mustParse(t, "func main():\n  x: i64 = readln()\n  give\n")
	if err := NewAnalyzer().Analyze(prog); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	decl := prog.Functions[0].Body.Statements[0].(*VarDecl)
	if decl.Value.Type() != TypeI64 {
		t.Fatalf("expected readln() to infer i64 from its target, got %s", decl.Value.Type())
	}
}

func TestAnalyzeReadcharRejectsStrTarget(t *testing.T) {
	prog := mustParse(t, "func main():\n  x: str = readchar()\n  give\n")
	err := NewAnalyzer().Analyze(prog)
	if err == nil || !strings.Contains(err.Error(), "readchar") {
		t.Fatalf("expected readchar()->str to be rejected, got %v", err)
	}
}

func TestAnalyzeDuplicateFunctionDefinition(t *testing.T) {
	prog := mustParse(t, "func main():\n  give\nfunc main():\n  give\n")
	err := NewAnalyzer().Analyze(prog)
	if err == nil || !strings.Contains(err.Error(), "duplicate function") {
		t.Fatalf("expected a duplicate function error, got %v", err)
	}
}
