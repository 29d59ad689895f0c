package main

import (
	"bytes"
	"strings"
	"testing"
)

func runScript(t *testing.T, src, stdin string) (string, int, error) {
	t.Helper()
	toks, err := NewLexer(src).Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := NewParser(toks).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	var out bytes.Buffer
	it := NewInterpreter(strings.NewReader(stdin), &out)
	code, err := it.Run(prog)
	return out.String(), code, err
}

func TestInterpWritelnAndArithmetic(t *testing.T) {
	out, _, err := runScript(t, "mode script\nx: i32 = 2 + 3\nwriteln x\n", "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "5\n" {
		t.Fatalf("got %q, want %q", out, "5\n")
	}
}

func TestInterpWhileLoopWithBreak(t *testing.T) {
	src := "mode script\n" +
		"i: i32 = 0\n" +
		"while i < 10:\n" +
		"  i = i + 1\n" +
		"  when i == 3:\n" +
		"    break\n" +
		"writeln i\n"
	out, _, err := runScript(t, src, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "3\n" {
		t.Fatalf("got %q, want %q", out, "3\n")
	}
}

func TestInterpFunctionCallNoParams(t *testing.T) {
	src := "mode script\n" +
		"func greet():\n" +
		"  writeln \"hi\"\n" +
		"greet()\n"
	out, _, err := runScript(t, src, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "hi\n" {
		t.Fatalf("got %q, want %q", out, "hi\n")
	}
}

func TestInterpFunctionCallWithArgsRejected(t *testing.T) {
	src := "mode script\n" +
		"func greet(name: str):\n" +
		"  writeln name\n" +
		"greet(\"x\")\n"
	_, _, err := runScript(t, src, "")
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("expected a not-supported error for parameterized script calls, got %v", err)
	}
}

func TestInterpCompileModeProgramRejected(t *testing.T) {
	src := "func main():\n  give\n"
	toks, err := NewLexer(src).Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := NewParser(toks).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram failed: %v", err)
	}
	it := NewInterpreter(strings.NewReader(""), &bytes.Buffer{})
	if _, err := it.Run(prog); err == nil {
		t.Fatal("expected the interpreter to reject a mode-compile program")
	}
}

func TestInterpReadlnFromStdin(t *testing.T) {
	out, _, err := runScript(t, "mode script\ns: str = readln()\nwriteln s\n", "hello\nworld\n")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "hello\n" {
		t.Fatalf("got %q, want %q", out, "hello\n")
	}
}

func TestInterpReadFailedOnEOF(t *testing.T) {
	src := "mode script\n" +
		"s: str = readln()\n" +
		"writeln read_failed()\n"
	out, _, err := runScript(t, src, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "True\n" {
		t.Fatalf("got %q, want %q", out, "True\n")
	}
}

func TestInterpBoolStringification(t *testing.T) {
	out, _, err := runScript(t, "mode script\nwriteln 1 == 1\nwriteln 1 == 2\n", "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "True\nFalse\n" {
		t.Fatalf("got %q, want %q", out, "True\nFalse\n")
	}
}
