package main

import (
	"os/exec"
	"testing"
)

func TestE2EHelloWorld(t *testing.T) {
	out := compileAndRun(t, "func main() -> i32:\n  writeln \"Hello, World!\"\n  give 0\n")
	if out != "Hello, World!\n" {
		t.Fatalf("got %q, want %q", out, "Hello, World!\n")
	}
}

func TestE2EArithmeticAndWhen(t *testing.T) {
	src := "func main() -> i32:\n" +
		"  x: i32 = 7\n" +
		"  y: i32 = 3\n" +
		"  when x % y == 1:\n" +
		"    writeln \"one\"\n" +
		"  else:\n" +
		"    writeln \"other\"\n" +
		"  give 0\n"
	out := compileAndRun(t, src)
	if out != "one\n" {
		t.Fatalf("got %q, want %q", out, "one\n")
	}
}

func TestE2EFunctionCallWithParams(t *testing.T) {
	src := "func add(a: i32, b: i32) -> i32:\n" +
		"  give a + b\n" +
		"func main() -> i32:\n" +
		"  writeln add(20, 22)\n" +
		"  give 0\n"
	out := compileAndRun(t, src)
	if out != "42\n" {
		t.Fatalf("got %q, want %q", out, "42\n")
	}
}

func TestE2EWhileLoopSum(t *testing.T) {
	src := "func main() -> i32:\n" +
		"  i: i32 = 0\n" +
		"  total: i32 = 0\n" +
		"  while i < 5:\n" +
		"    total = total + i\n" +
		"    i = i + 1\n" +
		"  writeln total\n" +
		"  give 0\n"
	out := compileAndRun(t, src)
	if out != "10\n" {
		t.Fatalf("got %q, want %q", out, "10\n")
	}
}

func TestE2ELoopWithContinueAndBreak(t *testing.T) {
	src := "func main() -> i32:\n" +
		"  i: i32 = 0\n" +
		"  loop:\n" +
		"    i = i + 1\n" +
		"    when i == 2:\n" +
		"      continue\n" +
		"    when i > 4:\n" +
		"      break\n" +
		"    writeln i\n" +
		"  give 0\n"
	out := compileAndRun(t, src)
	if out != "1\n3\n4\n" {
		t.Fatalf("got %q, want %q", out, "1\n3\n4\n")
	}
}

func TestE2EExitCodeFromMain(t *testing.T) {
	toks, err := NewLexer("func main() -> i32:\n  give 42\n").Lex()
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
	dir := t.TempDir()
	path := dir + "/test"
	if err := WriteExecutable(path, exe); err != nil {
		t.Fatalf("WriteExecutable failed: %v", err)
	}
	cmd := exec.Command(path)
	err = cmd.Run()
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected an ExitError carrying the program's exit code, got %v", err)
	}
	if exitErr.ExitCode() != 42 {
		t.Fatalf("expected exit code 42, got %d", exitErr.ExitCode())
	}
}

func TestE2EReadlnIntegerRoundTrip(t *testing.T) {
	src := "func main() -> i32:\n" +
		"  n: i32 = readln()\n" +
		"  writeln n + 1\n" +
		"  give 0\n"
	out := compileAndRunWithInput(t, src, "41\n")
	if out != "42\n" {
		t.Fatalf("got %q, want %q", out, "42\n")
	}
}

func TestE2EReadFailedAfterEOF(t *testing.T) {
	src := "func main() -> i32:\n" +
		"  s: str = readln()\n" +
		"  writeln read_failed()\n" +
		"  give 0\n"
	out := compileAndRunWithInput(t, src, "")
	if out != "True\n" {
		t.Fatalf("got %q, want %q", out, "True\n")
	}
}

func TestE2ESignedByteLocalSignExtends(t *testing.T) {
	// a - b underflows to -1 in an i8 local; reloading it must sign-extend
	// (movsx) rather than zero-extend (movzx), or the comparison below
	// sees 255 instead of -1 and takes the wrong branch.
	src := "func main() -> i32:\n" +
		"  a: i8 = 1\n" +
		"  b: i8 = 2\n" +
		"  x: i8 = a - b\n" +
		"  writeln x < 0\n" +
		"  writeln x\n" +
		"  give 0\n"
	out := compileAndRun(t, src)
	if out != "True\n-1\n" {
		t.Fatalf("got %q, want %q", out, "True\n-1\n")
	}
}

func TestE2EUnsignedByteLocalZeroExtends(t *testing.T) {
	src := "func main() -> i32:\n" +
		"  x: u8 = 255\n" +
		"  writeln x\n" +
		"  give 0\n"
	out := compileAndRun(t, src)
	if out != "255\n" {
		t.Fatalf("got %q, want %q", out, "255\n")
	}
}

func TestE2EBooleanWrite(t *testing.T) {
	src := "func main() -> i32:\n" +
		"  writeln 3 > 2\n" +
		"  writeln 3 < 2\n" +
		"  give 0\n"
	out := compileAndRun(t, src)
	if out != "True\nFalse\n" {
		t.Fatalf("got %q, want %q", out, "True\nFalse\n")
	}
}
