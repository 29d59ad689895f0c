package main

import "testing"

func parseOK(t *testing.T, src string) *Program {
	t.Helper()
	toks, err := NewLexer(src).Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, err := NewParser(toks).ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram(%q) failed: %v", src, err)
	}
	return prog
}

func TestParseFunctionWithReturnType(t *testing.T) {
	prog := parseOK(t, "mode script\nfunc add(a: i32, b: i32) -> i32:\n  give a + b\n")
	if len(prog.Functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "add" || len(fn.Params) != 2 || fn.ReturnType != TypeI32 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	if len(fn.Body.Statements) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(fn.Body.Statements))
	}
	ret, ok := fn.Body.Statements[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("expected *ReturnStmt, got %T", fn.Body.Statements[0])
	}
	bin, ok := ret.Value.(*BinaryOp)
	if !ok || bin.Op != TOK_PLUS {
		t.Fatalf("expected a + b, got %#v", ret.Value)
	}
}

func TestParseRequiresMainInCompileMode(t *testing.T) {
	toks, err := NewLexer("func helper():\n  give\n").Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if _, err := NewParser(toks).ParseProgram(); err == nil {
		t.Fatal("expected an error for a compile-mode program with no main")
	}
}

func TestParseWhenElseWhenElse(t *testing.T) {
	src := "func main():\n" +
		"  when 1 < 2:\n" +
		"    write \"a\"\n" +
		"  else when 2 < 3:\n" +
		"    write \"b\"\n" +
		"  else:\n" +
		"    write \"c\"\n"
	prog := parseOK(t, src)
	when, ok := prog.Functions[0].Body.Statements[0].(*WhenStmt)
	if !ok {
		t.Fatalf("expected *WhenStmt, got %T", prog.Functions[0].Body.Statements[0])
	}
	if len(when.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(when.Arms))
	}
	if when.Arms[2].Cond != nil {
		t.Fatalf("expected trailing else arm to have a nil condition")
	}
}

func TestParseLoopSynthesizesTrueCondition(t *testing.T) {
	prog := parseOK(t, "func main():\n  loop:\n    break\n")
	ws, ok := prog.Functions[0].Body.Statements[0].(*WhileStmt)
	if !ok {
		t.Fatalf("expected *WhileStmt, got %T", prog.Functions[0].Body.Statements[0])
	}
	lit, ok := ws.Cond.(*BoolLit)
	if !ok || !lit.Value {
		t.Fatalf("expected synthesized True condition, got %#v", ws.Cond)
	}
}

func TestParseComparisonDoesNotChain(t *testing.T) {
	// a < b < c parses as (a<b)<c, per the non-chaining comparison level.
	prog := parseOK(t, "func main():\n  when a < b < c:\n    break\n")
	when := prog.Functions[0].Body.Statements[0].(*WhenStmt)
	outer, ok := when.Arms[0].Cond.(*BinaryOp)
	if !ok || outer.Op != TOK_LT {
		t.Fatalf("expected outer <, got %#v", when.Arms[0].Cond)
	}
	if _, ok := outer.Left.(*BinaryOp); !ok {
		t.Fatalf("expected left operand to itself be a binary comparison, got %#v", outer.Left)
	}
}

func TestParseScriptModeAllowsTopLevelStatements(t *testing.T) {
	prog := parseOK(t, "mode script\nx: i32 = 1\nwriteln x\n")
	if !prog.ScriptMode {
		t.Fatal("expected ScriptMode to be true")
	}
	if len(prog.TopLevel) != 2 {
		t.Fatalf("expected 2 top-level statements, got %d", len(prog.TopLevel))
	}
}

func TestParseNegativeIntLiteral(t *testing.T) {
	// The lexer emits '-' and '5' as separate tokens; the parser folds
	// them into a unary negation of a positive literal, not a single
	// negative IntLit.
	prog := parseOK(t, "mode script\nx: i32 = -5\n")
	decl := prog.TopLevel[0].(*VarDecl)
	un, ok := decl.Value.(*UnaryOp)
	if !ok || un.Op != TOK_MINUS {
		t.Fatalf("expected unary '-', got %#v", decl.Value)
	}
	lit, ok := un.Operand.(*IntLit)
	if !ok || lit.Value != 5 {
		t.Fatalf("expected operand IntLit(5), got %#v", un.Operand)
	}
}
