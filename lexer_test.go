package main

import "testing"

func lexTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := NewLexer(src).Lex()
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	return types
}

func TestLexSimpleAssignment(t *testing.T) {
	got := lexTypes(t, "x: i32 = 1 + 2\n")
	want := []TokenType{TOK_IDENT, TOK_COLON, TOK_I32, TOK_ASSIGN, TOK_INT, TOK_PLUS, TOK_INT, TOK_NEWLINE, TOK_EOF}
	assertTypes(t, got, want)
}

func TestLexIndentDedent(t *testing.T) {
	src := "func f():\n  x: i32 = 1\n  give\n"
	got := lexTypes(t, src)
	want := []TokenType{
		TOK_FUNC, TOK_IDENT, TOK_LPAREN, TOK_RPAREN, TOK_COLON, TOK_NEWLINE,
		TOK_INDENT,
		TOK_IDENT, TOK_COLON, TOK_I32, TOK_ASSIGN, TOK_INT, TOK_NEWLINE,
		TOK_GIVE, TOK_NEWLINE,
		TOK_DEDENT, TOK_EOF,
	}
	assertTypes(t, got, want)
}

func TestLexInconsistentIndentation(t *testing.T) {
	src := "func f():\n    x: i32 = 1\n  give\n"
	if _, err := NewLexer(src).Lex(); err == nil {
		t.Fatal("expected an error for inconsistent indentation")
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := NewLexer(`"a\nb\t\"c\""` + "\n").Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if toks[0].Type != TOK_STRING {
		t.Fatalf("expected STRING, got %s", toks[0])
	}
	if want := "a\nb\t\"c\""; toks[0].Lexeme != want {
		t.Fatalf("got %q, want %q", toks[0].Lexeme, want)
	}
}

func TestLexHexAndBinaryIntegers(t *testing.T) {
	toks, err := NewLexer("0xFF 0b1010 1_000\n").Lex()
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	lexemes := []string{toks[0].Lexeme, toks[1].Lexeme, toks[2].Lexeme}
	want := []string{"0xFF", "0b1010", "1_000"}
	for i := range want {
		if lexemes[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, lexemes[i], want[i])
		}
	}
}

func TestLexCommentsAreIgnored(t *testing.T) {
	got := lexTypes(t, "x: i32 = 1 // trailing comment\n# another style\n")
	want := []TokenType{TOK_IDENT, TOK_COLON, TOK_I32, TOK_ASSIGN, TOK_INT, TOK_NEWLINE, TOK_EOF}
	assertTypes(t, got, want)
}

func assertTypes(t *testing.T, got, want []TokenType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("token count mismatch: got %d, want %d\ngot:  %v\nwant: %v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
