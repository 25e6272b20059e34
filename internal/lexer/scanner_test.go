package lexer

import (
	"testing"

	"volta/internal/diagnostics"
)

func scan(t *testing.T, src string) ([]Token, *diagnostics.Sink) {
	t.Helper()
	diag := diagnostics.New()
	toks := NewScanner(src, diag).ScanTokens()
	return toks, diag
}

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks, diag := scan(t, "fn main self mut ref foo_bar")
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	want := []TokenType{Function, Identifier, Self_, Mut, Ref, Identifier, EndOfFile}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMultiCharOperatorsGreedy(t *testing.T) {
	toks, _ := scan(t, "+= ++ -> == <= >= .. ..= :: => :=")
	want := []TokenType{PlusEqual, Increment, Arrow, EqualEqual, LessEqual, GreaterEqual, Range, InclusiveRange, DoubleColon, FatArrow, InferAssign, EndOfFile}
	got := types(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	toks, diag := scan(t, "42 3.14 5.")
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	if toks[0].Type != Integer || toks[0].Lexeme != "42" {
		t.Fatalf("got %v", toks[0])
	}
	if toks[1].Type != Float || toks[1].Lexeme != "3.14" {
		t.Fatalf("got %v", toks[1])
	}
	// "5." - the dot is only part of the number if followed by a digit.
	if toks[2].Type != Integer || toks[2].Lexeme != "5" {
		t.Fatalf("got %v", toks[2])
	}
	if toks[3].Type != Dot {
		t.Fatalf("expected trailing dot as punctuator, got %v", toks[3])
	}
}

func TestMultipleDecimalPointsIsError(t *testing.T) {
	_, diag := scan(t, "1.2.3")
	if !diag.HasErrors() {
		t.Fatal("expected an error for a second decimal point")
	}
}

func TestStringLiteralKeepsEscapesVerbatim(t *testing.T) {
	toks, diag := scan(t, `"hello\nworld"`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	if toks[0].Type != String || toks[0].Lexeme != `hello\nworld` {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	_, diag := scan(t, `"hello`)
	if !diag.HasErrors() {
		t.Fatal("expected an error for unterminated string")
	}
}

func TestRawStringNoEscapeProcessing(t *testing.T) {
	toks, diag := scan(t, `r"a\nb"`)
	if diag.HasErrors() {
		t.Fatalf("unexpected errors: %v", diag.All())
	}
	if toks[0].Type != String || toks[0].Lexeme != `a\nb` {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	toks, _ := scan(t, "1 // comment\n2 /* block */ 3")
	got := types(toks)
	want := []TokenType{Integer, Integer, Integer, EndOfFile}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	toks, _ := scan(t, "let x\n  = 1;")
	// "let" at line 1 col 1, "x" at line 1 col 5, "=" at line 2 col 3
	if toks[0].Line != 1 || toks[0].Column != 1 {
		t.Fatalf("let token position = %d:%d", toks[0].Line, toks[0].Column)
	}
	if toks[1].Line != 1 || toks[1].Column != 5 {
		t.Fatalf("x token position = %d:%d", toks[1].Line, toks[1].Column)
	}
	if toks[2].Line != 2 || toks[2].Column != 3 {
		t.Fatalf("= token position = %d:%d", toks[2].Line, toks[2].Column)
	}
}

func TestUnexpectedCharacterIsError(t *testing.T) {
	_, diag := scan(t, "@")
	if !diag.HasErrors() {
		t.Fatal("expected an error for an unrecognized symbol")
	}
}
