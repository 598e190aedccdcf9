package lexer_test

import (
	"testing"

	"loxmin/internal/lexer"
	"loxmin/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func expectKinds(t *testing.T, src string, want ...token.Kind) []token.Token {
	t.Helper()
	toks := lexer.New([]byte(src)).All()
	got := kinds(toks)
	want = append(want, token.EOF)
	if len(got) != len(want) {
		t.Fatalf("%q: got %v, want %v", src, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d = %v, want %v (all: %v)", src, i, got[i], want[i], got)
		}
	}
	return toks
}

func TestOperators(t *testing.T) {
	expectKinds(t, "(){};,.-+/*! != = == > >= < <=",
		token.LParen, token.RParen, token.LBrace, token.RBrace, token.Semicolon,
		token.Comma, token.Dot, token.Minus, token.Plus, token.Slash, token.Star,
		token.Bang, token.BangEq, token.Assign, token.EqEq, token.Gt, token.GtEq,
		token.Lt, token.LtEq)
}

func TestKeywordsAndIdents(t *testing.T) {
	toks := expectKinds(t, "class Foo < Bar { init() { this.x = nil; } }",
		token.KwClass, token.Ident, token.Lt, token.Ident, token.LBrace,
		token.Ident, token.LParen, token.RParen, token.LBrace,
		token.KwThis, token.Dot, token.Ident, token.Assign, token.KwNil, token.Semicolon,
		token.RBrace, token.RBrace)
	if toks[1].Text != "Foo" || toks[5].Text != "init" {
		t.Fatalf("unexpected identifier text: %q %q", toks[1].Text, toks[5].Text)
	}
}

func TestNumbers(t *testing.T) {
	toks := expectKinds(t, "123 4.5 6.", token.NumberLit, token.NumberLit, token.NumberLit, token.Dot)
	if toks[0].Text != "123" || toks[1].Text != "4.5" || toks[2].Text != "6" {
		t.Fatalf("unexpected number text: %q %q %q", toks[0].Text, toks[1].Text, toks[2].Text)
	}
}

func TestStringsAndLines(t *testing.T) {
	toks := expectKinds(t, "// comment\nprint \"a\nb\";\nx",
		token.KwPrint, token.StringLit, token.Semicolon, token.Ident)
	if toks[0].Line != 2 {
		t.Fatalf("print on line %d, want 2", toks[0].Line)
	}
	if toks[1].Text != "a\nb" {
		t.Fatalf("string text = %q", toks[1].Text)
	}
	if toks[1].Line != 3 {
		t.Fatalf("multi-line string ends on line %d, want 3", toks[1].Line)
	}
	if toks[3].Line != 4 {
		t.Fatalf("x on line %d, want 4", toks[3].Line)
	}
}

func TestStringKeepsBytes(t *testing.T) {
	// "e" + combining acute accent stays decomposed
	toks := expectKinds(t, "\"cafe\u0301\" \"caf\u00e9\"", token.StringLit, token.StringLit)
	if toks[0].Text != "cafe\u0301" {
		t.Fatalf("decomposed text = %q", toks[0].Text)
	}
	if toks[1].Text != "caf\u00e9" {
		t.Fatalf("composed text = %q", toks[1].Text)
	}
}

func TestErrors(t *testing.T) {
	toks := expectKinds(t, "\"open", token.Invalid)
	if toks[0].Text != "Unterminated string." {
		t.Fatalf("message = %q", toks[0].Text)
	}
	toks = expectKinds(t, "a @ b", token.Ident, token.Invalid, token.Ident)
	if toks[1].Text != "Unexpected character." {
		t.Fatalf("message = %q", toks[1].Text)
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	lx := lexer.New([]byte("var x"))
	if p := lx.Peek(); p.Kind != token.KwVar {
		t.Fatalf("Peek = %v", p.Kind)
	}
	if n := lx.Next(); n.Kind != token.KwVar {
		t.Fatalf("Next after Peek = %v", n.Kind)
	}
	if n := lx.Next(); n.Kind != token.Ident {
		t.Fatalf("second Next = %v", n.Kind)
	}
	if n := lx.Next(); n.Kind != token.EOF {
		t.Fatalf("third Next = %v", n.Kind)
	}
	if n := lx.Next(); n.Kind != token.EOF {
		t.Fatalf("Next after EOF = %v", n.Kind)
	}
}
