package token

import (
	"testing"
)

func TestLookupKeyword_Positive(t *testing.T) {
	cases := map[string]Kind{
		"and":    KwAnd,
		"class":  KwClass,
		"fun":    KwFun,
		"nil":    KwNil,
		"return": KwReturn,
		"super":  KwSuper,
		"this":   KwThis,
		"var":    KwVar,
		"while":  KwWhile,
	}

	for lexeme, want := range cases {
		got, ok := LookupKeyword(lexeme)
		if !ok {
			t.Fatalf("LookupKeyword(%q) = !ok, want %v", lexeme, want)
		}
		if got != want {
			t.Fatalf("LookupKeyword(%q) = %v, want %v", lexeme, got, want)
		}
	}
}

func TestLookupKeyword_Negative(t *testing.T) {
	notKw := []string{"Class", "VAR", "fn", "let", "init", "println", "_while"}
	for _, s := range notKw {
		if k, ok := LookupKeyword(s); ok {
			t.Fatalf("LookupKeyword(%q) = %v, want not a keyword", s, k)
		}
	}
}

func TestKindClassification(t *testing.T) {
	if !(Token{Kind: KwWhile}).IsKeyword() {
		t.Fatalf("while must be a keyword")
	}
	if (Token{Kind: Ident}).IsKeyword() {
		t.Fatalf("Ident must not be a keyword")
	}
	for _, k := range []Kind{NumberLit, StringLit, KwTrue, KwNil} {
		if !(Token{Kind: k}).IsLiteral() {
			t.Fatalf("%v should be literal", k)
		}
	}
	if (Token{Kind: Plus}).IsLiteral() {
		t.Fatalf("+ must not be literal")
	}
	if got := BangEq.String(); got != "!=" {
		t.Fatalf("BangEq.String() = %q", got)
	}
}
