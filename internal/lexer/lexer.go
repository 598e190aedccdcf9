// Package lexer turns Lox source text into tokens on demand.
package lexer

import (
	"loxmin/internal/token"
)

// Lexer scans one source buffer. Tokens are produced lazily by Next, so
// the compiler never holds more than its current and previous token.
type Lexer struct {
	cursor Cursor
	look   *token.Token // 1 элементный буфер для токена
}

func New(src []byte) *Lexer {
	return &Lexer{cursor: NewCursor(src)}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}

	lx.skipTrivia()
	if lx.cursor.EOF() {
		return token.Token{Kind: token.EOF, Line: lx.cursor.Line}
	}

	ch := lx.cursor.Peek()
	switch {
	case isIdentStartByte(ch):
		return lx.scanIdentOrKeyword()
	case isDec(ch):
		return lx.scanNumber()
	case ch == '"':
		return lx.scanString()
	default:
		return lx.scanOperatorOrPunct()
	}
}

// Peek возвращает следующий токен, не потребляя его.
func (lx *Lexer) Peek() token.Token {
	t := lx.Next()
	lx.look = &t
	return t
}

// All scans the whole input, including the trailing EOF.
func (lx *Lexer) All() []token.Token {
	var toks []token.Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks
		}
	}
}

func (lx *Lexer) errorToken(msg string) token.Token {
	return token.Token{Kind: token.Invalid, Text: msg, Line: lx.cursor.Line}
}
