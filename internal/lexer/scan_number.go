package lexer

import "loxmin/internal/token"

// scanNumber reads digits with an optional fractional part. A trailing dot
// without digits is left for the next token.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	for isDec(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	if lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekNext()) {
		lx.cursor.Bump()
		for isDec(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
	}
	return token.Token{Kind: token.NumberLit, Text: lx.cursor.TextFrom(start), Line: lx.cursor.Line}
}
