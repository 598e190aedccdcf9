package lexer

import "loxmin/internal/token"

// scanString reads a double-quoted literal. Strings may span lines and have
// no escapes. The token's Text is the contents exactly as written; the token
// carries the line the literal ends on.
func (lx *Lexer) scanString() token.Token {
	lx.cursor.Bump() // opening quote
	start := lx.cursor.Mark()
	for !lx.cursor.EOF() && lx.cursor.Peek() != '"' {
		lx.cursor.Bump()
	}
	if lx.cursor.EOF() {
		return lx.errorToken("Unterminated string.")
	}
	text := lx.cursor.TextFrom(start)
	lx.cursor.Bump() // closing quote
	return token.Token{Kind: token.StringLit, Text: text, Line: lx.cursor.Line}
}
