package lexer

// skipTrivia consumes whitespace and // line comments.
func (lx *Lexer) skipTrivia() {
	for !lx.cursor.EOF() {
		switch lx.cursor.Peek() {
		case ' ', '\r', '\t', '\n':
			lx.cursor.Bump()
		case '/':
			if lx.cursor.PeekNext() != '/' {
				return
			}
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
		default:
			return
		}
	}
}
