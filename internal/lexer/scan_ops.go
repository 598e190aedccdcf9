package lexer

import "loxmin/internal/token"

func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	line := lx.cursor.Line
	ch := lx.cursor.Bump()

	var kind token.Kind
	switch ch {
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '{':
		kind = token.LBrace
	case '}':
		kind = token.RBrace
	case ';':
		kind = token.Semicolon
	case ',':
		kind = token.Comma
	case '.':
		kind = token.Dot
	case '-':
		kind = token.Minus
	case '+':
		kind = token.Plus
	case '/':
		kind = token.Slash
	case '*':
		kind = token.Star
	case '!':
		kind = pick(lx.cursor.Eat('='), token.BangEq, token.Bang)
	case '=':
		kind = pick(lx.cursor.Eat('='), token.EqEq, token.Assign)
	case '<':
		kind = pick(lx.cursor.Eat('='), token.LtEq, token.Lt)
	case '>':
		kind = pick(lx.cursor.Eat('='), token.GtEq, token.Gt)
	default:
		return lx.errorToken("Unexpected character.")
	}
	return token.Token{Kind: kind, Text: lx.cursor.TextFrom(start), Line: line}
}

func pick(cond bool, yes, no token.Kind) token.Kind {
	if cond {
		return yes
	}
	return no
}
