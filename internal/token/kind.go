package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token; its Text holds the error message.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// single-character punctuation
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	Comma     // ,
	Dot       // .
	Minus     // -
	Plus      // +
	Semicolon // ;
	Slash     // /
	Star      // *

	// one or two character operators
	Bang   // !
	BangEq // !=
	Assign // =
	EqEq   // ==
	Gt     // >
	GtEq   // >=
	Lt     // <
	LtEq   // <=

	// literals
	Ident
	StringLit
	NumberLit

	// keywords
	KwAnd    // and
	KwClass  // class
	KwElse   // else
	KwFalse  // false
	KwFor    // for
	KwFun    // fun
	KwIf     // if
	KwNil    // nil
	KwOr     // or
	KwPrint  // print
	KwReturn // return
	KwSuper  // super
	KwThis   // this
	KwTrue   // true
	KwVar    // var
	KwWhile  // while

	kindCount
)

var kindNames = [...]string{
	Invalid:   "Invalid",
	EOF:       "EOF",
	LParen:    "(",
	RParen:    ")",
	LBrace:    "{",
	RBrace:    "}",
	Comma:     ",",
	Dot:       ".",
	Minus:     "-",
	Plus:      "+",
	Semicolon: ";",
	Slash:     "/",
	Star:      "*",
	Bang:      "!",
	BangEq:    "!=",
	Assign:    "=",
	EqEq:      "==",
	Gt:        ">",
	GtEq:      ">=",
	Lt:        "<",
	LtEq:      "<=",
	Ident:     "Ident",
	StringLit: "StringLit",
	NumberLit: "NumberLit",
	KwAnd:     "and",
	KwClass:   "class",
	KwElse:    "else",
	KwFalse:   "false",
	KwFor:     "for",
	KwFun:     "fun",
	KwIf:      "if",
	KwNil:     "nil",
	KwOr:      "or",
	KwPrint:   "print",
	KwReturn:  "return",
	KwSuper:   "super",
	KwThis:    "this",
	KwTrue:    "true",
	KwVar:     "var",
	KwWhile:   "while",
}

// String returns the lexeme for fixed tokens and the class name otherwise.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Kind(?)"
}
