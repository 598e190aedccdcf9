package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical
	LexUnexpectedChar     Code = 1001
	LexUnterminatedString Code = 1002

	// Syntax
	SynExpectToken       Code = 2001
	SynExpectExpression  Code = 2002
	SynInvalidAssignment Code = 2003
	SynTooManyConstants  Code = 2004
	SynTooManyLocals     Code = 2005
	SynTooManyUpvalues   Code = 2006
	SynJumpTooLarge      Code = 2007
	SynLoopTooLarge      Code = 2008
	SynTooManyArguments  Code = 2009
	SynTooManyParameters Code = 2010

	// Semantic
	SemaRedeclaredLocal   Code = 3001
	SemaReadInInitializer Code = 3002
	SemaReturnTopLevel    Code = 3003
	SemaReturnFromInit    Code = 3004
	SemaThisOutsideClass  Code = 3005
	SemaSuperOutsideClass Code = 3006
	SemaSuperNoSuperclass Code = 3007
	SemaInheritFromSelf   Code = 3008

	// IO
	IOLoadFileError Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	LexUnexpectedChar:     "Unexpected character",
	LexUnterminatedString: "Unterminated string",
	SynExpectToken:        "Expected token",
	SynExpectExpression:   "Expected expression",
	SynInvalidAssignment:  "Invalid assignment target",
	SynTooManyConstants:   "Too many constants in one chunk",
	SynTooManyLocals:      "Too many local variables in function",
	SynTooManyUpvalues:    "Too many closure variables in function",
	SynJumpTooLarge:       "Too much code to jump over",
	SynLoopTooLarge:       "Loop body too large",
	SynTooManyArguments:   "Too many arguments",
	SynTooManyParameters:  "Too many parameters",
	SemaRedeclaredLocal:   "Variable redeclared in the same scope",
	SemaReadInInitializer: "Local variable read in its own initializer",
	SemaReturnTopLevel:    "Return from top-level code",
	SemaReturnFromInit:    "Value returned from an initializer",
	SemaThisOutsideClass:  "'this' outside of a class",
	SemaSuperOutsideClass: "'super' outside of a class",
	SemaSuperNoSuperclass: "'super' in a class with no superclass",
	SemaInheritFromSelf:   "Class inherits from itself",
	IOLoadFileError:       "Failed to load file",
}

// ID returns the stable short identifier, e.g. "SYN2001".
func (c Code) ID() string {
	ic := int(c)
	switch {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
