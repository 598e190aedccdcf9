package diag

import "fmt"

// Diagnostic is one compile error. Lox has no warnings, so every
// diagnostic fails compilation.
type Diagnostic struct {
	Code    Code
	Message string
	Line    int
	// Where locates the offending token: " at 'x'", " at end", or "" for
	// lexical errors whose token text is the message itself.
	Where string
}

// Format renders the diagnostic as "[line N] Error at 'x': message".
func (d Diagnostic) Format() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}
