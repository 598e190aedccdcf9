// Package diag defines the compile-time diagnostic model shared by the
// lexer and the compiler.
//
// Diagnostic is the central record: a stable numeric Code
// (LEX1xxx, SYN2xxx, SEM3xxx, IO4xxx), a message, a source line and the
// location text of the offending token. Producers emit through a Reporter;
// BagReporter collects into a Bag, which the compiler wraps in *Error when
// compilation fails.
//
// Rendering follows the classic Lox form:
//
//	[line 3] Error at 'foo': Expect ';' after value.
//	[line 9] Error at end: Expect '}' after block.
//	[line 4] Error: Unterminated string.
package diag
