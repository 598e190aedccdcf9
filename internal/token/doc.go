// Package token defines lexical token kinds for Lox.
// Invariants:
//   - Token.Text is a slice of the original source for every kind except
//     StringLit and Invalid.
//   - Keywords are recognised only in their lowercase form.
package token
