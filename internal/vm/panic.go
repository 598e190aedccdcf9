package vm

import (
	"fmt"
	"strings"
)

// PanicCode identifies the type of VM panic.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicTypeMismatch      PanicCode = 1001 // VM1001: operand types
	PanicUndefinedVariable PanicCode = 1002 // VM1002: unknown global
	PanicUndefinedProperty PanicCode = 1003 // VM1003: unknown field or method
	PanicArityMismatch     PanicCode = 1004 // VM1004: wrong argument count
	PanicNotCallable       PanicCode = 1005 // VM1005: call on a non-callable
	PanicNotInstance       PanicCode = 1006 // VM1006: property access on a non-instance
	PanicBadSuperclass     PanicCode = 1007 // VM1007: inherit from a non-class
	PanicStackOverflow     PanicCode = 1008 // VM1008: frame or value stack exhausted
	PanicNative            PanicCode = 1009 // VM1009: native function failed
	PanicBadOperand        PanicCode = 1010 // VM1010: class operand of another kind

	PanicInvalidHandle PanicCode = 1901 // VM1901: handle out of range
	PanicUseAfterFree  PanicCode = 1902 // VM1902: handle of a swept object
	PanicBadOpcode     PanicCode = 1903 // VM1903: corrupt bytecode
)

// String returns the code as "VM1001" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// Internal reports whether the code marks a VM bug rather than a program error.
func (c PanicCode) Internal() bool { return c >= 1900 }

// BacktraceFrame represents one frame in the panic backtrace.
type BacktraceFrame struct {
	FuncName string // "" for the top-level script
	Line     int
}

// VMError represents a runtime error raised by the VM.
type VMError struct {
	Code      PanicCode
	Message   string
	Backtrace []BacktraceFrame // innermost first
}

// Error implements the error interface.
func (p *VMError) Error() string {
	return p.Message
}

// Line returns the source line of the innermost frame.
func (p *VMError) Line() int {
	if len(p.Backtrace) == 0 {
		return 0
	}
	return p.Backtrace[0].Line
}

// Format renders the message followed by one line per frame:
//
//	Undefined variable 'foo'.
//	[line 3] in bar()
//	[line 7] in script
func (p *VMError) Format() string {
	var sb strings.Builder
	sb.WriteString(p.Message)
	sb.WriteByte('\n')
	for _, f := range p.Backtrace {
		if f.FuncName == "" {
			fmt.Fprintf(&sb, "[line %d] in script\n", f.Line)
		} else {
			fmt.Fprintf(&sb, "[line %d] in %s()\n", f.Line, f.FuncName)
		}
	}
	return sb.String()
}

func internalError(code PanicCode, msg string) *VMError {
	return &VMError{Code: code, Message: msg}
}

// runtimeError aborts execution with a formatted error carrying the
// current backtrace. It never returns.
func (vm *VM) runtimeError(code PanicCode, format string, args ...any) {
	e := &VMError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Backtrace: make([]BacktraceFrame, 0, vm.frameCount),
	}
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.closure.Function
		line := 0
		if ip := frame.ip - 1; ip >= 0 && ip < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[ip]
		}
		name := ""
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		e.Backtrace = append(e.Backtrace, BacktraceFrame{FuncName: name, Line: line})
	}
	panic(e)
}
