package vm

import (
	"fmt"
	"io"
	"strings"
)

// Tracer outputs execution traces for debugging: the value stack followed by
// the disassembled instruction about to run.
type Tracer struct {
	w     io.Writer
	depth bool
}

// NewTracer creates a new tracer that writes to w.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// WithDepth prefixes each instruction with the frame depth.
func (t *Tracer) WithDepth() *Tracer {
	t.depth = true
	return t
}

// TraceInstr traces the instruction at frame.ip.
//
//	          [ <script> ][ 1 ]
//	0002    1 OP_CONSTANT         1 '2'
func (t *Tracer) TraceInstr(vm *VM, frame *CallFrame) {
	if t == nil || t.w == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString("          ")
	for i := 0; i < vm.sp; i++ {
		sb.WriteString("[ ")
		sb.WriteString(vm.Heap.FormatValue(vm.stack[i]))
		sb.WriteString(" ]")
	}
	sb.WriteByte('\n')
	if t.depth {
		fmt.Fprintf(&sb, "[depth=%d] ", vm.frameCount)
	}
	io.WriteString(t.w, sb.String())
	DisassembleInstruction(t.w, vm.Heap, &frame.closure.Function.Chunk, frame.ip)
}
