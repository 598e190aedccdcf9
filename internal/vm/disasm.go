package vm

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
)

// constantWidth bounds the display width of a constant operand.
const constantWidth = 40

// DisassembleChunk prints every instruction of c under a "== name ==" header.
func DisassembleChunk(w io.Writer, h *Heap, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, h, c, offset)
	}
}

// DisassembleFunction prints fn and, depth first, every function in its
// constant pool.
func DisassembleFunction(w io.Writer, h *Heap, fn *Function) {
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	DisassembleChunk(w, h, &fn.Chunk, name)
	for _, v := range fn.Chunk.Constants {
		if inner, ok := As[*Function](h, v); ok {
			fmt.Fprintln(w)
			DisassembleFunction(w, h, inner)
		}
	}
}

// DisassembleInstruction prints the instruction at offset and returns the
// offset of the next one.
func DisassembleInstruction(w io.Writer, h *Heap, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	op := Opcode(c.Code[offset])
	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal,
		OpGetProperty, OpSetProperty, OpGetSuper, OpClass, OpMethod:
		return constantInstruction(w, h, op, c, offset)
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall:
		return byteInstruction(w, op, c, offset)
	case OpJump, OpJumpIfFalse:
		return jumpInstruction(w, op, 1, c, offset)
	case OpLoop:
		return jumpInstruction(w, op, -1, c, offset)
	case OpInvoke, OpSuperInvoke:
		return invokeInstruction(w, h, op, c, offset)
	case OpClosure:
		return closureInstruction(w, h, c, offset)
	default:
		if !op.Valid() {
			fmt.Fprintf(w, "Unknown opcode %d\n", uint8(op))
			return offset + 1
		}
		fmt.Fprintln(w, op)
		return offset + 1
	}
}

func constantOperand(h *Heap, c *Chunk, index byte) string {
	return runewidth.Truncate(h.FormatValue(c.Constants[index]), constantWidth, "...")
}

func constantInstruction(w io.Writer, h *Heap, op Opcode, c *Chunk, offset int) int {
	constant := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, constant, constantOperand(h, c, constant))
	return offset + 2
}

func byteInstruction(w io.Writer, op Opcode, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%-16s %4d\n", op, c.Code[offset+1])
	return offset + 2
}

func jumpInstruction(w io.Writer, op Opcode, sign int, c *Chunk, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

func invokeInstruction(w io.Writer, h *Heap, op Opcode, c *Chunk, offset int) int {
	constant := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op, argCount, constant, constantOperand(h, c, constant))
	return offset + 3
}

func closureInstruction(w io.Writer, h *Heap, c *Chunk, offset int) int {
	offset++
	constant := c.Code[offset]
	offset++
	fmt.Fprintf(w, "%-16s %4d %s\n", OpClosure, constant, constantOperand(h, c, constant))

	fn := h.Get(c.Constants[constant].AsHandle()).(*Function)
	for j := 0; j < fn.UpvalueCount; j++ {
		isLocal := c.Code[offset]
		index := c.Code[offset+1]
		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}
