package compiler

import (
	"fortio.org/safecast"

	"loxmin/internal/diag"
	"loxmin/internal/vm"
)

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op vm.Opcode) {
	c.chunk().WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOpByte(op vm.Opcode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *Compiler) emitReturn() {
	if c.fs.kind == kindInitializer {
		c.emitOpByte(vm.OpGetLocal, 0)
	} else {
		c.emitOp(vm.OpNil)
	}
	c.emitOp(vm.OpReturn)
}

// makeConstant adds v to the pool and returns its one-byte index.
func (c *Compiler) makeConstant(v vm.Value) byte {
	idx, err := safecast.Conv[uint8](c.chunk().AddConstant(v))
	if err != nil {
		c.error(diag.SynTooManyConstants, "Too many constants in one chunk.")
		return 0
	}
	return idx
}

func (c *Compiler) emitConstant(v vm.Value) {
	c.emitOpByte(vm.OpConstant, c.makeConstant(v))
}

// emitJump writes op with a placeholder operand and returns the operand's
// offset for patchJump.
func (c *Compiler) emitJump(op vm.Opcode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	code := c.chunk().Code
	jump, err := safecast.Conv[uint16](len(code) - offset - 2)
	if err != nil {
		c.error(diag.SynJumpTooLarge, "Too much code to jump over.")
		return
	}
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(vm.OpLoop)
	offset, err := safecast.Conv[uint16](len(c.chunk().Code) - loopStart + 2)
	if err != nil {
		c.error(diag.SynLoopTooLarge, "Loop body too large.")
		offset = 0
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}
