package vm

// CallFrame is one activation record: the closure being run, its
// instruction pointer and the stack slot holding the callee (slot 0).
type CallFrame struct {
	closure *Closure
	ip      int
	base    int
}

// Closure returns the closure being executed.
func (f *CallFrame) Closure() *Closure { return f.closure }

// IP returns the offset of the next instruction.
func (f *CallFrame) IP() int { return f.ip }

func (f *CallFrame) readByte() byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (f *CallFrame) readShort() int {
	code := f.closure.Function.Chunk.Code
	f.ip += 2
	return int(code[f.ip-2])<<8 | int(code[f.ip-1])
}

func (f *CallFrame) readConstant() Value {
	return f.closure.Function.Chunk.Constants[f.readByte()]
}

func (f *CallFrame) readString(h *Heap) *String {
	return h.Get(f.readConstant().AsHandle()).(*String)
}
