package vm

import "unsafe"

// MaxConstants is the number of constants addressable by a one-byte operand.
const MaxConstants = 256

var (
	sizeValue = int(unsafe.Sizeof(Nil))
	sizeInt   = int(unsafe.Sizeof(int(0)))
)

// Chunk holds the bytecode, per-byte source lines and constant pool of one
// function body. Growth is reported to the owning heap, so a chunk must be
// reachable from a root whenever it may grow.
type Chunk struct {
	heap      *Heap
	Code      []byte
	Lines     []int
	Constants []Value
}

// NewChunk returns an empty chunk accounted on h. A nil heap disables
// accounting.
func NewChunk(h *Heap) Chunk {
	return Chunk{heap: h}
}

// Write appends one byte tagged with its source line.
func (c *Chunk) Write(b byte, line int) {
	if len(c.Code) == cap(c.Code) {
		oldCap := cap(c.Code)
		newCap := growCapacity(oldCap)
		c.account(oldCap*(1+sizeInt), newCap*(1+sizeInt))
		code := make([]byte, len(c.Code), newCap)
		copy(code, c.Code)
		lines := make([]int, len(c.Lines), newCap)
		copy(lines, c.Lines)
		c.Code, c.Lines = code, lines
	}
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index.
// Constants are not deduplicated. v is pinned while the pool grows.
func (c *Chunk) AddConstant(v Value) int {
	if len(c.Constants) == cap(c.Constants) {
		if c.heap != nil {
			c.heap.PinValue(v)
			defer c.heap.Unpin()
		}
		oldCap := cap(c.Constants)
		newCap := growCapacity(oldCap)
		c.account(oldCap*sizeValue, newCap*sizeValue)
		consts := make([]Value, len(c.Constants), newCap)
		copy(consts, c.Constants)
		c.Constants = consts
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Free releases the chunk's storage.
func (c *Chunk) Free() {
	c.account(cap(c.Code)*(1+sizeInt)+cap(c.Constants)*sizeValue, 0)
	c.Code = nil
	c.Lines = nil
	c.Constants = nil
}

func (c *Chunk) account(oldSize, newSize int) {
	if c.heap != nil {
		c.heap.reallocate(oldSize, newSize)
	}
}
