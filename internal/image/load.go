package image

import (
	"fmt"

	"fortio.org/safecast"

	"loxmin/internal/vm"
)

// Load rebuilds the script function on h. Every function under
// construction stays pinned, so collections during loading are safe.
func (img *Image) Load(h *vm.Heap) (*vm.Function, error) {
	return loadFunction(h, img.Script, 0)
}

// CompileFunc adapts img to vm.Interpret.
func (img *Image) CompileFunc() vm.CompileFunc {
	return img.Load
}

// maxNesting bounds function nesting in untrusted images.
const maxNesting = 256

func loadFunction(h *vm.Heap, src *FunctionImage, depth int) (*vm.Function, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil function", ErrCorrupt)
	}
	if depth > maxNesting {
		return nil, fmt.Errorf("%w: functions nested too deeply", ErrCorrupt)
	}
	if err := validate(src); err != nil {
		return nil, err
	}

	fn := h.NewFunction()
	h.Pin(fn)
	defer h.Unpin()

	fn.Arity = src.Arity
	fn.UpvalueCount = src.UpvalueCount
	if src.Name != "" {
		fn.Name = h.CopyString(src.Name)
	}
	for i, b := range src.Code {
		fn.Chunk.Write(b, src.Lines[i])
	}
	for i, c := range src.Constants {
		var v vm.Value
		switch c.Kind {
		case ConstNil:
			v = vm.Nil
		case ConstBool:
			v = vm.BoolValue(c.Bool)
		case ConstNumber:
			v = vm.NumberValue(c.Number)
		case ConstString:
			v = h.CopyString(c.String).Value()
		case ConstFunction:
			nested, err := loadFunction(h, c.Function, depth+1)
			if err != nil {
				return nil, err
			}
			v = nested.Value()
		default:
			return nil, fmt.Errorf("%w: constant %d has kind %d", ErrCorrupt, i, c.Kind)
		}
		fn.Chunk.AddConstant(v)
	}
	return fn, nil
}

func validate(src *FunctionImage) error {
	if len(src.Lines) != len(src.Code) {
		return fmt.Errorf("%w: %d lines for %d bytes", ErrCorrupt, len(src.Lines), len(src.Code))
	}
	if _, err := safecast.Conv[uint8](src.Arity); err != nil {
		return fmt.Errorf("%w: arity %d: %w", ErrCorrupt, src.Arity, err)
	}
	if src.UpvalueCount < 0 || src.UpvalueCount > 256 {
		return fmt.Errorf("%w: upvalue count %d", ErrCorrupt, src.UpvalueCount)
	}
	if len(src.Constants) > vm.MaxConstants {
		return fmt.Errorf("%w: %d constants", ErrCorrupt, len(src.Constants))
	}
	return validateCode(src)
}

// validateCode checks the operands of every instruction of src, then
// follows each path through the code tracking the stack depth. A loaded
// image can neither run past its chunk nor pop below its frame.
func validateCode(src *FunctionImage) error {
	code := src.Code
	if len(code) == 0 {
		return fmt.Errorf("%w: empty code", ErrCorrupt)
	}
	starts := make([]bool, len(code))
	var last vm.Opcode
	for offset := 0; offset < len(code); {
		op := vm.Opcode(code[offset])
		if !op.Valid() {
			return corruptAt(offset, "unknown opcode %d", code[offset])
		}
		starts[offset] = true
		last = op
		next := offset + 1 + operandBytes(op)
		if next > len(code) {
			return corruptAt(offset, "%s operands run past the end", op)
		}

		switch op {
		case vm.OpConstant:
			if _, err := constantAt(src, offset, code[offset+1]); err != nil {
				return err
			}
		case vm.OpGetGlobal, vm.OpDefineGlobal, vm.OpSetGlobal,
			vm.OpGetProperty, vm.OpSetProperty, vm.OpGetSuper,
			vm.OpClass, vm.OpMethod, vm.OpInvoke, vm.OpSuperInvoke:
			c, err := constantAt(src, offset, code[offset+1])
			if err != nil {
				return err
			}
			if c.Kind != ConstString {
				return corruptAt(offset, "%s names constant %d, which is not a string", op, code[offset+1])
			}
		case vm.OpGetUpvalue, vm.OpSetUpvalue:
			if int(code[offset+1]) >= src.UpvalueCount {
				return corruptAt(offset, "%s upvalue %d of %d", op, code[offset+1], src.UpvalueCount)
			}
		case vm.OpClosure:
			end, err := closureOperands(src, offset, next)
			if err != nil {
				return err
			}
			next = end
		}
		offset = next
	}
	if last != vm.OpReturn {
		return fmt.Errorf("%w: code ends in %s, not %s", ErrCorrupt, last, vm.OpReturn)
	}
	return checkStack(src, starts)
}

// checkStack follows every reachable path from the function entry, where
// the callee and its arguments occupy the first 1+Arity slots.
func checkStack(src *FunctionImage, starts []bool) error {
	code := src.Code
	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}
	depth[0] = 1 + src.Arity
	work := []int{0}

	visit := func(from, to, d int) error {
		if to < 0 || to >= len(code) || !starts[to] {
			return corruptAt(from, "jump to offset %d is not an instruction", to)
		}
		switch depth[to] {
		case -1:
			depth[to] = d
			work = append(work, to)
		case d:
		default:
			return corruptAt(to, "stack depth %d on one path and %d on another", depth[to], d)
		}
		return nil
	}

	for len(work) > 0 {
		offset := work[len(work)-1]
		work = work[:len(work)-1]
		d := depth[offset]
		op := vm.Opcode(code[offset])
		next := offset + 1 + operandBytes(op)

		need, effect := stackEffect(op, code, offset)
		if d < need {
			return corruptAt(offset, "%s needs %d stack values, has %d", op, need, d)
		}
		switch op {
		case vm.OpGetLocal, vm.OpSetLocal:
			if int(code[offset+1]) >= d {
				return corruptAt(offset, "%s slot %d of %d", op, code[offset+1], d)
			}
		case vm.OpClosure:
			// the new closure is pushed before capturing, so a local
			// function may capture its own slot
			n := src.Constants[code[offset+1]].Function.UpvalueCount
			for i := next; i < next+2*n; i += 2 {
				if code[i] == 1 && int(code[i+1]) > d {
					return corruptAt(i, "captures local slot %d of %d", code[i+1], d+1)
				}
			}
			next += 2 * n
		}
		d += effect

		var err error
		switch op {
		case vm.OpReturn:
		case vm.OpJump:
			err = visit(offset, next+jumpDistance(code, offset), d)
		case vm.OpLoop:
			err = visit(offset, next-jumpDistance(code, offset), d)
		case vm.OpJumpIfFalse:
			if err = visit(offset, next+jumpDistance(code, offset), d); err == nil {
				err = visit(offset, next, d)
			}
		default:
			err = visit(offset, next, d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// stackEffect returns how many values op reads from the stack and the net
// change it makes to the depth. Calls count the callee slot and leave the
// result in its place.
func stackEffect(op vm.Opcode, code []byte, offset int) (need, effect int) {
	switch op {
	case vm.OpConstant, vm.OpNil, vm.OpTrue, vm.OpFalse, vm.OpGetLocal,
		vm.OpGetGlobal, vm.OpGetUpvalue, vm.OpClosure, vm.OpClass:
		return 0, 1
	case vm.OpPop, vm.OpDefineGlobal, vm.OpPrint, vm.OpCloseUpvalue:
		return 1, -1
	case vm.OpSetLocal, vm.OpSetGlobal, vm.OpSetUpvalue, vm.OpGetProperty,
		vm.OpNot, vm.OpNegate, vm.OpJumpIfFalse, vm.OpReturn:
		return 1, 0
	case vm.OpSetProperty, vm.OpGetSuper, vm.OpEqual, vm.OpGreater, vm.OpLess,
		vm.OpAdd, vm.OpSubtract, vm.OpMultiply, vm.OpDivide, vm.OpInherit, vm.OpMethod:
		return 2, -1
	case vm.OpCall:
		argc := int(code[offset+1])
		return argc + 1, -argc
	case vm.OpInvoke:
		argc := int(code[offset+2])
		return argc + 1, -argc
	case vm.OpSuperInvoke:
		argc := int(code[offset+2])
		return argc + 2, -(argc + 1)
	}
	return 0, 0
}

func operandBytes(op vm.Opcode) int {
	switch op {
	case vm.OpConstant, vm.OpGetGlobal, vm.OpDefineGlobal, vm.OpSetGlobal,
		vm.OpGetProperty, vm.OpSetProperty, vm.OpGetSuper, vm.OpClass, vm.OpMethod,
		vm.OpGetLocal, vm.OpSetLocal, vm.OpGetUpvalue, vm.OpSetUpvalue, vm.OpCall,
		vm.OpClosure:
		return 1
	case vm.OpJump, vm.OpJumpIfFalse, vm.OpLoop, vm.OpInvoke, vm.OpSuperInvoke:
		return 2
	}
	return 0
}

func jumpDistance(code []byte, offset int) int {
	return int(code[offset+1])<<8 | int(code[offset+2])
}

func constantAt(src *FunctionImage, offset int, index byte) (*ConstantImage, error) {
	if int(index) >= len(src.Constants) {
		return nil, corruptAt(offset, "constant %d of %d", index, len(src.Constants))
	}
	return &src.Constants[index], nil
}

func corruptAt(offset int, format string, args ...any) error {
	return fmt.Errorf("%w: offset %04d: %s", ErrCorrupt, offset, fmt.Sprintf(format, args...))
}
