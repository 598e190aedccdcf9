package vm

import "fmt"

func (vm *VM) run() {
	frame := &vm.frames[vm.frameCount-1]
	h := vm.Heap

	for {
		if vm.Trace != nil {
			vm.Trace.TraceInstr(vm, frame)
		}

		switch op := Opcode(frame.readByte()); op {
		case OpConstant:
			vm.Push(frame.readConstant())
		case OpNil:
			vm.Push(Nil)
		case OpTrue:
			vm.Push(True)
		case OpFalse:
			vm.Push(False)
		case OpPop:
			vm.Pop()

		case OpGetLocal:
			slot := int(frame.readByte())
			vm.Push(vm.stack[frame.base+slot])
		case OpSetLocal:
			slot := int(frame.readByte())
			vm.stack[frame.base+slot] = vm.Peek(0)

		case OpGetGlobal:
			name := frame.readString(h)
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError(PanicUndefinedVariable, "Undefined variable '%s'.", name.Chars)
			}
			vm.Push(v)
		case OpDefineGlobal:
			name := frame.readString(h)
			vm.globals.Set(name, vm.Peek(0))
			vm.Pop()
		case OpSetGlobal:
			name := frame.readString(h)
			if vm.globals.Set(name, vm.Peek(0)) {
				vm.globals.Delete(name)
				vm.runtimeError(PanicUndefinedVariable, "Undefined variable '%s'.", name.Chars)
			}

		case OpGetUpvalue:
			uv := frame.closure.Upvalues[frame.readByte()]
			vm.Push(vm.upvalueGet(uv))
		case OpSetUpvalue:
			uv := frame.closure.Upvalues[frame.readByte()]
			vm.upvalueSet(uv, vm.Peek(0))

		case OpGetProperty:
			inst, ok := As[*Instance](h, vm.Peek(0))
			if !ok {
				vm.runtimeError(PanicNotInstance, "Only instances have properties.")
			}
			name := frame.readString(h)
			if v, ok := inst.Fields.Get(name); ok {
				vm.Pop()
				vm.Push(v)
				break
			}
			vm.bindMethod(inst.Class, name)
		case OpSetProperty:
			inst, ok := As[*Instance](h, vm.Peek(1))
			if !ok {
				vm.runtimeError(PanicNotInstance, "Only instances have fields.")
			}
			inst.Fields.Set(frame.readString(h), vm.Peek(0))
			v := vm.Pop()
			vm.Pop()
			vm.Push(v)
		case OpGetSuper:
			name := frame.readString(h)
			superclass := vm.classOperand(OpGetSuper, vm.Pop())
			vm.bindMethod(superclass, name)

		case OpEqual:
			b := vm.Pop()
			a := vm.Pop()
			vm.Push(BoolValue(ValuesEqual(a, b)))
		case OpGreater:
			a, b := vm.numberOperands()
			vm.Push(BoolValue(a > b))
		case OpLess:
			a, b := vm.numberOperands()
			vm.Push(BoolValue(a < b))
		case OpAdd:
			vm.add()
		case OpSubtract:
			a, b := vm.numberOperands()
			vm.Push(NumberValue(a - b))
		case OpMultiply:
			a, b := vm.numberOperands()
			vm.Push(NumberValue(a * b))
		case OpDivide:
			a, b := vm.numberOperands()
			vm.Push(NumberValue(a / b))
		case OpNot:
			vm.Push(BoolValue(IsFalsey(vm.Pop())))
		case OpNegate:
			if !vm.Peek(0).IsNumber() {
				vm.runtimeError(PanicTypeMismatch, "Operand must be a number.")
			}
			vm.Push(NumberValue(-vm.Pop().AsNumber()))

		case OpPrint:
			fmt.Fprintln(vm.Out, h.FormatValue(vm.Pop()))

		case OpJump:
			offset := frame.readShort()
			frame.ip += offset
		case OpJumpIfFalse:
			offset := frame.readShort()
			if IsFalsey(vm.Peek(0)) {
				frame.ip += offset
			}
		case OpLoop:
			offset := frame.readShort()
			frame.ip -= offset

		case OpCall:
			argCount := int(frame.readByte())
			vm.callValue(vm.Peek(argCount), argCount)
			frame = &vm.frames[vm.frameCount-1]
		case OpInvoke:
			method := frame.readString(h)
			argCount := int(frame.readByte())
			vm.invoke(method, argCount)
			frame = &vm.frames[vm.frameCount-1]
		case OpSuperInvoke:
			method := frame.readString(h)
			argCount := int(frame.readByte())
			superclass := vm.classOperand(OpSuperInvoke, vm.Pop())
			vm.invokeFromClass(superclass, method, argCount)
			frame = &vm.frames[vm.frameCount-1]

		case OpClosure:
			fn := h.Get(frame.readConstant().AsHandle()).(*Function)
			closure := h.NewClosure(fn)
			vm.Push(closure.Value())
			for i := range closure.Upvalues {
				isLocal := frame.readByte()
				index := int(frame.readByte())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.Pop()

		case OpReturn:
			result := vm.Pop()
			vm.closeUpvalues(frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.Pop()
				return
			}
			vm.sp = frame.base
			vm.Push(result)
			frame = &vm.frames[vm.frameCount-1]

		case OpClass:
			vm.Push(h.NewClass(frame.readString(h)).Value())
		case OpInherit:
			superclass, ok := As[*Class](h, vm.Peek(1))
			if !ok {
				vm.runtimeError(PanicBadSuperclass, "Superclass must be a class.")
			}
			subclass := vm.classOperand(OpInherit, vm.Peek(0))
			subclass.Methods.AddAll(&superclass.Methods)
			vm.Pop()
		case OpMethod:
			vm.defineMethod(frame.readString(h))

		default:
			panic(internalError(PanicBadOpcode, fmt.Sprintf("unknown opcode %d at offset %d", op, frame.ip-1)))
		}
	}
}

// numberOperands pops two numeric operands, left first.
func (vm *VM) numberOperands() (float64, float64) {
	b, a := vm.Peek(0), vm.Peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		vm.runtimeError(PanicTypeMismatch, "Operands must be numbers.")
	}
	vm.sp -= 2
	return a.AsNumber(), b.AsNumber()
}

func (vm *VM) add() {
	b, a := vm.Peek(0), vm.Peek(1)
	if a.IsNumber() && b.IsNumber() {
		vm.sp -= 2
		vm.Push(NumberValue(a.AsNumber() + b.AsNumber()))
		return
	}
	sa, okA := As[*String](vm.Heap, a)
	sb, okB := As[*String](vm.Heap, b)
	if !okA || !okB {
		vm.runtimeError(PanicTypeMismatch, "Operands must be two numbers or two strings.")
	}
	vm.concatenate(sa, sb)
}

// concatenate joins the two strings on top of the stack. Both stay on the
// stack until the result is interned.
func (vm *VM) concatenate(a, b *String) {
	vm.Heap.ReserveString(len(a.Chars) + len(b.Chars))
	result := vm.Heap.TakeString(a.Chars + b.Chars)
	vm.sp -= 2
	vm.Push(result.Value())
}
