package vm

func (vm *VM) callValue(callee Value, argCount int) {
	if callee.IsObject() {
		switch obj := vm.Heap.Get(callee.AsHandle()).(type) {
		case *BoundMethod:
			vm.stack[vm.sp-argCount-1] = obj.Receiver
			vm.call(obj.Method, argCount)
			return
		case *Class:
			inst := vm.Heap.NewInstance(obj)
			vm.stack[vm.sp-argCount-1] = inst.Value()
			if initializer, ok := obj.Methods.Get(vm.Heap.initString); ok {
				vm.call(vm.Heap.Get(initializer.AsHandle()).(*Closure), argCount)
			} else if argCount != 0 {
				vm.runtimeError(PanicArityMismatch, "Expected 0 arguments but got %d.", argCount)
			}
			return
		case *Closure:
			vm.call(obj, argCount)
			return
		case *Native:
			vm.callNative(obj, argCount)
			return
		}
	}
	vm.runtimeError(PanicNotCallable, "Can only call functions and classes.")
}

func (vm *VM) call(closure *Closure, argCount int) {
	if argCount != closure.Function.Arity {
		vm.runtimeError(PanicArityMismatch, "Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == len(vm.frames) {
		vm.runtimeError(PanicStackOverflow, "Stack overflow.")
	}
	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.base = vm.sp - argCount - 1
}

// callNative runs a host function on the arguments in place and replaces
// the callee and arguments with its result.
func (vm *VM) callNative(native *Native, argCount int) {
	result, err := native.Fn(vm.stack[vm.sp-argCount : vm.sp])
	if err != nil {
		vm.runtimeError(PanicNative, "%s", err.Error())
	}
	vm.sp -= argCount + 1
	vm.Push(result)
}

// invoke calls a method by name on the receiver below the arguments. A
// field holding a callable shadows a method of the same name.
func (vm *VM) invoke(name *String, argCount int) {
	inst, ok := As[*Instance](vm.Heap, vm.Peek(argCount))
	if !ok {
		vm.runtimeError(PanicNotInstance, "Only instances have methods.")
	}
	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.sp-argCount-1] = v
		vm.callValue(v, argCount)
		return
	}
	vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *Class, name *String, argCount int) {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.runtimeError(PanicUndefinedProperty, "Undefined property '%s'.", name.Chars)
	}
	vm.call(vm.Heap.Get(method.AsHandle()).(*Closure), argCount)
}

// bindMethod replaces the receiver on top of the stack with a bound method.
func (vm *VM) bindMethod(class *Class, name *String) {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.runtimeError(PanicUndefinedProperty, "Undefined property '%s'.", name.Chars)
	}
	bound := vm.Heap.NewBoundMethod(vm.Peek(0), vm.Heap.Get(method.AsHandle()).(*Closure))
	vm.Pop()
	vm.Push(bound.Value())
}

// defineMethod adds the closure on top of the stack to the class below it.
// Method tables hold closures only.
func (vm *VM) defineMethod(name *String) {
	if _, ok := As[*Closure](vm.Heap, vm.Peek(0)); !ok {
		vm.runtimeError(PanicBadOperand, "%s expects a closure.", OpMethod)
	}
	class := vm.classOperand(OpMethod, vm.Peek(1))
	class.Methods.Set(name, vm.Peek(0))
	vm.Pop()
}

// classOperand resolves v to a class or raises a runtime error naming op.
func (vm *VM) classOperand(op Opcode, v Value) *Class {
	class, ok := As[*Class](vm.Heap, v)
	if !ok {
		vm.runtimeError(PanicBadOperand, "%s expects a class.", op)
	}
	return class
}

// captureUpvalue returns the open upvalue for slot, creating it if no
// closure has captured that slot yet. The open list stays sorted by
// descending slot.
func (vm *VM) captureUpvalue(slot int) *Upvalue {
	var prev *Upvalue
	uv := vm.openUpvalues
	for uv != nil && uv.slot > slot {
		prev = uv
		uv = uv.next
	}
	if uv != nil && uv.slot == slot {
		return uv
	}

	created := vm.Heap.NewUpvalue(slot)
	created.next = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues moves every open upvalue at or above last off the stack.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= last {
		uv := vm.openUpvalues
		uv.closed = vm.stack[uv.slot]
		uv.open = false
		vm.openUpvalues = uv.next
		uv.next = nil
	}
}

func (vm *VM) upvalueGet(uv *Upvalue) Value {
	if uv.open {
		return vm.stack[uv.slot]
	}
	return uv.closed
}

func (vm *VM) upvalueSet(uv *Upvalue, v Value) {
	if uv.open {
		vm.stack[uv.slot] = v
		return
	}
	uv.closed = v
}

// IsOpen reports whether the upvalue still refers to a stack slot.
func (uv *Upvalue) IsOpen() bool { return uv.open }

// Slot returns the captured stack slot of an open upvalue.
func (uv *Upvalue) Slot() int { return uv.slot }
