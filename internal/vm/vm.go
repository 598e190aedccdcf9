package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"loxmin/internal/trace"
)

const (
	// DefaultMaxFrames is the call depth limit.
	DefaultMaxFrames = 64
	// DefaultStackSlotsPerFrame sizes the value stack per frame.
	DefaultStackSlotsPerFrame = 256
)

// InterpretResult is the outcome of one Interpret call.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// String returns the result name.
func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return "unknown"
	}
}

// CompileFunc produces the top-level function on the VM's heap. It must
// keep partially built functions rooted while it allocates.
type CompileFunc func(h *Heap) (*Function, error)

// Options configures VM execution.
type Options struct {
	StressGC           bool         // collect on every growing allocation
	InitialGC          int          // first collection threshold, bytes
	GrowthFactor       int          // threshold multiplier after a collection
	MaxFrames          int          // call depth limit
	StackSlotsPerFrame int          // value stack slots per frame
	Out                io.Writer    // print statement output
	Err                io.Writer    // runtime error reports; nil silences them
	Trace              *Tracer      // execution tracing
	Events             trace.Tracer // gc and allocation events
}

// VM is a Lox bytecode interpreter. A VM is not safe for concurrent use.
type VM struct {
	Heap  *Heap
	Out   io.Writer
	Err   io.Writer
	Trace *Tracer

	frames     []CallFrame
	frameCount int
	stack      []Value
	sp         int

	globals      Table
	openUpvalues *Upvalue

	lastErr    *VMError
	compileErr error
	started    time.Time
}

// New creates a VM with the clock native defined.
func New(opts Options) *VM {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = DefaultMaxFrames
	}
	if opts.StackSlotsPerFrame <= 0 {
		opts.StackSlotsPerFrame = DefaultStackSlotsPerFrame
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	vm := &VM{
		Out:     opts.Out,
		Err:     opts.Err,
		Trace:   opts.Trace,
		frames:  make([]CallFrame, opts.MaxFrames),
		stack:   make([]Value, opts.MaxFrames*opts.StackSlotsPerFrame),
		started: time.Now(),
	}
	vm.Heap = NewHeap(HeapOptions{
		StressGC:     opts.StressGC,
		InitialGC:    opts.InitialGC,
		GrowthFactor: opts.GrowthFactor,
		Tracer:       opts.Events,
	})
	vm.globals = NewTable(vm.Heap)
	vm.Heap.AddRoots(vm)

	vm.DefineNative("clock", vm.clockNative)
	return vm
}

// Free tears down the globals and every heap object.
func (vm *VM) Free() {
	vm.resetStack()
	vm.globals.Free()
	vm.Heap.RemoveRoots(vm)
	vm.Heap.Free()
}

// Interpret compiles and runs one program. Runtime errors are reported to
// Err with a backtrace and leave the VM ready for the next call.
func (vm *VM) Interpret(compile CompileFunc) InterpretResult {
	vm.lastErr = nil
	vm.compileErr = nil

	fn, err := compile(vm.Heap)
	if err != nil {
		vm.compileErr = err
		return InterpretCompileError
	}
	return vm.execute(fn)
}

// LastError returns the runtime error of the last Interpret call, if any.
func (vm *VM) LastError() *VMError { return vm.lastErr }

// LastCompileError returns the error of the last failed compilation.
func (vm *VM) LastCompileError() error { return vm.compileErr }

func (vm *VM) execute(fn *Function) (result InterpretResult) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(*VMError)
		if !ok || e.Code.Internal() {
			panic(r)
		}
		vm.lastErr = e
		if vm.Err != nil {
			fmt.Fprint(vm.Err, e.Format())
		}
		vm.resetStack()
		result = InterpretRuntimeError
	}()

	vm.Push(fn.Value())
	closure := vm.Heap.NewClosure(fn)
	vm.Pop()
	vm.Push(closure.Value())
	vm.call(closure, 0)
	vm.run()
	return InterpretOK
}

func (vm *VM) resetStack() {
	clear(vm.stack[:vm.sp])
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Push pushes v on the value stack.
func (vm *VM) Push(v Value) {
	if vm.sp == len(vm.stack) {
		vm.runtimeError(PanicStackOverflow, "Stack overflow.")
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

// Pop removes and returns the top of the value stack.
func (vm *VM) Pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

// Peek returns the value distance slots below the top.
func (vm *VM) Peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

// StackDepth returns the number of values on the stack.
func (vm *VM) StackDepth() int { return vm.sp }

// FrameDepth returns the number of active call frames.
func (vm *VM) FrameDepth() int { return vm.frameCount }

// DefineNative binds a host function to a global name.
func (vm *VM) DefineNative(name string, fn NativeFn) {
	nameStr := vm.Heap.CopyString(name)
	vm.Push(nameStr.Value())
	native := vm.Heap.NewNative(name, fn)
	vm.Push(native.Value())
	vm.globals.Set(nameStr, native.Value())
	vm.Pop()
	vm.Pop()
}

// Global looks up a global variable by name.
func (vm *VM) Global(name string) (Value, bool) {
	s, ok := vm.Heap.Intern(name)
	if !ok {
		return Nil, false
	}
	return vm.globals.Get(s)
}

// MarkRoots marks the value stack, frame closures, open upvalues and globals.
func (vm *VM) MarkRoots(h *Heap) {
	for i := 0; i < vm.sp; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.next {
		h.MarkObject(uv)
	}
	vm.globals.mark(h)
}
