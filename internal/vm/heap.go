package vm

import (
	"fmt"

	"loxmin/internal/trace"
)

const (
	// DefaultInitialGC is the byte threshold of the first collection.
	DefaultInitialGC = 1024 * 1024
	// DefaultGrowthFactor scales the threshold after each collection.
	DefaultGrowthFactor = 2
)

// HeapOptions configures a Heap.
type HeapOptions struct {
	StressGC     bool         // collect before every growing allocation
	InitialGC    int          // first collection threshold in bytes
	GrowthFactor int          // nextGC = bytesAllocated * GrowthFactor
	Tracer       trace.Tracer // receives gc and alloc events
}

// RootSource contributes roots to a collection.
type RootSource interface {
	MarkRoots(h *Heap)
}

// Heap owns every object of one VM. Objects live in an arena addressed by
// Handle; freed slots are reused. All byte accounting goes through
// reallocate, which is the only place a collection can start.
type Heap struct {
	objects []Obj    // index = handle-1, nil when free
	free    []Handle // reusable slots
	head    Handle   // allocation list
	live    int

	strings    Table
	initString *String

	bytesAllocated int
	nextGC         int
	growthFactor   int
	stress         bool

	roots      []RootSource
	pinned     []Value
	gray       []Obj
	collecting bool

	collections int
	bytesFreed  int

	tracer     trace.Tracer
	traceAlloc bool
}

// NewHeap creates a heap and interns the initializer name.
func NewHeap(opts HeapOptions) *Heap {
	h := &Heap{
		nextGC:       opts.InitialGC,
		growthFactor: opts.GrowthFactor,
		stress:       opts.StressGC,
		tracer:       opts.Tracer,
	}
	if h.nextGC <= 0 {
		h.nextGC = DefaultInitialGC
	}
	if h.growthFactor <= 0 {
		h.growthFactor = DefaultGrowthFactor
	}
	if h.tracer == nil {
		h.tracer = trace.Nop
	}
	h.traceAlloc = h.tracer.Enabled() && h.tracer.Level().ShouldEmit(trace.ScopeAlloc)
	h.strings = NewTable(h)
	h.initString = h.CopyString("init")
	return h
}

// InitString returns the interned "init".
func (h *Heap) InitString() *String { return h.initString }

// SetStress toggles collection on every growing allocation.
func (h *Heap) SetStress(on bool) { h.stress = on }

// BytesAllocated returns the running byte counter.
func (h *Heap) BytesAllocated() int { return h.bytesAllocated }

// reallocate is the single accounting entry point. A growing request may
// start a collection; shrinking never does.
func (h *Heap) reallocate(oldSize, newSize int) {
	h.bytesAllocated += newSize - oldSize
	if newSize > oldSize && !h.collecting {
		if h.stress || h.bytesAllocated > h.nextGC {
			h.Collect()
		}
	}
}

// allocate accounts size-prepaid bytes and links obj into the heap.
// Anything obj references must already be reachable from a root.
func allocate[T Obj](h *Heap, obj T, kind ObjectKind, size, prepaid int) T {
	h.reallocate(0, size-prepaid)

	hdr := obj.header()
	hdr.kind = kind
	hdr.size = size
	hdr.marked = false

	var handle Handle
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
		h.objects[handle-1] = obj
	} else {
		h.objects = append(h.objects, obj)
		handle = Handle(len(h.objects))
	}
	hdr.self = handle
	hdr.next = h.head
	h.head = handle
	h.live++

	if h.traceAlloc {
		trace.Point(h.tracer, trace.ScopeAlloc, "alloc", fmt.Sprintf("%s#%d %d bytes", kind, handle, size))
	}
	return obj
}

// Get resolves a handle. Invalid or freed handles are a VM bug and panic.
func (h *Heap) Get(handle Handle) Obj {
	if handle == 0 {
		panic(internalError(PanicInvalidHandle, "invalid handle 0"))
	}
	idx := int(handle) - 1
	if idx >= len(h.objects) {
		panic(internalError(PanicInvalidHandle, fmt.Sprintf("invalid handle %d", handle)))
	}
	obj := h.objects[idx]
	if obj == nil {
		panic(internalError(PanicUseAfterFree, fmt.Sprintf("use after free: handle %d", handle)))
	}
	return obj
}

// Lookup resolves a handle without panicking.
func (h *Heap) Lookup(handle Handle) (Obj, bool) {
	idx := int(handle) - 1
	if handle == 0 || idx >= len(h.objects) || h.objects[idx] == nil {
		return nil, false
	}
	return h.objects[idx], true
}

// As resolves v to an object of type T.
func As[T Obj](h *Heap, v Value) (T, bool) {
	var zero T
	if !v.IsObject() {
		return zero, false
	}
	obj, ok := h.Get(v.AsHandle()).(T)
	return obj, ok
}

// KindOf reports the object kind of v, or false for non-objects.
func (h *Heap) KindOf(v Value) (ObjectKind, bool) {
	if !v.IsObject() {
		return 0, false
	}
	return h.Get(v.AsHandle()).Kind(), true
}

// Pin roots o until the matching Unpin.
func (h *Heap) Pin(o Obj) { h.pinned = append(h.pinned, o.Value()) }

// PinValue roots v until the matching Unpin.
func (h *Heap) PinValue(v Value) { h.pinned = append(h.pinned, v) }

// Unpin releases the most recent pin.
func (h *Heap) Unpin() { h.pinned = h.pinned[:len(h.pinned)-1] }

// AddRoots registers a root source. Sources are consulted in order.
func (h *Heap) AddRoots(r RootSource) { h.roots = append(h.roots, r) }

// RemoveRoots unregisters r.
func (h *Heap) RemoveRoots(r RootSource) {
	for i, x := range h.roots {
		if x == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// CopyString returns the interned string with content chars.
func (h *Heap) CopyString(chars string) *String {
	hash := hashString(chars)
	if s := h.strings.FindString(chars, hash); s != nil {
		return s
	}
	return h.allocateString(chars, hash, 0)
}

// ReserveString accounts the buffer of a string under construction. The
// bytes must be handed to TakeString, which either keeps or releases them.
func (h *Heap) ReserveString(n int) { h.reallocate(0, n+1) }

// TakeString interns chars whose buffer was already accounted by
// ReserveString(len(chars)). When an equal string exists the reservation is
// released; releasing never starts a collection.
func (h *Heap) TakeString(chars string) *String {
	hash := hashString(chars)
	if s := h.strings.FindString(chars, hash); s != nil {
		h.reallocate(len(chars)+1, 0)
		return s
	}
	return h.allocateString(chars, hash, len(chars)+1)
}

func (h *Heap) allocateString(chars string, hash uint32, prepaid int) *String {
	s := allocate(h, &String{Chars: chars, Hash: hash}, OKString, sizeString+len(chars)+1, prepaid)
	h.Pin(s)
	h.strings.Set(s, Nil)
	h.Unpin()
	return s
}

// Intern returns the interned string for chars if one exists.
func (h *Heap) Intern(chars string) (*String, bool) {
	s := h.strings.FindString(chars, hashString(chars))
	return s, s != nil
}

// NewFunction allocates an empty function; nil name marks the script.
func (h *Heap) NewFunction() *Function {
	fn := allocate(h, &Function{}, OKFunction, sizeFunction, 0)
	fn.Chunk = NewChunk(h)
	return fn
}

// NewNative wraps a host function.
func (h *Heap) NewNative(name string, fn NativeFn) *Native {
	return allocate(h, &Native{Name: name, Fn: fn}, OKNative, sizeNative+len(name), 0)
}

// NewClosure allocates a closure with empty upvalue slots. fn must be rooted.
func (h *Heap) NewClosure(fn *Function) *Closure {
	n := fn.UpvalueCount
	return allocate(h, &Closure{Function: fn, Upvalues: make([]*Upvalue, n)}, OKClosure, sizeClosure+n*sizePointer, 0)
}

// NewUpvalue allocates an open upvalue for a stack slot.
func (h *Heap) NewUpvalue(slot int) *Upvalue {
	return allocate(h, &Upvalue{slot: slot, open: true, closed: Nil}, OKUpvalue, sizeUpvalue, 0)
}

// NewClass allocates a class. name must be rooted.
func (h *Heap) NewClass(name *String) *Class {
	return allocate(h, &Class{Name: name, Methods: NewTable(h)}, OKClass, sizeClass, 0)
}

// NewInstance allocates an instance. class must be rooted.
func (h *Heap) NewInstance(class *Class) *Instance {
	return allocate(h, &Instance{Class: class, Fields: NewTable(h)}, OKInstance, sizeInstance, 0)
}

// NewBoundMethod binds method to receiver. Both must be rooted.
func (h *Heap) NewBoundMethod(receiver Value, method *Closure) *BoundMethod {
	return allocate(h, &BoundMethod{Receiver: receiver, Method: method}, OKBoundMethod, sizeBoundMethod, 0)
}

func (h *Heap) freeObject(o Obj) {
	hdr := o.header()
	switch obj := o.(type) {
	case *Function:
		obj.Chunk.Free()
	case *Class:
		obj.Methods.Free()
	case *Instance:
		obj.Fields.Free()
	case *Closure:
		obj.Upvalues = nil
	}
	if h.traceAlloc {
		trace.Point(h.tracer, trace.ScopeAlloc, "free", fmt.Sprintf("%s#%d %d bytes", hdr.kind, hdr.self, hdr.size))
	}
	h.reallocate(hdr.size, 0)
	h.objects[hdr.self-1] = nil
	h.free = append(h.free, hdr.self)
	h.live--
	hdr.self = 0
	hdr.next = 0
}

// Free releases every object and the intern table.
func (h *Heap) Free() {
	for cur := h.head; cur != 0; {
		o := h.objects[cur-1]
		next := o.header().next
		h.freeObject(o)
		cur = next
	}
	h.head = 0
	h.strings.Free()
	h.initString = nil
	h.gray = nil
	h.pinned = nil
}

// Stats is a snapshot of heap accounting.
type Stats struct {
	BytesAllocated int
	NextGC         int
	Objects        int
	Collections    int
	BytesFreed     int
	Interned       int
}

// Stats returns current accounting figures.
func (h *Heap) Stats() Stats {
	return Stats{
		BytesAllocated: h.bytesAllocated,
		NextGC:         h.nextGC,
		Objects:        h.live,
		Collections:    h.collections,
		BytesFreed:     h.bytesFreed,
		Interned:       h.strings.Len(),
	}
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
