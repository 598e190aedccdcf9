package vm

import "unsafe"

// Handle is a stable reference to a heap object. Handle(0) is always invalid.
type Handle uint32

// ObjectKind identifies the kind of heap object.
type ObjectKind uint8

const (
	OKString ObjectKind = iota
	OKFunction
	OKNative
	OKClosure
	OKUpvalue
	OKClass
	OKInstance
	OKBoundMethod
)

// String returns a human-readable name for the object kind.
func (k ObjectKind) String() string {
	switch k {
	case OKString:
		return "string"
	case OKFunction:
		return "function"
	case OKNative:
		return "native"
	case OKClosure:
		return "closure"
	case OKUpvalue:
		return "upvalue"
	case OKClass:
		return "class"
	case OKInstance:
		return "instance"
	case OKBoundMethod:
		return "bound method"
	default:
		return "unknown"
	}
}

// Header is embedded in every heap object.
type Header struct {
	kind   ObjectKind
	marked bool
	self   Handle
	next   Handle // allocation list link
	size   int    // bytes accounted at allocation
}

func (o *Header) header() *Header { return o }

// Kind reports the object's kind tag.
func (o *Header) Kind() ObjectKind { return o.kind }

// Handle reports the handle the object was allocated under.
func (o *Header) Handle() Handle { return o.self }

// Value wraps the object in a Value.
func (o *Header) Value() Value { return ObjectValue(o.self) }

// Obj is implemented by every heap object kind.
type Obj interface {
	header() *Header
	Kind() ObjectKind
	Handle() Handle
	Value() Value
}

// String is an immutable interned string.
type String struct {
	Header
	Chars string
	Hash  uint32
}

// Function is a compiled function body. A nil Name marks the top-level script.
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *String
}

// NativeFn is a host callback. args aliases the VM stack and must not be
// retained after the call returns.
type NativeFn func(args []Value) (Value, error)

// Native wraps a host function.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

// Upvalue is a captured variable. While open it refers to a live stack
// slot; once closed it owns the value.
type Upvalue struct {
	Header
	slot   int
	open   bool
	closed Value
	next   *Upvalue // open list, sorted by descending slot
}

// Closure pairs a function with its captured environment.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

// Class holds a name and its method table.
type Class struct {
	Header
	Name    *String
	Methods Table
}

// Instance is an object of a class with its own fields.
type Instance struct {
	Header
	Class  *Class
	Fields Table
}

// BoundMethod is a method closure bound to a receiver.
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

var (
	sizeString      = int(unsafe.Sizeof(String{}))
	sizeFunction    = int(unsafe.Sizeof(Function{}))
	sizeNative      = int(unsafe.Sizeof(Native{}))
	sizeUpvalue     = int(unsafe.Sizeof(Upvalue{}))
	sizeClosure     = int(unsafe.Sizeof(Closure{}))
	sizeClass       = int(unsafe.Sizeof(Class{}))
	sizeInstance    = int(unsafe.Sizeof(Instance{}))
	sizeBoundMethod = int(unsafe.Sizeof(BoundMethod{}))
	sizePointer     = int(unsafe.Sizeof(uintptr(0)))
)
