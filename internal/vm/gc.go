package vm

import (
	"strconv"

	"loxmin/internal/trace"
)

// Collect runs a full mark-and-sweep cycle. Re-entrant calls are ignored.
func (h *Heap) Collect() {
	if h.collecting {
		return
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	before := h.bytesAllocated
	span := trace.Begin(h.tracer, trace.ScopeGC, "gc", 0)

	h.markRoots()
	h.traceReferences()
	h.strings.removeWhite()
	h.sweep()

	h.nextGC = h.bytesAllocated * h.growthFactor
	h.collections++
	h.bytesFreed += before - h.bytesAllocated

	span.WithExtra("before", strconv.Itoa(before)).
		WithExtra("after", strconv.Itoa(h.bytesAllocated)).
		WithExtra("next", strconv.Itoa(h.nextGC)).
		End("collected " + strconv.Itoa(before-h.bytesAllocated) + " bytes")
}

func (h *Heap) markRoots() {
	for _, v := range h.pinned {
		h.MarkValue(v)
	}
	if h.initString != nil {
		h.MarkObject(h.initString)
	}
	for _, r := range h.roots {
		r.MarkRoots(h)
	}
}

// MarkValue grays v if it is an unmarked object.
func (h *Heap) MarkValue(v Value) {
	if v.IsObject() {
		h.MarkObject(h.Get(v.AsHandle()))
	}
}

// MarkObject grays o if it is not marked yet. o must not be a nil pointer.
func (h *Heap) MarkObject(o Obj) {
	hdr := o.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	h.gray = append(h.gray, o)
}

// MarkTable marks every key and value of t.
func (h *Heap) MarkTable(t *Table) { t.mark(h) }

func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		o := h.gray[n]
		h.gray[n] = nil
		h.gray = h.gray[:n]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o Obj) {
	switch obj := o.(type) {
	case *Closure:
		h.MarkObject(obj.Function)
		for _, uv := range obj.Upvalues {
			if uv != nil {
				h.MarkObject(uv)
			}
		}
	case *Function:
		if obj.Name != nil {
			h.MarkObject(obj.Name)
		}
		for _, v := range obj.Chunk.Constants {
			h.MarkValue(v)
		}
	case *Upvalue:
		h.MarkValue(obj.closed)
	case *Class:
		h.MarkObject(obj.Name)
		obj.Methods.mark(h)
	case *Instance:
		h.MarkObject(obj.Class)
		obj.Fields.mark(h)
	case *BoundMethod:
		h.MarkValue(obj.Receiver)
		h.MarkObject(obj.Method)
	case *String, *Native:
	}
}

func (h *Heap) sweep() {
	var prev Obj
	cur := h.head
	for cur != 0 {
		o := h.objects[cur-1]
		hdr := o.header()
		next := hdr.next
		if hdr.marked {
			hdr.marked = false
			prev = o
			cur = next
			continue
		}
		if prev == nil {
			h.head = next
		} else {
			prev.header().next = next
		}
		h.freeObject(o)
		cur = next
	}
}
