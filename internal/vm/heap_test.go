package vm

import (
	"errors"
	"testing"
)

func TestCopyStringInterns(t *testing.T) {
	h := NewHeap(HeapOptions{})
	defer h.Free()

	a := h.CopyString("lox")
	objects := h.Stats().Objects
	b := h.CopyString("lox")
	if a != b || a.Handle() != b.Handle() {
		t.Fatal("equal strings were not interned to one object")
	}
	if h.Stats().Objects != objects {
		t.Fatal("interning allocated a second object")
	}
	if got, ok := h.Intern("lox"); !ok || got != a {
		t.Fatal("Intern did not find the string")
	}
	if _, ok := h.Intern("missing"); ok {
		t.Fatal("Intern found a string that was never created")
	}
	if h.InitString().Chars != "init" {
		t.Fatalf("init string = %q", h.InitString().Chars)
	}
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := NewHeap(HeapOptions{})
	defer h.Free()

	kept := h.CopyString("kept")
	garbage := h.CopyString("garbage")
	garbageHandle := garbage.Handle()
	h.Pin(kept)
	defer h.Unpin()

	before := h.BytesAllocated()
	h.Collect()

	if h.BytesAllocated() >= before {
		t.Fatalf("bytes %d not below %d after collect", h.BytesAllocated(), before)
	}
	if _, ok := h.Lookup(garbageHandle); ok {
		t.Fatal("unreachable string survived")
	}
	if _, ok := h.Intern("garbage"); ok {
		t.Fatal("intern table still holds a swept string")
	}
	if _, ok := h.Lookup(kept.Handle()); !ok {
		t.Fatal("pinned string was swept")
	}
	if _, ok := h.Lookup(h.InitString().Handle()); !ok {
		t.Fatal("init string was swept")
	}

	st := h.Stats()
	if st.Collections != 1 || st.BytesFreed != before-h.BytesAllocated() {
		t.Fatalf("stats = %+v", st)
	}
	if st.NextGC != h.BytesAllocated()*DefaultGrowthFactor {
		t.Fatalf("next gc = %d, want %d", st.NextGC, h.BytesAllocated()*DefaultGrowthFactor)
	}

	// the freed slot is handed out again
	again := h.CopyString("fresh")
	if again.Handle() != garbageHandle {
		t.Fatalf("handle %d not reused, got %d", garbageHandle, again.Handle())
	}
}

func TestCollectTracesReferences(t *testing.T) {
	h := NewHeap(HeapOptions{})
	defer h.Free()

	name := h.CopyString("Point")
	h.Pin(name)
	class := h.NewClass(name)
	h.Unpin()
	h.Pin(class)
	defer h.Unpin()

	inst := h.NewInstance(class)
	h.Pin(inst)
	field := h.CopyString("x")
	value := h.CopyString("payload")
	inst.Fields.Set(field, value.Value())
	h.Unpin()

	// only the instance's class is pinned now; the instance itself is garbage
	instHandle := inst.Handle()
	h.Collect()
	if _, ok := h.Lookup(instHandle); ok {
		t.Fatal("unreachable instance survived")
	}
	if _, ok := h.Intern("payload"); ok {
		t.Fatal("field value of a dead instance survived")
	}
	if _, ok := h.Lookup(name.Handle()); !ok {
		t.Fatal("class name swept while the class is pinned")
	}

	kept := h.NewInstance(class)
	h.Pin(kept)
	defer h.Unpin()
	field = h.CopyString("x")
	value = h.CopyString("payload")
	kept.Fields.Set(field, value.Value())
	h.Collect()
	if _, ok := h.Intern("payload"); !ok {
		t.Fatal("field value of a live instance was swept")
	}
}

func TestStressGCCollectsOnEveryGrowth(t *testing.T) {
	h := NewHeap(HeapOptions{StressGC: true})
	defer h.Free()

	start := h.Stats().Collections
	s := h.CopyString("a")
	h.Pin(s)
	defer h.Unpin()
	if h.Stats().Collections <= start {
		t.Fatal("stress mode did not collect on allocation")
	}

	h.SetStress(false)
	start = h.Stats().Collections
	h.CopyString("b")
	if h.Stats().Collections != start {
		t.Fatal("collection without stress below the threshold")
	}
}

func TestThresholdTriggersCollection(t *testing.T) {
	h := NewHeap(HeapOptions{InitialGC: 256, GrowthFactor: 4})
	defer h.Free()

	for i := 0; h.Stats().Collections == 0; i++ {
		if i > 100 {
			t.Fatal("no collection after crossing the threshold")
		}
		h.CopyString(string(rune('a'+i%26)) + string(rune('A'+i/26)))
	}
	st := h.Stats()
	if st.Collections != 1 || st.NextGC <= 0 || st.NextGC%4 != 0 {
		t.Fatalf("stats after first threshold collection = %+v", st)
	}
	if st.Interned > 3 {
		t.Fatalf("interned = %d, earlier strings should be swept", st.Interned)
	}
}

func TestTakeStringReleasesDuplicate(t *testing.T) {
	h := NewHeap(HeapOptions{StressGC: true})
	defer h.Free()

	existing := h.CopyString("ab")
	h.Pin(existing)
	defer h.Unpin()

	base := h.BytesAllocated()
	h.ReserveString(2)
	if h.BytesAllocated() != base+3 {
		t.Fatalf("reservation accounted %d bytes, want 3", h.BytesAllocated()-base)
	}
	collections := h.Stats().Collections

	got := h.TakeString("ab")
	if got != existing {
		t.Fatal("TakeString did not return the interned string")
	}
	if h.BytesAllocated() != base {
		t.Fatalf("bytes = %d, want %d after releasing the duplicate", h.BytesAllocated(), base)
	}
	if h.Stats().Collections != collections {
		t.Fatal("releasing a reservation started a collection")
	}
}

func TestTakeStringKeepsReservation(t *testing.T) {
	h := NewHeap(HeapOptions{})
	defer h.Free()

	base := h.BytesAllocated()
	h.ReserveString(3)
	s := h.TakeString("new")
	if s.Chars != "new" {
		t.Fatalf("chars = %q", s.Chars)
	}
	// the object costs its full size once, not size plus reservation
	want := base + sizeString + len("new") + 1
	if got := h.BytesAllocated(); got != want {
		t.Fatalf("bytes = %d, want %d", got, want)
	}
	if interned, _ := h.Intern("new"); interned != s {
		t.Fatal("taken string is not interned")
	}
}

func TestUseAfterFreePanics(t *testing.T) {
	h := NewHeap(HeapOptions{})
	defer h.Free()

	handle := h.CopyString("doomed").Handle()
	h.Collect()

	defer func() {
		r := recover()
		err, ok := r.(error)
		var vmErr *VMError
		if !ok || !errors.As(err, &vmErr) || vmErr.Code != PanicUseAfterFree {
			t.Fatalf("recovered %v, want use-after-free", r)
		}
		if !vmErr.Code.Internal() {
			t.Fatal("use after free is not an internal error")
		}
	}()
	h.Get(handle)
}

func TestInvalidHandlePanics(t *testing.T) {
	h := NewHeap(HeapOptions{})
	defer h.Free()

	for _, handle := range []Handle{0, 1 << 30} {
		func() {
			defer func() {
				e, ok := recover().(*VMError)
				if !ok || e.Code != PanicInvalidHandle {
					t.Fatalf("handle %d: recovered %v", handle, e)
				}
			}()
			h.Get(handle)
		}()
	}
}

func TestFreeReleasesEverything(t *testing.T) {
	h := NewHeap(HeapOptions{})

	fn := h.NewFunction()
	h.Pin(fn)
	fn.Name = h.CopyString("f")
	fn.Chunk.AddConstant(h.CopyString("const").Value())
	for i := 0; i < 20; i++ {
		fn.Chunk.WriteOp(OpNil, 1)
	}
	fn.UpvalueCount = 2
	closure := h.NewClosure(fn)
	h.Pin(closure)
	class := h.NewClass(fn.Name)
	h.Pin(class)
	class.Methods.Set(fn.Name, closure.Value())
	inst := h.NewInstance(class)
	inst.Fields.Set(h.CopyString("field"), NumberValue(1))
	h.NewBoundMethod(inst.Value(), closure)
	h.NewNative("clock", nil)
	h.NewUpvalue(0)
	h.Unpin()
	h.Unpin()
	h.Unpin()

	if h.BytesAllocated() == 0 {
		t.Fatal("nothing accounted")
	}
	h.Free()
	if got := h.BytesAllocated(); got != 0 {
		t.Fatalf("bytes after Free = %d", got)
	}
	if got := h.Stats().Objects; got != 0 {
		t.Fatalf("objects after Free = %d", got)
	}
}

func TestHashString(t *testing.T) {
	// FNV-1a reference values
	tests := map[string]uint32{
		"":       2166136261,
		"a":      0xe40c292c,
		"foobar": 0xbf9cf968,
	}
	for s, want := range tests {
		if got := hashString(s); got != want {
			t.Fatalf("hashString(%q) = %#x, want %#x", s, got, want)
		}
	}
	if hashString("init") == hashString("tini") {
		t.Fatal("anagrams collide")
	}
}
