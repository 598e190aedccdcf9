package vm

import "unsafe"

const (
	tableMaxLoad     = 0.75
	tableMinCapacity = 8
)

var sizeEntry = int(unsafe.Sizeof(Entry{}))

// Entry is one slot of a Table. An empty slot has a nil key and a nil
// value; a tombstone has a nil key and a true value.
type Entry struct {
	Key   *String
	Value Value
}

// Table is an open-addressing hash map keyed by interned strings.
// Keys compare by identity, which interning makes equivalent to content.
type Table struct {
	heap    *Heap
	entries []Entry
	count   int // live entries plus tombstones
	live    int
}

// NewTable returns a table whose storage is accounted on h. A nil heap
// disables accounting.
func NewTable(h *Heap) Table {
	return Table{heap: h}
}

// Len returns the number of live entries.
func (t *Table) Len() int { return t.live }

// Cap returns the size of the backing array.
func (t *Table) Cap() int { return len(t.entries) }

func (t *Table) find(key *String) *Entry {
	mask := uint32(len(t.entries) - 1)
	index := key.Hash & mask
	var tombstone *Entry
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}
		index = (index + 1) & mask
	}
}

// Get looks up key.
func (t *Table) Get(key *String) (Value, bool) {
	if t.count == 0 {
		return Nil, false
	}
	e := t.find(key)
	if e.Key == nil {
		return Nil, false
	}
	return e.Value, true
}

// Set stores v under key and reports whether key was new.
func (t *Table) Set(key *String, v Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow(growCapacity(len(t.entries)))
	}
	e := t.find(key)
	isNew := e.Key == nil
	if isNew {
		t.live++
		// reusing a tombstone keeps count unchanged
		if e.Value.IsNil() {
			t.count++
		}
	}
	e.Key = key
	e.Value = v
	return isNew
}

// Delete removes key, leaving a tombstone so later probes keep working.
func (t *Table) Delete(key *String) bool {
	if t.count == 0 {
		return false
	}
	e := t.find(key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = True
	t.live--
	return true
}

// AddAll copies every live entry of from into t.
func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if e.Key != nil {
			t.Set(e.Key, e.Value)
		}
	}
}

// FindString looks a string up by content, for interning.
func (t *Table) FindString(chars string, hash uint32) *String {
	if t.count == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				return nil
			}
		} else if e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		index = (index + 1) & mask
	}
}

// Each calls fn for every live entry until fn returns false.
func (t *Table) Each(fn func(key *String, v Value) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil && !fn(e.Key, e.Value) {
			return
		}
	}
}

// Free releases the backing array.
func (t *Table) Free() {
	if t.heap != nil && len(t.entries) > 0 {
		t.heap.reallocate(len(t.entries)*sizeEntry, 0)
	}
	t.entries = nil
	t.count = 0
	t.live = 0
}

func (t *Table) grow(capacity int) {
	if t.heap != nil {
		t.heap.reallocate(len(t.entries)*sizeEntry, capacity*sizeEntry)
	}
	old := t.entries
	t.entries = make([]Entry, capacity)
	for i := range t.entries {
		t.entries[i].Value = Nil
	}
	t.count = 0
	t.live = 0
	for i := range old {
		e := &old[i]
		if e.Key == nil {
			continue
		}
		dst := t.find(e.Key)
		dst.Key = e.Key
		dst.Value = e.Value
		t.count++
		t.live++
	}
}

// removeWhite drops entries whose keys were not marked in this cycle.
func (t *Table) removeWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil && !e.Key.marked {
			t.Delete(e.Key)
		}
	}
}

func (t *Table) mark(h *Heap) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil {
			h.MarkObject(e.Key)
			h.MarkValue(e.Value)
		}
	}
}

func growCapacity(capacity int) int {
	if capacity < tableMinCapacity {
		return tableMinCapacity
	}
	return capacity * 2
}
