package diag

import "strings"

// Bag accumulates diagnostics up to a limit.
type Bag struct {
	items []Diagnostic
	max   int
}

func NewBag(max int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, min(max, 16)),
		max:   max,
	}
}

// Add appends d unless the limit is reached and reports whether it did.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether anything was recorded.
func (b *Bag) HasErrors() bool {
	return len(b.items) > 0
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the diagnostics. The slice aliases the bag; do not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// String renders every diagnostic on its own line.
func (b *Bag) String() string {
	var sb strings.Builder
	for _, d := range b.items {
		sb.WriteString(d.Format())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Error wraps a bag of compile errors as a Go error.
type Error struct {
	Bag *Bag
}

func (e *Error) Error() string {
	return strings.TrimSuffix(e.Bag.String(), "\n")
}
