package lexer

import (
	"fmt"

	"fortio.org/safecast"
)

// Cursor представляет собой позицию в исходном тексте
type Cursor struct {
	Src  []byte
	Off  uint32
	Line int
	// Limit is the exclusive upper bound for Off.
	Limit uint32
}

// NewCursor creates a cursor at the start of src, on line 1.
func NewCursor(src []byte) Cursor {
	limit, err := safecast.Conv[uint32](len(src))
	if err != nil {
		panic(fmt.Errorf("source length overflow: %w", err))
	}
	return Cursor{Src: src, Line: 1, Limit: limit}
}

// EOF проверяет, достигнут ли конец файла
func (c *Cursor) EOF() bool {
	return c.Off >= c.Limit
}

// Peek читает текущий байт, если есть, иначе возвращает 0
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.Src[c.Off]
}

// PeekNext returns the byte after the current one, or 0.
func (c *Cursor) PeekNext() byte {
	if c.Off+1 >= c.Limit {
		return 0
	}
	return c.Src[c.Off+1]
}

// Bump перемещает курсор на один байт вперед и возвращает прочитанный байт.
// Newlines advance Line.
func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.Src[c.Off]
	c.Off++
	if b == '\n' {
		c.Line++
	}
	return b
}

// Eat consumes the next byte if it matches the provided byte.
func (c *Cursor) Eat(b byte) bool {
	if !c.EOF() && c.Src[c.Off] == b {
		c.Off++
		return true
	}
	return false
}

// Mark это метка начала читаемого фрагмента
type Mark uint32

// Mark сохраняет текущую позицию курсора
func (c *Cursor) Mark() Mark {
	return Mark(c.Off)
}

// TextFrom returns the source text between m and the cursor.
func (c *Cursor) TextFrom(m Mark) string {
	return string(c.Src[m:c.Off])
}
