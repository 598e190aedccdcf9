package lexer

import "testing"

// TestSequentialReading проверяет последовательное чтение: "a\nb" → a, \n, b, EOF
func TestSequentialReading(t *testing.T) {
	cursor := NewCursor([]byte("a\nb"))

	if cursor.EOF() {
		t.Fatal("Expected not EOF at start")
	}
	if b := cursor.Bump(); b != 'a' {
		t.Fatalf("Expected bump 'a', got %c", b)
	}
	if cursor.Line != 1 {
		t.Fatalf("Expected line 1, got %d", cursor.Line)
	}
	if b := cursor.Bump(); b != '\n' {
		t.Fatalf("Expected bump newline, got %q", b)
	}
	if cursor.Line != 2 {
		t.Fatalf("Expected line 2 after newline, got %d", cursor.Line)
	}
	if cursor.PeekNext() != 0 {
		t.Fatalf("Expected PeekNext past end to be 0")
	}
	cursor.Bump()
	if !cursor.EOF() {
		t.Fatal("Expected EOF after reading everything")
	}
	if cursor.Bump() != 0 || cursor.Peek() != 0 {
		t.Fatal("Expected zero bytes at EOF")
	}
}

func TestEatAndMark(t *testing.T) {
	cursor := NewCursor([]byte("==x"))
	m := cursor.Mark()
	if !cursor.Eat('=') || !cursor.Eat('=') {
		t.Fatal("Expected to eat two '='")
	}
	if cursor.Eat('=') {
		t.Fatal("Eat must not consume a mismatching byte")
	}
	if got := cursor.TextFrom(m); got != "==" {
		t.Fatalf("TextFrom = %q, want %q", got, "==")
	}
}
