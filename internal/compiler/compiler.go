// Package compiler is a single-pass Pratt compiler from Lox source to
// bytecode on a vm.Heap.
package compiler

import (
	"loxmin/internal/diag"
	"loxmin/internal/lexer"
	"loxmin/internal/token"
	"loxmin/internal/vm"
)

const (
	maxLocals   = 256
	maxUpvalues = 256
	maxArgs     = 255
	// MaxErrors caps the diagnostics collected for one compilation.
	MaxErrors = 64
)

type funcKind uint8

const (
	kindFunction funcKind = iota
	kindInitializer
	kindMethod
	kindScript
)

type local struct {
	name       string
	depth      int // -1 while the initializer is being compiled
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// funcState is the per-function compilation state. States form a chain
// through enclosing, innermost first.
type funcState struct {
	enclosing  *funcState
	fn         *vm.Function
	kind       funcKind
	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler holds the parser state of one compilation.
type Compiler struct {
	heap     *vm.Heap
	lx       *lexer.Lexer
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	bag       *diag.Bag
	reporter  diag.Reporter

	fs  *funcState
	cls *classState
}

// Compile compiles src to a top-level script function allocated on h.
// On failure the error is a *diag.Error holding every reported diagnostic.
func Compile(h *vm.Heap, src []byte) (*vm.Function, error) {
	bag := diag.NewBag(MaxErrors)
	c := &Compiler{
		heap:     h,
		lx:       lexer.New(src),
		bag:      bag,
		reporter: diag.BagReporter{Bag: bag},
	}
	h.AddRoots(c)
	defer h.RemoveRoots(c)

	c.beginFunction(kindScript, "")
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFunction()

	if c.hadError {
		return nil, &diag.Error{Bag: bag}
	}
	return fn, nil
}

// MarkRoots keeps every function under construction alive.
func (c *Compiler) MarkRoots(h *vm.Heap) {
	for fs := c.fs; fs != nil; fs = fs.enclosing {
		h.MarkObject(fs.fn)
	}
}

func (c *Compiler) beginFunction(kind funcKind, name string) {
	fs := &funcState{
		enclosing: c.fs,
		kind:      kind,
		locals:    make([]local, 0, 8),
	}
	fs.fn = c.heap.NewFunction()
	c.fs = fs
	if kind != kindScript {
		fs.fn.Name = c.heap.CopyString(name)
	}

	// slot 0 holds the callee, or the receiver for methods
	slot0 := ""
	if kind != kindFunction {
		slot0 = "this"
	}
	fs.locals = append(fs.locals, local{name: slot0})
}

func (c *Compiler) endFunction() *vm.Function {
	c.emitReturn()
	fs := c.fs
	fs.fn.UpvalueCount = len(fs.upvalues)
	c.fs = fs.enclosing
	return fs.fn
}

func (c *Compiler) chunk() *vm.Chunk {
	return &c.fs.fn.Chunk
}

// ===== token stream =====

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lx.Next()
		if c.current.Kind != token.Invalid {
			return
		}
		code := diag.LexUnexpectedChar
		if c.current.Text == "Unterminated string." {
			code = diag.LexUnterminatedString
		}
		c.errorAtCurrent(code, c.current.Text)
	}
}

func (c *Compiler) consume(kind token.Kind, msg string) {
	if c.current.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(diag.SynExpectToken, msg)
}

func (c *Compiler) check(kind token.Kind) bool {
	return c.current.Kind == kind
}

func (c *Compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

// ===== errors =====

func (c *Compiler) error(code diag.Code, msg string) {
	c.errorAt(c.previous, code, msg)
}

func (c *Compiler) errorAtCurrent(code diag.Code, msg string) {
	c.errorAt(c.current, code, msg)
}

// errorAt reports once per panic-mode episode; synchronize ends the episode.
func (c *Compiler) errorAt(tok token.Token, code diag.Code, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := ""
	switch tok.Kind {
	case token.EOF:
		where = " at end"
	case token.Invalid:
	default:
		where = " at '" + tok.Text + "'"
	}
	c.reporter.Report(code, tok.Line, where, msg)
}

// synchronize skips tokens until a likely statement boundary.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.Semicolon {
			return
		}
		switch c.current.Kind {
		case token.KwClass, token.KwFun, token.KwVar, token.KwFor,
			token.KwIf, token.KwWhile, token.KwPrint, token.KwReturn:
			return
		}
		c.advance()
	}
}
