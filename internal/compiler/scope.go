package compiler

import (
	"loxmin/internal/diag"
	"loxmin/internal/token"
	"loxmin/internal/vm"
)

func (c *Compiler) beginScope() {
	c.fs.scopeDepth++
}

// endScope pops the scope's locals, hoisting captured ones to the heap.
func (c *Compiler) endScope() {
	fs := c.fs
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		if fs.locals[len(fs.locals)-1].isCaptured {
			c.emitOp(vm.OpCloseUpvalue)
		} else {
			c.emitOp(vm.OpPop)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(c.heap.CopyString(name).Value())
}

// parseVariable consumes a name and returns its global constant index, or
// 0 for locals.
func (c *Compiler) parseVariable(msg string) byte {
	c.consume(token.Ident, msg)
	c.declareVariable()
	if c.fs.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Text)
}

func (c *Compiler) declareVariable() {
	fs := c.fs
	if fs.scopeDepth == 0 {
		return
	}
	name := c.previous.Text
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := &fs.locals[i]
		if l.depth != -1 && l.depth < fs.scopeDepth {
			break
		}
		if l.name == name {
			c.error(diag.SemaRedeclaredLocal, "Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.fs.locals) == maxLocals {
		c.error(diag.SynTooManyLocals, "Too many local variables in function.")
		return
	}
	c.fs.locals = append(c.fs.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	fs := c.fs
	if fs.scopeDepth == 0 {
		return
	}
	fs.locals[len(fs.locals)-1].depth = fs.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.fs.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(vm.OpDefineGlobal, global)
}

func (c *Compiler) resolveLocal(fs *funcState, name string) (byte, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				c.error(diag.SemaReadInInitializer, "Can't read local variable in its own initializer.")
			}
			return byte(i), true
		}
	}
	return 0, false
}

func (c *Compiler) resolveUpvalue(fs *funcState, name string) (byte, bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, ok := c.resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[slot].isCaptured = true
		return c.addUpvalue(fs, slot, true), true
	}
	if idx, ok := c.resolveUpvalue(fs.enclosing, name); ok {
		return c.addUpvalue(fs, idx, false), true
	}
	return 0, false
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) byte {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return byte(i)
		}
	}
	if len(fs.upvalues) == maxUpvalues {
		c.error(diag.SynTooManyUpvalues, "Too many closure variables in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return byte(len(fs.upvalues) - 1)
}
