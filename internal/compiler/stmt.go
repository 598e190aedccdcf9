package compiler

import (
	"loxmin/internal/diag"
	"loxmin/internal/token"
	"loxmin/internal/vm"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.KwClass):
		c.classDeclaration()
	case c.match(token.KwFun):
		c.funDeclaration()
	case c.match(token.KwVar):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) classDeclaration() {
	c.consume(token.Ident, "Expect class name.")
	className := c.previous.Text
	nameConstant := c.identifierConstant(className)
	c.declareVariable()

	c.emitOpByte(vm.OpClass, nameConstant)
	c.defineVariable(nameConstant)

	cls := &classState{enclosing: c.cls}
	c.cls = cls

	if c.match(token.Lt) {
		c.consume(token.Ident, "Expect superclass name.")
		c.variable(false)
		if className == c.previous.Text {
			c.error(diag.SemaInheritFromSelf, "A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emitOp(vm.OpInherit)
		cls.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(token.LBrace, "Expect '{' before class body.")
	for !c.check(token.RBrace) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBrace, "Expect '}' after class body.")
	c.emitOp(vm.OpPop)

	if cls.hasSuperclass {
		c.endScope()
	}
	c.cls = cls.enclosing
}

func (c *Compiler) method() {
	c.consume(token.Ident, "Expect method name.")
	name := c.previous.Text
	constant := c.identifierConstant(name)
	kind := kindMethod
	if name == "init" {
		kind = kindInitializer
	}
	c.function(kind, name)
	c.emitOpByte(vm.OpMethod, constant)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(kindFunction, c.previous.Text)
	c.defineVariable(global)
}

func (c *Compiler) function(kind funcKind, name string) {
	c.beginFunction(kind, name)
	c.beginScope()

	c.consume(token.LParen, "Expect '(' after function name.")
	if !c.check(token.RParen) {
		for {
			c.fs.fn.Arity++
			if c.fs.fn.Arity > maxArgs {
				c.errorAtCurrent(diag.SynTooManyParameters, "Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RParen, "Expect ')' after parameters.")
	c.consume(token.LBrace, "Expect '{' before function body.")
	c.block()

	upvalues := c.fs.upvalues
	fn := c.endFunction()
	c.emitOpByte(vm.OpClosure, c.makeConstant(fn.Value()))
	for _, uv := range upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.Assign) {
		c.expression()
	} else {
		c.emitOp(vm.OpNil)
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.KwPrint):
		c.printStatement()
	case c.match(token.KwFor):
		c.forStatement()
	case c.match(token.KwIf):
		c.ifStatement()
	case c.match(token.KwReturn):
		c.returnStatement()
	case c.match(token.KwWhile):
		c.whileStatement()
	case c.match(token.LBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitOp(vm.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitOp(vm.OpPop)
}

func (c *Compiler) returnStatement() {
	if c.fs.kind == kindScript {
		c.error(diag.SemaReturnTopLevel, "Can't return from top-level code.")
	}
	if c.match(token.Semicolon) {
		c.emitReturn()
		return
	}
	if c.fs.kind == kindInitializer {
		c.error(diag.SemaReturnFromInit, "Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after return value.")
	c.emitOp(vm.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RParen, "Expect ')' after condition.")

	thenJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.statement()

	elseJump := c.emitJump(vm.OpJump)
	c.patchJump(thenJump)
	c.emitOp(vm.OpPop)

	if c.match(token.KwElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RParen, "Expect ')' after condition.")

	exitJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(vm.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LParen, "Expect '(' after 'for'.")
	switch {
	case c.match(token.Semicolon):
	case c.match(token.KwVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(vm.OpJumpIfFalse)
		c.emitOp(vm.OpPop)
	}

	if !c.match(token.RParen) {
		bodyJump := c.emitJump(vm.OpJump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(vm.OpPop)
		c.consume(token.RParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(vm.OpPop)
	}
	c.endScope()
}
