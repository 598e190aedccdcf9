package compiler

import (
	"strconv"

	"loxmin/internal/diag"
	"loxmin/internal/token"
	"loxmin/internal/vm"
)

type precedence uint8

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules [256]parseRule

// rules refers back to methods that consult it, so it is filled in init.
func init() {
	rules[token.LParen] = parseRule{(*Compiler).grouping, (*Compiler).call, precCall}
	rules[token.Dot] = parseRule{nil, (*Compiler).dot, precCall}
	rules[token.Minus] = parseRule{(*Compiler).unary, (*Compiler).binary, precTerm}
	rules[token.Plus] = parseRule{nil, (*Compiler).binary, precTerm}
	rules[token.Slash] = parseRule{nil, (*Compiler).binary, precFactor}
	rules[token.Star] = parseRule{nil, (*Compiler).binary, precFactor}
	rules[token.Bang] = parseRule{(*Compiler).unary, nil, precNone}
	rules[token.BangEq] = parseRule{nil, (*Compiler).binary, precEquality}
	rules[token.EqEq] = parseRule{nil, (*Compiler).binary, precEquality}
	rules[token.Gt] = parseRule{nil, (*Compiler).binary, precComparison}
	rules[token.GtEq] = parseRule{nil, (*Compiler).binary, precComparison}
	rules[token.Lt] = parseRule{nil, (*Compiler).binary, precComparison}
	rules[token.LtEq] = parseRule{nil, (*Compiler).binary, precComparison}
	rules[token.Ident] = parseRule{(*Compiler).variable, nil, precNone}
	rules[token.StringLit] = parseRule{(*Compiler).stringLit, nil, precNone}
	rules[token.NumberLit] = parseRule{(*Compiler).number, nil, precNone}
	rules[token.KwAnd] = parseRule{nil, (*Compiler).and, precAnd}
	rules[token.KwOr] = parseRule{nil, (*Compiler).or, precOr}
	rules[token.KwFalse] = parseRule{(*Compiler).literal, nil, precNone}
	rules[token.KwTrue] = parseRule{(*Compiler).literal, nil, precNone}
	rules[token.KwNil] = parseRule{(*Compiler).literal, nil, precNone}
	rules[token.KwSuper] = parseRule{(*Compiler).super, nil, precNone}
	rules[token.KwThis] = parseRule{(*Compiler).this, nil, precNone}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := rules[c.previous.Kind].prefix
	if prefix == nil {
		c.error(diag.SynExpectExpression, "Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= rules[c.current.Kind].prec {
		c.advance()
		rules[c.previous.Kind].infix(c, canAssign)
	}

	if canAssign && c.match(token.Assign) {
		c.error(diag.SynInvalidAssignment, "Invalid assignment target.")
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.consume(token.RParen, "Expect ')' after expression.")
}

func (c *Compiler) number(bool) {
	v, err := strconv.ParseFloat(c.previous.Text, 64)
	if err != nil {
		c.error(diag.SynExpectExpression, "Invalid number literal.")
		return
	}
	c.emitConstant(vm.NumberValue(v))
}

func (c *Compiler) stringLit(bool) {
	c.emitConstant(c.heap.CopyString(c.previous.Text).Value())
}

func (c *Compiler) literal(bool) {
	switch c.previous.Kind {
	case token.KwFalse:
		c.emitOp(vm.OpFalse)
	case token.KwTrue:
		c.emitOp(vm.OpTrue)
	case token.KwNil:
		c.emitOp(vm.OpNil)
	}
}

func (c *Compiler) unary(bool) {
	op := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch op {
	case token.Bang:
		c.emitOp(vm.OpNot)
	case token.Minus:
		c.emitOp(vm.OpNegate)
	}
}

func (c *Compiler) binary(bool) {
	op := c.previous.Kind
	c.parsePrecedence(rules[op].prec + 1)

	switch op {
	case token.BangEq:
		c.emitOp(vm.OpEqual)
		c.emitOp(vm.OpNot)
	case token.EqEq:
		c.emitOp(vm.OpEqual)
	case token.Gt:
		c.emitOp(vm.OpGreater)
	case token.GtEq:
		c.emitOp(vm.OpLess)
		c.emitOp(vm.OpNot)
	case token.Lt:
		c.emitOp(vm.OpLess)
	case token.LtEq:
		c.emitOp(vm.OpGreater)
		c.emitOp(vm.OpNot)
	case token.Plus:
		c.emitOp(vm.OpAdd)
	case token.Minus:
		c.emitOp(vm.OpSubtract)
	case token.Star:
		c.emitOp(vm.OpMultiply)
	case token.Slash:
		c.emitOp(vm.OpDivide)
	}
}

func (c *Compiler) and(bool) {
	endJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(bool) {
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	endJump := c.emitJump(vm.OpJump)
	c.patchJump(elseJump)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(bool) {
	argCount := c.argumentList()
	c.emitOpByte(vm.OpCall, argCount)
}

func (c *Compiler) argumentList() byte {
	count := 0
	if !c.check(token.RParen) {
		for {
			c.expression()
			if count == maxArgs {
				c.error(diag.SynTooManyArguments, "Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.Comma) {
				break
			}
		}
	}
	c.consume(token.RParen, "Expect ')' after arguments.")
	return byte(min(count, maxArgs))
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.Ident, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Text)

	switch {
	case canAssign && c.match(token.Assign):
		c.expression()
		c.emitOpByte(vm.OpSetProperty, name)
	case c.match(token.LParen):
		argCount := c.argumentList()
		c.emitOpByte(vm.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpByte(vm.OpGetProperty, name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Text, canAssign)
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp vm.Opcode
	var arg byte
	if slot, ok := c.resolveLocal(c.fs, name); ok {
		arg, getOp, setOp = slot, vm.OpGetLocal, vm.OpSetLocal
	} else if idx, ok := c.resolveUpvalue(c.fs, name); ok {
		arg, getOp, setOp = idx, vm.OpGetUpvalue, vm.OpSetUpvalue
	} else {
		arg, getOp, setOp = c.identifierConstant(name), vm.OpGetGlobal, vm.OpSetGlobal
	}

	if canAssign && c.match(token.Assign) {
		c.expression()
		c.emitOpByte(setOp, arg)
		return
	}
	c.emitOpByte(getOp, arg)
}

func (c *Compiler) this(bool) {
	if c.cls == nil {
		c.error(diag.SemaThisOutsideClass, "Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

func (c *Compiler) super(bool) {
	if c.cls == nil {
		c.error(diag.SemaSuperOutsideClass, "Can't use 'super' outside of a class.")
	} else if !c.cls.hasSuperclass {
		c.error(diag.SemaSuperNoSuperclass, "Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.Dot, "Expect '.' after 'super'.")
	c.consume(token.Ident, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Text)

	c.namedVariable("this", false)
	if c.match(token.LParen) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOpByte(vm.OpSuperInvoke, name)
		c.emitByte(argCount)
		return
	}
	c.namedVariable("super", false)
	c.emitOpByte(vm.OpGetSuper, name)
}
