package parser

import (
	"fmt"
	"strconv"

	"github.com/bx-lang/pasc/pkg/symtab"
	"github.com/bx-lang/pasc/pkg/token"
)

// statement parses one of: nested begin…end, if, while, or an
// identifier-led assignment/call form.
func (p *Parser) statement() {
	switch {
	case p.hasCurrent && p.current.Is("begin"):
		p.advance()
		p.statement()
		for p.hasCurrent && p.current.Is(";") {
			p.advance()
			p.statement()
		}
		p.expect("end")
	case p.hasCurrent && p.current.Is("if"):
		p.handleIf()
	case p.hasCurrent && p.current.Is("while"):
		p.handleWhile()
	case p.hasCurrent && p.current.Kind == token.Word:
		p.identStatement()
	default:
		p.errSyntax("statement")
	}
}

// identStatement resolves a Word-led statement as an assignment or a
// procedure/function call, trying variable (current or enclosing scope),
// then procedure, then function, each via the symbol table's
// shadowing-terminating lookup (FindScoped for variables, Find otherwise).
func (p *Parser) identStatement() {
	name := p.current.Lexeme
	if entry, isLocal, ok := p.symtab.FindScoped(name, symtab.KindVar); ok {
		p.advance()
		p.expect(":=")
		v := p.expression(p.main)
		if v.Type != entry.Var.Type {
			p.errType("assignment", entry.Var.Type.String(), v.Type.String())
		}
		p.materialize(p.main, &v)
		p.writeVariable(p.main, entry.Var, isLocal, v.Reg)
		p.regs.free()
		return
	}
	if e, ok := p.symtab.Find(name, symtab.KindProc); ok {
		p.advance()
		p.expect("(")
		p.groupingDepth++
		p.consumeParamsProc(p.main, e.Proc)
		p.expect(")")
		p.groupingDepth--
		p.emit(p.main, "CALL %s", name)
		return
	}
	if e, ok := p.symtab.Find(name, symtab.KindFunc); ok {
		p.advance()
		p.expect("(")
		p.groupingDepth++
		p.consumeParamsFunc(p.main, e.Func)
		p.expect(")")
		p.groupingDepth--
		p.emit(p.main, "CALL %s", name)
		return
	}
	p.errUnknown("identifier", name)
}

// handleIf emits the "if" jump/label shape: a direct comparison jump
// to the true branch, a fallthrough jump to the false branch, then the
// then/else bodies each jumping to a shared end label.
func (p *Parser) handleIf() {
	p.advance()
	n := p.ifCount
	p.ifCount++
	p.conditionalStack = append(p.conditionalStack, n)
	prevForWhile := p.forWhile
	p.forWhile = false

	cond := p.expression(p.main)
	if cond.Type != symtab.Boolean {
		p.errType("if condition", "boolean", cond.Type.String())
	}

	trueLabel := fmt.Sprintf("if%d", n)
	falseLabel := fmt.Sprintf("else%d", n)
	endLabel := fmt.Sprintf("endif%d", n)

	p.emit(p.main, "%s %s", directJump(p.lastComparison), trueLabel)
	p.flushPendingOr(p.main)
	p.freeReg(&cond)
	p.emit(p.main, "JMP %s", falseLabel)
	p.emit(p.main, "%s:", trueLabel)

	p.expect("then")
	p.statement()
	p.emit(p.main, "JMP %s", endLabel)

	p.emit(p.main, "%s:", falseLabel)
	if p.hasCurrent && p.current.Is("else") {
		p.advance()
		p.statement()
	}
	p.emit(p.main, "JMP %s", endLabel)
	p.emit(p.main, "%s:", endLabel)

	p.conditionalStack = p.conditionalStack[:len(p.conditionalStack)-1]
	p.forWhile = prevForWhile
}

// handleWhile emits the "while" jump/label shape: re-test at the top
// of the loop, direct jump into the body, fallthrough out of the loop.
func (p *Parser) handleWhile() {
	p.advance()
	n := p.whileCount
	p.whileCount++
	p.loopStack = append(p.loopStack, n)
	prevForWhile := p.forWhile
	p.forWhile = true

	p.emit(p.main, "while%d:", n)
	cond := p.expression(p.main)
	if cond.Type != symtab.Boolean {
		p.errType("while condition", "boolean", cond.Type.String())
	}

	innerLabel := fmt.Sprintf("while%dinner", n)
	endLabel := fmt.Sprintf("endwhile%d", n)

	p.emit(p.main, "%s %s", directJump(p.lastComparison), innerLabel)
	p.flushPendingOr(p.main)
	p.freeReg(&cond)
	p.emit(p.main, "JMP %s", endLabel)
	p.emit(p.main, "%s:", innerLabel)

	p.expect("do")
	p.statement()
	p.emit(p.main, "JMP while%d", n)
	p.emit(p.main, "%s:", endLabel)

	p.loopStack = p.loopStack[:len(p.loopStack)-1]
	p.forWhile = prevForWhile
}

// flushPendingOr places a still-owed or<k>: label — orUsed records
// whether an 'and' inside the condition left one pending when then/do
// was reached.
func (p *Parser) flushPendingOr(sink emitter) {
	if !p.orUsed {
		return
	}
	p.emit(sink, "or%d:", p.orCount)
	p.orCount++
	p.orUsed = false
}

func (p *Parser) currentTarget() string {
	if p.forWhile {
		return fmt.Sprintf("while%dinner", p.loopStack[len(p.loopStack)-1])
	}
	return fmt.Sprintf("if%d", p.conditionalStack[len(p.conditionalStack)-1])
}

func directJump(op string) string {
	switch op {
	case "<":
		return "JL"
	case ">":
		return "JG"
	default:
		return "JE"
	}
}

func inverseJump(op string) string {
	switch op {
	case "<":
		return "JGE"
	case ">":
		return "JLE"
	default:
		return "JNE"
	}
}

// expression parses the relational layer: s_expr { ('<'|'>'|'=') s_expr }.
func (p *Parser) expression(sink emitter) value {
	v := p.sExpr(sink)
	for p.hasCurrent && (p.current.Is("<") || p.current.Is(">") || p.current.Is("=")) {
		op := p.current.Lexeme
		p.advance()
		rhs := p.sExpr(sink)
		v = p.relational(sink, op, v, rhs)
	}
	return v
}

func (p *Parser) relational(sink emitter, op string, v1, v2 value) value {
	if op == "=" && v1.Type == symtab.Real && v2.Type == symtab.Real {
		panic(p.newTypeError("realEquality", nil))
	}
	if v1.Type != v2.Type {
		p.errType("comparison", v1.Type.String(), v2.Type.String())
	}
	p.materialize(sink, &v1)
	p.materialize(sink, &v2)
	p.emit(sink, "CMP %s, %s", v1.Reg, v2.Reg)
	p.regs.free()
	p.regs.free()
	p.lastComparison = op
	return value{Type: symtab.Boolean}
}

// sExpr parses the additive/or layer: term { ('+'|'-'|'or') term }.
func (p *Parser) sExpr(sink emitter) value {
	v := p.term(sink)
	for p.hasCurrent {
		switch {
		case p.current.Is("+"):
			p.advance()
			rhs := p.term(sink)
			v = p.binaryArith(sink, "+", v, rhs)
		case p.current.Is("-"):
			p.advance()
			rhs := p.term(sink)
			v = p.binaryArith(sink, "-", v, rhs)
		case p.current.Is("or"):
			v = p.orCombine(sink, v)
		default:
			return v
		}
	}
	return v
}

func (p *Parser) orCombine(sink emitter, v value) value {
	target := p.currentTarget()
	p.emit(sink, "%s %s", directJump(p.lastComparison), target)
	p.emit(sink, "or%d:", p.orCount)
	p.orCount++
	p.orUsed = false
	p.advance() // consume 'or'
	rhs := p.term(sink)
	if v.Type != symtab.Boolean || rhs.Type != symtab.Boolean {
		p.errType("or", "boolean, boolean", fmt.Sprintf("%s, %s", v.Type, rhs.Type))
	}
	p.freeReg(&rhs)
	p.freeReg(&v)
	return value{Type: symtab.Boolean}
}

// term parses the multiplicative/and layer: fact { ('*'|'/'|'and') fact }.
func (p *Parser) term(sink emitter) value {
	v := p.fact(sink)
	for p.hasCurrent {
		switch {
		case p.current.Is("*"):
			p.advance()
			rhs := p.fact(sink)
			v = p.binaryArith(sink, "*", v, rhs)
		case p.current.Is("/"):
			p.advance()
			rhs := p.fact(sink)
			v = p.binaryArith(sink, "/", v, rhs)
		case p.current.Is("and"):
			v = p.andCombine(sink, v)
		default:
			return v
		}
	}
	return v
}

func (p *Parser) andCombine(sink emitter, v value) value {
	p.emit(sink, "%s or%d", inverseJump(p.lastComparison), p.orCount)
	p.orUsed = true
	p.advance() // consume 'and'
	rhs := p.fact(sink)
	if v.Type != symtab.Boolean || rhs.Type != symtab.Boolean {
		p.errType("and", "boolean, boolean", fmt.Sprintf("%s, %s", v.Type, rhs.Type))
	}
	p.freeReg(&rhs)
	p.freeReg(&v)
	return value{Type: symtab.Boolean}
}

// fact is the leaf production (fact_r in the reference): parenthesized
// expressions, unary +/-, literals, variable reads, and function calls.
func (p *Parser) fact(sink emitter) value {
	if !p.hasCurrent {
		p.errSyntax("expression")
	}
	switch {
	case p.current.Is("("):
		p.advance()
		p.groupingDepth++
		v := p.expression(sink)
		p.expect(")")
		p.groupingDepth--
		return v
	case p.current.Is("+"):
		p.advance()
		return p.fact(sink)
	case p.current.Is("-"):
		p.advance()
		return p.negate(sink, p.fact(sink))
	case p.current.Kind == token.Integer:
		lex := p.current.Lexeme
		p.advance()
		n, _ := strconv.ParseInt(lex, 10, 32)
		return value{Type: symtab.Integer, Literal: int32(n)}
	case p.current.Kind == token.Real:
		lex := p.current.Lexeme
		p.advance()
		f, _ := strconv.ParseFloat(lex, 64)
		return value{Type: symtab.Real, Literal: f}
	case p.current.Kind == token.Word:
		return p.identFact(sink)
	default:
		p.errSyntax("expression")
	}
	return value{}
}

func (p *Parser) negate(sink emitter, v value) value {
	if v.Reg == "" && v.Literal != nil {
		switch lv := v.Literal.(type) {
		case int32:
			return value{Type: v.Type, Literal: -lv}
		case float64:
			return value{Type: v.Type, Literal: -lv}
		}
	}
	p.materialize(sink, &v)
	p.emit(sink, "NEG %s", v.Reg)
	return v
}

// identFact resolves a Word in expression position as either a function
// call (IDENT directly followed by '(') or a variable read.
func (p *Parser) identFact(sink emitter) value {
	name := p.current.Lexeme
	p.advance()
	if p.hasCurrent && p.current.Is("(") {
		e, ok := p.symtab.Find(name, symtab.KindFunc)
		if !ok {
			p.errUnknown("function", name)
		}
		p.advance()
		p.groupingDepth++
		p.consumeParamsFunc(sink, e.Func)
		p.expect(")")
		p.groupingDepth--
		p.emit(sink, "CALL %s", name)
		reg := p.regs.alloc(p.file)
		p.emit(sink, "MOV %s, EAX", reg)
		return value{Type: e.Func.ReturnType, Reg: reg}
	}
	entry, isLocal, ok := p.symtab.FindScoped(name, symtab.KindVar)
	if !ok {
		p.errUnknown("variable", name)
	}
	return p.readVariable(sink, entry.Var, isLocal)
}

// readVariable always materializes — variable reads are never lazy, only
// pure-literal subexpressions are.
func (p *Parser) readVariable(sink emitter, v *symtab.VarEntry, isLocal bool) value {
	reg := p.regs.alloc(p.file)
	if p.isByRefLocal(v, isLocal) {
		p.emit(sink, "MOV %s, [EDI+%d]", reg, v.Offset)
		p.emit(sink, "MOV %s, [%s]", reg, reg)
	} else {
		p.emit(sink, "MOV %s, %s", reg, p.operand(v, isLocal))
	}
	return value{Type: v.Type, Reg: reg}
}

func (p *Parser) writeVariable(sink emitter, v *symtab.VarEntry, isLocal bool, srcReg string) {
	if p.isByRefLocal(v, isLocal) {
		tmp := p.regs.alloc(p.file)
		p.emit(sink, "MOV %s, [EDI+%d]", tmp, v.Offset)
		p.emit(sink, "MOV [%s], %s", tmp, srcReg)
		p.regs.free()
	} else {
		p.emit(sink, "MOV %s, %s", p.operand(v, isLocal), srcReg)
	}
}

func (p *Parser) isByRefLocal(v *symtab.VarEntry, isLocal bool) bool {
	return isLocal && !p.symtab.AtGlobalScope() && v.IsParam && v.ByRef
}

// operand renders the effective-address form for a non-by-reference
// variable access: [EBP+off] for outer/global, [EDI+off] for a by-value
// parameter, [EDI-off] for a local (by-reference is handled separately,
// see isByRefLocal).
func (p *Parser) operand(v *symtab.VarEntry, isLocal bool) string {
	if !isLocal || p.symtab.AtGlobalScope() {
		return fmt.Sprintf("[EBP+%d]", v.Offset)
	}
	if v.IsParam {
		return fmt.Sprintf("[EDI+%d]", v.Offset)
	}
	return fmt.Sprintf("[EDI-%d]", v.Offset)
}

func opcodeFor(sym string) string {
	switch sym {
	case "+":
		return "ADD"
	case "-":
		return "SUB"
	case "*":
		return "IMUL"
	default:
		return "IDIV"
	}
}

func arithResultType(a, b symtab.VarType) (symtab.VarType, bool) {
	switch {
	case a == symtab.Integer && b == symtab.Integer:
		return symtab.Integer, true
	case a == symtab.Character && b == symtab.Character:
		return symtab.Integer, true
	case a == symtab.Real && b == symtab.Real:
		return symtab.Real, true
	default:
		return symtab.Integer, false
	}
}

func foldArith(sym string, v1, v2 value) interface{} {
	switch a := v1.Literal.(type) {
	case int32:
		b, ok := v2.Literal.(int32)
		if !ok {
			return nil
		}
		switch sym {
		case "+":
			return a + b
		case "-":
			return a - b
		case "*":
			return a * b
		default:
			if b == 0 {
				return int32(0)
			}
			return a / b
		}
	case float64:
		b, ok := v2.Literal.(float64)
		if !ok {
			return nil
		}
		switch sym {
		case "+":
			return a + b
		case "-":
			return a - b
		case "*":
			return a * b
		default:
			return a / b
		}
	}
	return nil
}

// binaryArith implements the typing table and constant folding for
// '+','-','*','/': when both operands are still lazy
// literals, the result is folded into another lazy literal and nothing
// is emitted; otherwise both operands are materialized and the op is
// emitted as "OP dst, dst, src" with dst the lower register.
func (p *Parser) binaryArith(sink emitter, sym string, v1, v2 value) value {
	resultType, ok := arithResultType(v1.Type, v2.Type)
	if !ok {
		p.errType("arithmetic", "matching numeric operand types", fmt.Sprintf("%s, %s", v1.Type, v2.Type))
	}
	if v1.Reg == "" && v2.Reg == "" && v1.Literal != nil && v2.Literal != nil {
		if folded := foldArith(sym, v1, v2); folded != nil {
			return value{Type: resultType, Literal: folded}
		}
	}
	p.materialize(sink, &v1)
	p.materialize(sink, &v2)
	opcode := opcodeFor(sym)
	if opcode == "IDIV" {
		p.emitDivide(sink, &v1, &v2)
	} else {
		p.emit(sink, "%s %s, %s, %s", opcode, v1.Reg, v1.Reg, v2.Reg)
	}
	p.regs.free()
	return value{Type: resultType, Reg: v1.Reg}
}

// emitDivide realizes the division special case: if the
// destination register is not EAX, EAX/EDX are saved, the dividend is
// moved into EAX, sign-extended with CDQ, divided, and the quotient is
// captured back into dst before EAX/EDX are restored.
func (p *Parser) emitDivide(sink emitter, v1, v2 *value) {
	if v1.Reg == "EAX" {
		p.emit(sink, "CDQ")
		p.emit(sink, "IDIV %s", v2.Reg)
		return
	}
	p.emit(sink, "PUSH EAX")
	p.emit(sink, "PUSH EDX")
	p.emit(sink, "MOV EAX, %s", v1.Reg)
	p.emit(sink, "CDQ")
	p.emit(sink, "IDIV %s", v2.Reg)
	p.emit(sink, "MOV %s, EAX", v1.Reg)
	p.emit(sink, "POP EDX")
	p.emit(sink, "POP EAX")
}

func (p *Parser) materialize(sink emitter, v *value) {
	if v.Reg != "" {
		return
	}
	reg := p.regs.alloc(p.file)
	p.emit(sink, "MOV %s, %s", reg, literalOperand(*v))
	v.Reg = reg
}

func (p *Parser) freeReg(v *value) {
	if v.Reg != "" {
		p.regs.free()
	}
}
