package parser

import (
	"github.com/bx-lang/pasc/pkg/symtab"
	"github.com/bx-lang/pasc/pkg/token"
)

// pfv parses the repeating, interleavable sequence of 'var' / 'procedure'
// / 'function' declarations that precede a block's 'begin'.
func (p *Parser) pfv() {
	for p.hasCurrent {
		switch {
		case p.current.Is("var"):
			p.advance()
			p.varDecl()
		case p.current.Is("procedure"):
			p.advance()
			p.procDecl()
		case p.current.Is("function"):
			p.advance()
			p.funcDecl()
		default:
			return
		}
	}
}

// varDecl parses 'var' varlist ':' type ';' { varlist ':' type ';' }.
func (p *Parser) varDecl() {
	p.declareVarGroup()
	for p.hasCurrent && p.current.Kind == token.Word {
		p.declareVarGroup()
	}
}

func (p *Parser) declareVarGroup() {
	names := p.varlist()
	p.expect(":")
	typeTok := p.current
	typ, isArray := p.datatype()
	if !isArray {
		for _, n := range names {
			if !p.symtab.AddVariable(n, typ, symtab.ScalarSize, false, false) {
				p.errDuplicate(n)
			}
		}
		if typ == symtab.Boolean || typ == symtab.Character {
			p.warnLegacySize(typeTok, typ.String())
		}
	}
	p.expect(";")
}

// varlist parses IDENT { ',' IDENT }.
func (p *Parser) varlist() []string {
	if !p.hasCurrent || p.current.Kind != token.Word {
		p.errSyntax("identifier")
	}
	names := []string{p.current.Lexeme}
	p.advance()
	for p.hasCurrent && p.current.Is(",") {
		p.advance()
		if !p.hasCurrent || p.current.Kind != token.Word {
			p.errSyntax("identifier")
		}
		names = append(names, p.current.Lexeme)
		p.advance()
	}
	return names
}

// datatype parses a scalar type name or an array type. Scalar type names
// (integer/boolean/char/real) are ordinary Word tokens distinguished by
// lexeme, not reserved words — only 'array' and 'of' are reserved.
// isArray reports whether the declaration should be dropped: arrays are
// syntactically accepted and semantically inert.
func (p *Parser) datatype() (typ symtab.VarType, isArray bool) {
	if p.hasCurrent && p.current.Is("array") {
		p.advance()
		p.dim()
		p.expect("of")
		p.datatype()
		return symtab.Integer, true
	}
	if p.hasCurrent && p.current.Kind == token.Word {
		switch p.current.Lexeme {
		case "integer":
			p.advance()
			return symtab.Integer, false
		case "boolean":
			p.advance()
			return symtab.Boolean, false
		case "char":
			p.advance()
			return symtab.Character, false
		case "real":
			p.advance()
			return symtab.Real, false
		}
	}
	p.errSyntax("type name")
	return symtab.Integer, false
}

// dim parses '[' range { ',' range } ']'; the ranges are discarded.
func (p *Parser) dim() {
	p.expect("[")
	p.rangeItem()
	p.mdim()
	p.expect("]")
}

// mdim parses the { ',' range } tail of an array dimension list.
func (p *Parser) mdim() {
	for p.hasCurrent && p.current.Is(",") {
		p.advance()
		p.rangeItem()
	}
}

func (p *Parser) rangeItem() {
	p.expectKind(token.Integer, "integer bound")
	p.expect("..")
	p.expectKind(token.Integer, "integer bound")
}

func (p *Parser) expectKind(k token.Kind, what string) token.Token {
	if !p.hasCurrent || p.current.Kind != k {
		p.errSyntax(what)
	}
	tok := p.current
	p.advance()
	return tok
}

// paramList parses the optional [ params ] inside a procedure/function
// header's parentheses.
func (p *Parser) paramList() {
	if p.hasCurrent && p.current.Is(")") {
		return
	}
	p.param()
	p.mparam()
}

// param parses the first [ 'var' ] varlist ':' type entry of a parameter
// list and declares each name as a parameter in the current (the
// subprogram's) scope.
func (p *Parser) param() {
	byRef := false
	if p.hasCurrent && p.current.Is("var") {
		byRef = true
		p.advance()
	}
	names := p.varlist()
	p.expect(":")
	typeTok := p.current
	typ, isArray := p.datatype()
	if isArray {
		return
	}
	if typ == symtab.Boolean || typ == symtab.Character {
		p.warnLegacySize(typeTok, typ.String())
	}
	for _, n := range names {
		if !p.symtab.AddVariable(n, typ, symtab.ScalarSize, byRef, true) {
			p.errDuplicate(n)
		}
	}
}

// mparam parses the { ';' [ 'var' ] varlist ':' type } tail of a
// parameter list.
func (p *Parser) mparam() {
	for p.hasCurrent && p.current.Is(";") {
		p.advance()
		p.param()
	}
}

// procDecl parses 'procedure' IDENT '(' [params] ')' ';' block ';'.
func (p *Parser) procDecl() {
	if !p.hasCurrent || p.current.Kind != token.Word {
		p.errSyntax("procedure name")
	}
	name := p.current.Lexeme
	p.advance()
	if _, ok := p.symtab.EnterProcScope(name); !ok {
		p.errDuplicate(name)
	}
	p.emit(p.main, "%s:", name)
	p.expect("(")
	p.paramList()
	p.expect(")")
	p.expect(";")
	p.block(false)
	p.symtab.LeaveScope()
	p.expect(";")
}

// funcDecl parses 'function' IDENT '(' [params] ')' ':' type ';' block ';'.
func (p *Parser) funcDecl() {
	if !p.hasCurrent || p.current.Kind != token.Word {
		p.errSyntax("function name")
	}
	name := p.current.Lexeme
	p.advance()
	fe, ok := p.symtab.EnterFuncScope(name)
	if !ok {
		p.errDuplicate(name)
	}
	p.emit(p.main, "%s:", name)
	p.expect("(")
	p.paramList()
	p.expect(")")
	p.expect(":")
	rt, isArray := p.datatype()
	if isArray {
		p.errType("function return type", "a scalar type", "array")
	}
	p.symtab.SetFuncReturnType(fe, rt)
	p.expect(";")
	p.block(false)
	p.symtab.LeaveScope()
	p.expect(";")
}

// consumeArgs parses and type-checks one call's actual arguments against
// formals in declaration order, returning one staging buffer per
// argument. By-value arguments are full expressions; by-reference
// arguments must be a bare variable name of matching type.
func (p *Parser) consumeArgs(formals []*symtab.VarEntry) []*bufferSink {
	buffers := make([]*bufferSink, 0, len(formals))
	for i, f := range formals {
		if i > 0 {
			p.expect(",")
		}
		buf := &bufferSink{}
		if f.ByRef {
			if !p.hasCurrent || p.current.Kind != token.Word {
				p.errSyntax("a variable (for a reference parameter)")
			}
			name := p.current.Lexeme
			entry, isLocal, ok := p.symtab.FindScoped(name, symtab.KindVar)
			if !ok {
				p.errUnknown("variable", name)
			}
			if entry.Var.Type != f.Type {
				p.errType("reference argument", f.Type.String(), entry.Var.Type.String())
			}
			p.advance()
			base := "EBP"
			if isLocal && !p.symtab.AtGlobalScope() {
				base = "EDI"
			}
			p.emit(buf, "MOV EAX, %d", entry.Var.Offset)
			p.emit(buf, "ADD EAX, %s", base)
			p.emit(buf, "PUSH EAX")
		} else {
			v := p.expression(buf)
			if v.Type != f.Type {
				p.errType("argument", f.Type.String(), v.Type.String())
			}
			p.materialize(buf, &v)
			p.emit(buf, "PUSH %s", v.Reg)
			p.regs.free()
		}
		buffers = append(buffers, buf)
	}
	return buffers
}

// consumeParamsFunc emits a function call's argument code to sink in
// forward declaration order.
func (p *Parser) consumeParamsFunc(sink emitter, f *symtab.FuncEntry) {
	buffers := p.consumeArgs(p.symtab.FuncParams(f))
	for _, b := range buffers {
		b.flushTo(sink)
	}
}

// consumeParamsProc emits a procedure call's argument code to sink in
// reverse collection order. This forward-vs-reverse asymmetry against
// consumeParamsFunc is observed, not invented — see DESIGN.md.
func (p *Parser) consumeParamsProc(sink emitter, pr *symtab.ProcEntry) {
	buffers := p.consumeArgs(p.symtab.ProcParams(pr))
	for i := len(buffers) - 1; i >= 0; i-- {
		buffers[i].flushTo(sink)
	}
}
