package koopa

import "fmt"

// Parse consumes Koopa IR textual form and builds the raw, typed program
// graph — the concrete implementation of the parse_from_string /
// new_raw_builder / build_raw_program boundary named by spec.md §6.2.
//
// Parse errors are reported as spec.md §7 ParseErrors via a returned error
// rather than the diag.Raise/panic convention the front end uses: the
// Koopa parser is the "external" collaborator, so its failure mode is
// deliberately a plain Go error the driver wraps, not a diag.Fatal.
func Parse(text string) (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("koopa: %v", r)
		}
	}()
	p := &koopaParser{lex: newKoopaLexer(text), globals: map[string]*Value{}}
	p.advance()
	return p.parseProgram(), nil
}

// stripSigil drops the leading '@' or '%' a tkGlobal/tkLocal token carries:
// the backend addresses every name as a bare assembly symbol or map key, so
// the sigil (which only exists to keep the two textual namespaces apart
// while parsing) never survives into a Value/Function/BasicBlock's Name.
func stripSigil(s string) string {
	if len(s) > 0 {
		return s[1:]
	}
	return s
}

type koopaParser struct {
	lex *koopaLexer
	cur tok

	globals map[string]*Value // populated as `global` items are parsed

	// per-function state
	values map[string]*Value
	blocks map[string]*BasicBlock
	fn     *Function
}

func (p *koopaParser) advance() tok {
	t := p.cur
	p.cur = p.lex.next()
	return t
}

func (p *koopaParser) expectIdent(word string) {
	if p.cur.kind != tkIdent || p.cur.text != word {
		panic(fmt.Sprintf("expected %q, got %v %q", word, p.cur.kind, p.cur.text))
	}
	p.advance()
}

func (p *koopaParser) expect(k tokKind) tok {
	if p.cur.kind != k {
		panic(fmt.Sprintf("unexpected token kind %v (%q)", p.cur.kind, p.cur.text))
	}
	return p.advance()
}

func (p *koopaParser) atIdent(word string) bool { return p.cur.kind == tkIdent && p.cur.text == word }

func (p *koopaParser) parseProgram() *Program {
	prog := &Program{}
	for p.cur.kind != tkEOF {
		switch {
		case p.atIdent("decl"):
			prog.Funcs = append(prog.Funcs, p.parseDecl())
		case p.atIdent("global"):
			prog.Globals = append(prog.Globals, p.parseGlobal())
		case p.atIdent("fun"):
			prog.Funcs = append(prog.Funcs, p.parseFunc())
		default:
			panic(fmt.Sprintf("unexpected top-level token %q", p.cur.text))
		}
	}
	return prog
}

func (p *koopaParser) parseType() *Type {
	switch p.cur.kind {
	case tkStar:
		p.advance()
		return Ptr(p.parseType())
	case tkLBracket:
		p.advance()
		elem := p.parseType()
		p.expect(tkComma)
		n := parseInt32(p.expect(tkNumber).text)
		p.expect(tkRBracket)
		return Array(elem, int(n))
	case tkIdent:
		name := p.advance().text
		switch name {
		case "i32":
			return I32
		case "unit":
			return Unit
		}
		panic("unknown type " + name)
	}
	panic(fmt.Sprintf("expected type, got %q", p.cur.text))
}

func (p *koopaParser) parseDecl() *Function {
	p.advance() // decl
	name := stripSigil(p.expect(tkGlobal).text)
	p.expect(tkLParen)
	var params []*Param
	for p.cur.kind != tkRParen {
		params = append(params, &Param{Type: p.parseType()})
		if p.cur.kind == tkComma {
			p.advance()
		}
	}
	p.expect(tkRParen)
	ret := Unit
	if p.cur.kind == tkColon {
		p.advance()
		ret = p.parseType()
	}
	return &Function{Name: name, Params: params, RetType: ret}
}

func (p *koopaParser) parseGlobal() *Value {
	p.advance() // global
	name := stripSigil(p.expect(tkGlobal).text)
	p.expect(tkEquals)
	p.expectIdent("alloc")
	ty := p.parseType()
	p.expect(tkComma)
	init := p.parseInit(ty)
	g := &Value{Kind: GlobalAlloc, Type: Ptr(ty), Name: name, AllocType: ty, Init: init}
	p.globals[name] = g
	return g
}

func (p *koopaParser) parseInit(ty *Type) *Value {
	if p.atIdent("zeroinit") {
		p.advance()
		return &Value{Kind: ZeroInit, Type: ty}
	}
	if p.cur.kind == tkNumber {
		n := parseInt32(p.advance().text)
		return &Value{Kind: Integer, Type: I32, IntVal: n}
	}
	p.expect(tkLBrace)
	var elems []*Value
	elemType := ty.Elem
	for p.cur.kind != tkRBrace {
		elems = append(elems, p.parseInit(elemType))
		if p.cur.kind == tkComma {
			p.advance()
		}
	}
	p.expect(tkRBrace)
	return &Value{Kind: Aggregate, Type: ty, Elems: elems}
}

func (p *koopaParser) parseFunc() *Function {
	p.advance() // fun
	name := stripSigil(p.expect(tkGlobal).text)
	p.expect(tkLParen)
	var params []*Param
	var paramNames []string
	for p.cur.kind != tkRParen {
		pname := stripSigil(p.expect(tkLocal).text)
		p.expect(tkColon)
		pt := p.parseType()
		params = append(params, &Param{Name: pname, Type: pt})
		paramNames = append(paramNames, pname)
		if p.cur.kind == tkComma {
			p.advance()
		}
	}
	p.expect(tkRParen)
	ret := Unit
	if p.cur.kind == tkColon {
		p.advance()
		ret = p.parseType()
	}
	fn := &Function{Name: name, Params: params, RetType: ret}

	p.fn = fn
	p.values = map[string]*Value{}
	p.blocks = map[string]*BasicBlock{}
	fn.ArgRefs = make([]*Value, len(params))
	for i, param := range params {
		ref := &Value{Kind: FuncArgRef, Type: param.Type, Name: param.Name, ArgIndex: i}
		p.values[paramNames[i]] = ref
		fn.ArgRefs[i] = ref
	}

	p.expect(tkLBrace)
	// pre-scan block labels so forward branches (a jump or br to a label
	// that appears later in the text) resolve regardless of emission order.
	save := *p.lex
	saveCur := p.cur
	depth := 0
	for {
		if p.cur.kind == tkLocal {
			nameTok := stripSigil(p.cur.text)
			lookahead := *p.lex
			if lookahead.next().kind == tkColon {
				p.blocks[nameTok] = &BasicBlock{Name: nameTok}
			}
		}
		if p.cur.kind == tkLBrace {
			depth++
		}
		if p.cur.kind == tkRBrace {
			if depth == 0 {
				break
			}
			depth--
		}
		if p.cur.kind == tkEOF {
			break
		}
		p.advance()
	}
	*p.lex = save
	p.cur = saveCur

	for p.cur.kind == tkLocal {
		fn.Blocks = append(fn.Blocks, p.parseBlock())
	}
	p.expect(tkRBrace)
	return fn
}

func (p *koopaParser) parseBlock() *BasicBlock {
	name := stripSigil(p.expect(tkLocal).text)
	p.expect(tkColon)
	bb := p.blocks[name]
	bb.Name = name
	for p.cur.kind == tkLocal || p.cur.kind == tkGlobal || p.atIdent("store") || p.atIdent("br") || p.atIdent("jump") || p.atIdent("ret") || p.atIdent("call") {
		if p.cur.kind == tkLocal {
			if lookahead := *p.lex; lookahead.next().kind == tkColon {
				break // the label of the next block
			}
		}
		bb.Values = append(bb.Values, p.parseInstr())
	}
	return bb
}

// resolveValue accepts a number or a %-sigil local value reference (an SSA
// temporary or a function argument).
func (p *koopaParser) resolveValue() *Value {
	switch p.cur.kind {
	case tkNumber:
		n := parseInt32(p.advance().text)
		return &Value{Kind: Integer, Type: I32, IntVal: n}
	case tkLocal:
		name := stripSigil(p.advance().text)
		v, ok := p.values[name]
		if !ok {
			panic("undefined value " + name)
		}
		return v
	case tkGlobal:
		panic("global values are resolved by name at the caller, not via resolveValue")
	}
	panic(fmt.Sprintf("expected value, got %q", p.cur.text))
}

func (p *koopaParser) resolveBlock() *BasicBlock {
	name := stripSigil(p.expect(tkLocal).text)
	bb, ok := p.blocks[name]
	if !ok {
		panic("undefined block " + name)
	}
	return bb
}

func (p *koopaParser) parseInstr() *Value {
	var result string
	if p.cur.kind == tkLocal || p.cur.kind == tkGlobal {
		save := *p.lex
		saveCur := p.cur
		name := stripSigil(p.advance().text)
		if p.cur.kind == tkEquals {
			p.advance()
			result = name
		} else {
			*p.lex = save
			p.cur = saveCur
		}
	}

	word := p.expect(tkIdent).text
	var v *Value
	switch word {
	case "alloc":
		ty := p.parseType()
		v = &Value{Kind: Alloc, Type: Ptr(ty), AllocType: ty, Name: result}
	case "load":
		src := p.resolveOperand()
		v = &Value{Kind: Load, Type: I32, Args: []*Value{src}, Name: result}
		if src.Type.Kind == KindPointer {
			v.Type = src.Type.Elem
		}
	case "store":
		val := p.resolveOperand()
		p.expect(tkComma)
		dst := p.resolveOperand()
		v = &Value{Kind: Store, Type: Unit, Args: []*Value{val, dst}}
	case "getelemptr":
		base := p.resolveOperand()
		p.expect(tkComma)
		idx := p.resolveOperand()
		v = &Value{Kind: GetElemPtr, Type: elemPtrType(base.Type), Args: []*Value{base, idx}, Name: result}
	case "getptr":
		base := p.resolveOperand()
		p.expect(tkComma)
		idx := p.resolveOperand()
		v = &Value{Kind: GetPtr, Type: base.Type, Args: []*Value{base, idx}, Name: result}
	case "br":
		cond := p.resolveOperand()
		p.expect(tkComma)
		t := p.resolveBlock()
		p.expect(tkComma)
		f := p.resolveBlock()
		v = &Value{Kind: Branch, Type: Unit, Args: []*Value{cond}, TrueBB: t, FalseBB: f}
	case "jump":
		t := p.resolveBlock()
		v = &Value{Kind: Jump, Type: Unit, Target: t}
	case "call":
		callee := stripSigil(p.expect(tkGlobal).text)
		p.expect(tkLParen)
		var args []*Value
		for p.cur.kind != tkRParen {
			args = append(args, p.resolveOperand())
			if p.cur.kind == tkComma {
				p.advance()
			}
		}
		p.expect(tkRParen)
		callType := Unit
		if result != "" {
			callType = I32
		}
		v = &Value{Kind: Call, Type: callType, Args: args, Name: result, Callee: &Function{Name: callee}}
	case "ret":
		var args []*Value
		if p.cur.kind == tkNumber {
			args = append(args, p.resolveOperand())
		} else if p.cur.kind == tkLocal {
			// a bare ret may be followed directly by the next block's label
			if lookahead := *p.lex; lookahead.next().kind != tkColon {
				args = append(args, p.resolveOperand())
			}
		}
		v = &Value{Kind: Return, Type: Unit, Args: args}
	default:
		if op, ok := binOpNames[word]; ok {
			lhs := p.resolveOperand()
			p.expect(tkComma)
			rhs := p.resolveOperand()
			v = &Value{Kind: Binary, Type: I32, Op: op, Args: []*Value{lhs, rhs}, Name: result}
		} else {
			panic("unknown instruction " + word)
		}
	}
	if result != "" {
		p.values[result] = v
	}
	return v
}

// resolveOperand accepts a number, a %-sigil local value reference, or an
// @-sigil reference — which names either a true global (declared with
// `global @name = ...`) or a local stack alloc (`@name = alloc ...`), since
// both share the @ namespace by design (spec.md §4.5/§4.6). Function-local
// values are checked first since they shadow nothing but are populated
// first during parsing of the enclosing function.
func (p *koopaParser) resolveOperand() *Value {
	if p.cur.kind == tkGlobal {
		name := stripSigil(p.advance().text)
		if v, ok := p.values[name]; ok {
			return v
		}
		if g, ok := p.globals[name]; ok {
			return g
		}
		panic("undefined value " + name)
	}
	return p.resolveValue()
}

func elemPtrType(base *Type) *Type {
	if base.Kind == KindPointer && base.Elem.Kind == KindArray {
		return Ptr(base.Elem.Elem)
	}
	if base.Kind == KindPointer {
		return Ptr(base.Elem)
	}
	return Ptr(I32)
}
