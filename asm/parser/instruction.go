package parser

import (
	"strconv"

	"irlib/asm/lexer"
	"irlib/ir"
	"irlib/types"
)

// ---------------------
// ----- Functions -----
// ---------------------

// parseInstruction parses one instruction line: either the value-producing
// form "%name: T = <opcode> <args>" or the void form "<opcode> <args>".
func (p *parser) parseInstruction(fc *fnScope) error {
	var resultName string
	var declaredType *types.Type
	hasResult := false

	if p.peek().Kind == lexer.Local && p.peekAt(1).Kind == lexer.Colon {
		nameTok := p.next()
		p.next() // colon
		t, err := p.parseType()
		if err != nil {
			return err
		}
		if _, err := p.expect(lexer.Equals); err != nil {
			return err
		}
		resultName = nameTok.Val
		declaredType = t
		hasResult = true
	}

	opTok := p.next()
	if opTok.Kind != lexer.Ident {
		return p.errorf(opTok, "expected an instruction mnemonic, got %s", opTok)
	}

	result, err := p.parseOpcodeBody(fc, opTok, resultName, declaredType, hasResult)
	if err != nil {
		return err
	}

	if hasResult {
		if result == nil {
			return p.errorf(opTok, "%s: a void opcode cannot be assigned a result", opTok.Val)
		}
		if result.Type() != declaredType {
			return p.errorf(opTok, "%s: declared result type %s does not match %s", opTok.Val, declaredType, result.Type())
		}
		fc.locals[resultName] = result
	}
	return nil
}

func (p *parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos+n]
}

func (p *parser) parseOpcodeBody(fc *fnScope, opTok lexer.Token, resultName string, declaredType *types.Type, hasResult bool) (ir.Value, error) {
	switch opTok.Val {
	case "ret":
		return nil, p.parseRet(fc)
	case "br":
		return nil, p.parseBr(fc)
	case "cond_br":
		return nil, p.parseCondBr(fc)
	case "switch":
		return nil, p.parseSwitch(fc)
	case "add", "sub", "mul", "udiv", "sdiv", "urem", "srem", "shl", "lshr", "ashr", "and", "or", "xor",
		"fadd", "fsub", "fmul", "fdiv":
		lhs, rhs, err := p.parseBinOperands(fc)
		if err != nil {
			return nil, err
		}
		return binOpBuilder(fc.b, opTok.Val, lhs, rhs, resultName), nil
	case "icmp":
		return p.parseICmp(fc, resultName)
	case "fcmp":
		return p.parseFCmp(fc, resultName)
	case "trunc", "zext", "sext", "fptrunc", "fpext", "fptoui", "fptosi", "uitofp", "sitofp", "ptrtoint", "inttoptr", "bitcast":
		return p.parseCast(fc, opTok.Val, resultName)
	case "alloca":
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return fc.b.CreateAlloca(t, resultName), nil
	case "load":
		ptr, err := p.parseTypedOperand(fc.locals)
		if err != nil {
			return nil, err
		}
		return fc.b.CreateLoad(ptr, resultName), nil
	case "store":
		val, err := p.parseTypedOperand(fc.locals)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		ptr, err := p.parseTypedOperand(fc.locals)
		if err != nil {
			return nil, err
		}
		fc.b.CreateStore(val, ptr)
		return nil, nil
	case "gep":
		return p.parseGEP(fc, resultName)
	case "phi":
		if !hasResult {
			return nil, p.errorf(opTok, "phi requires a %%result: type declaration")
		}
		return p.parsePhi(fc, declaredType, resultName)
	case "select":
		return p.parseSelect(fc, resultName)
	case "call":
		return p.parseCall(fc, resultName)
	}
	return nil, p.errorf(opTok, "unknown opcode %q", opTok.Val)
}

func (p *parser) parseRet(fc *fnScope) error {
	retTy := fc.f.Signature().ReturnType()
	if retTy.Kind() == types.Void {
		fc.b.CreateRet(nil)
		return nil
	}
	v, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return err
	}
	if v.Type() != retTy {
		return p.errorf(p.peek(), "ret: value type %s does not match function return type %s", v.Type(), retTy)
	}
	fc.b.CreateRet(v)
	return nil
}

func (p *parser) parseBr(fc *fnScope) error {
	labelTok, err := p.expect(lexer.Label)
	if err != nil {
		return err
	}
	fc.b.CreateBr(p.getOrCreateBlock(fc, labelTok.Val))
	return nil
}

func (p *parser) parseCondBr(fc *fnScope) error {
	cond, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return err
	}
	thenTok, err := p.expect(lexer.Label)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return err
	}
	elseTok, err := p.expect(lexer.Label)
	if err != nil {
		return err
	}
	fc.b.CreateCondBr(cond, p.getOrCreateBlock(fc, thenTok.Val), p.getOrCreateBlock(fc, elseTok.Val))
	return nil
}

func (p *parser) parseSwitch(fc *fnScope) error {
	cond, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return err
	}
	if err := p.expectIdent("default"); err != nil {
		return err
	}
	defTok, err := p.expect(lexer.Label)
	if err != nil {
		return err
	}
	def := p.getOrCreateBlock(fc, defTok.Val)
	if _, err := p.expect(lexer.LBracket); err != nil {
		return err
	}
	var cases []struct {
		Val  *ir.Constant
		Dest *ir.BasicBlock
	}
	for p.peek().Kind != lexer.RBracket {
		caseTok := p.peek()
		v, err := p.parseTypedOperand(fc.locals)
		if err != nil {
			return err
		}
		c, ok := v.(*ir.Constant)
		if !ok {
			return p.errorf(caseTok, "switch: case value must be a constant")
		}
		if _, err := p.expect(lexer.Comma); err != nil {
			return err
		}
		destTok, err := p.expect(lexer.Label)
		if err != nil {
			return err
		}
		cases = append(cases, struct {
			Val  *ir.Constant
			Dest *ir.BasicBlock
		}{c, p.getOrCreateBlock(fc, destTok.Val)})
		if p.peek().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return err
	}
	fc.b.CreateSwitch(cond, def, cases)
	return nil
}

func (p *parser) parseBinOperands(fc *fnScope) (ir.Value, ir.Value, error) {
	lhs, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return nil, nil, err
	}
	rhs, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func (p *parser) parseICmp(fc *fnScope, resultName string) (ir.Value, error) {
	predTok := p.next()
	pred, ok := intPredByName[predTok.Val]
	if !ok {
		return nil, p.errorf(predTok, "unknown icmp predicate %q", predTok.Val)
	}
	lhs, rhs, err := p.parseBinOperands(fc)
	if err != nil {
		return nil, err
	}
	return fc.b.CreateICmp(pred, lhs, rhs, resultName), nil
}

func (p *parser) parseFCmp(fc *fnScope, resultName string) (ir.Value, error) {
	predTok := p.next()
	pred, ok := floatPredByName[predTok.Val]
	if !ok {
		return nil, p.errorf(predTok, "unknown fcmp predicate %q", predTok.Val)
	}
	lhs, rhs, err := p.parseBinOperands(fc)
	if err != nil {
		return nil, err
	}
	return fc.b.CreateFCmp(pred, lhs, rhs, resultName), nil
}

func (p *parser) parseCast(fc *fnScope, mnemonic, resultName string) (ir.Value, error) {
	v, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, err
	}
	if err := p.expectIdent("to"); err != nil {
		return nil, err
	}
	dest, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return castBuilder(fc.b, mnemonic, v, dest, resultName), nil
}

func (p *parser) parseGEP(fc *fnScope, resultName string) (ir.Value, error) {
	inbounds := false
	if p.peek().Kind == lexer.Ident && p.peek().Val == "inbounds" {
		p.next()
		inbounds = true
	}
	srcTy, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return nil, err
	}
	base, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, err
	}
	var idx []ir.Value
	for p.peek().Kind == lexer.Comma {
		p.next()
		v, err := p.parseTypedOperand(fc.locals)
		if err != nil {
			return nil, err
		}
		idx = append(idx, v)
	}
	return fc.b.CreateGEP(srcTy, base, idx, inbounds, resultName), nil
}

func (p *parser) parsePhi(fc *fnScope, declaredType *types.Type, resultName string) (ir.Value, error) {
	phi := fc.b.CreatePhi(declaredType, resultName)
	if err := p.parsePhiPair(fc, phi); err != nil {
		return nil, err
	}
	for p.peek().Kind == lexer.Comma {
		p.next()
		if err := p.parsePhiPair(fc, phi); err != nil {
			return nil, err
		}
	}
	return phi, nil
}

func (p *parser) parsePhiPair(fc *fnScope, phi *ir.Instruction) error {
	if _, err := p.expect(lexer.LBracket); err != nil {
		return err
	}
	valTok := p.peek()
	if valTok.Kind == lexer.Local {
		if _, known := fc.locals[valTok.Val]; !known {
			p.next()
			if _, err := p.expect(lexer.Colon); err != nil {
				return err
			}
			t, err := p.parseType()
			if err != nil {
				return err
			}
			if _, err := p.expect(lexer.Comma); err != nil {
				return err
			}
			blockTok, err := p.expect(lexer.Label)
			if err != nil {
				return err
			}
			if _, err := p.expect(lexer.RBracket); err != nil {
				return err
			}
			*fc.pending = append(*fc.pending, pendingIncoming{
				tok: valTok, phi: phi, name: valTok.Val, declTy: t,
				block: p.getOrCreateBlock(fc, blockTok.Val),
			})
			return nil
		}
	}
	v, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return err
	}
	blockTok, err := p.expect(lexer.Label)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return err
	}
	phi.AddIncoming(v, p.getOrCreateBlock(fc, blockTok.Val))
	return nil
}

func (p *parser) parseSelect(fc *fnScope, resultName string) (ir.Value, error) {
	cond, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return nil, err
	}
	tv, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Comma); err != nil {
		return nil, err
	}
	fv, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, err
	}
	return fc.b.CreateSelect(cond, tv, fv, resultName), nil
}

func (p *parser) parseCall(fc *fnScope, resultName string) (ir.Value, error) {
	callee, err := p.parseTypedOperand(fc.locals)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var args []ir.Value
	if p.peek().Kind != lexer.RParen {
		for {
			a, err := p.parseTypedOperand(fc.locals)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().Kind == lexer.Comma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return fc.b.CreateCall(callee, args, resultName), nil
}

// --------------------------------
// ----- General operand grammar -----
// --------------------------------

// parseTypedOperand parses one operand in the grammar's always-typed form:
// "%name: T", "@name: T", or a literal ("123: i32", "true: i1", "undef: T",
// "null: <T>"). locals may be nil when parsing a context (a global
// initializer) where local references can never legally occur.
func (p *parser) parseTypedOperand(locals map[string]ir.Value) (ir.Value, error) {
	tok := p.peek()
	switch tok.Kind {
	case lexer.Local:
		p.next()
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		v, ok := locals[tok.Val]
		if !ok {
			return nil, p.errorf(tok, "undefined local %%%s", tok.Val)
		}
		if v.Type() != t {
			return nil, p.errorf(tok, "local %%%s has type %s, used as %s", tok.Val, v.Type(), t)
		}
		return v, nil
	case lexer.Global:
		p.next()
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		var gv ir.Value
		if f := p.mod.GetFunction(tok.Val); f != nil {
			gv = f
		} else if g := p.mod.GetGlobal(tok.Val); g != nil {
			gv = g
		} else {
			return nil, p.errorf(tok, "undefined global @%s", tok.Val)
		}
		if gv.Type() != t {
			return nil, p.errorf(tok, "global @%s has type %s, used as %s", tok.Val, gv.Type(), t)
		}
		return gv, nil
	case lexer.Ident:
		switch tok.Val {
		case "true", "false":
			p.next()
			if _, err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if t.Kind() != types.I1 {
				return nil, p.errorf(tok, "boolean literal must have type i1, got %s", t)
			}
			if tok.Val == "true" {
				return p.ctx.ConstInt(t, 1), nil
			}
			return p.ctx.ConstInt(t, 0), nil
		case "undef":
			p.next()
			if _, err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return p.ctx.ConstUndef(t), nil
		case "null":
			p.next()
			if _, err := p.expect(lexer.Colon); err != nil {
				return nil, err
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			return p.ctx.ConstNull(t), nil
		default:
			return nil, p.errorf(tok, "unexpected identifier %q in operand position", tok.Val)
		}
	case lexer.Int:
		p.next()
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if !t.IsInteger() {
			return nil, p.errorf(tok, "integer literal used with non-integer type %s", t)
		}
		n, perr := strconv.ParseInt(tok.Val, 10, 64)
		if perr != nil {
			return nil, p.errorf(tok, "invalid integer literal %q: %s", tok.Val, perr)
		}
		return p.ctx.ConstInt(t, uint64(n)), nil
	case lexer.Str:
		p.next()
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		c := p.ctx.ConstString(tok.Val)
		if c.Type() != t {
			return nil, p.errorf(tok, "string literal has type %s, used as %s", c.Type(), t)
		}
		return c, nil
	case lexer.Float:
		p.next()
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if !t.IsFloat() {
			return nil, p.errorf(tok, "float literal used with non-float type %s", t)
		}
		f, perr := strconv.ParseFloat(tok.Val, 64)
		if perr != nil {
			return nil, p.errorf(tok, "invalid float literal %q: %s", tok.Val, perr)
		}
		return p.ctx.ConstFloat(t, f), nil
	default:
		return nil, p.errorf(tok, "expected an operand, got %s", tok)
	}
}

// ------------------------------------
// ----- Mnemonic/predicate tables -----
// ------------------------------------

var intPredByName = map[string]ir.IntPredicate{
	"eq": ir.IEQ, "ne": ir.INE, "sgt": ir.ISGT, "sge": ir.ISGE, "slt": ir.ISLT, "sle": ir.ISLE,
	"ugt": ir.IUGT, "uge": ir.IUGE, "ult": ir.IULT, "ule": ir.IULE,
}

var floatPredByName = map[string]ir.FloatPredicate{
	"true": ir.FTrue, "false": ir.FFalse,
	"oeq": ir.FOEQ, "one": ir.FONE, "ogt": ir.FOGT, "oge": ir.FOGE, "olt": ir.FOLT, "ole": ir.FOLE, "ord": ir.FORD,
	"ueq": ir.FUEQ, "une": ir.FUNE, "ugt": ir.FUGT, "uge": ir.FUGE, "ult": ir.FULT, "ule": ir.FULE, "uno": ir.FUNO,
}

func binOpBuilder(b *ir.Builder, mnemonic string, lhs, rhs ir.Value, name string) ir.Value {
	switch mnemonic {
	case "add":
		return b.CreateAdd(lhs, rhs, name)
	case "sub":
		return b.CreateSub(lhs, rhs, name)
	case "mul":
		return b.CreateMul(lhs, rhs, name)
	case "udiv":
		return b.CreateUDiv(lhs, rhs, name)
	case "sdiv":
		return b.CreateSDiv(lhs, rhs, name)
	case "urem":
		return b.CreateURem(lhs, rhs, name)
	case "srem":
		return b.CreateSRem(lhs, rhs, name)
	case "shl":
		return b.CreateShl(lhs, rhs, name)
	case "lshr":
		return b.CreateLShr(lhs, rhs, name)
	case "ashr":
		return b.CreateAShr(lhs, rhs, name)
	case "and":
		return b.CreateAnd(lhs, rhs, name)
	case "or":
		return b.CreateOr(lhs, rhs, name)
	case "xor":
		return b.CreateXor(lhs, rhs, name)
	case "fadd":
		return b.CreateFAdd(lhs, rhs, name)
	case "fsub":
		return b.CreateFSub(lhs, rhs, name)
	case "fmul":
		return b.CreateFMul(lhs, rhs, name)
	case "fdiv":
		return b.CreateFDiv(lhs, rhs, name)
	}
	panic("parser: unreachable binop mnemonic " + mnemonic)
}

func castBuilder(b *ir.Builder, mnemonic string, v ir.Value, dest *types.Type, name string) ir.Value {
	switch mnemonic {
	case "trunc":
		return b.CreateTrunc(v, dest, name)
	case "zext":
		return b.CreateZExt(v, dest, name)
	case "sext":
		return b.CreateSExt(v, dest, name)
	case "fptrunc":
		return b.CreateFPTrunc(v, dest, name)
	case "fpext":
		return b.CreateFPExt(v, dest, name)
	case "fptoui":
		return b.CreateFPToUI(v, dest, name)
	case "fptosi":
		return b.CreateFPToSI(v, dest, name)
	case "uitofp":
		return b.CreateUIToFP(v, dest, name)
	case "sitofp":
		return b.CreateSIToFP(v, dest, name)
	case "ptrtoint":
		return b.CreatePtrToInt(v, dest, name)
	case "inttoptr":
		return b.CreateIntToPtr(v, dest, name)
	case "bitcast":
		return b.CreateBitcast(v, dest, name)
	}
	panic("parser: unreachable cast mnemonic " + mnemonic)
}
