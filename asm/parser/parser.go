// Package parser implements a recursive-descent parser over the textual
// IR grammar, consuming the token stream asm/lexer produces and building
// an ir.Module through ir.Builder the same way a programmatic caller
// would.
//
// The grammar requires forward references in exactly one place: a phi
// incoming value may name a result computed later in the same function
// (the common loop back-edge shape, where the phi sits at the top of the
// loop body and the value it takes on a back edge is computed at the
// bottom). Every other operand reference must already be bound at the
// point it's used. Blocks may always be referenced before their header is
// reached, since branch targets are resolved through a name table that
// lazily creates blocks on first mention.
package parser

import (
	"fmt"
	"strconv"

	"irlib/asm/lexer"
	"irlib/ir"
	"irlib/irerr"
	"irlib/types"
	"irlib/verify"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

type parser struct {
	ctx  *ir.Context
	mod  *ir.Module
	toks []lexer.Token
	pos  int
}

// pendingIncoming is a phi operand whose value could not be resolved at
// parse time because it names a local not yet defined; it is resolved once
// the whole function body has been parsed.
type pendingIncoming struct {
	tok    lexer.Token
	phi    *ir.Instruction
	name   string
	declTy *types.Type
	block  *ir.BasicBlock
}

// fnScope bundles the per-function parsing state threaded through
// instruction parsing.
type fnScope struct {
	b       *ir.Builder
	f       *ir.Function
	locals  map[string]ir.Value
	blocks  map[string]*ir.BasicBlock
	pending *[]pendingIncoming
}

// ---------------------
// ----- Functions -----
// ---------------------

// Parse tokenizes and parses src into a Module owned by ctx, reporting
// the first error encountered with its file position and aborting without
// attempting recovery. On success it invokes the structural verifier and
// reports verification failures as a parse failure.
func Parse(ctx *ir.Context, src string) (*ir.Module, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, irerr.New(irerr.KindParse, "%s", err)
	}
	p := &parser{ctx: ctx, toks: toks}
	mod, err := p.parseModule()
	if err != nil {
		return nil, err
	}
	if col := verify.VerifyModule(mod, verify.Options{}); col != nil {
		return nil, irerr.Wrap(irerr.KindVerify, col.Errors()[0], "module %q failed verification (%d diagnostic(s))", mod.Name, col.Len())
	}
	return mod, nil
}

func (p *parser) parseModule() (*ir.Module, error) {
	name := "module"
	if p.peek().Kind == lexer.Ident && p.peek().Val == "module" {
		p.next()
		if _, err := p.expect(lexer.Equals); err != nil {
			return nil, err
		}
		strTok, err := p.expect(lexer.Str)
		if err != nil {
			return nil, err
		}
		name = strTok.Val
	}
	p.mod = ir.NewModule(p.ctx, name)

	for p.peek().Kind != lexer.EOF {
		t := p.peek()
		var err error
		switch {
		case t.Kind == lexer.Local:
			err = p.parseNamedStruct()
		case t.Kind == lexer.Global:
			err = p.parseGlobal()
		case t.Kind == lexer.Ident && t.Val == "define":
			p.next()
			err = p.parseDefineOrDeclare(true)
		case t.Kind == lexer.Ident && t.Val == "declare":
			p.next()
			err = p.parseDefineOrDeclare(false)
		default:
			err = p.errorf(t, "unexpected %s at top level", t)
		}
		if err != nil {
			return nil, err
		}
	}
	return p.mod, nil
}

// --------------------------------
// ----- Token stream helpers -----
// --------------------------------

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() lexer.Token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) expect(k lexer.Kind) (lexer.Token, error) {
	t := p.next()
	if t.Kind != k {
		return t, p.errorf(t, "expected %s, got %s", k, t)
	}
	return t, nil
}

func (p *parser) expectIdent(word string) error {
	t := p.next()
	if t.Kind != lexer.Ident || t.Val != word {
		return p.errorf(t, "expected %q, got %s", word, t)
	}
	return nil
}

func (p *parser) errorf(t lexer.Token, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return irerr.New(irerr.KindParse, "%d:%d: %s", t.Line, t.Col, msg)
}

// --------------------------
// ----- Type grammar -----
// --------------------------

func (p *parser) parseType() (*types.Type, error) {
	base, err := p.parseBaseType()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.LParen {
		return p.parseFuncTypeTail(base)
	}
	return base, nil
}

func (p *parser) parseBaseType() (*types.Type, error) {
	t := p.next()
	switch t.Kind {
	case lexer.Ident:
		if kind, ok := primKindByName[t.Val]; ok {
			return p.ctx.Types().Prim(kind), nil
		}
		return nil, p.errorf(t, "unknown type name %q", t.Val)
	case lexer.Local:
		return p.ctx.Types().DeclareNamed(t.Val), nil
	case lexer.Lt:
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Gt); err != nil {
			return nil, err
		}
		return p.ctx.Types().PointerTo(elem), nil
	case lexer.LBracket:
		countTok, err := p.expect(lexer.Int)
		if err != nil {
			return nil, err
		}
		n, perr := strconv.Atoi(countTok.Val)
		if perr != nil {
			return nil, p.errorf(countTok, "invalid array length %q: %s", countTok.Val, perr)
		}
		if err := p.expectIdent("x"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBracket); err != nil {
			return nil, err
		}
		return p.ctx.Types().ArrayOf(elem, n), nil
	case lexer.LBrace:
		members, err := p.parseTypeList(lexer.RBrace)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBrace); err != nil {
			return nil, err
		}
		return p.ctx.Types().StructOf(members), nil
	default:
		return nil, p.errorf(t, "expected a type, got %s", t)
	}
}

// parseTypeList parses a comma-separated list of types up to (not
// consuming) the closing token.
func (p *parser) parseTypeList(closing lexer.Kind) ([]*types.Type, error) {
	var out []*types.Type
	if p.peek().Kind == closing {
		return out, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.peek().Kind == lexer.Comma {
			p.next()
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseFuncTypeTail(ret *types.Type) (*types.Type, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var params []*types.Type
	variadic := false
	if p.peek().Kind != lexer.RParen {
		for {
			if p.peek().Kind == lexer.Ellipsis {
				p.next()
				variadic = true
				break
			}
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			params = append(params, t)
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
	return p.ctx.Types().FuncType(ret, params, variadic), nil
}

var primKindByName = map[string]types.Kind{
	"void": types.Void,
	"i1":   types.I1, "i8": types.I8, "i16": types.I16, "i32": types.I32, "i64": types.I64,
	"f32": types.F32, "f64": types.F64,
}

// ----------------------------------
// ----- Named struct type form -----
// ----------------------------------

func (p *parser) parseNamedStruct() error {
	nameTok := p.next() // Local
	if _, err := p.expect(lexer.Equals); err != nil {
		return err
	}
	if err := p.expectIdent("type"); err != nil {
		return err
	}
	t := p.ctx.Types().DeclareNamed(nameTok.Val)
	if _, err := p.expect(lexer.LBrace); err != nil {
		return err
	}
	members, err := p.parseTypeList(lexer.RBrace)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return err
	}
	if err := p.ctx.Types().SetBody(t, members); err != nil {
		return irerr.Wrap(irerr.KindParse, err, "%d:%d: %s", nameTok.Line, nameTok.Col, err)
	}
	return nil
}

// ---------------------------
// ----- Global variables -----
// ---------------------------

func (p *parser) parseGlobal() error {
	nameTok := p.next() // Global
	if _, err := p.expect(lexer.Colon); err != nil {
		return err
	}
	ptrTy, err := p.parseType()
	if err != nil {
		return err
	}
	if ptrTy.Kind() != types.Pointer {
		return p.errorf(nameTok, "global @%s: type %s is not a pointer type", nameTok.Val, ptrTy)
	}
	if _, err := p.expect(lexer.Equals); err != nil {
		return err
	}
	if err := p.expectIdent("global"); err != nil {
		return err
	}
	g := p.mod.CreateGlobal(nameTok.Val, ptrTy.Elem())
	if p.peek().Kind == lexer.Ident && p.peek().Val == "zeroinitializer" {
		p.next()
		return nil
	}
	v, err := p.parseTypedOperand(nil)
	if err != nil {
		return err
	}
	c, ok := v.(*ir.Constant)
	if !ok {
		return p.errorf(nameTok, "global @%s: initializer must be a constant", nameTok.Val)
	}
	if c.Type() != ptrTy.Elem() {
		return p.errorf(nameTok, "global @%s: initializer type %s does not match %s", nameTok.Val, c.Type(), ptrTy.Elem())
	}
	g.SetInitializer(c)
	return nil
}

// --------------------------------
// ----- Functions / signatures -----
// --------------------------------

func (p *parser) parseDefineOrDeclare(isDefine bool) error {
	retTy, err := p.parseType()
	if err != nil {
		return err
	}
	nameTok, err := p.expect(lexer.Global)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return err
	}

	var params []*types.Type
	var argNames []string
	variadic := false
	if p.peek().Kind != lexer.RParen {
		for {
			if p.peek().Kind == lexer.Ellipsis {
				p.next()
				variadic = true
				break
			}
			if isDefine {
				argTok, err := p.expect(lexer.Local)
				if err != nil {
					return err
				}
				if _, err := p.expect(lexer.Colon); err != nil {
					return err
				}
				t, err := p.parseType()
				if err != nil {
					return err
				}
				params = append(params, t)
				argNames = append(argNames, argTok.Val)
			} else {
				t, err := p.parseType()
				if err != nil {
					return err
				}
				params = append(params, t)
			}
			if p.peek().Kind == lexer.Comma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return err
	}

	sig := p.ctx.Types().FuncType(retTy, params, variadic)
	if p.mod.GetFunction(nameTok.Val) != nil {
		return p.errorf(nameTok, "function @%s already declared", nameTok.Val)
	}
	f := p.mod.DeclareFunction(nameTok.Val, sig)
	for i, nm := range argNames {
		f.Args()[i].SetName(p.ctx.Intern(nm))
	}

	if !isDefine {
		return nil
	}
	return p.parseFunctionBody(f)
}

func (p *parser) parseFunctionBody(f *ir.Function) error {
	b := ir.NewBuilder(p.ctx)
	fc := &fnScope{
		b:       b,
		f:       f,
		locals:  make(map[string]ir.Value, 16),
		blocks:  make(map[string]*ir.BasicBlock, 4),
		pending: &[]pendingIncoming{},
	}
	for _, a := range f.Args() {
		fc.locals[a.Name()] = a
	}

	if _, err := p.expect(lexer.LBrace); err != nil {
		return err
	}
	for p.peek().Kind != lexer.RBrace {
		labelTok, err := p.expect(lexer.Label)
		if err != nil {
			return err
		}
		if _, err := p.expect(lexer.Colon); err != nil {
			return err
		}
		bb := p.getOrCreateBlock(fc, labelTok.Val)
		b.SetInsertionPoint(bb)
		for p.peek().Kind != lexer.Label && p.peek().Kind != lexer.RBrace {
			if err := p.parseInstruction(fc); err != nil {
				return err
			}
		}
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return err
	}

	for _, pi := range *fc.pending {
		v, ok := fc.locals[pi.name]
		if !ok {
			return p.errorf(pi.tok, "phi: undefined local %%%s", pi.name)
		}
		if v.Type() != pi.declTy {
			return p.errorf(pi.tok, "phi: local %%%s has type %s, used as %s", pi.name, v.Type(), pi.declTy)
		}
		pi.phi.AddIncoming(v, pi.block)
	}
	return nil
}

func (p *parser) getOrCreateBlock(fc *fnScope, name string) *ir.BasicBlock {
	if bb, ok := fc.blocks[name]; ok {
		return bb
	}
	bb := fc.f.CreateBlock(p.ctx, name)
	fc.blocks[name] = bb
	return bb
}
