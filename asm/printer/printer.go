// Package printer renders an ir.Module back into the textual IR grammar,
// so asm/parser can round-trip it. It deliberately does not
// delegate to ir.Module/Function/BasicBlock/Instruction's own String()
// methods: those predate this package and were written as informal
// human-readable dumps (a "; module foo" comment header, bare "name:"
// block labels with no "$" sigil, untyped operand references) rather than
// the grammar's literal keyword forms, so printer formats every
// construct itself, reusing only the pieces that already agree with the
// grammar: types.Type.String() and ir.Constant.String().
package printer

import (
	"fmt"
	"strings"

	"irlib/ir"
	"irlib/types"
)

// ---------------------
// ----- Functions -----
// ---------------------

// Print renders m in the textual form asm/parser.Parse accepts.
func Print(m *ir.Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module = %q\n", m.Name)

	named := m.Context().Types().NamedTypes()
	if len(named) > 0 {
		sb.WriteByte('\n')
		for _, t := range named {
			printNamedType(&sb, t)
		}
	}

	globals := m.Globals()
	if len(globals) > 0 {
		sb.WriteByte('\n')
		for _, g := range globals {
			printGlobal(&sb, g)
		}
	}

	for _, f := range m.Functions() {
		sb.WriteByte('\n')
		printFunction(&sb, f)
	}
	return sb.String()
}

func printNamedType(sb *strings.Builder, t *types.Type) {
	if t.IsOpaque() {
		return
	}
	fmt.Fprintf(sb, "%%%s = type { ", t.Name())
	for i, m := range t.Members() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(m.String())
	}
	sb.WriteString(" }\n")
}

func printGlobal(sb *strings.Builder, g *ir.GlobalVariable) {
	fmt.Fprintf(sb, "@%s: %s = global ", g.Name(), g.Type())
	if init := g.Initializer(); init != nil {
		lit := init.String()
		if init.IsArray() {
			// The parser's ConstString appends the trailing NUL itself,
			// so it is left out of the printed literal.
			b := init.Bytes()
			lit = fmt.Sprintf("%q", b[:len(b)-1])
		}
		fmt.Fprintf(sb, "%s: %s\n", lit, init.Type())
	} else {
		sb.WriteString("zeroinitializer\n")
	}
}

func printFunction(sb *strings.Builder, f *ir.Function) {
	sig := f.Signature()
	if f.IsDeclaration() {
		fmt.Fprintf(sb, "declare %s @%s(", sig.ReturnType(), f.Name())
		printParamTypes(sb, sig)
		sb.WriteString(")\n")
		return
	}

	fmt.Fprintf(sb, "define %s @%s(", sig.ReturnType(), f.Name())
	args := f.Args()
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%%%s: %s", a.Name(), a.Type())
	}
	if sig.IsVariadic() {
		if len(args) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteString(") {\n")
	for _, b := range f.Blocks() {
		printBlock(sb, b)
	}
	sb.WriteString("}\n")
}

func printParamTypes(sb *strings.Builder, sig *types.Type) {
	params := sig.Params()
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	if sig.IsVariadic() {
		if len(params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
}

func printBlock(sb *strings.Builder, b *ir.BasicBlock) {
	fmt.Fprintf(sb, "$%s:\n", b.Name())
	for _, inst := range b.Instructions() {
		if !inst.IsEnabled() {
			continue
		}
		sb.WriteByte('\t')
		printInstruction(sb, inst)
		sb.WriteByte('\n')
	}
}

func printInstruction(sb *strings.Builder, i *ir.Instruction) {
	if i.Type().Kind() != types.Void {
		fmt.Fprintf(sb, "%%%s: %s = ", i.Name(), i.Type())
	}
	sb.WriteString(i.Opcode().String())

	switch i.Opcode() {
	case ir.OpRet:
		if i.NumOperands() > 0 {
			fmt.Fprintf(sb, " %s", typedOperand(i.Operand(0)))
		}
	case ir.OpBr:
		fmt.Fprintf(sb, " $%s", i.Operand(0).Name())
	case ir.OpCondBr:
		fmt.Fprintf(sb, " %s, $%s, $%s", typedOperand(i.Operand(0)), i.Operand(1).Name(), i.Operand(2).Name())
	case ir.OpSwitch:
		fmt.Fprintf(sb, " %s, default $%s [", typedOperand(i.Operand(0)), i.Operand(1).Name())
		for idx := 0; idx < i.NumCases(); idx++ {
			c, dest := i.Case(idx)
			if idx > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "%s: %s, $%s", c.String(), c.Type(), dest.Name())
		}
		sb.WriteString("]")
	case ir.OpICmp:
		fmt.Fprintf(sb, " %s %s, %s", i.IntPredicate(), typedOperand(i.Operand(0)), typedOperand(i.Operand(1)))
	case ir.OpFCmp:
		fmt.Fprintf(sb, " %s %s, %s", i.FloatPredicate(), typedOperand(i.Operand(0)), typedOperand(i.Operand(1)))
	case ir.OpAlloca:
		fmt.Fprintf(sb, " %s", i.AllocType())
	case ir.OpGEP:
		if i.Inbounds() {
			sb.WriteString(" inbounds")
		}
		fmt.Fprintf(sb, " %s, %s", i.AllocType(), typedOperand(i.Operand(0)))
		for idx := 1; idx < i.NumOperands(); idx++ {
			fmt.Fprintf(sb, ", %s", typedOperand(i.Operand(idx)))
		}
	case ir.OpPhi:
		sb.WriteString(" ")
		for idx := 0; idx < i.NumIncoming(); idx++ {
			v, pred := i.Incoming(idx)
			if idx > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "[%s, $%s]", typedOperand(v), pred.Name())
		}
	case ir.OpCall:
		fmt.Fprintf(sb, " %s(", typedOperand(i.Callee()))
		for idx, a := range i.Args() {
			if idx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(typedOperand(a))
		}
		sb.WriteString(")")
	case ir.OpSelect:
		fmt.Fprintf(sb, " %s, %s, %s", typedOperand(i.Operand(0)), typedOperand(i.Operand(1)), typedOperand(i.Operand(2)))
	default:
		for idx := 0; idx < i.NumOperands(); idx++ {
			if idx > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(sb, " %s", typedOperand(i.Operand(idx)))
		}
		if isCastOpcode(i.Opcode()) {
			fmt.Fprintf(sb, " to %s", i.Type())
		}
	}
}

// typedOperand renders v in the grammar's always-typed operand form;
// labels are the one operand kind that carries no type.
func typedOperand(v ir.Value) string {
	switch v.Kind() {
	case ir.KindConstant:
		c := v.(*ir.Constant)
		return fmt.Sprintf("%s: %s", c.String(), c.Type())
	case ir.KindGlobal, ir.KindFunction:
		return fmt.Sprintf("@%s: %s", v.Name(), v.Type())
	case ir.KindBasicBlock:
		return "$" + v.Name()
	default:
		return fmt.Sprintf("%%%s: %s", v.Name(), v.Type())
	}
}

func isCastOpcode(op ir.Opcode) bool {
	switch op {
	case ir.OpTrunc, ir.OpZExt, ir.OpSExt, ir.OpFPTrunc, ir.OpFPExt, ir.OpFPToUI, ir.OpFPToSI,
		ir.OpUIToFP, ir.OpSIToFP, ir.OpPtrToInt, ir.OpIntToPtr, ir.OpBitcast:
		return true
	}
	return false
}
