// Command irtool is a reference host for the IR library: it reads a
// textual IR file, parses and verifies it, optionally promotes stack
// allocas to SSA registers, and either prints the result back out or
// interprets it.
package main

import (
	"fmt"
	"os"

	"irlib/analysis/cfg"
	"irlib/analysis/domfrontier"
	"irlib/analysis/domtree"
	"irlib/asm/parser"
	"irlib/asm/printer"
	"irlib/interp"
	"irlib/ir"
	"irlib/transform/mem2reg"
	"irlib/verify"
)

func run(opt Options) error {
	src, err := os.ReadFile(opt.Src)
	if err != nil {
		return fmt.Errorf("could not read %s: %s", opt.Src, err)
	}

	ctx := ir.NewContext(0)
	defer ctx.Destroy()

	m, err := parser.Parse(ctx, string(src))
	if err != nil {
		return fmt.Errorf("%s: %s", opt.Src, err)
	}

	if opt.Verify {
		if col := verify.VerifyModule(m, verify.Options{Threads: opt.Threads}); col != nil {
			for _, e := range col.Errors() {
				fmt.Println(e)
			}
			return fmt.Errorf("%s: %d verification diagnostic(s)", opt.Src, col.Len())
		}
	}

	if opt.Mem2reg {
		for _, f := range m.Functions() {
			if f.IsDeclaration() {
				continue
			}
			g := cfg.Build(f)
			tree := domtree.Build(g)
			df := domfrontier.Build(g, tree)
			mem2reg.Run(f, ctx, g, tree, df)
			g.Destroy()
		}
	}

	if opt.Print {
		fmt.Print(printer.Print(m))
	}

	if opt.Interp {
		f := m.GetFunction(opt.Entry)
		if f == nil {
			return fmt.Errorf("%s: no function named %s", opt.Src, opt.Entry)
		}
		if len(f.Args()) > 0 {
			return fmt.Errorf("%s: entry function %s takes %d argument(s); only zero-argument entry points can be interpreted from the command line", opt.Src, opt.Entry, len(f.Args()))
		}
		in := interp.NewInterpreter(m, nil, 0)
		result, status := in.Call(f, nil)
		if status != interp.OK {
			return fmt.Errorf("%s: %s: %s", opt.Src, opt.Entry, status)
		}
		fmt.Println(formatResult(result))
	}

	return nil
}

func formatResult(v interp.Value) string {
	switch v.Kind() {
	case interp.Undef:
		return "undef"
	case interp.I1:
		if v.AsUnsigned64() != 0 {
			return "true"
		}
		return "false"
	case interp.F32, interp.F64:
		return fmt.Sprintf("%g", v.AsFloat64())
	case interp.Ptr:
		return fmt.Sprintf("%p", v.Ptr())
	default:
		return fmt.Sprintf("%d", v.AsSigned64())
	}
}

func main() {
	opt, err := parseArgs()
	if err != nil {
		fmt.Printf("irtool: %s\n", err)
		os.Exit(1)
	}
	if err := run(opt); err != nil {
		fmt.Printf("irtool: %s\n", err)
		os.Exit(1)
	}
}
