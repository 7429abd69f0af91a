package main

import (
	"fmt"
	"os"

	"vsopc/src/ast"
	codegenllvm "vsopc/src/codegen/llvm"
	"vsopc/src/frontend"
	"vsopc/src/sema"
	"vsopc/src/util"
)

// run drives the compiler pipeline to whatever cutoff opt.Mode selects,
// printing through the package's buffered Writer and returning the process's
// semantic error count (0 means success), matching the teacher's run/main
// split in shape if not in exact stage order.
func run(opt util.Options) (int, error) {
	src, err := util.ReadSource(opt)
	if err != nil {
		return 1, err
	}

	if opt.Mode == util.ModeLex {
		toks, err := frontend.Tokenize(src)
		if err != nil {
			return 1, err
		}
		w := util.NewWriter()
		for _, t := range toks {
			w.Write("%s\n", t)
		}
		w.Close()
		return 0, nil
	}

	prog, err := frontend.Parse(src)
	if err != nil {
		return 1, err
	}

	if opt.Mode == util.ModeParse {
		w := util.NewWriter()
		w.WriteString(prog.Print())
		w.WriteString("\n")
		w.Close()
		return 0, nil
	}

	diags := util.NewDiagnostics(opt.Src)
	classes := sema.Resolve(prog, diags)
	checker := sema.NewChecker(classes, diags)
	checker.Check(resolvedOrder(prog, classes))

	if diags.Count() > 0 {
		w := util.NewWriter()
		for _, msg := range diags.Messages() {
			w.Write("%s\n", msg)
		}
		w.Close()
		return diags.Count(), nil
	}

	if opt.Mode == util.ModeCheck {
		w := util.NewWriter()
		w.WriteString(prog.PrintTyped())
		w.Close()
		return 0, nil
	}

	if opt.Mode == util.ModeIR {
		ir, err := codegenllvm.Lower(opt.Src, prog, classes)
		if err != nil {
			return 1, err
		}
		w := util.NewWriter()
		w.WriteString(ir)
		w.Close()
		return 0, nil
	}

	// Default: full compile to a native executable, linked against the
	// runtime object file providing Object's six built-in methods.
	out := opt.Out
	if out == "" {
		out = "a.out"
	}
	runtimeObj := os.Getenv("VSOPC_RUNTIME")
	if runtimeObj == "" {
		runtimeObj = "runtime/object.o"
	}
	if err := codegenllvm.CompileToExecutable(opt.Src, prog, classes, runtimeObj, out); err != nil {
		return 1, err
	}
	return 0, nil
}

// resolvedOrder returns prog.Order filtered down to the classes Resolve kept.
func resolvedOrder(prog *ast.Program, classes map[string]*ast.Class) []*ast.Class {
	order := make([]*ast.Class, 0, len(classes))
	for _, c := range prog.Order {
		if _, ok := classes[c.Name]; ok {
			order = append(order, c)
		}
	}
	return order
}

func main() {
	opt, err := util.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var outFile *os.File
	if opt.Out != "" && opt.Mode != util.ModeCompile {
		f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer f.Close()
		outFile = f
	}
	util.ListenWrite(outFile)
	defer util.Close()

	code, err := run(opt)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	os.Exit(code)
}
