// runtime.go declares the external runtime ABI spec.md §6 names exactly:
// malloc, strcmp, llvm.powi.f64, and the six Object built-ins, all resolved at
// link time against the hand-written runtime object file. Grounded on
// transform.go's genPrintf/genAtoi/genAtof (a handful of single-purpose
// "declare this external function once" helpers called from the orchestrator).
package llvm

import "tinygo.org/x/go-llvm"

// runtimeFuncs caches the declared runtime ABI functions so they're declared
// exactly once per module.
type runtimeFuncs struct {
	malloc  llvm.Value
	strcmp  llvm.Value
	powi    llvm.Value
	print   llvm.Value
	printI  llvm.Value
	printB  llvm.Value
	inLine  llvm.Value
	inInt   llvm.Value
	inBool  llvm.Value
}

func declareRuntime(ctx llvm.Context, mod llvm.Module) runtimeFuncs {
	i8ptr := llvm.PointerType(ctx.Int8Type(), 0)
	i32 := ctx.Int32Type()
	i1 := ctx.Int1Type()
	f64 := ctx.DoubleType()

	decl := func(name string, ret llvm.Type, params ...llvm.Type) llvm.Value {
		if f := mod.NamedFunction(name); !f.IsNil() {
			return f
		}
		return llvm.AddFunction(mod, name, llvm.FunctionType(ret, params, false))
	}

	return runtimeFuncs{
		malloc:  decl("malloc", i8ptr, ctx.Int64Type()),
		strcmp:  decl("strcmp", i32, i8ptr, i8ptr),
		powi:    decl("llvm.powi.f64", f64, f64, i32),
		print:   decl("Object_print", i8ptr, i8ptr, i8ptr),
		printI:  decl("Object_printInt32", i8ptr, i8ptr, i32),
		printB:  decl("Object_printBool", i8ptr, i8ptr, i1),
		inLine:  decl("Object_inputLine", i8ptr, i8ptr),
		inInt:   decl("Object_inputInt32", i32, i8ptr),
		inBool:  decl("Object_inputBool", i1, i8ptr),
	}
}
