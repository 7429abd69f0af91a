// layout.go builds every class's object struct type, vtable struct type and
// global vtable constant, and declares every method/VSOP_new/VSOP_init
// function header -- all before any method body is lowered, mirroring
// transform.go's two-pass genFuncHeader-then-genFuncBody split. The struct and
// vtable layout themselves are grounded on original_source/src/ast/ast.cpp:
// field slots from 1 (slot 0 is the vtable pointer), method slots from 0,
// vtable entries stored as uniform function-pointer-typed (i8*) constants and
// bitcast back to their real signature at the call site.
package llvm

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"vsopc/src/ast"
	"vsopc/src/sema"
)

// funcPtrType is the uniform element type of every vtable: a plain i8*, cast
// to and from each method's real function pointer type. Using one element
// type for every slot regardless of the method's real signature is what lets
// any method occupy any slot; each class still gets its own named vtable
// struct type, sized to its method count.
func (m *module) funcPtrType() llvm.Type {
	return llvm.PointerType(m.ctx.Int8Type(), 0)
}

// llvmType maps a VSOP type name to its LLVM representation. Unit maps to the
// empty struct of unitType; callers skip it where no storage is wanted (unit
// fields are left out of the object struct, unit formals are passed as an
// empty struct).
func (m *module) llvmType(t string) llvm.Type {
	switch t {
	case sema.Int32:
		return m.ctx.Int32Type()
	case sema.Bool:
		return m.ctx.Int1Type()
	case sema.String:
		return llvm.PointerType(m.ctx.Int8Type(), 0)
	case sema.Unit:
		return m.unitType()
	default:
		return llvm.PointerType(m.classStruct(t), 0)
	}
}

// unitType is the zero-size struct type standing in for VSOP's unit: it still
// needs to be a real LLVM type so formals and block results have something to
// carry, but it is never read.
func (m *module) unitType() llvm.Type {
	return m.ctx.StructType(nil, false)
}

func (m *module) unitValue() llvm.Value {
	return llvm.ConstNamedStruct(m.unitType(), nil)
}

// classStruct returns the (already declared) object struct type for class
// name, defaulting to Object if the name is somehow unresolved -- checker
// errors already guarantee well-typed programs never hit that branch.
func (m *module) classStruct(name string) llvm.Type {
	if t, ok := m.structTypes[name]; ok {
		return t
	}
	return m.structTypes["Object"]
}

func (m *module) classPtr(name string) llvm.Type {
	return llvm.PointerType(m.classStruct(name), 0)
}

// castTo bitcasts v to want if its LLVM type doesn't already match, the
// pointer-to-struct cast spec.md §4.3 requires at every site where a subtype
// value flows into a supertype-typed slot (a let/field binding, an assignment
// target, a call argument, or a method's return value).
func (m *module) castTo(v llvm.Value, want llvm.Type) llvm.Value {
	if v.Type() == want {
		return v
	}
	return m.b.CreateBitCast(v, want, "")
}

// declareTypes creates every class's (initially opaque) struct and vtable
// types, then fills in their bodies parent-before-child.
func (m *module) declareTypes() {
	for _, c := range m.order {
		m.structTypes[c.Name] = m.ctx.StructCreateNamed("struct." + c.Name)
		m.vtableTypes[c.Name] = m.ctx.StructCreateNamed("vtable." + c.Name)
	}
	for _, c := range m.order {
		fields := orderedFields(c)
		body := make([]llvm.Type, 0, len(fields)+1)
		body = append(body, llvm.PointerType(m.vtableTypes[c.Name], 0))
		for _, f := range fields {
			body = append(body, m.llvmType(f.Type))
		}
		m.structTypes[c.Name].StructSetBody(body, false)

		slots := orderedMethods(c)
		vbody := make([]llvm.Type, len(slots))
		for i1 := range slots {
			vbody[i1] = m.funcPtrType()
		}
		m.vtableTypes[c.Name].StructSetBody(vbody, false)
	}
}

// declareFunctions declares every method's LLVM function header (defining
// bodies for user methods, pure declarations for Object's built-ins), and the
// VSOP_new_<Class>/VSOP_init_<Class> pair every class needs for object
// construction.
func (m *module) declareFunctions() {
	for _, c := range m.order {
		for _, meth := range c.Methods {
			m.declareMethod(c, meth)
		}
		m.declareNewInit(c)
	}
}

func (m *module) declareMethod(owner *ast.Class, meth *ast.Method) {
	key := owner.Name + "." + meth.Name
	if meth.Body == nil {
		// Object's built-ins resolve directly to their fixed runtime symbol;
		// no VSOP_ function is declared for them.
		m.methodFuncs[key] = m.runtimeBuiltin(meth.Name)
		return
	}

	params := make([]llvm.Type, 0, len(meth.Formals)+1)
	params = append(params, m.classPtr(owner.Name))
	for _, f := range meth.Formals {
		params = append(params, m.llvmType(f.Type))
	}
	ret := m.llvmType(meth.ReturnType)
	fn := llvm.AddFunction(m.mod, fmt.Sprintf("VSOP_%s_%s", owner.Name, meth.Name), llvm.FunctionType(ret, params, false))
	fn.Param(0).SetName("self")
	for i1, f := range meth.Formals {
		fn.Param(i1 + 1).SetName(f.Name)
	}
	m.methodFuncs[key] = fn
}

func (m *module) runtimeBuiltin(name string) llvm.Value {
	switch name {
	case "print":
		return m.rt.print
	case "printInt32":
		return m.rt.printI
	case "printBool":
		return m.rt.printB
	case "inputLine":
		return m.rt.inLine
	case "inputInt32":
		return m.rt.inInt
	case "inputBool":
		return m.rt.inBool
	}
	panic("unreachable: unknown Object built-in " + name)
}

// declareNewInit declares class c's constructor pair: VSOP_new_<Class>
// allocates the object and installs its vtable pointer, VSOP_init_<Class> runs
// field initializers (after first chaining to the parent's init).
func (m *module) declareNewInit(c *ast.Class) {
	selfPtr := m.classPtr(c.Name)
	newFn := llvm.AddFunction(m.mod, "VSOP_new_"+c.Name, llvm.FunctionType(selfPtr, nil, false))
	m.newFuncs[c.Name] = newFn

	initFn := llvm.AddFunction(m.mod, "VSOP_init_"+c.Name, llvm.FunctionType(selfPtr, []llvm.Type{selfPtr}, false))
	initFn.Param(0).SetName("self")
	m.initFuncs[c.Name] = initFn
}

// buildVtables builds and installs the global vtable constant for every
// class, once every method function (or runtime declaration) it might
// reference has been declared.
func (m *module) buildVtables() {
	for _, c := range m.order {
		slots := orderedMethods(c)
		elems := make([]llvm.Value, len(slots))
		for i1, meth := range slots {
			fn := m.methodFuncs[meth.Owner.Name+"."+meth.Name]
			elems[i1] = llvm.ConstBitCast(fn, m.funcPtrType())
		}
		init := llvm.ConstNamedStruct(m.vtableTypes[c.Name], elems)
		g := llvm.AddGlobal(m.mod, m.vtableTypes[c.Name], "vtable_"+c.Name)
		g.SetInitializer(init)
		g.SetGlobalConstant(true)
		g.SetLinkage(llvm.PrivateLinkage)
		m.vtableGlobals[c.Name] = g
	}
}
