// lower.go emits the LLVM IR body of every VSOP_new/VSOP_init/method function,
// the counterpart to transform.go's genFuncBody/gen/genExpression for VSOP's
// expression-oriented bodies. Per spec.md's Design Notes on IR value handles,
// a computed Value is never written back onto the ast.Expr itself (which stays
// immutable after checking); it's kept in fnCtx.values, a map keyed by Expr
// pointer identity, scoped to the single function currently being lowered.
package llvm

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"vsopc/src/ast"
	"vsopc/src/sema"
)

// fnCtx is the lowering state for a single function body: the function
// itself, its defining class (for field access and self's static type), the
// lexical stack of local allocas (formals and let-bindings), and the Expr ->
// Value memo.
type fnCtx struct {
	m      *module
	fn     llvm.Value
	class  *ast.Class
	self   llvm.Value
	scopes []map[string]llvm.Value
	values map[*ast.Expr]llvm.Value
}

func (m *module) lowerBodies() error {
	for _, c := range m.order {
		if err := m.lowerNew(c); err != nil {
			return err
		}
		if err := m.lowerInit(c); err != nil {
			return err
		}
		for _, meth := range c.Methods {
			if meth.Body == nil {
				continue
			}
			if err := m.lowerMethod(c, meth); err != nil {
				return err
			}
		}
	}
	return nil
}

// lowerNew emits VSOP_new_<Class> (allocate, return null if malloc failed,
// otherwise install the vtable pointer and call init) and lowerInit emits
// VSOP_init_<Class> (chain to the parent's init, then run this class's own
// field initializers), following original_source/ast.cpp's __new/__init split:
// __init always calls the parent's __init first.
func (m *module) lowerNew(c *ast.Class) error {
	newFn := m.newFuncs[c.Name]
	entry := llvm.AddBasicBlock(newFn, "")
	m.b.SetInsertPointAtEnd(entry)

	size := m.structTypes[c.Name].SizeOf()
	raw := m.b.CreateCall(m.rt.malloc, []llvm.Value{size}, "")
	nullBB := llvm.AddBasicBlock(newFn, "")
	okBB := llvm.AddBasicBlock(newFn, "")
	m.b.CreateCondBr(m.b.CreateIsNull(raw, ""), nullBB, okBB)
	m.b.SetInsertPointAtEnd(nullBB)
	m.b.CreateRet(llvm.ConstNull(m.classPtr(c.Name)))
	m.b.SetInsertPointAtEnd(okBB)
	self := m.b.CreateBitCast(raw, m.classPtr(c.Name), "self")

	vtPtrSlot := m.gepField(self, 0, "")
	vtableGlobal := m.vtableGlobals[c.Name]
	m.b.CreateStore(vtableGlobal, vtPtrSlot)

	initFn := m.initFuncs[c.Name]
	inited := m.b.CreateCall(initFn, []llvm.Value{self}, "")
	m.b.CreateRet(inited)
	return nil
}

func (m *module) lowerInit(c *ast.Class) error {
	initFn := m.initFuncs[c.Name]
	entry := llvm.AddBasicBlock(initFn, "")
	m.b.SetInsertPointAtEnd(entry)

	self := initFn.Param(0)
	if c.Name != "Object" && c.Parent != nil {
		parentSelf := m.b.CreateBitCast(self, m.classPtr(c.Parent.Name), "")
		m.b.CreateCall(m.initFuncs[c.Parent.Name], []llvm.Value{parentSelf}, "")
	}

	fc := &fnCtx{m: m, fn: initFn, class: c, self: self, values: map[*ast.Expr]llvm.Value{}}
	fc.pushScope()
	for _, f := range c.Fields {
		slot := m.fieldSlot(c, f.Name)
		var val llvm.Value
		if f.Init != nil {
			v, err := fc.lowerExpr(f.Init)
			if err != nil {
				return err
			}
			val = v
		} else {
			val = m.defaultValue(f.Type)
		}
		if f.Type != sema.Unit {
			ptr := m.gepField(self, slot, "")
			m.b.CreateStore(val, ptr)
		}
	}
	fc.popScope()
	m.b.CreateRet(self)
	return nil
}

// lowerMethod emits the body of a single user-defined method.
func (m *module) lowerMethod(c *ast.Class, meth *ast.Method) error {
	fn := m.methodFuncs[c.Name+"."+meth.Name]
	entry := llvm.AddBasicBlock(fn, "")
	m.b.SetInsertPointAtEnd(entry)

	fc := &fnCtx{m: m, fn: fn, class: c, self: fn.Param(0), values: map[*ast.Expr]llvm.Value{}}
	fc.pushScope()
	for i1, f := range meth.Formals {
		if f.Type == sema.Unit {
			continue
		}
		alloca := m.b.CreateAlloca(m.llvmType(f.Type), f.Name)
		m.b.CreateStore(fn.Param(i1+1), alloca)
		fc.bind(f.Name, alloca)
	}

	v, err := fc.lowerExpr(meth.Body)
	if err != nil {
		return err
	}
	if meth.ReturnType == sema.Unit {
		m.b.CreateRet(m.unitValue())
	} else {
		m.b.CreateRet(m.castTo(v, m.llvmType(meth.ReturnType)))
	}
	fc.popScope()
	return nil
}

func (fc *fnCtx) pushScope() { fc.scopes = append(fc.scopes, map[string]llvm.Value{}) }
func (fc *fnCtx) popScope()  { fc.scopes = fc.scopes[:len(fc.scopes)-1] }

func (fc *fnCtx) bind(name string, alloca llvm.Value) {
	fc.scopes[len(fc.scopes)-1][name] = alloca
}

func (fc *fnCtx) lookup(name string) (llvm.Value, bool) {
	for i1 := len(fc.scopes) - 1; i1 >= 0; i1-- {
		if v, ok := fc.scopes[i1][name]; ok {
			return v, true
		}
	}
	return llvm.Value{}, false
}

// fieldSlot returns the struct slot (skipping the vtable pointer) of field
// name as seen from class c.
func (m *module) fieldSlot(c *ast.Class, name string) int {
	f := c.FieldIndex[name]
	return f.VtableIndex
}

func (m *module) gepField(self llvm.Value, slot int, name string) llvm.Value {
	i32 := m.ctx.Int32Type()
	idx := []llvm.Value{llvm.ConstInt(i32, 0, false), llvm.ConstInt(i32, uint64(slot), false)}
	return m.b.CreateGEP(self, idx, name)
}

// defaultValue returns the VSOP default value for a type: 0, false, "", or
// a null class pointer.
func (m *module) defaultValue(t string) llvm.Value {
	switch t {
	case sema.Int32:
		return llvm.ConstInt(m.ctx.Int32Type(), 0, false)
	case sema.Bool:
		return llvm.ConstInt(m.ctx.Int1Type(), 0, false)
	case sema.String:
		return m.b.CreateGlobalStringPtr("", "")
	case sema.Unit:
		return m.unitValue()
	default:
		return llvm.ConstNull(m.classPtr(t))
	}
}

// lowerExpr lowers e, memoizing the result in fc.values by Expr pointer
// identity.
func (fc *fnCtx) lowerExpr(e *ast.Expr) (llvm.Value, error) {
	if v, ok := fc.values[e]; ok {
		return v, nil
	}
	v, err := fc.lowerExprUncached(e)
	if err != nil {
		return llvm.Value{}, err
	}
	fc.values[e] = v
	return v, nil
}

func (fc *fnCtx) lowerExprUncached(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	switch e.Kind {
	case ast.KindInteger:
		return llvm.ConstInt(m.ctx.Int32Type(), uint64(uint32(e.IntVal)), false), nil
	case ast.KindBoolean:
		v := uint64(0)
		if e.BoolVal {
			v = 1
		}
		return llvm.ConstInt(m.ctx.Int1Type(), v, false), nil
	case ast.KindString:
		return m.b.CreateGlobalStringPtr(e.StrVal, ""), nil
	case ast.KindUnit:
		return m.unitValue(), nil
	case ast.KindSelf:
		return fc.self, nil
	case ast.KindIdentifier:
		return fc.lowerIdentifier(e)
	case ast.KindAssign:
		return fc.lowerAssign(e)
	case ast.KindNew:
		return m.b.CreateCall(m.newFuncs[e.Name], nil, ""), nil
	case ast.KindIf:
		return fc.lowerIf(e)
	case ast.KindWhile:
		return fc.lowerWhile(e)
	case ast.KindLet:
		return fc.lowerLet(e)
	case ast.KindBlock:
		return fc.lowerBlock(e)
	case ast.KindBinOp:
		return fc.lowerBinOp(e)
	case ast.KindUnOp:
		return fc.lowerUnOp(e)
	case ast.KindCall:
		return fc.lowerCall(e)
	}
	return llvm.Value{}, fmt.Errorf("vsopc: cannot lower expression kind %s", e.Kind)
}

func (fc *fnCtx) lowerIdentifier(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	if alloca, ok := fc.lookup(e.Name); ok {
		return m.b.CreateLoad(alloca, ""), nil
	}
	if f, ok := fc.class.FieldIndex[e.Name]; ok {
		if f.Type == sema.Unit {
			return m.unitValue(), nil
		}
		ptr := m.gepField(fc.self, f.VtableIndex, "")
		return m.b.CreateLoad(ptr, ""), nil
	}
	return llvm.Value{}, fmt.Errorf("vsopc: undeclared identifier %s in codegen", e.Name)
}

func (fc *fnCtx) lowerAssign(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	v, err := fc.lowerExpr(e.Rhs)
	if err != nil {
		return llvm.Value{}, err
	}
	if alloca, ok := fc.lookup(e.Name); ok {
		if e.Rhs.Type != sema.Unit {
			v = m.castTo(v, alloca.Type().ElementType())
			m.b.CreateStore(v, alloca)
		}
		return v, nil
	}
	if f, ok := fc.class.FieldIndex[e.Name]; ok {
		if f.Type != sema.Unit {
			v = m.castTo(v, m.llvmType(f.Type))
			ptr := m.gepField(fc.self, f.VtableIndex, "")
			m.b.CreateStore(v, ptr)
		}
		return v, nil
	}
	return llvm.Value{}, fmt.Errorf("vsopc: undeclared identifier %s in codegen", e.Name)
}

func (fc *fnCtx) lowerIf(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	cond, err := fc.lowerExpr(e.Cond)
	if err != nil {
		return llvm.Value{}, err
	}

	thenBB := llvm.AddBasicBlock(fc.fn, "")
	elseBB := llvm.AddBasicBlock(fc.fn, "")
	convBB := llvm.AddBasicBlock(fc.fn, "")
	m.b.CreateCondBr(cond, thenBB, elseBB)

	var joinType llvm.Type
	if e.Type != sema.Unit {
		joinType = m.llvmType(e.Type)
	}

	m.b.SetInsertPointAtEnd(thenBB)
	thenVal, err := fc.lowerExpr(e.Then)
	if err != nil {
		return llvm.Value{}, err
	}
	if e.Type != sema.Unit {
		thenVal = m.castTo(thenVal, joinType)
	}
	m.b.CreateBr(convBB)
	thenEnd := m.b.GetInsertBlock()

	m.b.SetInsertPointAtEnd(elseBB)
	var elseVal llvm.Value
	if e.Else != nil {
		v, err := fc.lowerExpr(e.Else)
		if err != nil {
			return llvm.Value{}, err
		}
		elseVal = v
	} else {
		elseVal = m.unitValue()
	}
	if e.Type != sema.Unit {
		elseVal = m.castTo(elseVal, joinType)
	}
	m.b.CreateBr(convBB)
	elseEnd := m.b.GetInsertBlock()

	m.b.SetInsertPointAtEnd(convBB)
	if e.Type == sema.Unit {
		return m.unitValue(), nil
	}
	phi := m.b.CreatePHI(joinType, "")
	phi.AddIncoming([]llvm.Value{thenVal, elseVal}, []llvm.BasicBlock{thenEnd, elseEnd})
	return phi, nil
}

func (fc *fnCtx) lowerWhile(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	headBB := llvm.AddBasicBlock(fc.fn, "")
	bodyBB := llvm.AddBasicBlock(fc.fn, "")
	convBB := llvm.AddBasicBlock(fc.fn, "")

	m.b.CreateBr(headBB)
	m.b.SetInsertPointAtEnd(headBB)
	cond, err := fc.lowerExpr(e.Cond)
	if err != nil {
		return llvm.Value{}, err
	}
	m.b.CreateCondBr(cond, bodyBB, convBB)

	m.b.SetInsertPointAtEnd(bodyBB)
	if _, err := fc.lowerExpr(e.Body); err != nil {
		return llvm.Value{}, err
	}
	m.b.CreateBr(headBB)

	m.b.SetInsertPointAtEnd(convBB)
	return m.unitValue(), nil
}

func (fc *fnCtx) lowerLet(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	var init llvm.Value
	if e.LetInit != nil {
		v, err := fc.lowerExpr(e.LetInit)
		if err != nil {
			return llvm.Value{}, err
		}
		init = v
	} else {
		init = m.defaultValue(e.LetType)
	}

	fc.pushScope()
	if e.LetType != sema.Unit {
		slotType := m.llvmType(e.LetType)
		alloca := m.b.CreateAlloca(slotType, e.LetName)
		m.b.CreateStore(m.castTo(init, slotType), alloca)
		fc.bind(e.LetName, alloca)
	}
	v, err := fc.lowerExpr(e.LetBody)
	fc.popScope()
	return v, err
}

func (fc *fnCtx) lowerBlock(e *ast.Expr) (llvm.Value, error) {
	var last llvm.Value = fc.m.unitValue()
	for _, sub := range e.Exprs {
		v, err := fc.lowerExpr(sub)
		if err != nil {
			return llvm.Value{}, err
		}
		last = v
	}
	return last, nil
}

// lowerBinOp lowers a binary operator, handling "and"'s short-circuit
// semantics as a branch (mirroring genIf's basic-block-splitting pattern)
// rather than an eager boolean AND, and "=" as either primitive comparison,
// strcmp-based string equality, or pointer equality for classes.
func (fc *fnCtx) lowerBinOp(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	if e.Op == "and" {
		return fc.lowerAnd(e)
	}

	lhs, err := fc.lowerExpr(e.Lhs)
	if err != nil {
		return llvm.Value{}, err
	}
	rhs, err := fc.lowerExpr(e.Rhs)
	if err != nil {
		return llvm.Value{}, err
	}

	switch e.Op {
	case "+":
		return m.b.CreateAdd(lhs, rhs, ""), nil
	case "-":
		return m.b.CreateSub(lhs, rhs, ""), nil
	case "*":
		return m.b.CreateMul(lhs, rhs, ""), nil
	case "/":
		return m.b.CreateSDiv(lhs, rhs, ""), nil
	case "^":
		return fc.lowerPow(lhs, rhs), nil
	case "<":
		return m.b.CreateICmp(llvm.IntSLT, lhs, rhs, ""), nil
	case "<=":
		return m.b.CreateICmp(llvm.IntSLE, lhs, rhs, ""), nil
	case "=":
		return fc.lowerEquals(e, lhs, rhs)
	}
	return llvm.Value{}, fmt.Errorf("vsopc: unsupported operator %q", e.Op)
}

// lowerAnd short-circuits: if lhs is false, the result is false without
// evaluating rhs.
func (fc *fnCtx) lowerAnd(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	lhs, err := fc.lowerExpr(e.Lhs)
	if err != nil {
		return llvm.Value{}, err
	}

	rhsBB := llvm.AddBasicBlock(fc.fn, "")
	convBB := llvm.AddBasicBlock(fc.fn, "")
	lhsEnd := m.b.GetInsertBlock()
	m.b.CreateCondBr(lhs, rhsBB, convBB)

	m.b.SetInsertPointAtEnd(rhsBB)
	rhs, err := fc.lowerExpr(e.Rhs)
	if err != nil {
		return llvm.Value{}, err
	}
	m.b.CreateBr(convBB)
	rhsEnd := m.b.GetInsertBlock()

	m.b.SetInsertPointAtEnd(convBB)
	phi := m.b.CreatePHI(m.ctx.Int1Type(), "")
	phi.AddIncoming([]llvm.Value{llvm.ConstInt(m.ctx.Int1Type(), 0, false), rhs}, []llvm.BasicBlock{lhsEnd, rhsEnd})
	return phi, nil
}

// lowerPow computes lhs^rhs over int32 via the llvm.powi.f64 intrinsic named
// in the runtime ABI: convert to double, call the intrinsic, convert back.
func (fc *fnCtx) lowerPow(lhs, rhs llvm.Value) llvm.Value {
	m := fc.m
	base := m.b.CreateSIToFP(lhs, m.ctx.DoubleType(), "")
	res := m.b.CreateCall(m.rt.powi, []llvm.Value{base, rhs}, "")
	return m.b.CreateFPToSI(res, m.ctx.Int32Type(), "")
}

// lowerEquals implements "=" per the lhs/rhs static type: int32/bool compare
// directly, string compares via strcmp, unit is always equal, and classes
// compare by pointer identity (VSOP has no structural object equality).
func (fc *fnCtx) lowerEquals(e *ast.Expr, lhs, rhs llvm.Value) (llvm.Value, error) {
	m := fc.m
	t := e.Lhs.Type
	switch t {
	case sema.String:
		cmp := m.b.CreateCall(m.rt.strcmp, []llvm.Value{lhs, rhs}, "")
		return m.b.CreateICmp(llvm.IntEQ, cmp, llvm.ConstInt(m.ctx.Int32Type(), 0, false), ""), nil
	case sema.Int32, sema.Bool:
		return m.b.CreateICmp(llvm.IntEQ, lhs, rhs, ""), nil
	case sema.Unit:
		return llvm.ConstInt(m.ctx.Int1Type(), 1, false), nil
	default:
		l := m.b.CreatePtrToInt(lhs, m.ctx.Int64Type(), "")
		r := m.b.CreatePtrToInt(rhs, m.ctx.Int64Type(), "")
		return m.b.CreateICmp(llvm.IntEQ, l, r, ""), nil
	}
}

func (fc *fnCtx) lowerUnOp(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	v, err := fc.lowerExpr(e.Operand)
	if err != nil {
		return llvm.Value{}, err
	}
	switch e.Op {
	case "not":
		return m.b.CreateXor(v, llvm.ConstInt(m.ctx.Int1Type(), 1, false), ""), nil
	case "-":
		return m.b.CreateSub(llvm.ConstInt(m.ctx.Int32Type(), 0, false), v, ""), nil
	case "isnull":
		null := llvm.ConstNull(v.Type())
		return m.b.CreateICmp(llvm.IntEQ, v, null, ""), nil
	}
	return llvm.Value{}, fmt.Errorf("vsopc: unsupported unary operator %q", e.Op)
}

// lowerCall dispatches a method call virtually: load the vtable pointer from
// the receiver, GEP to the method's slot, load the (uniformly i8*-typed)
// function pointer, bitcast it to the real signature, and call it.
func (fc *fnCtx) lowerCall(e *ast.Expr) (llvm.Value, error) {
	m := fc.m
	var recv llvm.Value
	var recvType string
	if e.Receiver != nil {
		v, err := fc.lowerExpr(e.Receiver)
		if err != nil {
			return llvm.Value{}, err
		}
		recv = v
		recvType = e.Receiver.Type
	} else {
		recv = fc.self
		recvType = fc.class.Name
	}

	recvClass := m.classes[recvType]
	meth := recvClass.MethodIndex[e.Method]

	args := make([]llvm.Value, 0, len(e.Args)+1)
	selfCast := m.b.CreateBitCast(recv, m.classPtr(meth.Owner.Name), "")
	args = append(args, selfCast)
	for i1, a := range e.Args {
		v, err := fc.lowerExpr(a)
		if err != nil {
			return llvm.Value{}, err
		}
		if meth.Formals[i1].Type != sema.Unit {
			v = m.castTo(v, m.llvmType(meth.Formals[i1].Type))
		}
		args = append(args, v)
	}

	fnTypePtr := m.methodPtrType(meth)
	vtPtr := m.b.CreateLoad(m.gepField(recv, 0, ""), "")
	slotPtr := m.gepVtableSlot(vtPtr, meth.VtableIndex)
	rawFn := m.b.CreateLoad(slotPtr, "")
	fn := m.b.CreateBitCast(rawFn, fnTypePtr, "")
	return m.b.CreateCall(fn, args, ""), nil
}

// methodPtrType rebuilds the real pointer-to-function type for meth, used to
// bitcast its uniformly i8*-typed vtable slot back to something callable.
func (m *module) methodPtrType(meth *ast.Method) llvm.Type {
	params := make([]llvm.Type, 0, len(meth.Formals)+1)
	params = append(params, m.classPtr(meth.Owner.Name))
	for _, f := range meth.Formals {
		params = append(params, m.llvmType(f.Type))
	}
	ret := m.llvmType(meth.ReturnType)
	return llvm.PointerType(llvm.FunctionType(ret, params, false), 0)
}

func (m *module) gepVtableSlot(vtablePtr llvm.Value, slot int) llvm.Value {
	i32 := m.ctx.Int32Type()
	idx := []llvm.Value{llvm.ConstInt(i32, 0, false), llvm.ConstInt(i32, uint64(slot), false)}
	return m.b.CreateGEP(vtablePtr, idx, "")
}

// genCMain emits the process's C main(): construct a Main object and call its
// main method, returning its int32 result as the process exit code -- the
// VSOP entry-point convention replacing transform.go's genMain (which wraps
// argc/argv parsing around the first declared VSL function instead).
func (m *module) genCMain() {
	ftyp := llvm.FunctionType(m.ctx.Int32Type(), nil, false)
	cmain := llvm.AddFunction(m.mod, "main", ftyp)
	entry := llvm.AddBasicBlock(cmain, "")
	m.b.SetInsertPointAtEnd(entry)

	self := m.b.CreateCall(m.newFuncs["Main"], nil, "")
	fn := m.methodFuncs["Main.main"]
	ret := m.b.CreateCall(fn, []llvm.Value{self}, "")
	m.b.CreateRet(ret)
}
