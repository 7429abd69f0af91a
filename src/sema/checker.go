// checker.go type-checks a resolved class graph, one class then one method body
// at a time, in a single pass with no parallelism -- a deliberate divergence
// from ir/validate.go's opt.Threads worker pool, since resolving and checking
// must run synchronously over the AST. The per-kind rule dispatch below mirrors
// validate.go's validateExpr/lutExp shape, generalized from VSL's node kinds to
// VSOP's Expr kinds.
package sema

import (
	"vsopc/src/ast"
	"vsopc/src/util"
)

// Checker type-checks a resolved program against a set of diagnostics.
type Checker struct {
	classes map[string]*ast.Class
	diags   *util.Diagnostics
}

// NewChecker returns a Checker over classes, reporting into diags.
func NewChecker(classes map[string]*ast.Class, diags *util.Diagnostics) *Checker {
	return &Checker{classes: classes, diags: diags}
}

// Check type-checks every field initializer and method body of the classes in
// order, skipping Object.
func (c *Checker) Check(order []*ast.Class) {
	for _, cl := range order {
		if cl.Name == "Object" {
			continue
		}
		c.checkClass(cl)
	}
}

func (c *Checker) checkClass(cl *ast.Class) {
	for _, f := range cl.Fields {
		if f.Init == nil {
			continue
		}
		sc := newScope()
		sc.enter()
		c.bindFields(sc, cl)
		sc.bind("self", cl.Name)
		t := c.checkExpr(sc, f.Init)
		if !ConformsTo(t, f.Type, c.classes) {
			c.diags.Errorf(f.Init.Pos, "field %s initializer has type %s, expected %s", f.Name, t, f.Type)
		}
		sc.leave()
	}

	for _, m := range cl.Methods {
		if m.Body == nil {
			continue // Object built-in.
		}
		sc := newScope()
		sc.enter()
		c.bindFields(sc, cl)
		sc.bind("self", cl.Name)
		sc.enter()
		for _, fm := range m.Formals {
			if fm.Name == "self" {
				c.diags.Errorf(fm.Pos, "formal %s shadows the implicit self binding", fm.Name)
				continue
			}
			sc.bind(fm.Name, fm.Type)
		}
		t := c.checkExpr(sc, m.Body)
		if !ConformsTo(t, m.ReturnType, c.classes) {
			c.diags.Errorf(m.Body.Pos, "method %s has body of type %s, expected return type %s", m.Name, t, m.ReturnType)
		}
		sc.leave()
		sc.leave()
	}
}

func (c *Checker) bindFields(sc *scope, cl *ast.Class) {
	for _, f := range cl.FieldIndex {
		sc.bind(f.Name, f.Type)
	}
}

// checkExpr type-checks e, sets e.Type, and returns that type.
func (c *Checker) checkExpr(sc *scope, e *ast.Expr) string {
	if e == nil {
		return Unknown
	}
	var t string
	switch e.Kind {
	case ast.KindInteger:
		t = Int32
	case ast.KindBoolean:
		t = Bool
	case ast.KindString:
		t = String
	case ast.KindUnit:
		t = Unit
	case ast.KindSelf:
		t = c.checkSelf(sc, e)
	case ast.KindIdentifier:
		t = c.checkIdentifier(sc, e)
	case ast.KindAssign:
		t = c.checkAssign(sc, e)
	case ast.KindNew:
		t = c.checkNew(e)
	case ast.KindIf:
		t = c.checkIf(sc, e)
	case ast.KindWhile:
		t = c.checkWhile(sc, e)
	case ast.KindLet:
		t = c.checkLet(sc, e)
	case ast.KindBlock:
		t = c.checkBlock(sc, e)
	case ast.KindBinOp:
		t = c.checkBinOp(sc, e)
	case ast.KindUnOp:
		t = c.checkUnOp(sc, e)
	case ast.KindCall:
		t = c.checkCall(sc, e)
	default:
		t = Unknown
	}
	e.Type = t
	return t
}

func (c *Checker) checkSelf(sc *scope, e *ast.Expr) string {
	t, ok := sc.lookup("self")
	if !ok {
		c.diags.Errorf(e.Pos, "self used outside of a method")
		return Unknown
	}
	return t
}

func (c *Checker) checkIdentifier(sc *scope, e *ast.Expr) string {
	t, ok := sc.lookup(e.Name)
	if !ok {
		c.diags.Errorf(e.Pos, "undefined identifier %s", e.Name)
		return Unknown
	}
	return t
}

func (c *Checker) checkAssign(sc *scope, e *ast.Expr) string {
	rhsT := c.checkExpr(sc, e.Rhs)
	if e.Name == "self" {
		c.diags.Errorf(e.Pos, "self cannot be assigned to")
		return Unknown
	}
	lt, ok := sc.lookup(e.Name)
	if !ok {
		c.diags.Errorf(e.Pos, "undefined identifier %s", e.Name)
		return Unknown
	}
	if !ConformsTo(rhsT, lt, c.classes) {
		c.diags.Errorf(e.Pos, "cannot assign value of type %s to %s of type %s", rhsT, e.Name, lt)
		return Unknown
	}
	return lt
}

func (c *Checker) checkNew(e *ast.Expr) string {
	if !IsClass(e.Name, c.classes) {
		c.diags.Errorf(e.Pos, "unknown class %s", e.Name)
		return Unknown
	}
	return e.Name
}

func (c *Checker) checkIf(sc *scope, e *ast.Expr) string {
	condT := c.checkExpr(sc, e.Cond)
	if condT != Bool && condT != Unknown {
		c.diags.Errorf(e.Cond.Pos, "if condition has type %s, expected bool", condT)
	}
	thenT := c.checkExpr(sc, e.Then)
	if e.Else == nil {
		// An if without an else is always unit, whatever the then-branch's own
		// type: original_source/src/ast/ast.cpp's If::getType forces "unit"
		// unconditionally here, with no error path.
		return Unit
	}
	elseT := c.checkExpr(sc, e.Else)
	t := Join(thenT, elseT, c.classes)
	if t == Unknown && thenT != Unknown && elseT != Unknown {
		c.diags.Errorf(e.Pos, "if branches have incompatible types %s and %s", thenT, elseT)
	}
	return t
}

func (c *Checker) checkWhile(sc *scope, e *ast.Expr) string {
	condT := c.checkExpr(sc, e.Cond)
	if condT != Bool && condT != Unknown {
		c.diags.Errorf(e.Cond.Pos, "while condition has type %s, expected bool", condT)
	}
	c.checkExpr(sc, e.Body)
	return Unit
}

func (c *Checker) checkLet(sc *scope, e *ast.Expr) string {
	if e.LetInit != nil {
		initT := c.checkExpr(sc, e.LetInit)
		if !ConformsTo(initT, e.LetType, c.classes) {
			c.diags.Errorf(e.LetInit.Pos, "let %s initializer has type %s, expected %s", e.LetName, initT, e.LetType)
		}
	}
	sc.enter()
	sc.bind(e.LetName, e.LetType)
	t := c.checkExpr(sc, e.LetBody)
	sc.leave()
	return t
}

func (c *Checker) checkBlock(sc *scope, e *ast.Expr) string {
	t := Unit
	for _, sub := range e.Exprs {
		t = c.checkExpr(sc, sub)
	}
	return t
}

func (c *Checker) checkBinOp(sc *scope, e *ast.Expr) string {
	lt := c.checkExpr(sc, e.Lhs)
	rt := c.checkExpr(sc, e.Rhs)
	switch e.Op {
	case "and":
		c.expect(lt, Bool, e.Lhs.Pos)
		c.expect(rt, Bool, e.Rhs.Pos)
		return Bool
	case "+", "-", "*", "/":
		c.expect(lt, Int32, e.Lhs.Pos)
		c.expect(rt, Int32, e.Rhs.Pos)
		return Int32
	case "^":
		c.expect(lt, Int32, e.Lhs.Pos)
		c.expect(rt, Int32, e.Rhs.Pos)
		return Int32
	case "<", "<=":
		c.expect(lt, Int32, e.Lhs.Pos)
		c.expect(rt, Int32, e.Rhs.Pos)
		return Bool
	case "=":
		if lt != Unknown && rt != Unknown && !ConformsTo(lt, rt, c.classes) && !ConformsTo(rt, lt, c.classes) {
			c.diags.Errorf(e.Pos, "cannot compare incompatible types %s and %s", lt, rt)
		}
		return Bool
	}
	return Unknown
}

func (c *Checker) expect(got, want string, pos util.Pos) {
	if got != want && got != Unknown {
		c.diags.Errorf(pos, "expected type %s, found %s", want, got)
	}
}

func (c *Checker) checkUnOp(sc *scope, e *ast.Expr) string {
	t := c.checkExpr(sc, e.Operand)
	switch e.Op {
	case "not":
		c.expect(t, Bool, e.Operand.Pos)
		return Bool
	case "-":
		c.expect(t, Int32, e.Operand.Pos)
		return Int32
	case "isnull":
		if t != Unknown && (isPrimitive(t) || !IsClass(t, c.classes)) {
			c.diags.Errorf(e.Operand.Pos, "isnull requires a class-typed operand, found %s", t)
		}
		return Bool
	}
	return Unknown
}

func (c *Checker) checkCall(sc *scope, e *ast.Expr) string {
	var recvT string
	if e.Receiver != nil {
		recvT = c.checkExpr(sc, e.Receiver)
	} else {
		var ok bool
		recvT, ok = sc.lookup("self")
		if !ok {
			c.diags.Errorf(e.Pos, "method call outside of a method")
			return Unknown
		}
	}
	if recvT == Unknown {
		for _, a := range e.Args {
			c.checkExpr(sc, a)
		}
		return Unknown
	}
	recvClass, ok := c.classes[recvT]
	if !ok {
		c.diags.Errorf(e.Pos, "cannot call a method on non-class type %s", recvT)
		for _, a := range e.Args {
			c.checkExpr(sc, a)
		}
		return Unknown
	}
	m, ok := recvClass.MethodIndex[e.Method]
	if !ok {
		c.diags.Errorf(e.Pos, "class %s has no method %s", recvT, e.Method)
		for _, a := range e.Args {
			c.checkExpr(sc, a)
		}
		return Unknown
	}
	if len(e.Args) != len(m.Formals) {
		c.diags.Errorf(e.Pos, "method %s expects %d argument(s), found %d", e.Method, len(m.Formals), len(e.Args))
	}
	n := len(e.Args)
	if len(m.Formals) < n {
		n = len(m.Formals)
	}
	for i1 := 0; i1 < n; i1++ {
		at := c.checkExpr(sc, e.Args[i1])
		if !ConformsTo(at, m.Formals[i1].Type, c.classes) {
			c.diags.Errorf(e.Args[i1].Pos, "argument %d to %s has type %s, expected %s", i1+1, e.Method, at, m.Formals[i1].Type)
		}
	}
	for i1 := n; i1 < len(e.Args); i1++ {
		c.checkExpr(sc, e.Args[i1])
	}
	return m.ReturnType
}
