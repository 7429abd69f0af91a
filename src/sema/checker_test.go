package sema

import (
	"testing"

	"vsopc/src/ast"
	"vsopc/src/frontend"
	"vsopc/src/util"
)

// checkSrc lexes, parses, resolves and type-checks src, returning the
// resolved class graph and any diagnostic messages.
func checkSrc(t *testing.T, src string) (*ast.Program, map[string]*ast.Class, []string) {
	t.Helper()
	prog, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %s", err)
	}
	diags := util.NewDiagnostics("t.vsop")
	classes := Resolve(prog, diags)
	order := make([]*ast.Class, 0, len(classes))
	for _, c := range prog.Order {
		if _, ok := classes[c.Name]; ok {
			order = append(order, c)
		}
	}
	NewChecker(classes, diags).Check(order)
	return prog, classes, diags.Messages()
}

func TestCheckerAcceptsWellTypedProgram(t *testing.T) {
	src := `class Main { main(): int32 { let x: int32 <- 1 + 2 in x } }`
	if _, _, msgs := checkSrc(t, src); len(msgs) != 0 {
		t.Errorf("unexpected errors: %v", msgs)
	}
}

func TestCheckerRejectsTypeMismatchInLet(t *testing.T) {
	src := `class Main { main(): int32 { let x: int32 <- true in 0 } }`
	if _, _, msgs := checkSrc(t, src); len(msgs) == 0 {
		t.Error("expected a type error binding a bool to an int32 let")
	}
}

func TestCheckerIfWithoutElseIsAlwaysUnit(t *testing.T) {
	src := `class Main { main(): int32 { if true then 1; 0 } }`
	if _, _, msgs := checkSrc(t, src); len(msgs) != 0 {
		t.Errorf("if-then without else should type as unit regardless of the then-branch, got errors: %v", msgs)
	}
}

// TestCheckerJoinAtIfS4 is scenario S4: the if's two arms (A, B <: A) join to
// A, and the let binding of x: A succeeds.
func TestCheckerJoinAtIfS4(t *testing.T) {
	src := `class A {}
class B extends A {}
class Main { main(): int32 { let x: A <- if true then new A else new B in 0 } }`
	prog, classes, msgs := checkSrc(t, src)
	if len(msgs) != 0 {
		t.Fatalf("unexpected errors: %v", msgs)
	}
	main := classes["Main"]
	ifExpr := main.Methods[0].Body.LetInit
	if ifExpr.Kind != ast.KindIf {
		t.Fatalf("expected the let's init to be the if, got %s", ifExpr.Kind)
	}
	if ifExpr.Type != "A" {
		t.Errorf("if's joined type = %s, want A", ifExpr.Type)
	}
	_ = prog
}

// TestCheckerStringEqualityS6 is scenario S6: comparing two strings for
// equality type-checks to bool.
func TestCheckerStringEqualityS6(t *testing.T) {
	src := `class Main { main(): int32 { if "ab" = "ab" then 0 else 1 } }`
	_, classes, msgs := checkSrc(t, src)
	if len(msgs) != 0 {
		t.Fatalf("unexpected errors: %v", msgs)
	}
	cond := classes["Main"].Methods[0].Body.Cond
	if cond.Type != Bool {
		t.Errorf("string equality's type = %s, want bool", cond.Type)
	}
}

// TestCheckerVirtualDispatchTypesS7 is scenario S7: calling f() through an
// A-typed reference to a B resolves statically to A's declared signature; the
// dynamic override is purely a codegen/llvm-lowered property.
func TestCheckerVirtualDispatchTypesS7(t *testing.T) {
	src := `class A { f(): int32 { 1 } }
class B extends A { f(): int32 { 2 } }
class Main { main(): int32 { let x: A <- new B in x.f() } }`
	_, _, msgs := checkSrc(t, src)
	if len(msgs) != 0 {
		t.Fatalf("unexpected errors: %v", msgs)
	}
}

func TestCheckerRejectsUnknownMethod(t *testing.T) {
	src := `class Main { main(): int32 { self.nope() } }`
	if _, _, msgs := checkSrc(t, src); len(msgs) == 0 {
		t.Error("expected an error calling an undeclared method")
	}
}

func TestCheckerIsnullRejectsPrimitives(t *testing.T) {
	src := `class Main { main(): int32 { if isnull 1 then 0 else 1 } }`
	if _, _, msgs := checkSrc(t, src); len(msgs) == 0 {
		t.Error("expected an error: isnull on a primitive int32")
	}
}
