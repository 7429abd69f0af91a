package sema

import (
	"testing"

	"vsopc/src/ast"
)

func classGraph() map[string]*ast.Class {
	object := &ast.Class{Name: "Object"}
	a := &ast.Class{Name: "A", Parent: object}
	b := &ast.Class{Name: "B", Parent: a}
	c := &ast.Class{Name: "C", Parent: a}
	return map[string]*ast.Class{"Object": object, "A": a, "B": b, "C": c}
}

func TestConformsToReflexive(t *testing.T) {
	classes := classGraph()
	for _, name := range []string{"Object", "A", "B", "C", Int32, Bool, String, Unit} {
		if !ConformsTo(name, name, classes) {
			t.Errorf("ConformsTo(%s, %s) = false, want true", name, name)
		}
	}
}

func TestConformsToClassChain(t *testing.T) {
	classes := classGraph()
	if !ConformsTo("B", "A", classes) {
		t.Error("B should conform to A")
	}
	if !ConformsTo("B", "Object", classes) {
		t.Error("B should conform to Object")
	}
	if ConformsTo("A", "B", classes) {
		t.Error("A should not conform to B")
	}
	if ConformsTo("B", "C", classes) {
		t.Error("B should not conform to C (siblings)")
	}
}

func TestConformsToPrimitivesAreExact(t *testing.T) {
	classes := classGraph()
	if ConformsTo(Int32, Bool, classes) {
		t.Error("int32 should not conform to bool")
	}
	if ConformsTo(Int32, "A", classes) {
		t.Error("a primitive should never conform to a class")
	}
}

func TestConformsToUnknownIsUniversal(t *testing.T) {
	classes := classGraph()
	if !ConformsTo(Unknown, "A", classes) || !ConformsTo("A", Unknown, classes) {
		t.Error("Unknown should conform to and from everything")
	}
}

func TestJoinIsCommutative(t *testing.T) {
	classes := classGraph()
	pairs := [][2]string{{"B", "C"}, {"B", "A"}, {"A", "A"}, {Int32, Int32}, {Int32, Bool}}
	for _, p := range pairs {
		j1 := Join(p[0], p[1], classes)
		j2 := Join(p[1], p[0], classes)
		if j1 != j2 {
			t.Errorf("Join(%s,%s)=%s but Join(%s,%s)=%s", p[0], p[1], j1, p[1], p[0], j2)
		}
	}
}

func TestJoinSiblingsMeetAtParent(t *testing.T) {
	classes := classGraph()
	if got := Join("B", "C", classes); got != "A" {
		t.Errorf("Join(B,C) = %s, want A", got)
	}
}

func TestJoinMismatchedPrimitivesIsUnknown(t *testing.T) {
	classes := classGraph()
	if got := Join(Int32, Bool, classes); got != Unknown {
		t.Errorf("Join(int32,bool) = %s, want Unknown", got)
	}
}

func TestJoinClassAndPrimitiveIsUnknown(t *testing.T) {
	classes := classGraph()
	if got := Join("A", Int32, classes); got != Unknown {
		t.Errorf("Join(A,int32) = %s, want Unknown", got)
	}
}

// TestJoinUnitAlwaysWins covers the rule that when either side of a join is
// unit, the result is unit -- regardless of what the other side is.
func TestJoinUnitAlwaysWins(t *testing.T) {
	classes := classGraph()
	if got := Join(Unit, "A", classes); got != Unit {
		t.Errorf("Join(unit,A) = %s, want unit", got)
	}
	if got := Join("B", Unit, classes); got != Unit {
		t.Errorf("Join(B,unit) = %s, want unit", got)
	}
	if got := Join(Unit, Int32, classes); got != Unit {
		t.Errorf("Join(unit,int32) = %s, want unit", got)
	}
}

func TestIsClass(t *testing.T) {
	classes := classGraph()
	if !IsClass("Object", classes) {
		t.Error("Object should be a class")
	}
	if IsClass(Int32, classes) {
		t.Error("int32 should not be a class")
	}
}
