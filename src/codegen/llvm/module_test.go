package llvm

import (
	"testing"

	"vsopc/src/ast"
	"vsopc/src/sema"
	"vsopc/src/util"
)

// buildGraph resolves a tiny hand-built program through sema so FieldIndex,
// MethodIndex and every VtableIndex are filled in exactly as the lowerer
// expects to find them.
func buildGraph(t *testing.T, classes ...*ast.Class) map[string]*ast.Class {
	t.Helper()
	m := map[string]*ast.Class{}
	for _, c := range classes {
		m[c.Name] = c
	}
	m["Main"] = &ast.Class{
		Name:       "Main",
		ParentName: "Object",
		Methods:    []*ast.Method{{Name: "main", ReturnType: sema.Int32}},
	}
	order := append(classes, m["Main"])
	prog := &ast.Program{Classes: m, Order: order}
	diags := util.NewDiagnostics("t.vsop")
	resolved := sema.Resolve(prog, diags)
	if diags.Count() != 0 {
		t.Fatalf("unexpected resolve errors: %v", diags.Messages())
	}
	return resolved
}

func TestTopoOrderParentBeforeChild(t *testing.T) {
	a := &ast.Class{Name: "A", ParentName: "Object"}
	b := &ast.Class{Name: "B", ParentName: "A"}
	classes := buildGraph(t, a, b)
	order := topoOrder(classes)

	pos := map[string]int{}
	for i1, c := range order {
		pos[c.Name] = i1
	}
	if pos["Object"] >= pos["A"] {
		t.Error("Object should come before A")
	}
	if pos["A"] >= pos["B"] {
		t.Error("A should come before B")
	}
}

func TestOrderedFieldsSkipsUnitAndSortsBySlot(t *testing.T) {
	a := &ast.Class{
		Name:       "A",
		ParentName: "Object",
		Fields: []*ast.Field{
			{Name: "x", Type: sema.Int32},
			{Name: "u", Type: sema.Unit},
			{Name: "y", Type: sema.Bool},
		},
	}
	classes := buildGraph(t, a)
	fields := orderedFields(classes["A"])
	if len(fields) != 2 {
		t.Fatalf("expected 2 non-unit fields, got %d", len(fields))
	}
	if fields[0].Name != "x" || fields[1].Name != "y" {
		t.Errorf("expected [x, y] in slot order, got [%s, %s]", fields[0].Name, fields[1].Name)
	}
}

func TestOrderedMethodsResolvesOverrideAtParentSlot(t *testing.T) {
	p := &ast.Class{
		Name:       "P",
		ParentName: "Object",
		Methods:    []*ast.Method{{Name: "f", ReturnType: sema.Int32}},
	}
	c := &ast.Class{
		Name:       "C",
		ParentName: "P",
		Methods:    []*ast.Method{{Name: "f", ReturnType: sema.Int32}},
	}
	classes := buildGraph(t, p, c)
	methods := orderedMethods(classes["C"])
	last := methods[len(methods)-1]
	if last.Name != "f" || last.Owner.Name != "C" {
		t.Errorf("expected C's override of f to occupy its vtable slot, got %s owned by %s", last.Name, last.Owner.Name)
	}
}
