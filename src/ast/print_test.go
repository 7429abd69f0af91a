package ast

import (
	"strings"
	"testing"
)

func TestExprPrintLiterals(t *testing.T) {
	cases := []struct {
		e    *Expr
		want string
	}{
		{&Expr{Kind: KindInteger, IntVal: 42}, "42"},
		{&Expr{Kind: KindBoolean, BoolVal: true}, "true"},
		{&Expr{Kind: KindUnit}, "()"},
		{&Expr{Kind: KindSelf}, "self"},
		{&Expr{Kind: KindIdentifier, Name: "x"}, "x"},
	}
	for _, c := range cases {
		if got := c.e.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestExprPrintIf(t *testing.T) {
	e := &Expr{
		Kind: KindIf,
		Cond: &Expr{Kind: KindBoolean, BoolVal: true},
		Then: &Expr{Kind: KindInteger, IntVal: 1},
		Else: &Expr{Kind: KindInteger, IntVal: 2},
	}
	want := "if true then 1 else 2"
	if got := e.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestExprPrintCall(t *testing.T) {
	e := &Expr{
		Kind:   KindCall,
		Method: "foo",
		Args:   []*Expr{{Kind: KindInteger, IntVal: 1}, {Kind: KindInteger, IntVal: 2}},
	}
	want := "foo(1, 2)"
	if got := e.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestProgramPrintSkipsObject(t *testing.T) {
	object := &Class{Name: "Object", ParentName: "Object"}
	main := &Class{Name: "Main", ParentName: "Object"}
	p := &Program{
		Classes: map[string]*Class{"Object": object, "Main": main},
		Order:   []*Class{object, main},
	}
	out := p.Print()
	if strings.Contains(out, "Class(Object") {
		t.Errorf("Print() should not mention Object, got %q", out)
	}
	if !strings.Contains(out, "Class(Main, Object") {
		t.Errorf("Print() = %q, want it to mention Main", out)
	}
}

func TestExprKindString(t *testing.T) {
	if KindInteger.String() != "Integer" {
		t.Errorf("KindInteger.String() = %q", KindInteger.String())
	}
	if ExprKind(999).String() != "???" {
		t.Errorf("out-of-range ExprKind.String() = %q, want ???", ExprKind(999).String())
	}
}
