package frontend

import (
	"testing"

	"vsopc/src/ast"
)

func mustParse(t *testing.T, src string) *ast1Method {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error: %s", src, err)
	}
	if len(prog.Order) == 0 {
		t.Fatalf("Parse(%q) produced no classes", src)
	}
	c := prog.Order[0]
	if len(c.Methods) == 0 {
		t.Fatalf("Parse(%q) produced no methods on %s", src, c.Name)
	}
	return &ast1Method{body: c.Methods[0].Body}
}

// ast1Method is a thin holder for a parsed method body; most tests only compare
// its printed form, and the tree-shape tests assert it back to *ast.Expr.
type ast1Method struct {
	body interface{ String() string }
}

func parseClassWithBody(body string) string {
	return "class Main { main(): int32 { " + body + " } }"
}

func TestParserLiterals(t *testing.T) {
	cases := map[string]string{
		"42":        "42",
		"true":      "true",
		"false":     "false",
		`"hi"`:      `"hi"`,
		"()":        "()",
		"self":      "self",
		"new Main":  "new Main",
	}
	for src, want := range cases {
		m := mustParse(t, parseClassWithBody(src))
		if got := m.body.String(); got != want {
			t.Errorf("parse(%q).String() = %q, want %q", src, got, want)
		}
	}
}

func TestParserPrecedence(t *testing.T) {
	m := mustParse(t, parseClassWithBody("1 + 2 * 3"))
	want := "1 + 2 * 3"
	if got := m.body.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	e := m.body.(*ast.Expr)
	if e.Op != "+" || e.Rhs.Kind != ast.KindBinOp || e.Rhs.Op != "*" {
		t.Errorf("1 + 2 * 3 should parse as 1 + (2 * 3), got lhs %q rhs %q", e.Lhs, e.Rhs)
	}
}

func TestParserPowIsRightAssociativeAndBindsTighterThanUnary(t *testing.T) {
	m := mustParse(t, parseClassWithBody("2 ^ 3"))
	if got := m.body.String(); got != "2 ^ 3" {
		t.Errorf("got %q", got)
	}
	e := mustParse(t, parseClassWithBody("2 ^ 3 ^ 2")).body.(*ast.Expr)
	if e.Op != "^" || e.Lhs.Kind != ast.KindInteger || e.Rhs.Kind != ast.KindBinOp || e.Rhs.Op != "^" {
		t.Errorf("2 ^ 3 ^ 2 should parse as 2 ^ (3 ^ 2), got lhs %q rhs %q", e.Lhs, e.Rhs)
	}
	u := mustParse(t, parseClassWithBody("-2 ^ 2")).body.(*ast.Expr)
	if u.Kind != ast.KindUnOp || u.Op != "-" || u.Operand.Kind != ast.KindBinOp || u.Operand.Op != "^" {
		t.Errorf("-2 ^ 2 should parse as -(2 ^ 2), got %s", u.Kind)
	}
}

func TestParserIfElse(t *testing.T) {
	m := mustParse(t, parseClassWithBody("if true then 1 else 2"))
	want := "if true then 1 else 2"
	if got := m.body.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParserWhile(t *testing.T) {
	m := mustParse(t, parseClassWithBody("while true do 1"))
	want := "while true do 1"
	if got := m.body.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParserLet(t *testing.T) {
	m := mustParse(t, parseClassWithBody("let x: int32 <- 1 in x"))
	want := "let x: int32 <- 1 in x"
	if got := m.body.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParserMethodCallChain(t *testing.T) {
	m := mustParse(t, parseClassWithBody("self.foo(1, 2).bar()"))
	want := "self.foo(1, 2).bar()"
	if got := m.body.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParserAssignIsRightAssociative(t *testing.T) {
	m := mustParse(t, parseClassWithBody("{x <- 1; x}"))
	want := "{x <- 1; x}"
	if got := m.body.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	b := mustParse(t, parseClassWithBody("{x <- y <- 1; x}")).body.(*ast.Expr)
	a := b.Exprs[0]
	if a.Kind != ast.KindAssign || a.Name != "x" || a.Rhs.Kind != ast.KindAssign || a.Rhs.Name != "y" {
		t.Errorf("x <- y <- 1 should parse as x <- (y <- 1), got %q", a)
	}
}

// TestExprRoundTrip is spec.md's pretty-print/re-parse Testable Property:
// printing an expression, reparsing the printed text, and printing again
// yields the same text.
func TestExprRoundTrip(t *testing.T) {
	srcs := []string{
		"1 + 2 * 3 - 4 / 2",
		"if a.f() then self.g(1, 2) else new Foo",
		"let x: int32 <- 1 in while x < 10 do x <- x + 1",
		"not true and false",
		"isnull new Foo",
		"-1 ^ 2",
	}
	for _, src := range srcs {
		m1 := mustParse(t, parseClassWithBody(src))
		printed := m1.body.String()
		m2 := mustParse(t, parseClassWithBody(printed))
		reprinted := m2.body.String()
		if printed != reprinted {
			t.Errorf("round-trip mismatch for %q: first print %q, second print %q", src, printed, reprinted)
		}
	}
}

func TestParserRejectsMissingSemicolon(t *testing.T) {
	_, err := Parse(parseClassWithBody("{1 2}"))
	if err == nil {
		t.Error("expected a syntax error for a missing semicolon between block expressions")
	}
}

func TestParserIntegerWraparound(t *testing.T) {
	n, err := parseIntegerLiteral("4294967295")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n != -1 {
		t.Errorf("parseIntegerLiteral(4294967295) = %d, want -1 (wraps to uint32 max)", n)
	}
}

func TestParserHexInteger(t *testing.T) {
	n, err := parseIntegerLiteral("0x2A")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n != 42 {
		t.Errorf("parseIntegerLiteral(0x2A) = %d, want 42", n)
	}
}
