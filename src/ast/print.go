package ast

import (
	"fmt"
	"sort"
	"strings"
)

// Print renders p as an S-expression, the conventional VSOP pretty-print form, the
// way the teacher's Node.Print recursively indents a tree -- except VSOP's
// reference pretty-printer format is flat, parenthesized declarations rather than
// an indented tree, so Print builds that instead of reusing Node.Print's shape.
func (p *Program) Print() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i1, c := range p.Order {
		if c.Name == "Object" {
			continue
		}
		if i1 > 0 {
			sb.WriteString(", ")
		}
		c.print(&sb)
	}
	sb.WriteString("]")
	return sb.String()
}

func (c *Class) print(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf("Class(%s, %s, [", c.Name, c.ParentName))
	for i1, f := range c.Fields {
		if i1 > 0 {
			sb.WriteString(", ")
		}
		f.print(sb)
	}
	sb.WriteString("], [")
	for i1, m := range c.Methods {
		if i1 > 0 {
			sb.WriteString(", ")
		}
		m.print(sb)
	}
	sb.WriteString("])")
}

func (f *Field) print(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf("Field(%s, %s", f.Name, f.Type))
	if f.Init != nil {
		sb.WriteString(", ")
		f.Init.print(sb)
	}
	sb.WriteString(")")
}

func (m *Method) print(sb *strings.Builder) {
	sb.WriteString(fmt.Sprintf("Method(%s, [", m.Name))
	for i1, f := range m.Formals {
		if i1 > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", f.Name, f.Type))
	}
	sb.WriteString(fmt.Sprintf("], %s, ", m.ReturnType))
	if m.Body != nil {
		m.Body.print(sb)
	} else {
		sb.WriteString("<builtin>")
	}
	sb.WriteString(")")
}

// String renders e as an S-expression. Primarily used by tests and -p/-c output.
func (e *Expr) String() string {
	var sb strings.Builder
	e.print(&sb)
	return sb.String()
}

func (e *Expr) print(sb *strings.Builder) {
	if e == nil {
		sb.WriteString("<nil>")
		return
	}
	switch e.Kind {
	case KindInteger:
		fmt.Fprintf(sb, "%d", e.IntVal)
	case KindBoolean:
		fmt.Fprintf(sb, "%t", e.BoolVal)
	case KindString:
		fmt.Fprintf(sb, "%q", e.StrVal)
	case KindUnit:
		sb.WriteString("()")
	case KindIdentifier:
		sb.WriteString(e.Name)
	case KindSelf:
		sb.WriteString("self")
	case KindAssign:
		fmt.Fprintf(sb, "%s <- ", e.Name)
		e.Rhs.print(sb)
	case KindNew:
		fmt.Fprintf(sb, "new %s", e.Name)
	case KindIf:
		sb.WriteString("if ")
		e.Cond.print(sb)
		sb.WriteString(" then ")
		e.Then.print(sb)
		if e.Else != nil {
			sb.WriteString(" else ")
			e.Else.print(sb)
		}
	case KindWhile:
		sb.WriteString("while ")
		e.Cond.print(sb)
		sb.WriteString(" do ")
		e.Body.print(sb)
	case KindLet:
		fmt.Fprintf(sb, "let %s: %s", e.LetName, e.LetType)
		if e.LetInit != nil {
			sb.WriteString(" <- ")
			e.LetInit.print(sb)
		}
		sb.WriteString(" in ")
		e.LetBody.print(sb)
	case KindBlock:
		sb.WriteString("{")
		for i1, e1 := range e.Exprs {
			if i1 > 0 {
				sb.WriteString("; ")
			}
			e1.print(sb)
		}
		sb.WriteString("}")
	case KindBinOp:
		e.Lhs.print(sb)
		fmt.Fprintf(sb, " %s ", e.Op)
		e.Rhs.print(sb)
	case KindUnOp:
		sb.WriteString(e.Op)
		sb.WriteString(" ")
		e.Operand.print(sb)
	case KindCall:
		if e.Receiver != nil {
			e.Receiver.print(sb)
			sb.WriteString(".")
		}
		fmt.Fprintf(sb, "%s(", e.Method)
		for i1, a := range e.Args {
			if i1 > 0 {
				sb.WriteString(", ")
			}
			a.print(sb)
		}
		sb.WriteString(")")
	default:
		sb.WriteString("<unknown-expr>")
	}
}

// StringTyped renders e the way -c mode does: e as a whole annotated with its
// inferred semantic type, so a reviewer can see the checker actually ran.
// Sub-expressions are printed without type annotations.
func (e *Expr) StringTyped() string {
	var sb strings.Builder
	e.printTyped(&sb)
	return sb.String()
}

func (e *Expr) printTyped(sb *strings.Builder) {
	if e == nil {
		sb.WriteString("<nil>")
		return
	}
	sb.WriteString("(")
	e.print(sb)
	if e.Type != "" {
		fmt.Fprintf(sb, " : %s", e.Type)
	}
	sb.WriteString(")")
}

// PrintTyped renders p the way -c mode does: every method body annotated with the
// body expression's inferred semantic type (its sub-expressions are not
// annotated), so a reviewer can see the checker actually ran. Classes are printed in name-sorted order for determinism independent of
// declaration order, which the plain Print keeps for emission purposes.
func (p *Program) PrintTyped() string {
	names := make([]string, 0, len(p.Classes))
	for n := range p.Classes {
		if n == "Object" {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, n := range names {
		c := p.Classes[n]
		fmt.Fprintf(&sb, "Class(%s, %s):\n", c.Name, c.ParentName)
		for _, m := range c.Methods {
			fmt.Fprintf(&sb, "  %s: ", m.Name)
			if m.Body != nil {
				m.Body.printTyped(&sb)
			} else {
				sb.WriteString("<builtin>")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
